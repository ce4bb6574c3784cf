package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/robotctl/internal/ecovacs"
	"github.com/nerrad567/robotctl/internal/infrastructure/config"
	"github.com/nerrad567/robotctl/internal/robot"
)

func newCallCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		nickname string
		act      string
	)

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool and print the envelope",
		Long: `Invoke one tool against the upstream API and print the JSON envelope.

Tools: set_cleaning, set_charging, get_work_state, get_device_list.
A failed upstream call still prints its envelope and exits 0; only unknown
tools and invalid arguments are errors.`,
		Example: `  robotctl call get_device_list
  robotctl call set_cleaning --nickname Rosie --act p
  robotctl call set_charging --nickname Rosie`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			names := make([]string, 0, len(robot.Tools()))
			for _, t := range robot.Tools() {
				names = append(names, t.Name)
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			client, err := ecovacs.New(cfg.Upstream)
			if err != nil {
				return fmt.Errorf("creating upstream client: %w", err)
			}

			toolArgs := map[string]any{}
			if cmd.Flags().Changed("nickname") {
				toolArgs[robot.ArgNickname] = nickname
			}
			if cmd.Flags().Changed("act") {
				toolArgs[robot.ArgAct] = act
			}

			env, err := robot.NewService(client).Invoke(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(env)
		},
	}
	cmd.Flags().StringVarP(&nickname, "nickname", "n", "", "Robot nickname")
	cmd.Flags().StringVarP(&act, "act", "a", "", "Action code (set_cleaning: s|r|p|h, set_charging: go-start|stopGo)")
	return cmd
}
