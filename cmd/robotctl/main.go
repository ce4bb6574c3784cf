// robotctl - remote control tools for Ecovacs cleaning robots
//
// robotctl exposes start/pause/resume/stop cleaning, return-to-dock, work
// state and device listing as tools for an agent host over MCP stdio, and
// optionally over an authenticated HTTP API and an MQTT request bridge.
// Every tool forwards one request to the Ecovacs open platform API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/robotctl/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// defaultConfigPath is used when neither --config nor ROBOTCTL_CONFIG is set.
// A missing file at this path means built-in defaults.
const defaultConfigPath = "configs/config.yaml"

// configEnvVar names the environment variable holding the config file path.
const configEnvVar = "ROBOTCTL_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Streams are injected for tests; the
// MCP protocol owns out when serving, so logs always go to errOut.
func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "robotctl",
		Short: "robotctl - Ecovacs robot control tools for agents",
		Long: `robotctl exposes Ecovacs cleaning robot controls as tools.

Run without a subcommand to serve the tools over MCP stdio. The HTTP API,
MQTT bridge, call history and metrics are enabled in the config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = versionString()
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (default $"+configEnvVar+" or "+defaultConfigPath+")")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	serveCmd := newServeCmd(load)
	root.RunE = serveCmd.RunE
	root.Flags().AddFlagSet(serveCmd.Flags())

	root.AddCommand(
		serveCmd,
		newCallCmd(load),
		newTokenCmd(load),
		newMigrateCmd(load),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionString())
			return err
		},
	}
}

func versionString() string {
	return fmt.Sprintf("robotctl %s (commit %s, built %s)", version, commit, date)
}

// resolveConfigPath picks the config file: flag, then environment, then
// the default. explicit reports whether the path was asked for by the user.
func resolveConfigPath(flagPath string) (path string, explicit bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if p := os.Getenv(configEnvVar); p != "" {
		return p, true
	}
	return defaultConfigPath, false
}

// loadConfig loads and validates the configuration. A missing file is an
// error only when the path was given explicitly.
func loadConfig(flagPath string) (*config.Config, error) {
	path, explicit := resolveConfigPath(flagPath)

	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
