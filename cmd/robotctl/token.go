package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/robotctl/internal/auth"
	"github.com/nerrad567/robotctl/internal/infrastructure/config"
)

func newTokenCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HTTP API bearer token",
		Long: `Mint a signed bearer token for the HTTP API using security.jwt.secret.

Roles: viewer (list tools, read call history, WebSocket events) and
operator (viewer plus invoking tools). The token is printed on stdout.`,
		Example: `  robotctl token --subject home-assistant --role operator --ttl 720h`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Security.JWT.Secret == "" {
				return errors.New("security.jwt.secret is not set (ROBOTCTL_JWT_SECRET)")
			}

			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.TokenTTL()
			}

			tok, err := auth.GenerateToken(subject, auth.Role(role), cfg.Security.JWT.Secret, ttl)
			if err != nil {
				return fmt.Errorf("minting token: %w", err)
			}

			perms := auth.PermissionsForRole(auth.Role(role))
			fmt.Fprintf(cmd.ErrOrStderr(), "role %s grants: %s\n", role, joinPermissions(perms)) //nolint:errcheck // informational

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Who the token is for (required)")
	cmd.Flags().StringVarP(&role, "role", "r", string(auth.RoleViewer), "Token role: viewer or operator")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default security.jwt.token_ttl)")
	//nolint:errcheck // flag is defined above
	cmd.MarkFlagRequired("subject")
	return cmd
}

func joinPermissions(perms []auth.Permission) string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
