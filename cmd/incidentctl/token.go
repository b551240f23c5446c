package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/domain"
)

func newTokenCmd() *cobra.Command {
	var (
		subject      string
		organization string
		role         string
		ttlMinutes   int
	)
	cmd := &cobra.Command{
		Use:     "token",
		Short:   "Mint a development bearer token signed with AUTH_JWT_SECRET",
		Example: `  incidentctl token --sub agent-1 --org acme --role team_lead`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ttlMinutes <= 0 {
				ttlMinutes = cfg.Auth.AccessTokenTTLMinutes
			}
			switch r := domain.StaffRole(role); r {
			case domain.StaffRoleAgent, domain.StaffRoleTeamLead, domain.StaffRoleAdmin:
			default:
				return fmt.Errorf("invalid role %q", role)
			}

			token, expiresAt, err := auth.NewTokenManager(cfg.Auth.JWTSecret, ttlMinutes).
				GenerateToken(subject, organization, domain.StaffRole(role))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(out, "expires: %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "Staff member id")
	cmd.Flags().StringVar(&organization, "org", "", "Organization id")
	cmd.Flags().StringVar(&role, "role", string(domain.StaffRoleAgent), "Role: agent, team_lead or admin")
	cmd.Flags().IntVar(&ttlMinutes, "ttl", 0, "Lifetime in minutes (default AUTH_ACCESS_TOKEN_TTL_MINUTES)")
	_ = cmd.MarkFlagRequired("sub")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
