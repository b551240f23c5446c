package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/priority"
)

func newPriorityCmd() *cobra.Command {
	var impact, urgency string
	cmd := &cobra.Command{
		Use:   "priority",
		Short: "Derive priority from impact and urgency",
		Example: `  incidentctl priority --impact medium --urgency critical
  high`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			i, ok := domain.ParsePriority(impact)
			if !ok {
				return fmt.Errorf("invalid impact %q", impact)
			}
			u, ok := domain.ParsePriority(urgency)
			if !ok {
				return fmt.Errorf("invalid urgency %q", urgency)
			}
			fmt.Fprintln(cmd.OutOrStdout(), priority.Calculate(i, u))
			return nil
		},
	}
	cmd.Flags().StringVar(&impact, "impact", "", "Impact: critical, high, medium or low")
	cmd.Flags().StringVar(&urgency, "urgency", "", "Urgency: critical, high, medium or low")
	_ = cmd.MarkFlagRequired("impact")
	_ = cmd.MarkFlagRequired("urgency")
	return cmd
}
