package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/sla"
)

func newDeadlineCmd() *cobra.Command {
	var (
		start        string
		prio         string
		minutes      int
		wallClock    bool
		organization string
	)
	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Compute SLA deadlines against the configured business calendar",
		Long: `Without --minutes the default response and resolution targets of --priority
are used. With --minutes a single deadline is printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from := time.Now().UTC()
			if start != "" {
				parsed, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				from = parsed
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			calendars, err := sla.LoadCalendars(cfg.SLA)
			if err != nil {
				return err
			}
			cal := calendars.For(organization)
			out := cmd.OutOrStdout()

			if minutes > 0 {
				fmt.Fprintln(out, sla.CalculateDeadline(from, minutes, !wallClock, cal).Format(time.RFC3339))
				return nil
			}
			p, ok := domain.ParsePriority(prio)
			if !ok {
				return fmt.Errorf("invalid priority %q", prio)
			}
			targets := sla.DefaultTargets(p)
			fmt.Fprintf(out, "response:   %s\n", sla.CalculateDeadline(from, targets.ResponseMinutes, targets.BusinessHoursOnly, cal).Format(time.RFC3339))
			fmt.Fprintf(out, "resolution: %s\n", sla.CalculateDeadline(from, targets.ResolutionMinutes, targets.BusinessHoursOnly, cal).Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start instant in RFC3339 (default now)")
	cmd.Flags().StringVar(&prio, "priority", "medium", "Priority whose default targets are used")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Explicit duration in minutes")
	cmd.Flags().BoolVar(&wallClock, "wall-clock", false, "Count every minute instead of business minutes")
	cmd.Flags().StringVar(&organization, "org", "", "Organization whose calendar applies")
	return cmd
}
