package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cohortstore "github.com/dalemusser/cohorthub/internal/app/store/cohorts"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/spf13/cobra"
)

// NewCohortCommand creates the cohort command group.
func NewCohortCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cohort",
		Short: "Create and list cohorts",
	}
	cmd.AddCommand(newCohortCreateCommand(opts))
	cmd.AddCommand(newCohortListCommand(opts))
	return cmd
}

func newCohortCreateCommand(opts *RootOptions) *cobra.Command {
	var c models.Cohort
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a cohort",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Name = args[0]
			c.IsActive = true
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				created, err := e.cohorts.Create(ctx, c)
				switch {
				case errors.Is(err, cohortstore.ErrInvalid), errors.Is(err, cohortstore.ErrDuplicate):
					return WrapExitError(ExitFailure, "create cohort", err)
				case err != nil:
					return WrapExitError(ExitCommandError, "create cohort", err)
				}
				n, _ := created.ProgramLength()
				return formatter(cmd, opts).Success(created,
					fmt.Sprintf("created cohort %s (%s, starts %s, %d days)", created.ID, created.Name, created.StartDate, n))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.ID, "id", "", "cohort id (generated when empty)")
	f.StringVar(&c.StartDate, "start", "", "first program day (YYYY-MM-DD)")
	f.StringVar(&c.EndDate, "end", "", "last program day (YYYY-MM-DD)")
	f.IntVar(&c.ProgramDays, "days", 0, "program length in days (overrides --end)")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newCohortListCommand(opts *RootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cohorts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				cohorts, err := e.cohorts.List(ctx, !all)
				if err != nil {
					return WrapExitError(ExitCommandError, "list cohorts", err)
				}
				var b strings.Builder
				for i, c := range cohorts {
					if i > 0 {
						b.WriteByte('\n')
					}
					day, _ := c.ProgramDay(e.resolver.CurrentLogicalDate())
					n, _ := c.ProgramLength()
					fmt.Fprintf(&b, "%s  %-24s start %s  day %d/%d", c.ID, c.Name, c.StartDate, day, n)
				}
				return formatter(cmd, opts).Success(cohorts, b.String())
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive cohorts")
	return cmd
}
