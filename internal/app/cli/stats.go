package cli

import (
	"context"
	"fmt"

	metricsstore "github.com/dalemusser/cohorthub/internal/app/store/metrics"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	var cohort, date string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show participant, submission and matching counts for a cohort",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" && !daykey.ValidDate(date) {
				return WrapExitError(ExitCommandError, "invalid --date", fmt.Errorf("%w: %q", daykey.ErrBadDate, date))
			}
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				d := date
				if d == "" {
					d = e.resolver.CurrentLogicalDate()
				}
				c := metricsstore.FetchCohortCounts(ctx, e.db, cohort, d)
				text := fmt.Sprintf(`cohort %s on %s
participants: %d (staff %d, ghosts %d)
submissions:  %d pending, %d approved, %d rejected
matching:     committed=%t, %d dates, %d live backups`,
					cohort, d, c.Participants, c.Staff, c.Ghosts,
					c.Pending, c.Approved, c.Rejected,
					c.Committed, c.CommittedDates, c.Backups)
				return formatter(cmd, opts).Success(c, text)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&cohort, "cohort", "", "cohort id")
	f.StringVar(&date, "date", "", "logical date (default: current logical date)")
	_ = cmd.MarkFlagRequired("cohort")
	return cmd
}
