package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// DayKeyResult is the resolver output for one instant.
type DayKeyResult struct {
	Now          string `json:"now"`
	Timezone     string `json:"timezone"`
	CutoffHour   int    `json:"cutoff_hour"`
	LogicalDate  string `json:"logical_date"`
	PreviousDate string `json:"previous_date"`
	MatchingDate string `json:"matching_date"`
}

// NewDayKeyCommand creates the daykey command.
func NewDayKeyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daykey",
		Short: "Print the logical and matching dates for now (or --at)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newResolver(opts)
			if err != nil {
				return err
			}
			res := DayKeyResult{
				Now:          r.Now().Format(time.RFC3339),
				Timezone:     r.Location().String(),
				CutoffHour:   r.CutoffHour(),
				LogicalDate:  r.CurrentLogicalDate(),
				PreviousDate: r.PreviousLogicalDate(),
				MatchingDate: r.MatchingTargetDate(),
			}
			text := fmt.Sprintf("now:       %s (%s, cutoff %02d:00)\nlogical:   %s\nprevious:  %s\nmatching:  %s",
				res.Now, res.Timezone, res.CutoffHour, res.LogicalDate, res.PreviousDate, res.MatchingDate)
			return formatter(cmd, opts).Success(res, text)
		},
	}
}
