package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/cohorthub/internal/app/policy/profilepolicy"
	"github.com/spf13/cobra"
)

func newEngine(e *env) *profilepolicy.Engine {
	return profilepolicy.New(profilepolicy.Deps{
		Resolver:     e.resolver,
		Cohorts:      e.cohorts,
		Participants: e.participants,
		Submissions:  e.submissions,
		Assignments:  e.assignments,
		Log:          e.log,
	})
}

// NewAccessCommand creates the access command group.
func NewAccessCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Evaluate profile access decisions",
	}
	cmd.AddCommand(newAccessCheckCommand(opts))
	cmd.AddCommand(newAccessSummaryCommand(opts))
	return cmd
}

// AccessResult is the output of access check.
type AccessResult struct {
	ViewerID string `json:"viewer_id"`
	TargetID string `json:"target_id"`
	CohortID string `json:"cohort_id"`
	profilepolicy.Decision
}

func newAccessCheckCommand(opts *RootOptions) *cobra.Command {
	var viewer, target, cohort string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Decide whether --viewer may open --target's profile",
		Long: `Decide whether --viewer may open --target's profile in --cohort.

Exits 0 when allowed and 1 when denied, so scripts can test the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				dec, err := newEngine(e).CanView(ctx, viewer, target, cohort)
				if err != nil {
					return WrapExitError(ExitCommandError, "access check", err)
				}
				res := AccessResult{ViewerID: viewer, TargetID: target, CohortID: cohort, Decision: dec}
				verdict := "denied"
				if dec.Allowed {
					verdict = "allowed"
				}
				if err := formatter(cmd, opts).Success(res, fmt.Sprintf("%s (%s)", verdict, dec.Reason)); err != nil {
					return err
				}
				if !dec.Allowed {
					return &ExitError{Code: ExitFailure, Message: "access denied: " + dec.Reason}
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&viewer, "viewer", "", "viewer participant id")
	f.StringVar(&target, "target", "", "target participant id")
	f.StringVar(&cohort, "cohort", "", "cohort id")
	_ = cmd.MarkFlagRequired("viewer")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("cohort")
	return cmd
}

func newAccessSummaryCommand(opts *RootOptions) *cobra.Command {
	var viewer, cohort string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a viewer's profile-book allowance for today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				s, err := newEngine(e).Summary(ctx, viewer, cohort)
				if err != nil {
					return WrapExitError(ExitCommandError, "access summary", err)
				}
				text := fmt.Sprintf("%s on %s: %d approved days, %d/%d profile books unlocked\nfeatured (%s): %s",
					s.ViewerID, s.LogicalDate, s.ApprovedDays, s.Unlocked, s.Quota, s.MatchingDate, strings.Join(s.Featured, ", "))
				return formatter(cmd, opts).Success(s, text)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&viewer, "viewer", "", "viewer participant id")
	f.StringVar(&cohort, "cohort", "", "cohort id")
	_ = cmd.MarkFlagRequired("viewer")
	_ = cmd.MarkFlagRequired("cohort")
	return cmd
}
