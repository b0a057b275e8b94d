package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/spf13/cobra"
)

// refused reports whether err is an expected refusal rather than a fault.
func refused(err error) bool {
	return errors.Is(err, assignmentstore.ErrAlreadyCommitted) ||
		errors.Is(err, assignmentstore.ErrValidation) ||
		errors.Is(err, assignmentstore.ErrNotFound) ||
		errors.Is(err, assignmentstore.ErrCohortNotFound) ||
		errors.Is(err, daykey.ErrBadDate)
}

func storeError(msg string, err error) error {
	if refused(err) {
		return WrapExitError(ExitFailure, msg, err)
	}
	return WrapExitError(ExitCommandError, msg, err)
}

// NewMatchingCommand creates the matching command group.
func NewMatchingCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matching",
		Short: "Inspect, commit and clear daily assignment sets",
	}
	cmd.AddCommand(newMatchingGetCommand(opts))
	cmd.AddCommand(newMatchingDatesCommand(opts))
	cmd.AddCommand(newMatchingCommitCommand(opts))
	cmd.AddCommand(newMatchingClearCommand(opts))
	cmd.AddCommand(newMatchingRepairCommand(opts))
	return cmd
}

func newMatchingGetCommand(opts *RootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "get <cohort-id>",
		Short: "Show the assignment set for a date (default: matching target date)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				d := date
				if d == "" {
					d = e.resolver.MatchingTargetDate()
				}
				set, err := e.assignments.Get(ctx, args[0], d)
				if err != nil {
					return storeError("get "+args[0]+" "+d, err)
				}
				return formatter(cmd, opts).Success(set, describeSet(args[0], d, set))
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "logical date (YYYY-MM-DD)")
	return cmd
}

func describeSet(cohortID, date string, set models.DailyAssignmentSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cohort %s, %s: %d viewers", cohortID, date, len(set.Assignments))
	if set.MatchingVersion != "" {
		fmt.Fprintf(&b, " (%s)", set.MatchingVersion)
	}
	viewers := make([]string, 0, len(set.Assignments))
	for id := range set.Assignments {
		viewers = append(viewers, id)
	}
	sort.Strings(viewers)
	for _, id := range viewers {
		fmt.Fprintf(&b, "\n  %s -> %s", id, strings.Join(set.Assignments[id].AllTargets(), ", "))
	}
	return b.String()
}

func newMatchingDatesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dates <cohort-id>",
		Short: "List dates with a committed assignment set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				dates, err := e.assignments.ListDates(ctx, args[0])
				if err != nil {
					return storeError("list dates for "+args[0], err)
				}
				return formatter(cmd, opts).Success(dates, strings.Join(dates, "\n"))
			})
		},
	}
}

// commitFile is the JSON accepted by matching commit.
type commitFile struct {
	Date            string                       `json:"date"`
	Assignments     map[string]models.Assignment `json:"assignments"`
	MatchingVersion string                       `json:"matching_version"`
}

func readCommitFile(path string, stdin io.Reader) (commitFile, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return commitFile{}, err
		}
		defer f.Close()
		r = f
	}
	var cf commitFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cf); err != nil {
		return commitFile{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cf, nil
}

func newMatchingCommitCommand(opts *RootOptions) *cobra.Command {
	var (
		file  string
		date  string
		actor string
	)
	cmd := &cobra.Command{
		Use:   "commit <cohort-id>",
		Short: "Commit an assignment set read from a JSON file (or - for stdin)",
		Long: `Commit an assignment set. The set for a (cohort, date) can be committed
only once; clear it first to replace it.

The file holds {"date", "assignments", "matching_version"}. --date overrides
the file's date; with neither, the current logical date is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf, err := readCommitFile(file, cmd.InOrStdin())
			if err != nil {
				return WrapExitError(ExitCommandError, "read assignment file", err)
			}
			if date != "" {
				cf.Date = date
			}
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				if cf.Date == "" {
					cf.Date = e.resolver.CurrentLogicalDate()
				}
				in := assignmentstore.CommitInput{
					CohortID:        args[0],
					Date:            cf.Date,
					Assignments:     cf.Assignments,
					MatchingVersion: cf.MatchingVersion,
					CommittedBy:     actor,
				}

				cctx, cancel := timeouts.WithTimeout(ctx, timeouts.Commit(), e.log, "matching commit")
				res, err := e.assignments.Commit(cctx, in)
				cancel()
				if err != nil {
					if errors.Is(err, assignmentstore.ErrAlreadyCommitted) || errors.Is(err, assignmentstore.ErrValidation) {
						e.audit.MatchingCommitRejected(ctx, cliActor(actor), in.CohortID, in.Date, err.Error())
					}
					if errors.Is(err, assignmentstore.ErrUnknownOutcome) {
						return WrapExitError(ExitCommandError, "commit outcome unknown; run 'matching get' before retrying", err)
					}
					return storeError("commit "+in.CohortID+" "+in.Date, err)
				}
				e.audit.MatchingCommitted(ctx, cliActor(actor), res.CohortID, res.Date, res.CommitID, res.Participants)

				text := fmt.Sprintf("committed %s %s: %d participants, commit %s", res.CohortID, res.Date, res.Participants, res.CommitID)
				for _, w := range res.Warnings {
					text += "\nwarning: " + w
				}
				return formatter(cmd, opts).Success(res, text)
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "-", "assignment JSON file, - for stdin")
	f.StringVar(&date, "date", "", "logical date (YYYY-MM-DD), overrides the file")
	f.StringVar(&actor, "actor", "cohortctl", "operator recorded as committer")
	return cmd
}

func newMatchingClearCommand(opts *RootOptions) *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "clear <cohort-id> <date>",
		Short: "Remove the committed assignment set for a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cohortID, date := args[0], args[1]
			if !daykey.ValidDate(date) {
				return WrapExitError(ExitCommandError, "invalid date", fmt.Errorf("%w: %q", daykey.ErrBadDate, date))
			}
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				set, err := e.assignments.Clear(ctx, cohortID, date, actor)
				if err != nil {
					return storeError("clear "+cohortID+" "+date, err)
				}
				e.audit.MatchingCleared(ctx, cliActor(actor), cohortID, date, set.CommitID)
				out := map[string]any{
					"cohort_id":    cohortID,
					"date":         date,
					"commit_id":    set.CommitID,
					"participants": len(set.Assignments),
				}
				return formatter(cmd, opts).Success(out,
					fmt.Sprintf("cleared %s %s (commit %s, %d participants)", cohortID, date, set.CommitID, len(set.Assignments)))
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "cohortctl", "operator recorded in the audit log")
	return cmd
}

func newMatchingRepairCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair-backups [cohort-id]",
		Short: "Write missing backup copies of committed sets (all cohorts by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cohortID string
			if len(args) == 1 {
				cohortID = args[0]
			}
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				rep, err := e.assignments.RepairBackups(ctx, cohortID)
				if err != nil {
					return WrapExitError(ExitCommandError, "repair backups", err)
				}
				text := fmt.Sprintf("checked %d, repaired %d, failed %d, diverged %d",
					rep.Checked, rep.Repaired, rep.Failed, rep.Diverged)
				if err := formatter(cmd, opts).Success(rep, text); err != nil {
					return err
				}
				if rep.Failed > 0 || rep.Diverged > 0 {
					return &ExitError{Code: ExitFailure, Message: "some backups need attention"}
				}
				return nil
			})
		},
	}
}
