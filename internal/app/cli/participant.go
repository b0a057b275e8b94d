package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	participantstore "github.com/dalemusser/cohorthub/internal/app/store/participants"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/spf13/cobra"
)

// NewParticipantCommand creates the participant command group.
func NewParticipantCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participant",
		Short: "Add and list cohort participants",
	}
	cmd.AddCommand(newParticipantAddCommand(opts))
	cmd.AddCommand(newParticipantListCommand(opts))
	return cmd
}

func newParticipantAddCommand(opts *RootOptions) *cobra.Command {
	var p models.Participant
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a participant to --cohort",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				c, err := e.cohorts.Find(ctx, p.CohortID)
				if err != nil {
					return WrapExitError(ExitCommandError, "load cohort", err)
				}
				if c == nil {
					return WrapExitError(ExitFailure, "add participant", fmt.Errorf("cohort %s not found", p.CohortID))
				}
				created, err := e.participants.Create(ctx, p)
				switch {
				case errors.Is(err, participantstore.ErrMissingCohort):
					return WrapExitError(ExitFailure, "add participant", err)
				case err != nil:
					return WrapExitError(ExitCommandError, "add participant", err)
				}
				return formatter(cmd, opts).Success(created,
					fmt.Sprintf("added %s (%s) to %s as %s", created.ID, created.Name, created.CohortID, created.Role()))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.ID, "id", "", "participant id (generated when empty)")
	f.StringVar(&p.CohortID, "cohort", "", "cohort id")
	f.StringVar(&p.Gender, "gender", "", "gender, used by matching")
	f.BoolVar(&p.IsSuperAdmin, "superadmin", false, "grant super-admin capability")
	f.BoolVar(&p.IsAdministrator, "administrator", false, "grant administrator capability")
	f.BoolVar(&p.IsGhost, "ghost", false, "mark as ghost account")
	_ = cmd.MarkFlagRequired("cohort")
	return cmd
}

func newParticipantListCommand(opts *RootOptions) *cobra.Command {
	var cohort string
	var ghosts bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a cohort's participants by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				ps, err := e.participants.ListByCohort(ctx, cohort, ghosts)
				if err != nil {
					return WrapExitError(ExitCommandError, "list participants", err)
				}
				lines := make([]string, 0, len(ps))
				for _, p := range ps {
					lines = append(lines, fmt.Sprintf("%s  %-24s %s", p.ID, p.Name, p.Role()))
				}
				return formatter(cmd, opts).Success(ps, strings.Join(lines, "\n"))
			})
		},
	}
	cmd.Flags().StringVar(&cohort, "cohort", "", "cohort id")
	cmd.Flags().BoolVar(&ghosts, "ghosts", false, "include ghost accounts")
	_ = cmd.MarkFlagRequired("cohort")
	return cmd
}
