package cli

import (
	"errors"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/system/auth"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/spf13/cobra"
)

// TokenOptions holds flags for token issue.
type TokenOptions struct {
	Key      string
	TTL      time.Duration
	UserID   string
	Name     string
	Role     string
	CohortID string
}

// NewTokenCommand creates the token command group.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	cmd.AddCommand(newTokenIssueCommand(opts))
	return cmd
}

func newTokenIssueCommand(opts *RootOptions) *cobra.Command {
	t := &TokenOptions{}
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if t.Key == "" {
				return WrapExitError(ExitCommandError, "token key required", errors.New("set --token-key or COHORTHUB_TOKEN_KEY"))
			}
			switch t.Role {
			case models.RoleSuperAdmin, models.RoleAdministrator, models.RoleParticipant:
			default:
				return WrapExitError(ExitCommandError, "invalid --role", errors.New(t.Role))
			}
			tok, err := auth.NewTokens(t.Key, t.TTL).Issue(auth.SessionUser{
				ID:       t.UserID,
				Name:     t.Name,
				Role:     t.Role,
				CohortID: t.CohortID,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "issue token", err)
			}
			return formatter(cmd, opts).Success(map[string]string{"token": tok}, tok)
		},
	}
	f := cmd.Flags()
	f.StringVar(&t.Key, "token-key", envOr("TOKEN_KEY", ""), "token signing key")
	f.DurationVar(&t.TTL, "ttl", 24*time.Hour, "token lifetime")
	f.StringVar(&t.UserID, "user", "", "user id carried in the token")
	f.StringVar(&t.Name, "name", "", "display name")
	f.StringVar(&t.Role, "role", models.RoleAdministrator, "role (superadmin|administrator|participant)")
	f.StringVar(&t.CohortID, "cohort", "", "cohort id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
