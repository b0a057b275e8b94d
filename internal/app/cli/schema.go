package cli

import (
	"context"

	"github.com/dalemusser/cohorthub/internal/app/system/indexes"
	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage database indexes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create or reconcile every index the service declares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
				if err := indexes.EnsureAll(ctx, e.db, e.log); err != nil {
					return WrapExitError(ExitCommandError, "ensure indexes", err)
				}
				n := 0
				for _, c := range indexes.All() {
					n += len(c.Indexes)
				}
				return formatter(cmd, opts).Success(map[string]int{"indexes": n}, "indexes ensured")
			})
		},
	})
	return cmd
}
