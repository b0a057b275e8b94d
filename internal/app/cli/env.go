package cli

import (
	"context"
	"fmt"
	"time"

	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/app/store/audit"
	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	cohortstore "github.com/dalemusser/cohorthub/internal/app/store/cohorts"
	participantstore "github.com/dalemusser/cohorthub/internal/app/store/participants"
	submissionstore "github.com/dalemusser/cohorthub/internal/app/store/submissions"
	"github.com/dalemusser/cohorthub/internal/app/system/auditlog"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/app/system/mongodb"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// newLogger returns a development logger on stderr when verbose, else a no-op.
func newLogger(cmd *cobra.Command, opts *RootOptions) *zap.Logger {
	if !opts.Verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "logger: %v\n", err)
		return zap.NewNop()
	}
	return log
}

// newResolver builds the program clock from the global flags.
func newResolver(opts *RootOptions) (*daykey.Resolver, error) {
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --timezone", err)
	}
	cfg := daykey.Config{
		Location:   loc,
		CutoffHour: opts.CutoffHour,
		Offsets: &daykey.MatchingOffsets{
			BeforeCutoff: opts.OffsetBefore,
			AfterCutoff:  opts.OffsetAfter,
		},
	}
	if opts.At != "" {
		at, err := time.Parse(time.RFC3339, opts.At)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --at (want RFC 3339)", err)
		}
		cfg.Clock = daykey.FixedClock(at)
	}
	r, err := daykey.New(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid clock settings", err)
	}
	return r, nil
}

// env is the set of collaborators a database-backed command works with.
type env struct {
	log      *zap.Logger
	client   *mongo.Client
	db       *mongo.Database
	resolver *daykey.Resolver

	cohorts      *cohortstore.Store
	participants *participantstore.Store
	submissions  *submissionstore.Store
	backups      *backupstore.Store
	assignments  *assignmentstore.Store
	audit        *auditlog.Logger
}

// openEnv connects to MongoDB and builds the stores. Callers must close it.
func openEnv(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*env, error) {
	log := newLogger(cmd, opts)
	resolver, err := newResolver(opts)
	if err != nil {
		return nil, err
	}
	client, db, err := mongodb.Connect(ctx, mongodb.Options{URI: opts.MongoURI, Database: opts.Database}, log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "database unavailable", err)
	}

	backups := backupstore.New(db)
	return &env{
		log:          log,
		client:       client,
		db:           db,
		resolver:     resolver,
		cohorts:      cohortstore.New(db),
		participants: participantstore.New(db),
		submissions:  submissionstore.New(db, resolver),
		backups:      backups,
		assignments:  assignmentstore.New(db, backups, log, nil),
		audit: auditlog.New(audit.New(db), log, auditlog.Config{
			Matching:   auditlog.ModeAll,
			Submission: auditlog.ModeAll,
		}),
	}, nil
}

func (e *env) close() {
	_ = e.client.Disconnect(context.Background())
	_ = e.log.Sync()
}

// withEnv runs fn against an open env.
func withEnv(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer e.close()
	return fn(ctx, e)
}

// formatter returns the output formatter for cmd.
func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// cliActor identifies the operator in audit events.
func cliActor(id string) auditlog.Actor {
	return auditlog.Actor{ID: id, UserAgent: "cohortctl"}
}
