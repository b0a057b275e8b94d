// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/store/audit"
	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	cohortstore "github.com/dalemusser/cohorthub/internal/app/store/cohorts"
	participantstore "github.com/dalemusser/cohorthub/internal/app/store/participants"
	submissionstore "github.com/dalemusser/cohorthub/internal/app/store/submissions"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's set is reconciled
independently; errors are aggregated so every problem is visible and startup
can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var problems []string
	for _, set := range All() {
		r := reconciler{coll: db.Collection(set.Collection), log: log}
		if err := r.ensure(ctx, set.Indexes); err != nil {
			problems = append(problems, set.Collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// CollectionIndexes is the desired index set for one collection.
type CollectionIndexes struct {
	Collection string
	Indexes    []mongo.IndexModel
}

// All returns the desired indexes for every collection the service owns.
func All() []CollectionIndexes {
	return []CollectionIndexes{
		{
			Collection: cohortstore.Collection,
			Indexes: []mongo.IndexModel{
				// Active-cohort listings, ordered by start.
				{
					Keys:    bson.D{{Key: "is_active", Value: 1}, {Key: "start_date", Value: 1}},
					Options: options.Index().SetName("idx_cohorts_active_start"),
				},
			},
		},
		{
			Collection: participantstore.Collection,
			Indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "cohort_id", Value: 1}, {Key: "name", Value: 1}, {Key: "_id", Value: 1}},
					Options: options.Index().SetName("idx_participants_cohort_name_id"),
				},
			},
		},
		{
			Collection: submissionstore.Collection,
			Indexes: []mongo.IndexModel{
				// Verification: has this participant an approved submission on date?
				{
					Keys: bson.D{
						{Key: "participant_id", Value: 1},
						{Key: "submission_date", Value: 1},
						{Key: "status", Value: 1},
					},
					Options: options.Index().SetName("idx_submissions_participant_date_status"),
				},
				// Review queues per cohort and day.
				{
					Keys: bson.D{
						{Key: "cohort_id", Value: 1},
						{Key: "submission_date", Value: 1},
						{Key: "status", Value: 1},
					},
					Options: options.Index().SetName("idx_submissions_cohort_date_status"),
				},
			},
		},
		{
			Collection: backupstore.Collection,
			Indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "cohort_id", Value: 1}, {Key: "date", Value: 1}},
					Options: options.Index().SetUnique(true).SetName("uniq_matching_results_cohort_date"),
				},
			},
		},
		{
			Collection: audit.Collection,
			Indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "cohort_id", Value: 1}, {Key: "timestamp", Value: -1}},
					Options: options.Index().SetName("idx_audit_cohort_time"),
				},
				{
					Keys:    bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
					Options: options.Index().SetName("idx_audit_type_time"),
				},
				{
					Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
					Options: options.Index().SetName("idx_audit_actor_time"),
				},
				{
					Keys:    bson.D{{Key: "timestamp", Value: -1}},
					Options: options.Index().SetName("idx_audit_time"),
				},
			},
		},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isUnique(b *bool) bool { return b != nil && *b }

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

type reconciler struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// existing returns the collection's current indexes keyed by key signature.
func (r reconciler) existing(ctx context.Context) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := r.coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			r.log.Warn("failed to decode existing index",
				zap.String("collection", r.coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// recreate drops name and creates m in its place.
func (r reconciler) recreate(ctx context.Context, name string, m mongo.IndexModel) error {
	if _, err := r.coll.Indexes().DropOne(ctx, name); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	return r.create(ctx, m)
}

func (r reconciler) create(ctx context.Context, m mongo.IndexModel) error {
	_, err := r.coll.Indexes().CreateOne(ctx, m)
	if err != nil && wafflemongo.IsDup(err) {
		return fmt.Errorf("cannot create unique index (duplicates present): %w", err)
	}
	return err
}

func (r reconciler) ensure(ctx context.Context, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", r.coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", isUnique(unique)),
		}

		err := r.ensureOne(ctx, m, name, sig, unique)
		fields = append(fields, zap.String("took", time.Since(start).String()))
		if err != nil {
			r.log.Warn("index ensure failed", append(fields, zap.Error(err))...)
			errs = append(errs, fmt.Sprintf("%s(%s): %v", r.coll.Name(), name, err))
			continue
		}
		r.log.Debug("index ensured", fields...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (r reconciler) ensureOne(ctx context.Context, m mongo.IndexModel, name, sig string, unique *bool) error {
	if ex, ok := r.existing(ctx)[sig]; ok {
		switch {
		case isUnique(unique) != isUnique(ex.Unique):
			// Options mismatch (e.g., upgrading to unique).
			return r.recreate(ctx, ex.Name, m)
		case name != "" && ex.Name != name:
			r.log.Info("renaming index to align with desired name",
				zap.String("collection", r.coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name))
			return r.recreate(ctx, ex.Name, m)
		default:
			return nil
		}
	}

	err := r.create(ctx, m)
	if !isOptionsConflictErr(err) {
		return err
	}
	// Another writer created the same keys between List and CreateOne.
	ex, ok := r.existing(ctx)[sig]
	if !ok {
		return err
	}
	if isUnique(unique) == isUnique(ex.Unique) {
		return nil
	}
	return r.recreate(ctx, ex.Name, m)
}
