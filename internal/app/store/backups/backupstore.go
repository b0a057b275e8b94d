// internal/app/store/backups/backupstore.go
package backupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cohorthub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds one document per committed (cohort, date).
const Collection = "matching_results"

type Store struct {
	c *mongo.Collection
}

var (
	ErrExists   = errors.New("backup already exists for this cohort and date")
	ErrNotFound = errors.New("backup not found")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Put writes b under models.BackupKey(b.CohortID, b.Date). A live backup is
// never overwritten (ErrExists); a backup whose set was cleared is replaced.
func (s *Store) Put(ctx context.Context, b models.MatchingBackup) error {
	b.ID = models.BackupKey(b.CohortID, b.Date)
	b.ClearedAt = nil
	b.ClearedBy = ""
	_, err := s.c.InsertOne(ctx, b)
	if err == nil {
		return nil
	}
	if !wafflemongo.IsDup(err) {
		return err
	}

	res, err := s.c.ReplaceOne(ctx, bson.M{
		"_id":        b.ID,
		"cleared_at": bson.M{"$exists": true},
	}, b)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrExists
	}
	return nil
}

// Replace writes b under its key whatever is stored there. Callers check the
// stored backup first, in the same transaction.
func (s *Store) Replace(ctx context.Context, b models.MatchingBackup) error {
	b.ID = models.BackupKey(b.CohortID, b.Date)
	b.ClearedAt = nil
	b.ClearedBy = ""
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": b.ID}, b, options.Replace().SetUpsert(true))
	return err
}

// MarkCleared stamps the backup for (cohortID, date) as cleared. When no
// backup exists a cleared marker is written in its place.
func (s *Store) MarkCleared(ctx context.Context, cohortID, date, actor string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": models.BackupKey(cohortID, date)},
		bson.M{
			"$set": bson.M{
				"cleared_at": time.Now().UTC(),
				"cleared_by": actor,
			},
			"$setOnInsert": bson.M{
				"cohort_id": cohortID,
				"date":      date,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// Get returns the backup for (cohortID, date).
func (s *Store) Get(ctx context.Context, cohortID, date string) (models.MatchingBackup, error) {
	var b models.MatchingBackup
	err := s.c.FindOne(ctx, bson.M{"_id": models.BackupKey(cohortID, date)}).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return models.MatchingBackup{}, ErrNotFound
	}
	if err != nil {
		return models.MatchingBackup{}, err
	}
	return b, nil
}

// ListByCohort returns a cohort's backups, oldest date first.
func (s *Store) ListByCohort(ctx context.Context, cohortID string) ([]models.MatchingBackup, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"cohort_id": cohortID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.MatchingBackup
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
