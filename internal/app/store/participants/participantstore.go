// internal/app/store/participants/participantstore.go
package participantstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the participants collection name.
const Collection = "participants"

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound      = errors.New("participant not found")
	ErrMissingCohort = errors.New("participant must belong to a cohort")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a participant. An empty ID is generated.
func (s *Store) Create(ctx context.Context, p models.Participant) (models.Participant, error) {
	if p.CohortID == "" {
		return models.Participant{}, ErrMissingCohort
	}
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Participant{}, err
	}
	return p, nil
}

// GetByID retrieves a participant.
func (s *Store) GetByID(ctx context.Context, id string) (models.Participant, error) {
	p, err := s.Find(ctx, id)
	if err != nil {
		return models.Participant{}, err
	}
	if p == nil {
		return models.Participant{}, ErrNotFound
	}
	return *p, nil
}

// Find returns the participant or nil if absent.
func (s *Store) Find(ctx context.Context, id string) (*models.Participant, error) {
	var p models.Participant
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByCohort returns a cohort's participants ordered by name.
// Ghost accounts are included only when includeGhosts is set.
func (s *Store) ListByCohort(ctx context.Context, cohortID string, includeGhosts bool) ([]models.Participant, error) {
	filter := bson.M{"cohort_id": cohortID}
	if !includeGhosts {
		filter["is_ghost"] = bson.M{"$ne": true}
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Participant
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IDsInCohort returns the set of participant ids in a cohort, ghosts included.
func (s *Store) IDsInCohort(ctx context.Context, cohortID string) (map[string]bool, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := s.c.Find(ctx, bson.M{"cohort_id": cohortID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]bool)
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = true
	}
	return out, cur.Err()
}
