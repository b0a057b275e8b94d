// internal/app/store/cohorts/cohortstore.go
package cohortstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the cohorts collection name.
const Collection = "cohorts"

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicate = errors.New("a cohort with this id already exists")
	ErrNotFound  = errors.New("cohort not found")
	ErrInvalid   = errors.New("invalid cohort")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a new cohort. An empty ID is generated.
func (s *Store) Create(ctx context.Context, c models.Cohort) (models.Cohort, error) {
	if !daykey.ValidDate(c.StartDate) {
		return models.Cohort{}, fmt.Errorf("%w: start_date %q", ErrInvalid, c.StartDate)
	}
	if c.EndDate != "" && !daykey.ValidDate(c.EndDate) {
		return models.Cohort{}, fmt.Errorf("%w: end_date %q", ErrInvalid, c.EndDate)
	}
	if _, err := c.ProgramLength(); err != nil {
		return models.Cohort{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = primitive.NewObjectID().Hex()
	}
	c.DailyAssignments = nil
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Cohort{}, ErrDuplicate
		}
		return models.Cohort{}, err
	}
	return c, nil
}

// GetByID retrieves a cohort, including its committed assignment sets.
func (s *Store) GetByID(ctx context.Context, id string) (models.Cohort, error) {
	c, err := s.Find(ctx, id)
	if err != nil {
		return models.Cohort{}, err
	}
	if c == nil {
		return models.Cohort{}, ErrNotFound
	}
	return *c, nil
}

// Find returns the cohort without its assignment map, or nil if absent.
func (s *Store) Find(ctx context.Context, id string) (*models.Cohort, error) {
	var c models.Cohort
	opts := options.FindOne().SetProjection(bson.M{"daily_assignments": 0})
	err := s.c.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns cohorts ordered by start date, newest first.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]models.Cohort, error) {
	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"daily_assignments": 0})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Cohort
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetActive toggles the cohort's active flag.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
