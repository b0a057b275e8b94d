package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Repeated calls on the same request accumulate parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateCohort inserts an active cohort starting on start that runs for days.
func (f *Fixtures) CreateCohort(ctx context.Context, name, start string, days int) models.Cohort {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Cohort{
		ID:          primitive.NewObjectID().Hex(),
		Name:        name,
		StartDate:   start,
		ProgramDays: days,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("cohorts").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test cohort: %v", err)
	}
	return c
}

// ParticipantOption adjusts a participant before it is inserted.
type ParticipantOption func(*models.Participant)

// AsSuperAdmin marks the participant as a superadmin.
func AsSuperAdmin() ParticipantOption {
	return func(p *models.Participant) { p.IsSuperAdmin = true }
}

// AsAdministrator marks the participant as an administrator.
func AsAdministrator() ParticipantOption {
	return func(p *models.Participant) { p.IsAdministrator = true }
}

// CreateParticipant inserts a participant into cohortID.
func (f *Fixtures) CreateParticipant(ctx context.Context, cohortID, name string, opts ...ParticipantOption) models.Participant {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Participant{
		ID:        primitive.NewObjectID().Hex(),
		CohortID:  cohortID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&p)
	}
	if _, err := f.db.Collection("participants").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test participant: %v", err)
	}
	return p
}

// CreateSubmission inserts a submission with an explicit logical date and
// status, bypassing the resolver stamp so tests can place it on any day.
func (f *Fixtures) CreateSubmission(ctx context.Context, participantID, cohortID, date, status string) models.Submission {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.Submission{
		ID:            primitive.NewObjectID().Hex(),
		ParticipantID: participantID,
		CohortID:      cohortID,
		LogicalDate:   date,
		Status:        status,
		SubmittedAt:   now,
		BookTitle:     "Test Book",
		Review:        "A fine read.",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("reading_submissions").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test submission: %v", err)
	}
	return s
}
