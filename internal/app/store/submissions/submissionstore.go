// internal/app/store/submissions/submissionstore.go
package submissionstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the submissions collection name.
const Collection = "reading_submissions"

// Store persists submissions. The logical date of each submission is stamped
// from the resolver at creation and never changes afterwards.
type Store struct {
	c        *mongo.Collection
	resolver *daykey.Resolver
}

var (
	ErrNotFound  = errors.New("submission not found")
	ErrInvalid   = errors.New("invalid submission")
	ErrBadStatus = errors.New("unknown submission status")
)

func New(db *mongo.Database, resolver *daykey.Resolver) *Store {
	return &Store{c: db.Collection(Collection), resolver: resolver}
}

// Create stamps the submission with the current logical date and stores it.
// Status defaults to pending; text fields are sanitized.
func (s *Store) Create(ctx context.Context, sub models.Submission) (models.Submission, error) {
	if sub.ParticipantID == "" || sub.CohortID == "" {
		return models.Submission{}, fmt.Errorf("%w: participant and cohort are required", ErrInvalid)
	}
	sub.BookTitle = strings.TrimSpace(sub.BookTitle)
	if sub.BookTitle == "" {
		return models.Submission{}, fmt.Errorf("%w: book title is required", ErrInvalid)
	}
	sub.BookAuthor = strings.TrimSpace(sub.BookAuthor)
	sub.Review = htmlsanitize.Clean(sub.Review)
	sub.DailyAnswer = htmlsanitize.Clean(sub.DailyAnswer)
	if sub.Review == "" {
		return models.Submission{}, fmt.Errorf("%w: review is required", ErrInvalid)
	}
	if sub.Status == "" {
		sub.Status = models.SubmissionPending
	}
	if !models.IsValidSubmissionStatus(sub.Status) {
		return models.Submission{}, ErrBadStatus
	}

	now := s.resolver.Now()
	sub.ID = primitive.NewObjectID().Hex()
	sub.LogicalDate = s.resolver.LogicalDateAt(now)
	sub.SubmittedAt = now.UTC().Truncate(time.Millisecond)
	sub.ReviewNote = ""
	sub.CreatedAt = sub.SubmittedAt
	sub.UpdatedAt = sub.SubmittedAt

	if _, err := s.c.InsertOne(ctx, sub); err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

// GetByID retrieves a submission.
func (s *Store) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var sub models.Submission
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if err == mongo.ErrNoDocuments {
		return models.Submission{}, ErrNotFound
	}
	if err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

// SetStatus moves a submission to status and records an optional review note.
// The logical date is not touched.
func (s *Store) SetStatus(ctx context.Context, id, status, note string) (models.Submission, error) {
	if !models.IsValidSubmissionStatus(status) {
		return models.Submission{}, ErrBadStatus
	}
	set := bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if note = strings.TrimSpace(note); note != "" {
		set["review_note"] = htmlsanitize.Clean(note)
	}

	var out models.Submission
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return models.Submission{}, ErrNotFound
	}
	if err != nil {
		return models.Submission{}, err
	}
	return out, nil
}

// HasApprovedOn reports whether the participant has an approved submission
// stamped with date.
func (s *Store) HasApprovedOn(ctx context.Context, participantID, date string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"participant_id":  participantID,
		"submission_date": date,
		"status":          models.SubmissionApproved,
	}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ApprovedDates returns the distinct logical dates with an approved
// submission in cohortID (any cohort when empty), ascending.
func (s *Store) ApprovedDates(ctx context.Context, participantID, cohortID string) ([]string, error) {
	filter := bson.M{
		"participant_id": participantID,
		"status":         models.SubmissionApproved,
	}
	if cohortID != "" {
		filter["cohort_id"] = cohortID
	}
	raw, err := s.c.Distinct(ctx, "submission_date", filter)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if d, ok := v.(string); ok {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CountApprovedDates returns the number of distinct approved logical dates
// in cohortID.
func (s *Store) CountApprovedDates(ctx context.Context, participantID, cohortID string) (int, error) {
	dates, err := s.ApprovedDates(ctx, participantID, cohortID)
	if err != nil {
		return 0, err
	}
	return len(dates), nil
}

// ListByParticipant returns a participant's submissions, newest first.
func (s *Store) ListByParticipant(ctx context.Context, participantID string) ([]models.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"participant_id": participantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Submission
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
