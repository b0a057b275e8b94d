// internal/app/store/assignments/assignmentstore.go
package assignmentstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	cohortstore "github.com/dalemusser/cohorthub/internal/app/store/cohorts"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/app/system/txn"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrValidation       = errors.New("invalid assignment set")
	ErrCohortNotFound   = errors.New("cohort not found")
	ErrAlreadyCommitted = errors.New("assignment set already committed for this cohort and date")
	ErrNotFound         = errors.New("no assignment set for this cohort and date")
	// ErrUnknownOutcome means the commit deadline passed before the server
	// answered; the set may or may not be stored. Re-read before retrying.
	ErrUnknownOutcome = errors.New("commit outcome unknown")
)

// Store reads and writes the per-date assignment sets nested in cohort
// documents. Commit is the only way a set comes into existence.
type Store struct {
	db      *mongo.Database
	c       *mongo.Collection
	backups *backupstore.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New returns a Store. m may be nil.
func New(db *mongo.Database, backups *backupstore.Store, log *zap.Logger, m *metrics.Metrics) *Store {
	return &Store{
		db:      db,
		c:       db.Collection(cohortstore.Collection),
		backups: backups,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// CommitInput is one candidate assignment set.
type CommitInput struct {
	CohortID        string
	Date            string
	Assignments     map[string]models.Assignment
	MatchingVersion string
	CommittedBy     string
}

// CommitResult describes a successful commit.
type CommitResult struct {
	CohortID     string    `json:"cohort_id"`
	Date         string    `json:"date"`
	CommitID     string    `json:"commit_id"`
	CommittedAt  time.Time `json:"committed_at"`
	Participants int       `json:"participants"`
	Warnings     []string  `json:"warnings,omitempty"`
	BackedUp     bool      `json:"backed_up"`
}

// cohortDates decodes the assignment map (or a projection of one entry).
type cohortDates struct {
	ID    string                               `bson:"_id"`
	Daily map[string]models.DailyAssignmentSet `bson:"daily_assignments"`
}

func field(date string) string { return "daily_assignments." + date }

// Validate checks a candidate set and returns non-fatal warnings.
// Errors wrap ErrValidation.
func Validate(in CommitInput) ([]string, error) {
	if in.CohortID == "" {
		return nil, fmt.Errorf("%w: cohort id is required", ErrValidation)
	}
	if !daykey.ValidDate(in.Date) {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrValidation, in.Date)
	}
	if len(in.Assignments) == 0 {
		return nil, fmt.Errorf("%w: assignments are empty", ErrValidation)
	}

	viewers := make([]string, 0, len(in.Assignments))
	for v := range in.Assignments {
		viewers = append(viewers, v)
	}
	sort.Strings(viewers)

	var warnings []string
	for _, viewer := range viewers {
		if viewer == "" {
			return nil, fmt.Errorf("%w: empty viewer id", ErrValidation)
		}
		a := in.Assignments[viewer]
		targets := a.AllTargets()
		if len(targets) == 0 {
			warnings = append(warnings, fmt.Sprintf("viewer %s has no targets", viewer))
			continue
		}
		for _, target := range targets {
			switch {
			case target == "":
				return nil, fmt.Errorf("%w: viewer %s has an empty target id", ErrValidation, viewer)
			case target == viewer:
				return nil, fmt.Errorf("%w: viewer %s is assigned to itself", ErrValidation, viewer)
			}
			if _, ok := in.Assignments[target]; !ok {
				warnings = append(warnings, fmt.Sprintf("target %s of viewer %s is not a viewer in this set", target, viewer))
			}
		}
	}
	return warnings, nil
}

// Commit stores in as the assignment set for (cohort, date) if and only if
// none exists yet. The read, the check and the write run in one transaction,
// so of two concurrent commits exactly one succeeds and the other gets
// ErrAlreadyCommitted; sets are never merged.
//
// After the transaction a backup copy is written. Backup failures are logged
// and counted but do not fail the commit.
func (s *Store) Commit(ctx context.Context, in CommitInput) (CommitResult, error) {
	warnings, err := Validate(in)
	if err != nil {
		s.metrics.Commit(metrics.OutcomeValidation)
		return CommitResult{}, err
	}

	committedAt := s.now().UTC().Truncate(time.Millisecond)
	set := models.DailyAssignmentSet{
		Assignments:     in.Assignments,
		MatchingVersion: in.MatchingVersion,
		CommitID:        uuid.NewString(),
		CommittedAt:     committedAt,
		CommittedBy:     in.CommittedBy,
	}
	path := field(in.Date)

	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var doc cohortDates
		err := s.c.FindOne(ctx,
			bson.M{"_id": in.CohortID},
			options.FindOne().SetProjection(bson.M{path: 1}),
		).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			return ErrCohortNotFound
		}
		if err != nil {
			return err
		}
		if existing, ok := doc.Daily[in.Date]; ok && !existing.IsEmpty() {
			return ErrAlreadyCommitted
		}

		// The guard repeats the check server-side: missing or empty only.
		res, err := s.c.UpdateOne(ctx,
			bson.M{
				"_id":                 in.CohortID,
				path + ".assignments": bson.M{"$in": bson.A{nil, bson.M{}}},
			},
			bson.M{"$set": bson.M{
				path:         set,
				"updated_at": committedAt,
			}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrAlreadyCommitted
		}
		return nil
	})
	if err != nil {
		return CommitResult{}, s.commitFailed(ctx, in, err)
	}

	s.metrics.Commit(metrics.OutcomeCommitted)
	s.log.Info("assignment set committed",
		zap.String("cohort_id", in.CohortID),
		zap.String("date", in.Date),
		zap.String("commit_id", set.CommitID),
		zap.String("actor", in.CommittedBy),
		zap.Int("participants", len(in.Assignments)),
		zap.Int("warnings", len(warnings)))

	res := CommitResult{
		CohortID:     in.CohortID,
		Date:         in.Date,
		CommitID:     set.CommitID,
		CommittedAt:  committedAt,
		Participants: len(in.Assignments),
		Warnings:     warnings,
	}
	switch s.writeBackup(ctx, in, set, warnings) {
	case backupWritten, backupPresent:
		res.BackedUp = true
	}
	return res, nil
}

func (s *Store) commitFailed(ctx context.Context, in CommitInput, err error) error {
	fields := []zap.Field{
		zap.String("cohort_id", in.CohortID),
		zap.String("date", in.Date),
		zap.String("actor", in.CommittedBy),
	}
	switch {
	case errors.Is(err, ErrAlreadyCommitted):
		s.metrics.Commit(metrics.OutcomeAlreadyCommitted)
		s.log.Info("assignment set commit rejected: already committed", fields...)
		return err
	case errors.Is(err, ErrCohortNotFound):
		s.metrics.Commit(metrics.OutcomeCohortNotFound)
		return err
	case ctx.Err() != nil || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded):
		s.metrics.Commit(metrics.OutcomeUnknown)
		s.log.Warn("assignment set commit outcome unknown", append(fields, zap.Error(err))...)
		return fmt.Errorf("%w: %v", ErrUnknownOutcome, err)
	default:
		s.metrics.Commit(metrics.OutcomeError)
		s.log.Error("assignment set commit failed", append(fields, zap.Error(err))...)
		return err
	}
}

// Lookup returns the committed set for (cohortID, date), or nil when none
// exists. A missing cohort yields ErrCohortNotFound.
func (s *Store) Lookup(ctx context.Context, cohortID, date string) (*models.DailyAssignmentSet, error) {
	var doc cohortDates
	err := s.c.FindOne(ctx,
		bson.M{"_id": cohortID},
		options.FindOne().SetProjection(bson.M{field(date): 1}),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrCohortNotFound
	}
	if err != nil {
		return nil, err
	}
	set, ok := doc.Daily[date]
	if !ok || set.IsEmpty() {
		return nil, nil
	}
	return &set, nil
}

// Get is Lookup with ErrNotFound for an absent set.
func (s *Store) Get(ctx context.Context, cohortID, date string) (models.DailyAssignmentSet, error) {
	if !daykey.ValidDate(date) {
		return models.DailyAssignmentSet{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrValidation, date)
	}
	set, err := s.Lookup(ctx, cohortID, date)
	if err != nil {
		return models.DailyAssignmentSet{}, err
	}
	if set == nil {
		return models.DailyAssignmentSet{}, ErrNotFound
	}
	return *set, nil
}

// ListDates returns the dates that have a non-empty committed set, ascending.
func (s *Store) ListDates(ctx context.Context, cohortID string) ([]string, error) {
	var doc cohortDates
	err := s.c.FindOne(ctx,
		bson.M{"_id": cohortID},
		options.FindOne().SetProjection(bson.M{"daily_assignments": 1}),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrCohortNotFound
	}
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(doc.Daily))
	for d, set := range doc.Daily {
		if !set.IsEmpty() {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// Clear removes the set for (cohortID, date) wholesale and returns what was
// removed. It exists for operator correction of a bad commit; nothing else
// deletes a set. In the same transaction the backup is stamped cleared (a
// cleared marker is written when no backup exists), so a backup write racing
// the clear conflicts and re-reads.
func (s *Store) Clear(ctx context.Context, cohortID, date, actor string) (models.DailyAssignmentSet, error) {
	if !daykey.ValidDate(date) {
		return models.DailyAssignmentSet{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrValidation, date)
	}

	var existing models.DailyAssignmentSet
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		if existing, err = s.Get(ctx, cohortID, date); err != nil {
			return err
		}
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": cohortID, field(date) + ".commit_id": existing.CommitID},
			bson.M{
				"$unset": bson.M{field(date): ""},
				"$set":   bson.M{"updated_at": s.now().UTC()},
			},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		if s.backups != nil {
			return s.backups.MarkCleared(ctx, cohortID, date, actor)
		}
		return nil
	})
	if err != nil {
		return models.DailyAssignmentSet{}, err
	}

	s.metrics.Cleared()
	s.log.Warn("assignment set cleared",
		zap.String("cohort_id", cohortID),
		zap.String("date", date),
		zap.String("commit_id", existing.CommitID),
		zap.String("actor", actor))
	return existing, nil
}
