package metricsstore

import (
	"context"

	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	cohortstore "github.com/dalemusser/cohorthub/internal/app/store/cohorts"
	participantstore "github.com/dalemusser/cohorthub/internal/app/store/participants"
	submissionstore "github.com/dalemusser/cohorthub/internal/app/store/submissions"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Counts is the set of per-cohort totals for one logical date.
type Counts struct {
	Participants int64 // excludes ghosts and staff
	Staff        int64
	Ghosts       int64

	Pending  int64 // submissions stamped with the date, by status
	Approved int64
	Rejected int64

	Committed      bool // an assignment set exists for the date
	CommittedDates int64
	Backups        int64 // live (uncleared) backups for the cohort
}

// FetchCohortCounts returns the counts for cohortID on date.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCohortCounts(ctx context.Context, db *mongo.Database, cohortID, date string) Counts {
	var out Counts

	participants := db.Collection(participantstore.Collection)
	if n, err := participants.CountDocuments(ctx, bson.M{
		"cohort_id":        cohortID,
		"is_ghost":         bson.M{"$ne": true},
		"is_administrator": bson.M{"$ne": true},
		"is_super_admin":   bson.M{"$ne": true},
	}); err == nil {
		out.Participants = n
	}
	if n, err := participants.CountDocuments(ctx, bson.M{
		"cohort_id": cohortID,
		"$or": bson.A{
			bson.M{"is_administrator": true},
			bson.M{"is_super_admin": true},
		},
	}); err == nil {
		out.Staff = n
	}
	if n, err := participants.CountDocuments(ctx, bson.M{"cohort_id": cohortID, "is_ghost": true}); err == nil {
		out.Ghosts = n
	}

	submissions := db.Collection(submissionstore.Collection)
	for status, dst := range map[string]*int64{
		models.SubmissionPending:  &out.Pending,
		models.SubmissionApproved: &out.Approved,
		models.SubmissionRejected: &out.Rejected,
	} {
		if n, err := submissions.CountDocuments(ctx, bson.M{
			"cohort_id":       cohortID,
			"submission_date": date,
			"status":          status,
		}); err == nil {
			*dst = n
		}
	}

	var doc struct {
		Daily map[string]models.DailyAssignmentSet `bson:"daily_assignments"`
	}
	err := db.Collection(cohortstore.Collection).FindOne(ctx,
		bson.M{"_id": cohortID},
		options.FindOne().SetProjection(bson.M{"daily_assignments": 1}),
	).Decode(&doc)
	if err == nil {
		for d, set := range doc.Daily {
			if set.IsEmpty() {
				continue
			}
			out.CommittedDates++
			if d == date {
				out.Committed = true
			}
		}
	}

	if n, err := db.Collection(backupstore.Collection).CountDocuments(ctx, bson.M{
		"cohort_id":  cohortID,
		"cleared_at": bson.M{"$exists": false},
	}); err == nil {
		out.Backups = n
	}

	return out
}
