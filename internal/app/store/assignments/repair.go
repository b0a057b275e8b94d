package assignmentstore

import (
	"context"
	"errors"
	"sort"

	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// RepairReport summarizes one RepairBackups pass.
type RepairReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`

	// Diverged counts live backups whose commit id differs from the
	// committed set. They are reported, never overwritten.
	Diverged int `json:"diverged"`
}

// RepairBackups writes the missing backup copy of every committed set, for
// one cohort or, when cohortID is empty, for all cohorts. A set needs a copy
// when its backup is absent or was cleared by an earlier clear. Sets are read
// from a snapshot; each write re-checks that the set is still committed, so a
// set cleared or committed meanwhile is skipped.
func (s *Store) RepairBackups(ctx context.Context, cohortID string) (RepairReport, error) {
	var rep RepairReport
	if s.backups == nil {
		return rep, errors.New("backup store is not configured")
	}

	filter := bson.M{"daily_assignments": bson.M{"$exists": true}}
	if cohortID != "" {
		filter["_id"] = cohortID
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"daily_assignments": 1}))
	if err != nil {
		return rep, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc cohortDates
		if err := cur.Decode(&doc); err != nil {
			return rep, err
		}
		dates := make([]string, 0, len(doc.Daily))
		for d := range doc.Daily {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		for _, date := range dates {
			set := doc.Daily[date]
			if set.IsEmpty() {
				continue
			}
			rep.Checked++

			b, err := s.backups.Get(ctx, doc.ID, date)
			switch {
			case errors.Is(err, backupstore.ErrNotFound):
			case err != nil:
				return rep, err
			case b.ClearedAt != nil:
			case b.CommitID != set.CommitID:
				rep.Diverged++
				s.log.Warn("backup diverges from committed set",
					zap.String("cohort_id", doc.ID),
					zap.String("date", date),
					zap.String("commit_id", set.CommitID),
					zap.String("backup_commit_id", b.CommitID))
				continue
			default:
				continue
			}

			in := CommitInput{
				CohortID:        doc.ID,
				Date:            date,
				Assignments:     set.Assignments,
				MatchingVersion: set.MatchingVersion,
				CommittedBy:     set.CommittedBy,
			}
			warnings, _ := Validate(in)
			switch s.writeBackup(ctx, in, set, warnings) {
			case backupWritten:
				rep.Repaired++
				s.log.Info("backup repaired",
					zap.String("cohort_id", doc.ID),
					zap.String("date", date),
					zap.String("commit_id", set.CommitID))
			case backupDiverged:
				rep.Diverged++
			case backupFailed:
				rep.Failed++
			}
		}
	}
	return rep, cur.Err()
}
