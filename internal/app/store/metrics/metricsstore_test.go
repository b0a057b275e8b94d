package metricsstore_test

import (
	"testing"
	"time"

	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	metricsstore "github.com/dalemusser/cohorthub/internal/app/store/metrics"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/dalemusser/cohorthub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFetchCohortCounts_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	counts := metricsstore.FetchCohortCounts(ctx, db, "missing", "2025-10-14")

	if counts != (metricsstore.Counts{}) {
		t.Errorf("expected zero counts, got %+v", counts)
	}
}

func TestFetchCohortCounts_WithData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cohort := fixtures.CreateCohort(ctx, "October", "2025-10-01", 14)
	other := fixtures.CreateCohort(ctx, "November", "2025-11-01", 14)

	a := fixtures.CreateParticipant(ctx, cohort.ID, "A")
	b := fixtures.CreateParticipant(ctx, cohort.ID, "B")
	fixtures.CreateParticipant(ctx, cohort.ID, "C")
	fixtures.CreateParticipant(ctx, cohort.ID, "Staff", testutil.AsAdministrator())
	fixtures.CreateParticipant(ctx, cohort.ID, "Root", testutil.AsSuperAdmin())
	ghost := fixtures.CreateParticipant(ctx, cohort.ID, "Ghost")
	if _, err := db.Collection("participants").UpdateOne(ctx, bson.M{"_id": ghost.ID}, bson.M{"$set": bson.M{"is_ghost": true}}); err != nil {
		t.Fatalf("mark ghost failed: %v", err)
	}
	fixtures.CreateParticipant(ctx, other.ID, "Elsewhere")

	fixtures.CreateSubmission(ctx, a.ID, cohort.ID, "2025-10-14", models.SubmissionApproved)
	fixtures.CreateSubmission(ctx, b.ID, cohort.ID, "2025-10-14", models.SubmissionPending)
	fixtures.CreateSubmission(ctx, b.ID, cohort.ID, "2025-10-13", models.SubmissionRejected)

	set := models.DailyAssignmentSet{
		Assignments: map[string]models.Assignment{a.ID: {Targets: []string{b.ID}}},
		CommittedAt: time.Now().UTC(),
	}
	if _, err := db.Collection("cohorts").UpdateOne(ctx, bson.M{"_id": cohort.ID}, bson.M{"$set": bson.M{
		"daily_assignments.2025-10-13": set,
		"daily_assignments.2025-10-14": set,
	}}); err != nil {
		t.Fatalf("seed sets failed: %v", err)
	}

	backups := backupstore.New(db)
	for _, d := range []string{"2025-10-13", "2025-10-14"} {
		if err := backups.Put(ctx, models.MatchingBackup{CohortID: cohort.ID, Date: d, Matching: set}); err != nil {
			t.Fatalf("backup put failed: %v", err)
		}
	}
	if err := backups.MarkCleared(ctx, cohort.ID, "2025-10-13", "admin"); err != nil {
		t.Fatalf("mark cleared failed: %v", err)
	}

	counts := metricsstore.FetchCohortCounts(ctx, db, cohort.ID, "2025-10-14")

	if counts.Participants != 3 {
		t.Errorf("Participants: got %d, want 3", counts.Participants)
	}
	if counts.Staff != 2 {
		t.Errorf("Staff: got %d, want 2", counts.Staff)
	}
	if counts.Ghosts != 1 {
		t.Errorf("Ghosts: got %d, want 1", counts.Ghosts)
	}
	if counts.Approved != 1 || counts.Pending != 1 || counts.Rejected != 0 {
		t.Errorf("submissions: got approved=%d pending=%d rejected=%d", counts.Approved, counts.Pending, counts.Rejected)
	}
	if !counts.Committed || counts.CommittedDates != 2 {
		t.Errorf("committed: got %v/%d", counts.Committed, counts.CommittedDates)
	}
	if counts.Backups != 1 {
		t.Errorf("Backups: got %d, want 1", counts.Backups)
	}
}
