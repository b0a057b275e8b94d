package assignmentstore_test

import (
	"testing"

	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRepairBackups_WritesMissingCopies(t *testing.T) {
	f := setup(t)

	// Commit through a store without backups so no copy is written.
	noBackups := assignmentstore.New(f.db, nil, zap.NewNop(), nil)
	res, err := noBackups.Commit(f.ctx, assignmentstore.CommitInput{
		CohortID: f.cohort.ID, Date: "2025-10-13", Assignments: graph(map[string][]string{"a": {"b"}, "b": {"a"}}),
		CommittedBy: "job",
	})
	require.NoError(t, err)
	assert.False(t, res.BackedUp)

	rep, err := f.store.RepairBackups(f.ctx, f.cohort.ID)
	require.NoError(t, err)
	assert.Equal(t, assignmentstore.RepairReport{Checked: 1, Repaired: 1}, rep)

	b, err := f.backups.Get(f.ctx, f.cohort.ID, "2025-10-13")
	require.NoError(t, err)
	assert.Equal(t, res.CommitID, b.CommitID)
	assert.Equal(t, "job", b.ConfirmedBy)
	assert.Equal(t, 2, b.Participants)

	// A second pass finds nothing to do.
	rep, err = f.store.RepairBackups(f.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, assignmentstore.RepairReport{Checked: 1}, rep)
}

func TestRepairBackups_ReportsDivergedWithoutOverwrite(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.backups.Put(f.ctx, models.MatchingBackup{CohortID: f.cohort.ID, Date: "2025-10-14", CommitID: "stale"}))
	_, err := f.store.Commit(f.ctx, assignmentstore.CommitInput{
		CohortID: f.cohort.ID, Date: "2025-10-14", Assignments: graph(map[string][]string{"a": {"b"}}),
	})
	require.NoError(t, err)

	rep, err := f.store.RepairBackups(f.ctx, f.cohort.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Diverged)
	assert.Zero(t, rep.Repaired)

	b, err := f.backups.Get(f.ctx, f.cohort.ID, "2025-10-14")
	require.NoError(t, err)
	assert.Equal(t, "stale", b.CommitID)
}

func TestRepairBackups_RequiresBackupStore(t *testing.T) {
	f := setup(t)
	_, err := assignmentstore.New(f.db, nil, zap.NewNop(), nil).RepairBackups(f.ctx, "")
	assert.Error(t, err)
}

func TestRepairBackups_SetClearedAfterReadIsNotRevived(t *testing.T) {
	f := setup(t)

	noBackups := assignmentstore.New(f.db, nil, zap.NewNop(), nil)
	_, err := noBackups.Commit(f.ctx, assignmentstore.CommitInput{
		CohortID: f.cohort.ID, Date: "2025-10-14", Assignments: graph(map[string][]string{"a": {"b"}}),
	})
	require.NoError(t, err)

	// Repair has read the set; an operator clears it before the write.
	read, err := f.store.Get(f.ctx, f.cohort.ID, "2025-10-14")
	require.NoError(t, err)
	_, err = f.store.Clear(f.ctx, f.cohort.ID, "2025-10-14", "admin-1")
	require.NoError(t, err)

	assert.False(t, f.store.BackupSet(f.ctx, f.cohort.ID, "2025-10-14", read))
	b, err := f.backups.Get(f.ctx, f.cohort.ID, "2025-10-14")
	require.NoError(t, err)
	assert.NotNil(t, b.ClearedAt, "cleared set must not get a live backup")

	// The next commit for the date is backed up and repair stays quiet.
	next, err := f.store.Commit(f.ctx, assignmentstore.CommitInput{
		CohortID: f.cohort.ID, Date: "2025-10-14", Assignments: graph(map[string][]string{"c": {"d"}}),
	})
	require.NoError(t, err)
	assert.True(t, next.BackedUp)

	b, err = f.backups.Get(f.ctx, f.cohort.ID, "2025-10-14")
	require.NoError(t, err)
	assert.Equal(t, next.CommitID, b.CommitID)
	assert.Nil(t, b.ClearedAt)

	rep, err := f.store.RepairBackups(f.ctx, f.cohort.ID)
	require.NoError(t, err)
	assert.Equal(t, assignmentstore.RepairReport{Checked: 1}, rep)
}

func TestBackup_WrittenByRepairFirstCountsAsBackedUp(t *testing.T) {
	f := setup(t)

	noBackups := assignmentstore.New(f.db, nil, zap.NewNop(), nil)
	res, err := noBackups.Commit(f.ctx, assignmentstore.CommitInput{
		CohortID: f.cohort.ID, Date: "2025-10-14", Assignments: graph(map[string][]string{"a": {"b"}}),
	})
	require.NoError(t, err)
	set, err := f.store.Get(f.ctx, f.cohort.ID, "2025-10-14")
	require.NoError(t, err)

	rep, err := f.store.RepairBackups(f.ctx, f.cohort.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Repaired)

	// The committing call's own backup write now finds the same commit.
	assert.True(t, f.store.BackupSet(f.ctx, f.cohort.ID, "2025-10-14", set))
	b, err := f.backups.Get(f.ctx, f.cohort.ID, "2025-10-14")
	require.NoError(t, err)
	assert.Equal(t, res.CommitID, b.CommitID)
}

func TestClear_WithoutBackupLeavesMarker(t *testing.T) {
	f := setup(t)

	noBackups := assignmentstore.New(f.db, nil, zap.NewNop(), nil)
	_, err := noBackups.Commit(f.ctx, assignmentstore.CommitInput{
		CohortID: f.cohort.ID, Date: "2025-10-14", Assignments: graph(map[string][]string{"a": {"b"}}),
	})
	require.NoError(t, err)

	_, err = f.store.Clear(f.ctx, f.cohort.ID, "2025-10-14", "admin-1")
	require.NoError(t, err)

	b, err := f.backups.Get(f.ctx, f.cohort.ID, "2025-10-14")
	require.NoError(t, err)
	assert.NotNil(t, b.ClearedAt)
	assert.Equal(t, "admin-1", b.ClearedBy)
}
