package assignmentstore

import (
	"context"

	"github.com/dalemusser/cohorthub/internal/domain/models"
)

// BackupSet runs the backup write for a set read earlier and reports whether
// a backup of that commit is stored afterwards.
func (s *Store) BackupSet(ctx context.Context, cohortID, date string, set models.DailyAssignmentSet) bool {
	in := CommitInput{CohortID: cohortID, Date: date, Assignments: set.Assignments, CommittedBy: set.CommittedBy}
	switch s.writeBackup(ctx, in, set, nil) {
	case backupWritten, backupPresent:
		return true
	}
	return false
}
