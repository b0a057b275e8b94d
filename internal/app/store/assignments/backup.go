package assignmentstore

import (
	"context"
	"errors"

	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"github.com/dalemusser/cohorthub/internal/app/system/txn"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.uber.org/zap"
)

type backupOutcome int

const (
	backupWritten backupOutcome = iota
	// backupPresent: a live backup of this very commit is already stored.
	backupPresent
	// backupSuperseded: the set was cleared or replaced since it was read.
	backupSuperseded
	// backupDiverged: a live backup of a different commit holds the key.
	backupDiverged
	backupFailed
)

var (
	errSuperseded = errors.New("committed set changed")
	errPresent    = errors.New("backup already written")
)

// writeBackup stores the backup copy of set, but only while set is still the
// committed set for its date. The check and the write share a transaction,
// and Clear writes the backup key in its own, so a clear landing between a
// read and this write makes the write conflict and re-run. It runs on a
// context detached from the caller's cancellation so a finished request does
// not drop the copy.
func (s *Store) writeBackup(ctx context.Context, in CommitInput, set models.DailyAssignmentSet, warnings []string) backupOutcome {
	if s.backups == nil {
		return backupFailed
	}
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()

	err := txn.Run(bctx, s.db, s.log, func(ctx context.Context) error {
		cur, err := s.Lookup(ctx, in.CohortID, in.Date)
		if err != nil {
			return err
		}
		if cur == nil || cur.CommitID != set.CommitID {
			return errSuperseded
		}

		stored, err := s.backups.Get(ctx, in.CohortID, in.Date)
		switch {
		case errors.Is(err, backupstore.ErrNotFound):
		case err != nil:
			return err
		case stored.ClearedAt != nil:
		case stored.CommitID == set.CommitID:
			return errPresent
		default:
			return backupstore.ErrExists
		}

		return s.backups.Replace(ctx, models.MatchingBackup{
			CohortID:     in.CohortID,
			Date:         in.Date,
			Matching:     set,
			CommitID:     set.CommitID,
			ConfirmedBy:  in.CommittedBy,
			ConfirmedAt:  set.CommittedAt,
			Participants: len(set.Assignments),
			Warnings:     warnings,
		})
	})

	fields := []zap.Field{
		zap.String("cohort_id", in.CohortID),
		zap.String("date", in.Date),
		zap.String("commit_id", set.CommitID),
	}
	switch {
	case err == nil:
		return backupWritten
	case errors.Is(err, errPresent):
		return backupPresent
	case errors.Is(err, errSuperseded), errors.Is(err, ErrCohortNotFound):
		s.log.Info("assignment set no longer committed; backup skipped", fields...)
		return backupSuperseded
	case errors.Is(err, backupstore.ErrExists):
		s.metrics.BackupFailed()
		s.log.Warn("backup of a different commit holds the key", fields...)
		return backupDiverged
	default:
		s.metrics.BackupFailed()
		s.log.Warn("assignment set backup failed; primary copy is committed", append(fields, zap.Error(err))...)
		return backupFailed
	}
}
