// internal/app/system/workers/backuprepair.go
package workers

import (
	"context"
	"sync"
	"time"

	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// BackupRepairer is the part of the assignment store the worker drives.
type BackupRepairer interface {
	RepairBackups(ctx context.Context, cohortID string) (assignmentstore.RepairReport, error)
}

// BackupRepair is a background worker that rewrites backup copies the
// post-commit write failed to store.
type BackupRepair struct {
	store    BackupRepairer
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBackupRepair creates a new backup repair worker.
//
// Parameters:
//   - store: the assignment store (with a backup store configured)
//   - logger: zap logger for logging
//   - interval: how often to run a pass (e.g., 15 minutes)
func NewBackupRepair(store BackupRepairer, logger *zap.Logger, interval time.Duration) *BackupRepair {
	return &BackupRepair{
		store:    store,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background repair loop.
func (w *BackupRepair) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("backup repair worker started",
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
// It is safe to call more than once.
func (w *BackupRepair) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("backup repair worker stopped")
	})
}

func (w *BackupRepair) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single repair pass across all cohorts.
func (w *BackupRepair) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*timeouts.Medium())
	defer cancel()

	rep, err := w.store.RepairBackups(ctx, "")
	if err != nil {
		w.log.Error("backup repair pass failed", zap.Error(err))
		return
	}

	if rep.Repaired > 0 || rep.Failed > 0 || rep.Diverged > 0 {
		w.log.Info("backup repair pass finished",
			zap.Int("checked", rep.Checked),
			zap.Int("repaired", rep.Repaired),
			zap.Int("failed", rep.Failed),
			zap.Int("diverged", rep.Diverged))
	}
}
