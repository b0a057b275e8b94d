// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	participantstore "github.com/dalemusser/cohorthub/internal/app/store/participants"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"github.com/dalemusser/cohorthub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{Commit: appCfg.CommitTimeout})

	if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminParticipant, logger); err != nil {
		return err
	}

	if appCfg.BackupRepairInterval > 0 {
		db := deps.CohortHubMongoDatabase
		store := assignmentstore.New(db, backupstore.New(db), logger, nil)
		startWorker(workers.NewBackupRepair(store, logger, appCfg.BackupRepairInterval))
	}
	return nil
}

// Background workers and other goroutine owners, stopped in Shutdown.
var (
	workersMu sync.Mutex
	running   []interface{ Stop() }
)

type startStopper interface {
	Start()
	Stop()
}

func startWorker(w startStopper) {
	workersMu.Lock()
	defer workersMu.Unlock()
	w.Start()
	running = append(running, w)
}

// registerStopper records s for Shutdown without starting it.
func registerStopper(s interface{ Stop() }) {
	workersMu.Lock()
	defer workersMu.Unlock()
	running = append(running, s)
}

// stopWorkers stops every running worker, newest first.
func stopWorkers() {
	workersMu.Lock()
	defer workersMu.Unlock()
	for i := len(running) - 1; i >= 0; i-- {
		running[i].Stop()
	}
	running = nil
}

// ensureSuperAdmin grants the super-admin capability to the configured
// participant. A blank id is a no-op; an unknown id is logged and skipped so
// a stale setting cannot keep the service down.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, participantID string, logger *zap.Logger) error {
	if participantID == "" {
		return nil
	}

	store := participantstore.New(deps.CohortHubMongoDatabase)
	p, err := store.Find(ctx, participantID)
	if err != nil {
		return fmt.Errorf("load superadmin participant %s: %w", participantID, err)
	}
	if p == nil {
		logger.Warn("superadmin participant not found; skipping promotion",
			zap.String("participant_id", participantID))
		return nil
	}
	if p.IsSuperAdmin {
		logger.Debug("superadmin participant already promoted",
			zap.String("participant_id", participantID))
		return nil
	}

	_, err = deps.CohortHubMongoDatabase.Collection(participantstore.Collection).UpdateByID(ctx, participantID,
		bson.M{"$set": bson.M{"is_super_admin": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("promote superadmin participant %s: %w", participantID, err)
	}
	logger.Info("promoted participant to super admin",
		zap.String("participant_id", participantID),
		zap.String("cohort_id", p.CohortID))
	return nil
}
