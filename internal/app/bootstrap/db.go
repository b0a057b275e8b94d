// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/cohorthub/internal/app/system/indexes"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// EnsureSchema creates or reconciles every index the stores rely on,
// including the unique (cohort_id, date) key on matching backups.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.CohortHubMongoDatabase, logger); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	return nil
}
