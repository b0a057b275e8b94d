// internal/app/features/matching/handler.go
package matching

import (
	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/app/system/auditlog"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"go.uber.org/zap"
)

// maxBodyBytes bounds a commit request body.
const maxBodyBytes = 8 << 20

// Handler serves the assignment-set API.
type Handler struct {
	Assignments *assignmentstore.Store
	Resolver    *daykey.Resolver
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

// NewHandler creates a matching handler.
func NewHandler(assignments *assignmentstore.Store, resolver *daykey.Resolver, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Assignments: assignments,
		Resolver:    resolver,
		Audit:       audit,
		Log:         logger,
	}
}
