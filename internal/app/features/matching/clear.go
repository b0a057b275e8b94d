// internal/app/features/matching/clear.go
package matching

import (
	"context"
	"net/http"

	"github.com/dalemusser/cohorthub/internal/app/features/apierr"
	"github.com/dalemusser/cohorthub/internal/app/system/auditlog"
	"github.com/dalemusser/cohorthub/internal/app/system/authz"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// HandleClear handles DELETE /api/matching/{cohortID}/{date}.
// It removes a committed set so the date can be committed again.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	cohortID := chi.URLParam(r, "cohortID")
	date := chi.URLParam(r, "date")
	if !daykey.ValidDate(date) {
		apierr.WriteKind(w, apierr.KindValidation, "date must be YYYY-MM-DD")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cleared, err := h.Assignments.Clear(ctx, cohortID, date, authz.Actor(r))
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	h.Audit.MatchingCleared(ctx, auditlog.ActorFromRequest(r), cohortID, date, cleared.CommitID)
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"cohort_id":    cohortID,
		"date":         date,
		"commit_id":    cleared.CommitID,
		"participants": len(cleared.Assignments),
	})
}
