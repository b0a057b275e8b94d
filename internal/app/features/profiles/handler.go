// internal/app/features/profiles/handler.go
package profiles

import (
	"context"
	"net/http"

	"github.com/dalemusser/cohorthub/internal/app/features/apierr"
	"github.com/dalemusser/cohorthub/internal/app/policy/profilepolicy"
	"github.com/dalemusser/cohorthub/internal/app/system/authz"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves profile access decisions for the signed-in viewer.
type Handler struct {
	Engine *profilepolicy.Engine
	Log    *zap.Logger
}

// NewHandler creates a profiles handler.
func NewHandler(engine *profilepolicy.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

// accessResponse is the body of GET /api/profiles/{participantID}/access.
type accessResponse struct {
	ViewerID string `json:"viewer_id"`
	TargetID string `json:"target_id"`
	CohortID string `json:"cohort_id"`
	profilepolicy.Decision
}

// viewerAndCohort resolves the signed-in viewer and the cohort the request
// is about. The cohort query parameter overrides the viewer's own cohort.
func viewerAndCohort(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	_, _, viewerID, ok := authz.UserCtx(r)
	if !ok {
		apierr.WriteKind(w, apierr.KindUnauthorized, "sign in required")
		return "", "", false
	}
	cohortID := r.URL.Query().Get("cohort")
	if cohortID == "" {
		cohortID = authz.UserCohortID(r)
	}
	if cohortID == "" {
		apierr.WriteKind(w, apierr.KindValidation, "cohort is required")
		return "", "", false
	}
	return viewerID, cohortID, true
}

// ServeAccess handles GET /api/profiles/{participantID}/access?cohort=.
// A denial is a normal 200 response with allowed=false.
func (h *Handler) ServeAccess(w http.ResponseWriter, r *http.Request) {
	viewerID, cohortID, ok := viewerAndCohort(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "participantID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	dec, err := h.Engine.CanView(ctx, viewerID, targetID, cohortID)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, accessResponse{
		ViewerID: viewerID,
		TargetID: targetID,
		CohortID: cohortID,
		Decision: dec,
	})
}

// ServeSummary handles GET /api/profiles/summary?cohort=.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	viewerID, cohortID, ok := viewerAndCohort(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, err := h.Engine.Summary(ctx, viewerID, cohortID)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, s)
}
