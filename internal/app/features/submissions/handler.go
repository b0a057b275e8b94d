// internal/app/features/submissions/handler.go
package submissions

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/dalemusser/cohorthub/internal/app/features/apierr"
	submissionstore "github.com/dalemusser/cohorthub/internal/app/store/submissions"
	"github.com/dalemusser/cohorthub/internal/app/system/auditlog"
	"github.com/dalemusser/cohorthub/internal/app/system/authz"
	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/app/system/ratelimit"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Handler serves daily reading submissions.
type Handler struct {
	Submissions *submissionstore.Store
	Audit       *auditlog.Logger
	Metrics     *metrics.Metrics
	Log         *zap.Logger

	// Limiter caps creates per participant; nil means unlimited.
	Limiter *ratelimit.Limiter
}

// NewHandler creates a submissions handler.
func NewHandler(subs *submissionstore.Store, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Submissions: subs,
		Audit:       audit,
		Metrics:     m,
		Log:         logger,
	}
}

// createRequest is the JSON body for POST /api/submissions.
type createRequest struct {
	BookTitle   string `json:"book_title"`
	BookAuthor  string `json:"book_author"`
	Review      string `json:"review"`
	DailyAnswer string `json:"daily_answer"`
	Draft       bool   `json:"draft"`
}

// HandleCreate handles POST /api/submissions for the signed-in participant.
// The logical date is assigned by the server.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		apierr.WriteKind(w, apierr.KindUnauthorized, "sign in required")
		return
	}
	cohortID := authz.UserCohortID(r)
	if cohortID == "" {
		apierr.WriteKind(w, apierr.KindForbidden, "only cohort participants can submit")
		return
	}
	if h.Limiter != nil && !h.Limiter.Allow(userID) {
		h.Log.Info("submission rate limited",
			zap.String("participant_id", userID),
			zap.String("ip", ratelimit.ClientIP(r)))
		if wait := h.Limiter.RetryAfter(userID); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		apierr.WriteKind(w, apierr.KindRateLimited, "too many submissions; try again in a minute")
		return
	}

	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		apierr.WriteKind(w, apierr.KindValidation, "request body must be a JSON object")
		return
	}
	status := models.SubmissionPending
	if req.Draft {
		status = models.SubmissionDraft
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sub, err := h.Submissions.Create(ctx, models.Submission{
		ParticipantID: userID,
		CohortID:      cohortID,
		Status:        status,
		BookTitle:     req.BookTitle,
		BookAuthor:    req.BookAuthor,
		Review:        req.Review,
		DailyAnswer:   req.DailyAnswer,
	})
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	h.Metrics.SubmissionStatus(sub.Status)
	h.Audit.SubmissionCreated(ctx, auditlog.ActorFromRequest(r), sub.CohortID, sub.ID, sub.LogicalDate)
	apierr.WriteJSON(w, http.StatusCreated, sub)
}

// ServeMine handles GET /api/submissions, listing the viewer's submissions.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		apierr.WriteKind(w, apierr.KindUnauthorized, "sign in required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Submissions.ListByParticipant(ctx, userID)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	if list == nil {
		list = []models.Submission{}
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"submissions": list})
}

// statusRequest is the JSON body for POST /api/submissions/{id}/status.
type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// HandleSetStatus handles POST /api/submissions/{id}/status (staff only).
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		apierr.WriteKind(w, apierr.KindValidation, "request body must be a JSON object")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sub, err := h.Submissions.SetStatus(ctx, id, req.Status, req.Note)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	h.Metrics.SubmissionStatus(sub.Status)
	h.Audit.SubmissionStatusChanged(ctx, auditlog.ActorFromRequest(r), sub.CohortID, sub.ID, sub.Status)
	apierr.WriteJSON(w, http.StatusOK, sub)
}
