// internal/app/features/matching/commit.go
package matching

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/cohorthub/internal/app/features/apierr"
	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/app/system/auditlog"
	"github.com/dalemusser/cohorthub/internal/app/system/authz"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// commitRequest is the JSON body for POST /api/matching/{cohortID}.
type commitRequest struct {
	Date            string                       `json:"date"`
	Assignments     map[string]models.Assignment `json:"assignments"`
	MatchingVersion string                       `json:"matching_version"`
}

// commitResponse is returned on a successful commit.
type commitResponse struct {
	Success bool `json:"success"`
	assignmentstore.CommitResult
}

// HandleCommit handles POST /api/matching/{cohortID}.
// The date defaults to the current logical date.
func (h *Handler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	cohortID := chi.URLParam(r, "cohortID")

	var req commitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		apierr.WriteKind(w, apierr.KindValidation, "request body must be a JSON object with assignments")
		return
	}
	if req.Date == "" {
		req.Date = h.Resolver.CurrentLogicalDate()
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Commit(), h.Log, "matching commit")
	defer cancel()

	actor := auditlog.ActorFromRequest(r)
	res, err := h.Assignments.Commit(ctx, assignmentstore.CommitInput{
		CohortID:        cohortID,
		Date:            req.Date,
		Assignments:     req.Assignments,
		MatchingVersion: req.MatchingVersion,
		CommittedBy:     authz.Actor(r),
	})
	if err != nil {
		if errors.Is(err, assignmentstore.ErrAlreadyCommitted) ||
			errors.Is(err, assignmentstore.ErrValidation) ||
			errors.Is(err, daykey.ErrBadDate) {
			h.Audit.MatchingCommitRejected(ctx, actor, cohortID, req.Date, err.Error())
		}
		apierr.Write(w, h.Log, err)
		return
	}

	h.Audit.MatchingCommitted(ctx, actor, cohortID, res.Date, res.CommitID, res.Participants)
	apierr.WriteJSON(w, http.StatusOK, commitResponse{Success: true, CommitResult: res})
}
