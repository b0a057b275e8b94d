// internal/app/features/matching/read.go
package matching

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/cohorthub/internal/app/features/apierr"
	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// setResponse is the body of a successful read.
type setResponse struct {
	Success  bool   `json:"success"`
	CohortID string `json:"cohort_id"`
	Date     string `json:"date"`
	models.DailyAssignmentSet
}

// noMatchingResponse is the 404 body when no set exists for the date.
type noMatchingResponse struct {
	apierr.Body
	Date           string   `json:"date"`
	AvailableDates []string `json:"available_dates"`
}

// ServeSet handles GET /api/matching/{cohortID}?date=YYYY-MM-DD.
// The date defaults to the matching target date.
func (h *Handler) ServeSet(w http.ResponseWriter, r *http.Request) {
	cohortID := chi.URLParam(r, "cohortID")
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.Resolver.MatchingTargetDate()
	}
	if !daykey.ValidDate(date) {
		apierr.WriteKind(w, apierr.KindValidation, "date must be YYYY-MM-DD")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	set, err := h.Assignments.Get(ctx, cohortID, date)
	if errors.Is(err, assignmentstore.ErrNotFound) {
		dates, derr := h.Assignments.ListDates(ctx, cohortID)
		if derr != nil {
			apierr.Write(w, h.Log, derr)
			return
		}
		apierr.WriteJSON(w, http.StatusNotFound, noMatchingResponse{
			Body: apierr.Body{
				Kind:  apierr.KindNoMatching,
				Error: "no assignment set for " + date,
			},
			Date:           date,
			AvailableDates: dates,
		})
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, setResponse{
		Success:            true,
		CohortID:           cohortID,
		Date:               date,
		DailyAssignmentSet: set,
	})
}

// ServeDates handles GET /api/matching/{cohortID}/dates.
func (h *Handler) ServeDates(w http.ResponseWriter, r *http.Request) {
	cohortID := chi.URLParam(r, "cohortID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	dates, err := h.Assignments.ListDates(ctx, cohortID)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"cohort_id": cohortID,
		"dates":     dates,
	})
}
