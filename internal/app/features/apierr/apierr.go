// Package apierr maps domain errors to JSON error responses.
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/cohorthub/internal/app/policy/profilepolicy"
	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	cohortstore "github.com/dalemusser/cohorthub/internal/app/store/cohorts"
	participantstore "github.com/dalemusser/cohorthub/internal/app/store/participants"
	submissionstore "github.com/dalemusser/cohorthub/internal/app/store/submissions"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Kind is the machine-readable error category sent to clients.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindCohortNotFound   Kind = "cohort_not_found"
	KindNoMatching       Kind = "no_matching"
	KindAlreadyCommitted Kind = "already_committed"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindRateLimited      Kind = "rate_limited"
	KindUnknownOutcome   Kind = "unknown_outcome"
	KindUnavailable      Kind = "unavailable"
	KindInternal         Kind = "internal"
)

// Status returns the HTTP status for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound, KindCohortNotFound, KindNoMatching:
		return http.StatusNotFound
	case KindAlreadyCommitted:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnknownOutcome:
		return http.StatusGatewayTimeout
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error envelope.
type Body struct {
	Success bool   `json:"success"`
	Kind    Kind   `json:"kind"`
	Error   string `json:"error"`
}

// Classify returns the Kind for err.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, assignmentstore.ErrValidation),
		errors.Is(err, daykey.ErrBadDate),
		errors.Is(err, cohortstore.ErrInvalid),
		errors.Is(err, participantstore.ErrMissingCohort),
		errors.Is(err, submissionstore.ErrInvalid),
		errors.Is(err, submissionstore.ErrBadStatus):
		return KindValidation
	case errors.Is(err, assignmentstore.ErrCohortNotFound),
		errors.Is(err, cohortstore.ErrNotFound),
		errors.Is(err, profilepolicy.ErrUnknownCohort):
		return KindCohortNotFound
	case errors.Is(err, assignmentstore.ErrNotFound),
		errors.Is(err, participantstore.ErrNotFound),
		errors.Is(err, submissionstore.ErrNotFound),
		errors.Is(err, profilepolicy.ErrUnknownParticipant):
		return KindNotFound
	case errors.Is(err, assignmentstore.ErrAlreadyCommitted),
		errors.Is(err, cohortstore.ErrDuplicate):
		return KindAlreadyCommitted
	case errors.Is(err, assignmentstore.ErrUnknownOutcome):
		return KindUnknownOutcome
	case errors.Is(err, context.DeadlineExceeded),
		mongo.IsTimeout(err),
		mongo.IsNetworkError(err):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteKind writes an error envelope for k with msg.
func WriteKind(w http.ResponseWriter, k Kind, msg string) {
	WriteJSON(w, k.Status(), Body{Kind: k, Error: msg})
}

// Write classifies err and writes the matching envelope. Server-side
// failures are logged; internal detail is not sent to the client.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	k := Classify(err)
	msg := err.Error()
	if k == KindInternal || k == KindUnavailable {
		if log != nil {
			log.Error("request failed", zap.String("kind", string(k)), zap.Error(err))
		}
		msg = http.StatusText(k.Status())
	}
	if k == KindUnknownOutcome {
		msg = "commit outcome unknown; read the date back before retrying"
	}
	WriteKind(w, k, msg)
}
