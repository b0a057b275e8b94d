package apierr_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/cohorthub/internal/app/features/apierr"
	"github.com/dalemusser/cohorthub/internal/app/policy/profilepolicy"
	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	submissionstore "github.com/dalemusser/cohorthub/internal/app/store/submissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		kind   apierr.Kind
		status int
	}{
		{fmt.Errorf("%w: empty graph", assignmentstore.ErrValidation), apierr.KindValidation, http.StatusBadRequest},
		{submissionstore.ErrBadStatus, apierr.KindValidation, http.StatusBadRequest},
		{fmt.Errorf("commit: %w", assignmentstore.ErrCohortNotFound), apierr.KindCohortNotFound, http.StatusNotFound},
		{profilepolicy.ErrUnknownCohort, apierr.KindCohortNotFound, http.StatusNotFound},
		{profilepolicy.ErrUnknownParticipant, apierr.KindNotFound, http.StatusNotFound},
		{assignmentstore.ErrAlreadyCommitted, apierr.KindAlreadyCommitted, http.StatusConflict},
		{assignmentstore.ErrUnknownOutcome, apierr.KindUnknownOutcome, http.StatusGatewayTimeout},
		{context.DeadlineExceeded, apierr.KindUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), apierr.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			k := apierr.Classify(tt.err)
			assert.Equal(t, tt.kind, k)
			assert.Equal(t, tt.status, k.Status())
		})
	}
}

func TestWrite_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	apierr.Write(rec, zap.NewNop(), errors.New("mongo exploded at 10.0.0.3"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body apierr.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, apierr.KindInternal, body.Kind)
	assert.NotContains(t, body.Error, "10.0.0.3")
}

func TestWrite_ConflictCarriesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	apierr.Write(rec, zap.NewNop(), assignmentstore.ErrAlreadyCommitted)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body apierr.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apierr.KindAlreadyCommitted, body.Kind)
	assert.Equal(t, assignmentstore.ErrAlreadyCommitted.Error(), body.Error)
}
