package matching_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/features/matching"
	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/app/store/audit"
	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	"github.com/dalemusser/cohorthub/internal/app/system/auditlog"
	"github.com/dalemusser/cohorthub/internal/app/system/auth"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/dalemusser/cohorthub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var kst = time.FixedZone("KST", 9*60*60)

type env struct {
	db     *mongo.Database
	router chi.Router
	audit  *audit.Store
	cohort models.Cohort
}

// newEnv wires the matching routes with the clock at 10:00 on 2025-10-05,
// so the current logical date is 10-05 and the matching date is 10-04.
func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.RequireTransactions(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := zap.NewNop()
	resolver := daykey.MustNew(daykey.Config{
		Location:   kst,
		CutoffHour: 2,
		Clock:      daykey.FixedClock(time.Date(2025, 10, 5, 10, 0, 0, 0, kst)),
	})
	auditStore := audit.New(db)
	store := assignmentstore.New(db, backupstore.New(db), logger, nil)
	h := matching.NewHandler(store, resolver, auditlog.New(auditStore, logger, auditlog.Config{}), logger)

	return env{
		db:     db,
		router: matching.Routes(h),
		audit:  auditStore,
		cohort: testutil.NewFixtures(t, db).CreateCohort(ctx, "October", "2025-10-01", 14),
	}
}

func (e env) do(t *testing.T, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func commitReq(cohortID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/"+cohortID, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCommit_DefaultsToCurrentLogicalDate(t *testing.T) {
	e := newEnv(t)

	req := testutil.WithUser(commitReq(e.cohort.ID, `{"assignments":{"a":{"targets":["b"]},"b":{"targets":["a"]}},"matching_version":"ai"}`), testutil.AdministratorUser())
	rec := e.do(t, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["date"] != "2025-10-05" {
		t.Errorf("date: got %v, want 2025-10-05", body["date"])
	}
	if body["success"] != true {
		t.Errorf("success: got %v", body["success"])
	}
	if body["participants"] != float64(2) {
		t.Errorf("participants: got %v, want 2", body["participants"])
	}
	if body["commit_id"] == "" {
		t.Error("expected a commit_id")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	events, err := e.audit.Query(ctx, audit.QueryFilter{CohortID: e.cohort.ID, EventType: audit.EventMatchingCommitted})
	if err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 matching_committed event, got %d", len(events))
	}
}

func TestCommit_SecondCommitConflicts(t *testing.T) {
	e := newEnv(t)
	body := `{"date":"2025-10-04","assignments":{"a":{"targets":["b"]}}}`

	rec := e.do(t, auth.WithTestInternal(commitReq(e.cohort.ID, body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("first commit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, auth.WithTestInternal(commitReq(e.cohort.ID, `{"date":"2025-10-04","assignments":{"c":{"targets":["d"]}}}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second commit: expected 409, got %d", rec.Code)
	}
	if got := decode(t, rec)["kind"]; got != "already_committed" {
		t.Errorf("kind: got %v, want already_committed", got)
	}
}

func TestCommit_ErrorKinds(t *testing.T) {
	e := newEnv(t)
	admin := testutil.AdministratorUser()

	tests := []struct {
		name     string
		cohortID string
		body     string
		status   int
		kind     string
	}{
		{"malformed body", e.cohort.ID, `{"assignments":`, http.StatusBadRequest, "validation"},
		{"empty graph", e.cohort.ID, `{"assignments":{}}`, http.StatusBadRequest, "validation"},
		{"self target", e.cohort.ID, `{"assignments":{"a":{"targets":["a"]}}}`, http.StatusBadRequest, "validation"},
		{"bad date", e.cohort.ID, `{"date":"10/05/2025","assignments":{"a":{"targets":["b"]}}}`, http.StatusBadRequest, "validation"},
		{"unknown cohort", "nope", `{"assignments":{"a":{"targets":["b"]}}}`, http.StatusNotFound, "cohort_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, testutil.WithUser(commitReq(tt.cohortID, tt.body), admin))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if got := decode(t, rec)["kind"]; got != tt.kind {
				t.Errorf("kind: got %v, want %s", got, tt.kind)
			}
		})
	}
}

func TestCommit_RequiresStaffOrInternal(t *testing.T) {
	e := newEnv(t)
	body := `{"assignments":{"a":{"targets":["b"]}}}`

	rec := e.do(t, commitReq(e.cohort.ID, body))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", rec.Code)
	}

	p := models.Participant{ID: "p1", CohortID: e.cohort.ID, Name: "Reader"}
	rec = e.do(t, testutil.WithUser(commitReq(e.cohort.ID, body), testutil.ParticipantUser(p)))
	if rec.Code != http.StatusForbidden {
		t.Errorf("participant: expected 403, got %d", rec.Code)
	}
}

func TestServeSet_DefaultsToMatchingDate(t *testing.T) {
	e := newEnv(t)
	admin := testutil.AdministratorUser()

	rec := e.do(t, testutil.WithUser(commitReq(e.cohort.ID, `{"date":"2025-10-04","assignments":{"a":{"targets":["b"]}}}`), admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("commit: expected 200, got %d", rec.Code)
	}

	rec = e.do(t, testutil.WithUser(httptest.NewRequest(http.MethodGet, "/"+e.cohort.ID, nil), admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("read: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["date"] != "2025-10-04" {
		t.Errorf("date: got %v, want 2025-10-04", body["date"])
	}
	assignments, _ := body["assignments"].(map[string]any)
	if _, ok := assignments["a"]; !ok {
		t.Errorf("expected assignment for a, got %v", body["assignments"])
	}
}

func TestServeSet_NotFoundListsAvailableDates(t *testing.T) {
	e := newEnv(t)
	admin := testutil.AdministratorUser()

	for _, d := range []string{"2025-10-02", "2025-10-03"} {
		rec := e.do(t, testutil.WithUser(commitReq(e.cohort.ID, `{"date":"`+d+`","assignments":{"a":{"targets":["b"]}}}`), admin))
		if rec.Code != http.StatusOK {
			t.Fatalf("commit %s: expected 200, got %d", d, rec.Code)
		}
	}

	rec := e.do(t, testutil.WithUser(httptest.NewRequest(http.MethodGet, "/"+e.cohort.ID+"?date=2025-10-04", nil), admin))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["kind"] != "no_matching" {
		t.Errorf("kind: got %v, want no_matching", body["kind"])
	}
	if body["date"] != "2025-10-04" {
		t.Errorf("date: got %v", body["date"])
	}
	dates, _ := body["available_dates"].([]any)
	if len(dates) != 2 || dates[0] != "2025-10-02" || dates[1] != "2025-10-03" {
		t.Errorf("available_dates: got %v", body["available_dates"])
	}
}

func TestHandleClear(t *testing.T) {
	e := newEnv(t)
	admin := testutil.AdministratorUser()

	rec := e.do(t, testutil.WithUser(commitReq(e.cohort.ID, `{"date":"2025-10-04","assignments":{"a":{"targets":["b"]}}}`), admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("commit: expected 200, got %d", rec.Code)
	}

	// Internal callers may commit but not clear.
	rec = e.do(t, auth.WithTestInternal(httptest.NewRequest(http.MethodDelete, "/"+e.cohort.ID+"/2025-10-04", nil)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("internal clear: expected 401, got %d", rec.Code)
	}

	rec = e.do(t, testutil.WithUser(httptest.NewRequest(http.MethodDelete, "/"+e.cohort.ID+"/2025-10-04", nil), admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, testutil.WithUser(httptest.NewRequest(http.MethodDelete, "/"+e.cohort.ID+"/2025-10-04", nil), admin))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second clear: expected 404, got %d", rec.Code)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := e.audit.CountByFilter(ctx, audit.QueryFilter{CohortID: e.cohort.ID, EventType: audit.EventMatchingCleared})
	if err != nil {
		t.Fatalf("audit count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 matching_cleared event, got %d", n)
	}
}
