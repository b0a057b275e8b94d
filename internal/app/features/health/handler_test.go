package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/features/health"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/testutil"
	"go.uber.org/zap"
)

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := db.Client()
	kst := time.FixedZone("KST", 9*60*60)
	resolver := daykey.MustNew(daykey.Config{
		Location:   kst,
		CutoffHour: 2,
		Clock:      daykey.FixedClock(time.Date(2025, 10, 15, 1, 30, 0, 0, kst)),
	})
	handler := health.NewHandler(client, resolver, zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", contentType, "application/json")
	}

	var response struct {
		Status       string `json:"status"`
		Database     string `json:"database"`
		LogicalDate  string `json:"logical_date"`
		MatchingDate string `json:"matching_date"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("status: got %q, want %q", response.Status, "ok")
	}
	if response.Database != "connected" {
		t.Errorf("database: got %q, want %q", response.Database, "connected")
	}
	if response.LogicalDate != "2025-10-14" {
		t.Errorf("logical_date: got %q, want %q", response.LogicalDate, "2025-10-14")
	}
	if response.MatchingDate != "2025-10-13" {
		t.Errorf("matching_date: got %q, want %q", response.MatchingDate, "2025-10-13")
	}
}
