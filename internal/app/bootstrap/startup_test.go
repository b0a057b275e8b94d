package bootstrap

import (
	"testing"

	participantstore "github.com/dalemusser/cohorthub/internal/app/store/participants"
	"github.com/dalemusser/cohorthub/internal/testutil"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureSuperAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	c := fx.CreateCohort(ctx, "Autumn", "2025-10-02", 14)
	p := fx.CreateParticipant(ctx, c.ID, "Mina")

	deps := DBDeps{CohortHubMongoDatabase: db}
	if err := ensureSuperAdmin(ctx, deps, p.ID, testLogger()); err != nil {
		t.Fatalf("ensureSuperAdmin failed: %v", err)
	}

	got, err := participantstore.New(db).GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.IsSuperAdmin {
		t.Error("expected participant to be promoted to super admin")
	}
	if got.CohortID != c.ID {
		t.Errorf("cohort changed: got %q, want %q", got.CohortID, c.ID)
	}
}

func TestEnsureSuperAdmin_AlreadySuperAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	c := fx.CreateCohort(ctx, "Autumn", "2025-10-02", 14)
	p := fx.CreateParticipant(ctx, c.ID, "Admin", testutil.AsSuperAdmin())

	deps := DBDeps{CohortHubMongoDatabase: db}
	if err := ensureSuperAdmin(ctx, deps, p.ID, testLogger()); err != nil {
		t.Fatalf("ensureSuperAdmin failed: %v", err)
	}

	got, err := participantstore.New(db).GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.IsSuperAdmin {
		t.Error("expected participant to remain super admin")
	}
}

func TestEnsureSuperAdmin_UnknownAndBlank(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{CohortHubMongoDatabase: db}
	if err := ensureSuperAdmin(ctx, deps, "", testLogger()); err != nil {
		t.Errorf("blank id: unexpected error %v", err)
	}
	if err := ensureSuperAdmin(ctx, deps, "nobody", testLogger()); err != nil {
		t.Errorf("unknown id: unexpected error %v", err)
	}
}

type stopFunc func()

func (f stopFunc) Stop() { f() }

func TestStopWorkers_StopsRegisteredNewestFirst(t *testing.T) {
	stopWorkers()
	var order []string
	registerStopper(stopFunc(func() { order = append(order, "a") }))
	registerStopper(stopFunc(func() { order = append(order, "b") }))

	stopWorkers()
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Fatalf("stop order = %v, want [b a]", order)
	}

	stopWorkers()
	if len(order) != 2 {
		t.Error("a second Shutdown must not stop again")
	}
}

func TestNewSubmissionLimiter_RegisteredForShutdown(t *testing.T) {
	stopWorkers()
	defer stopWorkers()

	if l := newSubmissionLimiter(AppConfig{SubmissionRateLimit: 0}); l != nil {
		t.Error("limit 0 should disable the limiter")
	}
	if len(running) != 0 {
		t.Fatalf("disabled limiter registered: %d", len(running))
	}

	l := newSubmissionLimiter(AppConfig{SubmissionRateLimit: 3})
	if l == nil {
		t.Fatal("expected a limiter")
	}
	if len(running) != 1 || running[0] != interface{ Stop() }(l) {
		t.Fatalf("limiter not registered for shutdown: %v", running)
	}
	stopWorkers()
	if len(running) != 0 {
		t.Error("stopWorkers should clear the registry")
	}
}
