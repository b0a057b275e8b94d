package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *auth.Manager {
	t.Helper()
	m, err := auth.NewManager(auth.Config{
		SessionKey:     "test-session-key-must-be-32-chars-long",
		SessionName:    "test-session",
		TokenKey:       "test-token-key-must-be-32-chars-long!",
		TokenTTL:       time.Hour,
		InternalSecret: "job-secret",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create auth manager: %v", err)
	}
	return m
}

// echoUser reports the resolved user id, or "-" when anonymous.
func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := auth.CurrentUser(r); ok {
			_, _ = w.Write([]byte(u.ID + ":" + u.Role))
			return
		}
		_, _ = w.Write([]byte("-"))
	})
}

func TestNewManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewManager(auth.Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty session key")
	}
}

func TestLoadSessionUser_BearerToken(t *testing.T) {
	m := newTestManager(t)
	tok, err := m.IssueToken(auth.SessionUser{ID: "p1", Name: "Kim", Role: "participant", CohortID: "c1"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	m.LoadSessionUser(echoUser()).ServeHTTP(rec, req)

	if got := rec.Body.String(); got != "p1:participant" {
		t.Errorf("body = %q, want %q", got, "p1:participant")
	}
}

func TestLoadSessionUser_BadTokenIs401(t *testing.T) {
	m := newTestManager(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	m.LoadSessionUser(echoUser()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestLoadSessionUser_SessionCookie(t *testing.T) {
	m := newTestManager(t)

	signIn := httptest.NewRecorder()
	if err := m.SignIn(signIn, httptest.NewRequest("POST", "/", nil), auth.SessionUser{ID: "a1", Role: "administrator"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := signIn.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	m.LoadSessionUser(echoUser()).ServeHTTP(rec, req)

	if got := rec.Body.String(); got != "a1:administrator" {
		t.Errorf("body = %q, want %q", got, "a1:administrator")
	}
}

func TestLoadSessionUser_Anonymous(t *testing.T) {
	m := newTestManager(t)
	rec := httptest.NewRecorder()
	m.LoadSessionUser(echoUser()).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if got := rec.Body.String(); got != "-" {
		t.Errorf("body = %q, want anonymous", got)
	}
}

func TestInternalSecret(t *testing.T) {
	m := newTestManager(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.IsInternal(r) {
			_, _ = w.Write([]byte("internal"))
			return
		}
		_, _ = w.Write([]byte("external"))
	})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"matching secret", "job-secret", "internal"},
		{"wrong secret", "job-secret-x", "external"},
		{"no header", "", "external"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", nil)
			if tt.header != "" {
				req.Header.Set(auth.InternalSecretHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			m.LoadSessionUser(next).ServeHTTP(rec, req)
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		user     *auth.SessionUser
		internal bool
		gate     func(...string) func(http.Handler) http.Handler
		want     int
	}{
		{"anonymous", nil, false, auth.RequireRole, http.StatusUnauthorized},
		{"wrong role", &auth.SessionUser{ID: "p", Role: "participant"}, false, auth.RequireRole, http.StatusForbidden},
		{"allowed role", &auth.SessionUser{ID: "a", Role: "Administrator"}, false, auth.RequireRole, http.StatusNoContent},
		{"internal without user rejected", nil, true, auth.RequireRole, http.StatusUnauthorized},
		{"internal admitted", nil, true, auth.RequireRoleOrInternal, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", nil)
			if tt.user != nil {
				req = auth.WithTestUser(req, tt.user)
			}
			if tt.internal {
				req = auth.WithTestInternal(req)
			}
			rec := httptest.NewRecorder()
			tt.gate("superadmin", "administrator")(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireSignedIn(t *testing.T) {
	h := auth.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "p"}))
	if rec.Code != http.StatusOK {
		t.Errorf("signed in: expected 200, got %d", rec.Code)
	}
}

func TestTokens_CrossKeyRejected(t *testing.T) {
	issuer := auth.NewTokens("issuer-key-issuer-key-issuer-key!", time.Hour)
	tok, err := issuer.Issue(auth.SessionUser{ID: "job", Role: "administrator"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// A manager sharing the key accepts tokens minted outside it.
	m, err := auth.NewManager(auth.Config{
		SessionKey: "test-session-key-must-be-32-chars-long",
		TokenKey:   "issuer-key-issuer-key-issuer-key!",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	u, err := m.ParseToken(tok)
	if err != nil || u.ID != "job" {
		t.Fatalf("ParseToken = %v, %v", u, err)
	}

	other := auth.NewTokens("another-key-another-key-another-k", time.Hour)
	if _, err := other.Parse(tok); err == nil {
		t.Error("expected a token signed with another key to be rejected")
	}

	if _, err := issuer.Issue(auth.SessionUser{}); err == nil {
		t.Error("expected an error for an empty user id")
	}
}
