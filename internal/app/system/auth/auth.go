package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "cohorthub-session"

	// InternalSecretHeader carries the shared secret of scheduled jobs.
	InternalSecretHeader = "X-Internal-Secret"

	tokenName = "cohorthub-token"

	isAuthKey    = "is_authenticated"
	userIDKey    = "user_id"
	userName     = "user_name"
	userRole     = "user_role"
	userCohortID = "cohort_id"
)

// ErrInvalidToken is returned when a bearer token fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is what we cache in the session or token & inject into r.Context().
type SessionUser struct {
	ID       string
	Name     string
	Role     string
	CohortID string
}

// IsSuperAdmin reports whether the user carries the superadmin role.
func (u SessionUser) IsSuperAdmin() bool {
	return strings.EqualFold(u.Role, "superadmin")
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	internalKey    ctxKey = "internalCaller"
)

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// IsInternal reports whether the request presented the internal secret.
func IsInternal(r *http.Request) bool {
	v, _ := r.Context().Value(internalKey).(bool)
	return v
}

/*─────────────────────────────────────────────────────────────────────────────*
| Manager                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Config configures a Manager.
type Config struct {
	SessionKey  string
	SessionName string
	Domain      string
	Secure      bool

	// TokenKey signs bearer tokens; empty disables bearer auth.
	TokenKey string
	TokenTTL time.Duration

	// InternalSecret authenticates scheduled jobs; empty disables it.
	InternalSecret string
}

// Manager resolves the caller's identity from a session cookie, a signed
// bearer token, or the internal-secret header.
type Manager struct {
	store       *sessions.CookieStore
	sessionName string
	tokens      *Tokens
	secret      []byte
	log         *zap.Logger
}

// NewManager builds the session store and token codec.
//
// In production (Secure=true), cookies are Secure + SameSite=None.
// In local dev over http://localhost, use Secure=false so cookies are accepted.
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	if cfg.SessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(cfg.SessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(cfg.SessionKey)))
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	opts := &sessions.Options{
		Domain:   cfg.Domain,
		Path:     "/",
		Secure:   cfg.Secure,
		HttpOnly: true,
	}
	if cfg.Secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	m := &Manager{
		store:       store,
		sessionName: cfg.SessionName,
		log:         logger,
	}
	if m.sessionName == "" {
		m.sessionName = DefaultSessionName
	}
	if cfg.TokenKey != "" {
		m.tokens = NewTokens(cfg.TokenKey, cfg.TokenTTL)
	}
	if cfg.InternalSecret != "" {
		m.secret = []byte(cfg.InternalSecret)
	}

	logger.Info("auth manager initialized",
		zap.Bool("secure", cfg.Secure),
		zap.String("domain", cfg.Domain),
		zap.Bool("bearer_tokens", m.tokens != nil),
		zap.Bool("internal_secret", m.secret != nil))

	return m, nil
}

// tokenClaims is the payload encoded into bearer tokens.
type tokenClaims struct {
	ID       string
	Name     string
	Role     string
	CohortID string
}

// Tokens signs and verifies bearer tokens. Operators issue them from the
// CLI for scheduled jobs and API clients; the server only verifies.
type Tokens struct {
	codec *securecookie.SecureCookie
}

// NewTokens returns a codec keyed by key. Tokens expire after ttl
// (24h when ttl <= 0).
func NewTokens(key string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	codec := securecookie.New([]byte(key), nil)
	codec.MaxAge(int(ttl.Seconds()))
	return &Tokens{codec: codec}
}

// Issue returns a signed bearer token for u.
func (t *Tokens) Issue(u SessionUser) (string, error) {
	if u.ID == "" {
		return "", errors.New("token user id is empty")
	}
	return t.codec.Encode(tokenName, tokenClaims(u))
}

// Parse verifies a bearer token and returns its user.
func (t *Tokens) Parse(tok string) (*SessionUser, error) {
	var c tokenClaims
	if err := t.codec.Decode(tokenName, tok, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.ID == "" {
		return nil, ErrInvalidToken
	}
	u := SessionUser(c)
	return &u, nil
}

// IssueToken returns a signed bearer token for u.
func (m *Manager) IssueToken(u SessionUser) (string, error) {
	if m.tokens == nil {
		return "", errors.New("bearer tokens are disabled (no token key)")
	}
	return m.tokens.Issue(u)
}

// ParseToken verifies a bearer token and returns its user.
func (m *Manager) ParseToken(tok string) (*SessionUser, error) {
	if m.tokens == nil {
		return nil, ErrInvalidToken
	}
	return m.tokens.Parse(tok)
}

// SignIn stores u in the session cookie.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, _ := m.store.Get(r, m.sessionName)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userName] = u.Name
	sess.Values[userRole] = u.Role
	sess.Values[userCohortID] = u.CohortID
	return sess.Save(r, w)
}

// LoadSessionUser injects the user into context from a bearer token or the
// session cookie, and marks requests carrying the internal secret.
// A malformed bearer token is rejected with 401 rather than ignored.
func (m *Manager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.checkInternal(r) {
			r = r.WithContext(context.WithValue(r.Context(), internalKey, true))
		}

		if tok, ok := bearerToken(r); ok {
			u, err := m.ParseToken(tok)
			if err != nil {
				m.log.Debug("bearer token rejected", zap.Error(err))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, withUser(r, u))
			return
		}

		sess, _ := m.store.Get(r, m.sessionName)
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			u := &SessionUser{
				ID:       getString(sess, userIDKey),
				Name:     getString(sess, userName),
				Role:     getString(sess, userRole),
				CohortID: getString(sess, userCohortID),
			}
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) checkInternal(r *http.Request) bool {
	if m.secret == nil {
		return false
	}
	got := r.Header.Get(InternalSecretHeader)
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), m.secret) == 1
}

/*─────────────────────────────────────────────────────────────────────────────*
| Gates                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

// RequireRole ensures there is a user with one of the allowed roles.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	return requireRole(false, allowed...)
}

// RequireRoleOrInternal is RequireRole that also admits internal callers.
func RequireRoleOrInternal(allowed ...string) func(http.Handler) http.Handler {
	return requireRole(true, allowed...)
}

func requireRole(admitInternal bool, allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if admitInternal && IsInternal(r) {
				next.ServeHTTP(w, r)
				return
			}

			u, ok := CurrentUser(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithTestUser injects u into the request context, bypassing the session.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// WithTestInternal marks the request as coming from an internal caller.
func WithTestInternal(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), internalKey, true))
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}
