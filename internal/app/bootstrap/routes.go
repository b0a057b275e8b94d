// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	healthfeature "github.com/dalemusser/cohorthub/internal/app/features/health"
	matchingfeature "github.com/dalemusser/cohorthub/internal/app/features/matching"
	profilesfeature "github.com/dalemusser/cohorthub/internal/app/features/profiles"
	submissionsfeature "github.com/dalemusser/cohorthub/internal/app/features/submissions"
	"github.com/dalemusser/cohorthub/internal/app/policy/profilepolicy"
	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/app/store/audit"
	backupstore "github.com/dalemusser/cohorthub/internal/app/store/backups"
	cohortstore "github.com/dalemusser/cohorthub/internal/app/store/cohorts"
	participantstore "github.com/dalemusser/cohorthub/internal/app/store/participants"
	submissionstore "github.com/dalemusser/cohorthub/internal/app/store/submissions"
	"github.com/dalemusser/cohorthub/internal/app/system/auditlog"
	"github.com/dalemusser/cohorthub/internal/app/system/auth"
	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. CohortHub builds the program clock, the
// stores and the access engine once, applies the identity middleware, and
// mounts the JSON feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	authMgr, err := auth.NewManager(auth.Config{
		SessionKey:     appCfg.SessionKey,
		SessionName:    appCfg.SessionName,
		Domain:         appCfg.SessionDomain,
		Secure:         secure,
		TokenKey:       appCfg.TokenKey,
		TokenTTL:       appCfg.TokenTTL,
		InternalSecret: appCfg.InternalSecret,
	}, logger)
	if err != nil {
		logger.Error("auth manager init failed", zap.Error(err))
		return nil, err
	}

	resolver, err := newResolver(appCfg)
	if err != nil {
		logger.Error("program clock init failed", zap.Error(err))
		return nil, err
	}

	db := deps.CohortHubMongoDatabase
	m := metrics.New()

	cohorts := cohortstore.New(db)
	participants := participantstore.New(db)
	submissions := submissionstore.New(db, resolver)
	assignments := assignmentstore.New(db, backupstore.New(db), logger, m)

	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{
		Matching:   appCfg.AuditLogMatching,
		Submission: appCfg.AuditLogSubmission,
	})

	engine := profilepolicy.New(profilepolicy.Deps{
		Resolver:     resolver,
		Cohorts:      cohorts,
		Participants: participants,
		Submissions:  submissions,
		Assignments:  assignments,
		Metrics:      m,
		Log:          logger,
	})

	r := chi.NewRouter()

	// Global identity middleware: session cookie, bearer token, or internal secret.
	r.Use(authMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.CohortHubMongoClient, resolver, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus scrape endpoint
	r.Handle("/metrics", m.Handler())

	r.Route("/api", func(api chi.Router) {
		matchingHandler := matchingfeature.NewHandler(assignments, resolver, auditLogger, logger)
		api.Mount("/matching", matchingfeature.Routes(matchingHandler))

		profilesHandler := profilesfeature.NewHandler(engine, logger)
		api.Mount("/profiles", profilesfeature.Routes(profilesHandler))

		submissionsHandler := submissionsfeature.NewHandler(submissions, auditLogger, m, logger)
		submissionsHandler.Limiter = newSubmissionLimiter(appCfg)
		api.Mount("/submissions", submissionsfeature.Routes(submissionsHandler))
	})

	return r, nil
}

// newSubmissionLimiter returns nil when rate limiting is off. The limiter's
// sweeper is stopped in Shutdown.
func newSubmissionLimiter(appCfg AppConfig) *ratelimit.Limiter {
	if appCfg.SubmissionRateLimit <= 0 {
		return nil
	}
	l := ratelimit.New(appCfg.SubmissionRateLimit, time.Minute)
	registerStopper(l)
	return l
}
