// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/system/auditlog"
	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CohortHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, program_timezone, etc.
//   - Environment variables: COHORTHUB_MONGO_URI, COHORTHUB_PROGRAM_TIMEZONE, etc.
//   - Command-line flags: --mongo_uri, --program_timezone, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "cohorthub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "cohorthub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Bearer tokens and scheduled jobs
	{Name: "token_key", Default: "", Desc: "Bearer token signing key (blank disables bearer auth)"},
	{Name: "token_ttl", Default: "24h", Desc: "Bearer token lifetime"},
	{Name: "internal_secret", Default: "", Desc: "X-Internal-Secret value accepted from scheduled jobs (blank disables)"},

	// Program clock
	{Name: "program_timezone", Default: daykey.DefaultTimezone, Desc: "IANA timezone of the program"},
	{Name: "day_cutoff_hour", Default: daykey.DefaultCutoffHour, Desc: "Local hour (0-23) at which the logical day rolls over"},
	{Name: "matching_offset_before_cutoff", Default: daykey.DefaultMatchingOffsets.BeforeCutoff, Desc: "Days the matching date trails the calendar date before the cutoff"},
	{Name: "matching_offset_after_cutoff", Default: daykey.DefaultMatchingOffsets.AfterCutoff, Desc: "Days the matching date trails the calendar date after the cutoff"},

	// Timeouts
	{Name: "commit_timeout", Default: "10s", Desc: "Deadline for one assignment-set commit (e.g., 10s, 1m)"},

	// Background work
	{Name: "backup_repair_interval", Default: "15m", Desc: "How often missing matching backups are rewritten (0 disables)"},

	// Rate limiting
	{Name: "submission_rate_limit", Default: 20, Desc: "Submissions accepted per participant per minute (0 disables)"},

	// Audit logging settings
	{Name: "audit_log_matching", Default: "all", Desc: "Matching event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_submission", Default: "all", Desc: "Submission event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// SuperAdmin bootstrap
	{Name: "superadmin_participant", Default: "", Desc: "Participant id promoted to super admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, COHORTHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COHORTHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		// Bearer tokens and scheduled jobs
		TokenKey:       appValues.String("token_key"),
		TokenTTL:       appValues.Duration("token_ttl", 24*time.Hour),
		InternalSecret: appValues.String("internal_secret"),

		// Program clock
		ProgramTimezone:      appValues.String("program_timezone"),
		DayCutoffHour:        appValues.Int("day_cutoff_hour"),
		MatchingOffsetBefore: appValues.Int("matching_offset_before_cutoff"),
		MatchingOffsetAfter:  appValues.Int("matching_offset_after_cutoff"),

		// Timeouts
		CommitTimeout: appValues.Duration("commit_timeout", 10*time.Second),

		// Background work
		BackupRepairInterval: appValues.Duration("backup_repair_interval", 15*time.Minute),

		// Rate limiting
		SubmissionRateLimit: appValues.Int("submission_rate_limit"),

		// Audit logging
		AuditLogMatching:   appValues.String("audit_log_matching"),
		AuditLogSubmission: appValues.String("audit_log_submission"),

		// SuperAdmin
		SuperAdminParticipant: appValues.String("superadmin_participant"),
	}

	return coreCfg, appCfg, nil
}

// newResolver builds the program clock from the app config.
func newResolver(appCfg AppConfig) (*daykey.Resolver, error) {
	loc, err := time.LoadLocation(appCfg.ProgramTimezone)
	if err != nil {
		return nil, fmt.Errorf("program_timezone %q: %w", appCfg.ProgramTimezone, err)
	}
	return daykey.New(daykey.Config{
		Location:   loc,
		CutoffHour: appCfg.DayCutoffHour,
		Offsets: &daykey.MatchingOffsets{
			BeforeCutoff: appCfg.MatchingOffsetBefore,
			AfterCutoff:  appCfg.MatchingOffsetAfter,
		},
	})
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// CohortHub checks the MongoDB URI, the program clock and the audit modes
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if _, err := newResolver(appCfg); err != nil {
		return fmt.Errorf("invalid program clock: %w", err)
	}

	if appCfg.CommitTimeout <= 0 {
		return fmt.Errorf("commit_timeout must be positive, got %s", appCfg.CommitTimeout)
	}

	if appCfg.BackupRepairInterval < 0 {
		return fmt.Errorf("backup_repair_interval must not be negative, got %s", appCfg.BackupRepairInterval)
	}
	if appCfg.SubmissionRateLimit < 0 {
		return fmt.Errorf("submission_rate_limit must not be negative, got %d", appCfg.SubmissionRateLimit)
	}

	for key, mode := range map[string]string{
		"audit_log_matching":   appCfg.AuditLogMatching,
		"audit_log_submission": appCfg.AuditLogSubmission,
	} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, mode)
		}
	}

	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.TokenKey == "" && appCfg.InternalSecret == "" {
		logger.Warn("neither token_key nor internal_secret is set; only session callers can commit matchings")
	}

	return nil
}
