// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level, CORS); AppConfig covers
// the database, identity, program clock and audit settings.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool
	MongoMinPoolSize uint64 // Minimum connections to keep warm

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: cohorthub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Bearer tokens and scheduled jobs
	TokenKey       string        // Signs bearer tokens; blank disables bearer auth
	TokenTTL       time.Duration // Bearer token lifetime
	InternalSecret string        // X-Internal-Secret value for scheduled jobs; blank disables

	// Program clock
	ProgramTimezone      string // IANA zone the cohort lives in (e.g., Asia/Seoul)
	DayCutoffHour        int    // Local hour at which the logical day rolls over
	MatchingOffsetBefore int    // Days the matching date trails before the cutoff
	MatchingOffsetAfter  int    // Days the matching date trails after the cutoff

	// Timeouts
	CommitTimeout time.Duration // Deadline for one assignment-set commit

	// Background work
	BackupRepairInterval time.Duration // How often missing backups are rewritten; 0 disables

	// Rate limiting
	SubmissionRateLimit int // Submissions accepted per participant per minute; 0 disables

	// Audit logging: all, db, log, off
	AuditLogMatching   string
	AuditLogSubmission string

	// SuperAdmin bootstrap
	SuperAdminParticipant string // Participant id promoted to super admin on startup
}
