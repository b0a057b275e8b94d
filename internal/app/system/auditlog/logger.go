// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/cohorthub/internal/app/store/audit"
	"github.com/dalemusser/cohorthub/internal/app/system/authz"
	"github.com/dalemusser/cohorthub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Matching controls commit/clear events. Values: all, db, log, off.
	Matching string
	// Submission controls submission events. Values: all, db, log, off.
	Submission string
}

// ValidMode reports whether m is a known destination setting.
func ValidMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// Actor identifies who performed an audited action.
type Actor struct {
	ID        string
	IP        string
	UserAgent string
}

// ActorFromRequest derives the actor from the signed-in user or the
// internal-secret marker, plus client address details.
func ActorFromRequest(r *http.Request) Actor {
	return Actor{
		ID:        authz.Actor(r),
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.CohortID != "" {
		fields = append(fields, zap.String("cohort_id", event.CohortID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", event.SubjectID))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryMatching:
		setting = l.config.Matching
	case audit.CategorySubmission:
		setting = l.config.Submission
	}
	if setting == "" {
		setting = ModeAll
	}
	if setting == ModeOff {
		return
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}

	if setting == ModeAll || setting == ModeDB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Matching Events ---

// MatchingCommitted logs a successful assignment-set commit.
func (l *Logger) MatchingCommitted(ctx context.Context, a Actor, cohortID, date, commitID string, participants int) {
	l.Log(ctx, audit.Event{
		CohortID:  cohortID,
		Category:  audit.CategoryMatching,
		EventType: audit.EventMatchingCommitted,
		ActorID:   a.ID,
		IP:        a.IP,
		UserAgent: a.UserAgent,
		Success:   true,
		Details: map[string]string{
			"date":         date,
			"commit_id":    commitID,
			"participants": strconv.Itoa(participants),
		},
	})
}

// MatchingCommitRejected logs a commit refused for an existing set or a
// validation problem.
func (l *Logger) MatchingCommitRejected(ctx context.Context, a Actor, cohortID, date, reason string) {
	l.Log(ctx, audit.Event{
		CohortID:      cohortID,
		Category:      audit.CategoryMatching,
		EventType:     audit.EventMatchingCommitRejected,
		ActorID:       a.ID,
		IP:            a.IP,
		UserAgent:     a.UserAgent,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"date": date},
	})
}

// MatchingCleared logs an administrative clear.
func (l *Logger) MatchingCleared(ctx context.Context, a Actor, cohortID, date, commitID string) {
	l.Log(ctx, audit.Event{
		CohortID:  cohortID,
		Category:  audit.CategoryMatching,
		EventType: audit.EventMatchingCleared,
		ActorID:   a.ID,
		IP:        a.IP,
		UserAgent: a.UserAgent,
		Success:   true,
		Details: map[string]string{
			"date":      date,
			"commit_id": commitID,
		},
	})
}

// --- Submission Events ---

// SubmissionCreated logs a new submission.
func (l *Logger) SubmissionCreated(ctx context.Context, a Actor, cohortID, submissionID, logicalDate string) {
	l.Log(ctx, audit.Event{
		CohortID:  cohortID,
		Category:  audit.CategorySubmission,
		EventType: audit.EventSubmissionCreated,
		SubjectID: submissionID,
		ActorID:   a.ID,
		IP:        a.IP,
		UserAgent: a.UserAgent,
		Success:   true,
		Details:   map[string]string{"submission_date": logicalDate},
	})
}

// SubmissionStatusChanged logs a review decision.
func (l *Logger) SubmissionStatusChanged(ctx context.Context, a Actor, cohortID, submissionID, status string) {
	l.Log(ctx, audit.Event{
		CohortID:  cohortID,
		Category:  audit.CategorySubmission,
		EventType: audit.EventSubmissionStatusChanged,
		SubjectID: submissionID,
		ActorID:   a.ID,
		IP:        a.IP,
		UserAgent: a.UserAgent,
		Success:   true,
		Details:   map[string]string{"status": status},
	})
}
