// Package profilepolicy decides whether one participant may open another
// participant's profile.
//
// Authorization rules (first match wins):
//   - A participant can always view their own profile
//   - Super admins can view every profile
//   - Once the program is over (day >= length+1) every profile is open
//   - On the final day, a participant verified today can view every profile
//   - Otherwise a participant verified today can view the profiles featured
//     for them in the assignment set for the matching target date
//   - Everything else is denied
//
// Administrators manage matching but do not get privileged viewing.
package profilepolicy

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.uber.org/zap"
)

var (
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrUnknownCohort      = errors.New("unknown cohort")
)

// Decision reasons.
const (
	ReasonSelf                  = "self"
	ReasonSuperAdmin            = "superadmin"
	ReasonProgramEnded          = "program_ended"
	ReasonFinalDay              = "final_day"
	ReasonFeatured              = "featured"
	ReasonDeniedNotVerified     = "denied_not_verified"
	ReasonDeniedNoAssignmentSet = "denied_no_assignment_set"
	ReasonDeniedNotFeatured     = "denied_not_featured"
)

// CohortReader loads cohorts. Find returns nil, nil when absent.
type CohortReader interface {
	Find(ctx context.Context, id string) (*models.Cohort, error)
}

// ParticipantReader loads participants. Find returns nil, nil when absent.
type ParticipantReader interface {
	Find(ctx context.Context, id string) (*models.Participant, error)
}

// SubmissionReader answers verification questions.
type SubmissionReader interface {
	HasApprovedOn(ctx context.Context, participantID, date string) (bool, error)
	CountApprovedDates(ctx context.Context, participantID, cohortID string) (int, error)
}

// AssignmentReader loads committed sets. Lookup returns nil, nil when no set
// exists for the date.
type AssignmentReader interface {
	Lookup(ctx context.Context, cohortID, date string) (*models.DailyAssignmentSet, error)
}

// Facts are the inputs to one access decision.
type Facts struct {
	IsSelf             bool
	IsPrivilegedViewer bool
	ProgramDay         int
	ProgramLength      int
	IsVerifiedToday    bool
	HasAssignmentSet   bool
	IsFeatured         bool
}

// IsAfterProgram reports whether the program has ended.
func (f Facts) IsAfterProgram() bool {
	return f.ProgramLength > 0 && f.ProgramDay >= f.ProgramLength+1
}

// IsFinalDay reports whether today is the last program day.
func (f Facts) IsFinalDay() bool {
	return f.ProgramLength > 0 && f.ProgramDay == f.ProgramLength
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Evaluate applies the access rules to a complete set of facts.
func Evaluate(f Facts) Decision {
	switch {
	case f.IsSelf:
		return allow(ReasonSelf)
	case f.IsPrivilegedViewer:
		return allow(ReasonSuperAdmin)
	case f.IsAfterProgram():
		return allow(ReasonProgramEnded)
	case !f.IsVerifiedToday:
		return deny(ReasonDeniedNotVerified)
	case f.IsFinalDay():
		return allow(ReasonFinalDay)
	case !f.HasAssignmentSet:
		return deny(ReasonDeniedNoAssignmentSet)
	case f.IsFeatured:
		return allow(ReasonFeatured)
	default:
		return deny(ReasonDeniedNotFeatured)
	}
}

// Deps holds the engine's collaborators.
type Deps struct {
	Resolver     *daykey.Resolver
	Cohorts      CohortReader
	Participants ParticipantReader
	Submissions  SubmissionReader
	Assignments  AssignmentReader
	Metrics      *metrics.Metrics
	Log          *zap.Logger
}

// Engine gathers facts from the stores and evaluates them. It holds no
// cached state; every call reads fresh data.
type Engine struct {
	d Deps
}

// New creates an Engine.
func New(d Deps) *Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Engine{d: d}
}

// CanView decides whether viewerID may open targetID's profile in cohortID.
// Reads stop as soon as a rule settles the outcome.
func (e *Engine) CanView(ctx context.Context, viewerID, targetID, cohortID string) (Decision, error) {
	dec, err := e.canView(ctx, viewerID, targetID, cohortID)
	if err != nil {
		return Decision{}, err
	}
	e.d.Metrics.Decision(dec.Allowed, dec.Reason)
	e.d.Log.Debug("profile access decision",
		zap.String("viewer_id", viewerID),
		zap.String("target_id", targetID),
		zap.String("cohort_id", cohortID),
		zap.Bool("allowed", dec.Allowed),
		zap.String("reason", dec.Reason))
	return dec, nil
}

func (e *Engine) canView(ctx context.Context, viewerID, targetID, cohortID string) (Decision, error) {
	viewer, err := e.participant(ctx, viewerID)
	if err != nil {
		return Decision{}, err
	}
	cohort, err := e.cohort(ctx, cohortID)
	if err != nil {
		return Decision{}, err
	}
	if !viewer.IsSuperAdmin && viewer.CohortID != cohortID {
		return Decision{}, fmt.Errorf("%w: %s is not in cohort %s", ErrUnknownParticipant, viewerID, cohortID)
	}
	var f Facts
	if viewerID == targetID {
		f.IsSelf = true
		return Evaluate(f), nil
	}

	target, err := e.participant(ctx, targetID)
	if err != nil {
		return Decision{}, err
	}
	if target.CohortID != cohortID {
		return Decision{}, fmt.Errorf("%w: %s is not in cohort %s", ErrUnknownParticipant, targetID, cohortID)
	}
	if viewer.IsSuperAdmin {
		f.IsPrivilegedViewer = true
		return Evaluate(f), nil
	}

	today := e.d.Resolver.CurrentLogicalDate()
	if f.ProgramLength, err = cohort.ProgramLength(); err != nil {
		return Decision{}, fmt.Errorf("cohort %s: %w", cohortID, err)
	}
	if f.ProgramDay, err = cohort.ProgramDay(today); err != nil {
		return Decision{}, fmt.Errorf("cohort %s: %w", cohortID, err)
	}
	if f.IsAfterProgram() {
		return Evaluate(f), nil
	}

	if f.IsVerifiedToday, err = e.d.Submissions.HasApprovedOn(ctx, viewerID, today); err != nil {
		return Decision{}, fmt.Errorf("verification for %s: %w", viewerID, err)
	}
	if !f.IsVerifiedToday || f.IsFinalDay() {
		return Evaluate(f), nil
	}

	set, err := e.d.Assignments.Lookup(ctx, cohortID, e.d.Resolver.MatchingTargetDate())
	if err != nil {
		return Decision{}, fmt.Errorf("assignment set for %s: %w", cohortID, err)
	}
	if set != nil && !set.IsEmpty() {
		f.HasAssignmentSet = true
		f.IsFeatured = set.Featured(viewerID, targetID)
	}
	return Evaluate(f), nil
}

func (e *Engine) participant(ctx context.Context, id string) (*models.Participant, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrUnknownParticipant)
	}
	p, err := e.d.Participants.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load participant %s: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
	}
	return p, nil
}

func (e *Engine) cohort(ctx context.Context, id string) (*models.Cohort, error) {
	c, err := e.d.Cohorts.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load cohort %s: %w", id, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCohort, id)
	}
	return c, nil
}

// FreeProfileBooks is how many profile books stay open to a viewer who has
// not been verified today.
const FreeProfileBooks = 2

// Summary describes a viewer's profile-book allowance for today.
type Summary struct {
	ViewerID      string `json:"viewer_id"`
	CohortID      string `json:"cohort_id"`
	LogicalDate   string `json:"logical_date"`
	MatchingDate  string `json:"matching_date"`
	ApprovedDays  int    `json:"approved_days"`
	Quota         int    `json:"quota"`
	Unlocked      int    `json:"unlocked"`
	AllUnlocked   bool   `json:"all_unlocked"`
	VerifiedToday bool   `json:"verified_today"`
	IsSuperAdmin  bool   `json:"is_super_admin"`

	// Featured lists today's featured targets for the viewer, in order.
	Featured []string `json:"featured"`
}

// IsProfileBookLocked reports whether the book at index is locked.
func (s Summary) IsProfileBookLocked(index int) bool {
	if s.IsSuperAdmin || s.AllUnlocked {
		return false
	}
	return index >= s.Unlocked
}

// Summary computes the profile-book allowance for viewerID in cohortID.
func (e *Engine) Summary(ctx context.Context, viewerID, cohortID string) (Summary, error) {
	viewer, err := e.participant(ctx, viewerID)
	if err != nil {
		return Summary{}, err
	}
	if !viewer.IsSuperAdmin && viewer.CohortID != cohortID {
		return Summary{}, fmt.Errorf("%w: %s is not in cohort %s", ErrUnknownParticipant, viewerID, cohortID)
	}
	if _, err := e.cohort(ctx, cohortID); err != nil {
		return Summary{}, err
	}

	s := Summary{
		ViewerID:     viewerID,
		CohortID:     cohortID,
		LogicalDate:  e.d.Resolver.CurrentLogicalDate(),
		MatchingDate: e.d.Resolver.MatchingTargetDate(),
		IsSuperAdmin: viewer.IsSuperAdmin,
		Featured:     []string{},
	}
	if s.ApprovedDays, err = e.d.Submissions.CountApprovedDates(ctx, viewerID, cohortID); err != nil {
		return Summary{}, fmt.Errorf("approved days for %s: %w", viewerID, err)
	}
	if s.VerifiedToday, err = e.d.Submissions.HasApprovedOn(ctx, viewerID, s.LogicalDate); err != nil {
		return Summary{}, fmt.Errorf("verification for %s: %w", viewerID, err)
	}

	s.Quota = 2 * (s.ApprovedDays + 2)
	s.AllUnlocked = s.IsSuperAdmin || s.VerifiedToday
	if s.AllUnlocked {
		s.Unlocked = s.Quota
	} else {
		s.Unlocked = min(FreeProfileBooks, s.Quota)
	}

	set, err := e.d.Assignments.Lookup(ctx, cohortID, s.MatchingDate)
	if err != nil {
		return Summary{}, fmt.Errorf("assignment set for %s: %w", cohortID, err)
	}
	if set != nil {
		if a, ok := set.Assignments[viewerID]; ok {
			s.Featured = a.AllTargets()
		}
	}
	return s, nil
}
