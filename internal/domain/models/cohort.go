package models

import (
	"fmt"
	"time"
)

// DateLayout is the YYYY-MM-DD form of logical dates.
const DateLayout = "2006-01-02"

// Cohort is one run of the reading program.
//
// DailyAssignments holds the committed matching for each logical date, keyed
// by YYYY-MM-DD. It is written only by the assignment store's commit and
// clear operations and is not serialized to API clients.
type Cohort struct {
	ID          string `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	StartDate   string `bson:"start_date" json:"start_date"`                         // YYYY-MM-DD, program day 1
	EndDate     string `bson:"end_date,omitempty" json:"end_date,omitempty"`         // YYYY-MM-DD, last program day
	ProgramDays int    `bson:"program_days,omitempty" json:"program_days,omitempty"` // overrides EndDate when > 0
	IsActive    bool   `bson:"is_active" json:"is_active"`

	DailyAssignments map[string]DailyAssignmentSet `bson:"daily_assignments,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ProgramLength returns the number of scheduled program days.
// An explicit ProgramDays wins; otherwise the span StartDate..EndDate inclusive.
func (c Cohort) ProgramLength() (int, error) {
	if c.ProgramDays > 0 {
		return c.ProgramDays, nil
	}
	if c.EndDate == "" {
		return 0, fmt.Errorf("cohort %s has neither program_days nor end_date", c.ID)
	}
	n, err := daysBetween(c.StartDate, c.EndDate)
	if err != nil {
		return 0, fmt.Errorf("cohort %s: %w", c.ID, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("cohort %s ends before it starts", c.ID)
	}
	return n + 1, nil
}

// ProgramDay returns the 1-indexed program day that date falls on.
// Dates before the start yield values below 1.
func (c Cohort) ProgramDay(date string) (int, error) {
	n, err := daysBetween(c.StartDate, date)
	if err != nil {
		return 0, fmt.Errorf("cohort %s: %w", c.ID, err)
	}
	return n + 1, nil
}

// daysBetween counts whole days from from to to; negative when to is earlier.
func daysBetween(from, to string) (int, error) {
	a, err := time.Parse(DateLayout, from)
	if err != nil {
		return 0, fmt.Errorf("bad date %q", from)
	}
	b, err := time.Parse(DateLayout, to)
	if err != nil {
		return 0, fmt.Errorf("bad date %q", to)
	}
	return int(b.Sub(a).Hours() / 24), nil
}
