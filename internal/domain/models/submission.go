package models

import "time"

// Submission statuses. Only approved submissions count as verification.
const (
	SubmissionDraft    = "draft"
	SubmissionPending  = "pending"
	SubmissionApproved = "approved"
	SubmissionRejected = "rejected"
)

// IsValidSubmissionStatus reports whether s is a known submission status.
func IsValidSubmissionStatus(s string) bool {
	switch s {
	case SubmissionDraft, SubmissionPending, SubmissionApproved, SubmissionRejected:
		return true
	}
	return false
}

// Submission is a participant's daily proof of reading.
//
// LogicalDate is stamped once, at creation, from the day-key resolver and is
// never rewritten; status changes leave it untouched.
type Submission struct {
	ID            string    `bson:"_id" json:"id"`
	ParticipantID string    `bson:"participant_id" json:"participant_id"`
	CohortID      string    `bson:"cohort_id" json:"cohort_id"`
	LogicalDate   string    `bson:"submission_date" json:"submission_date"`
	Status        string    `bson:"status" json:"status"`
	SubmittedAt   time.Time `bson:"submitted_at" json:"submitted_at"`

	BookTitle   string `bson:"book_title" json:"book_title"`
	BookAuthor  string `bson:"book_author,omitempty" json:"book_author,omitempty"`
	Review      string `bson:"review" json:"review"`
	DailyAnswer string `bson:"daily_answer,omitempty" json:"daily_answer,omitempty"`
	ReviewNote  string `bson:"review_note,omitempty" json:"review_note,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
