package models

import "time"

// MatchingBackup is the write-once secondary copy of a committed assignment
// set, stored under BackupKey(cohortID, date). Reconciliation tooling reads
// it; profile access checks never do.
//
// A clear stamps ClearedAt; only a cleared backup may be replaced by the
// backup of a later commit for the same key.
type MatchingBackup struct {
	ID           string             `bson:"_id" json:"id"`
	CohortID     string             `bson:"cohort_id" json:"cohort_id"`
	Date         string             `bson:"date" json:"date"`
	Matching     DailyAssignmentSet `bson:"matching" json:"matching"`
	CommitID     string             `bson:"commit_id" json:"commit_id"`
	ConfirmedBy  string             `bson:"confirmed_by" json:"confirmed_by"`
	ConfirmedAt  time.Time          `bson:"confirmed_at" json:"confirmed_at"`
	Participants int                `bson:"total_participants" json:"total_participants"`
	Warnings     []string           `bson:"validation_warnings,omitempty" json:"validation_warnings,omitempty"`

	ClearedAt *time.Time `bson:"cleared_at,omitempty" json:"cleared_at,omitempty"`
	ClearedBy string     `bson:"cleared_by,omitempty" json:"cleared_by,omitempty"`
}

// BackupKey is the backup document id for a (cohort, date) pair.
func BackupKey(cohortID, date string) string {
	return cohortID + "-" + date
}
