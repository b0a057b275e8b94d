package models

import "time"

// Matching scheme versions recorded on a DailyAssignmentSet.
const (
	MatchingVersionRandom  = "random"
	MatchingVersionCluster = "cluster"
	MatchingVersionAI      = "ai"
)

// Assignment lists the profiles featured for one viewer on one date.
//
// Targets is the current shape. Similar and Opposite are the older split
// shape; every id in any of the three lists counts as featured.
type Assignment struct {
	Targets  []string `bson:"targets,omitempty" json:"targets,omitempty"`
	Similar  []string `bson:"similar,omitempty" json:"similar,omitempty"`
	Opposite []string `bson:"opposite,omitempty" json:"opposite,omitempty"`

	// IsAdmin marks staff viewers so statistics can exclude them.
	IsAdmin bool `bson:"is_admin,omitempty" json:"is_admin,omitempty"`
}

// AllTargets returns every featured id in list order, without duplicates.
func (a Assignment) AllTargets() []string {
	out := make([]string, 0, len(a.Targets)+len(a.Similar)+len(a.Opposite))
	seen := make(map[string]struct{}, cap(out))
	for _, list := range [][]string{a.Targets, a.Similar, a.Opposite} {
		for _, id := range list {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Features reports whether targetID is featured for this viewer.
func (a Assignment) Features(targetID string) bool {
	for _, list := range [][]string{a.Targets, a.Similar, a.Opposite} {
		for _, id := range list {
			if id == targetID {
				return true
			}
		}
	}
	return false
}

// DailyAssignmentSet is the committed matching for one (cohort, logical date).
type DailyAssignmentSet struct {
	Assignments     map[string]Assignment `bson:"assignments" json:"assignments"`
	MatchingVersion string                `bson:"matching_version,omitempty" json:"matching_version,omitempty"`
	CommitID        string                `bson:"commit_id,omitempty" json:"commit_id,omitempty"`
	CommittedAt     time.Time             `bson:"committed_at" json:"committed_at"`
	CommittedBy     string                `bson:"committed_by,omitempty" json:"committed_by,omitempty"`
}

// IsEmpty reports whether the set carries no assignments.
func (s DailyAssignmentSet) IsEmpty() bool { return len(s.Assignments) == 0 }

// Featured reports whether targetID is in viewerID's assignment.
func (s DailyAssignmentSet) Featured(viewerID, targetID string) bool {
	a, ok := s.Assignments[viewerID]
	return ok && a.Features(targetID)
}
