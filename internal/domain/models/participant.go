package models

import "time"

// Roles carried in sessions and tokens.
const (
	RoleSuperAdmin    = "superadmin"
	RoleAdministrator = "administrator"
	RoleParticipant   = "participant"
)

// Participant is a cohort member.
//
// IsSuperAdmin is the only capability that bypasses profile gating.
// Administrators manage matching but view profiles under the normal rules.
type Participant struct {
	ID              string `bson:"_id" json:"id"`
	CohortID        string `bson:"cohort_id" json:"cohort_id"`
	Name            string `bson:"name" json:"name"`
	Gender          string `bson:"gender,omitempty" json:"gender,omitempty"`
	IsSuperAdmin    bool   `bson:"is_super_admin,omitempty" json:"is_super_admin,omitempty"`
	IsAdministrator bool   `bson:"is_administrator,omitempty" json:"is_administrator,omitempty"`
	IsGhost         bool   `bson:"is_ghost,omitempty" json:"is_ghost,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Role derives the session role from the capability flags.
func (p Participant) Role() string {
	switch {
	case p.IsSuperAdmin:
		return RoleSuperAdmin
	case p.IsAdministrator:
		return RoleAdministrator
	default:
		return RoleParticipant
	}
}
