package testutil

import (
	"net/http"
	"net/http/httptest"

	"github.com/dalemusser/cohorthub/internal/app/system/auth"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID       string
	Name     string
	Role     string
	CohortID string
}

// SuperAdminUser returns a TestUser with the superadmin role.
func SuperAdminUser() TestUser {
	return TestUser{
		ID:   primitive.NewObjectID().Hex(),
		Name: "Test Superadmin",
		Role: models.RoleSuperAdmin,
	}
}

// AdministratorUser returns a TestUser with the administrator role.
func AdministratorUser() TestUser {
	return TestUser{
		ID:   primitive.NewObjectID().Hex(),
		Name: "Test Administrator",
		Role: models.RoleAdministrator,
	}
}

// ParticipantUser returns a TestUser for an existing participant.
func ParticipantUser(p models.Participant) TestUser {
	return TestUser{
		ID:       p.ID,
		Name:     p.Name,
		Role:     p.Role(),
		CohortID: p.CohortID,
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:       user.ID,
		Name:     user.Name,
		Role:     user.Role,
		CohortID: user.CohortID,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}
