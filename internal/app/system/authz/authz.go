// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/cohorthub/internal/app/system/auth"
	"github.com/dalemusser/cohorthub/internal/domain/models"
)

// UserCtx returns the user's role (lowercased), name, id, and a found flag.
// If no user is present in context or the id is empty, it returns
// "visitor", "", "", false, so ok=true always means an identified user.
func UserCtx(r *http.Request) (role string, name string, userID string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.ID == "" {
		return "visitor", "", "", false
	}
	return strings.ToLower(user.Role), user.Name, user.ID, true
}

// IsSuperAdmin reports whether the current request's user is a superadmin.
func IsSuperAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleSuperAdmin
}

// IsAdministrator reports whether the current request's user is an
// administrator. Superadmins are administrators for permission purposes.
func IsAdministrator(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && (role == models.RoleAdministrator || role == models.RoleSuperAdmin)
}

// CanManageMatching reports whether the request may commit or clear
// assignment sets: staff users, or a scheduled job holding the internal secret.
func CanManageMatching(r *http.Request) bool {
	return auth.IsInternal(r) || IsAdministrator(r)
}

// Actor returns the identifier recorded as committed_by / actor for r.
func Actor(r *http.Request) string {
	if _, _, id, ok := UserCtx(r); ok {
		return id
	}
	if auth.IsInternal(r) {
		return "system"
	}
	return ""
}

// UserCohortID returns the cohort the signed-in user belongs to, if any.
func UserCohortID(r *http.Request) string {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return ""
	}
	return user.CohortID
}
