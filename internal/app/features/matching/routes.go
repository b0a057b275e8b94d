// internal/app/features/matching/routes.go
package matching

import (
	"github.com/dalemusser/cohorthub/internal/app/system/auth"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the assignment-set API, mounted at
// /api/matching. Staff and internal jobs may commit and read; clearing is
// staff only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRoleOrInternal(models.RoleSuperAdmin, models.RoleAdministrator))

		pr.Post("/{cohortID}", h.HandleCommit)
		pr.Get("/{cohortID}", h.ServeSet)
		pr.Get("/{cohortID}/dates", h.ServeDates)
	})

	r.With(auth.RequireRole(models.RoleSuperAdmin, models.RoleAdministrator)).
		Delete("/{cohortID}/{date}", h.HandleClear)

	return r
}
