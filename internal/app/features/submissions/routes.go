// internal/app/features/submissions/routes.go
package submissions

import (
	"github.com/dalemusser/cohorthub/internal/app/system/auth"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for submissions, mounted at /api/submissions.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeMine)
		pr.Post("/", h.HandleCreate)
	})

	r.With(auth.RequireRole(models.RoleSuperAdmin, models.RoleAdministrator)).
		Post("/{id}/status", h.HandleSetStatus)

	return r
}
