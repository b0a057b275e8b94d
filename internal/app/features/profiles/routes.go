// internal/app/features/profiles/routes.go
package profiles

import (
	"github.com/dalemusser/cohorthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for profile access, mounted at /api/profiles.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)

	r.Get("/summary", h.ServeSummary)
	r.Get("/{participantID}/access", h.ServeAccess)

	return r
}
