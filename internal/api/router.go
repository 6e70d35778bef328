package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/crmdesk/internal/customerservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *customerservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.ListCustomers)
		r.Post("/", h.CreateCustomer)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Put("/", h.UpdateCustomer)
			r.Delete("/", h.DeleteCustomer)
			r.Get("/history", h.History)
			r.Post("/notes", h.AddNote)
			r.Put("/notes/{noteID}", h.EditNote)
			r.Put("/reminder", h.SetReminder)
			r.Delete("/reminder", h.ClearReminder)
			r.Post("/reminder/complete", h.CompleteReminder)
		})
	})

	r.Get("/doings", h.Doings)
	r.Get("/dashboard", h.Dashboard)

	// Import, export and backup.
	r.Post("/import", h.Import)
	r.Get("/export", h.Export)
	r.Post("/restore", h.Restore)

	r.Get("/settings", h.GetSettings)
	r.Put("/settings/company", h.SetCompanyName)
	r.Post("/settings/logo", h.UploadLogo)
	r.Delete("/settings/logo", h.DeleteLogo)
	r.Post("/settings/sources", h.AddSource)
	r.Delete("/settings/sources/{label}", h.DeleteSource)

	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.UpdatePreferences)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
