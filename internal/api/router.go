package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vivenda/agenda/internal/agendaservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler and icalHandler, if non-nil, are mounted inside the auth group.
func NewRouter(svc *agendaservice.Service, authEnabled bool, token string, sseHandler, icalHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Agenda views and navigation.
	r.Get("/agenda", h.Agenda)

	// Dialog flows.
	r.Get("/events/form", h.CreateForm)
	r.Get("/events/{id}/form", h.EditForm)

	// Event mutations.
	r.Post("/events", h.CreateEvent)
	r.Put("/events/{id}", h.UpdateEvent)
	r.Delete("/events/{id}", h.DeleteEvent)

	// Reference lists for the dialog dropdowns.
	r.Get("/refs", h.References)
	r.Get("/refs/clients", h.Clients)
	r.Get("/refs/properties", h.Properties)

	// iCalendar feed of the visible range.
	if icalHandler != nil {
		r.Get("/agenda/feed.ics", icalHandler.ServeHTTP)
	}

	// SSE change stream (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events/stream", sseHandler.ServeHTTP)
	}

	return r
}
