package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vivenda/agenda/internal/agenda"
	"github.com/vivenda/agenda/internal/agendaservice"
	"github.com/vivenda/agenda/internal/apperr"
	"github.com/vivenda/agenda/internal/domain"
	"github.com/vivenda/agenda/internal/upstream"
)

// Handler holds the API route handlers.
type Handler struct {
	svc *agendaservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *agendaservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Agenda handles GET /agenda. Query parameters: view (month|week|day|list),
// anchor (YYYY-MM-DD, defaults to today), nav (next|prev|today), agent_id.
// The response carries the resolved anchor so clients can round-trip it.
func (h *Handler) Agenda(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Settings()
	q := r.URL.Query()

	viewName := q.Get("view")
	if viewName == "" {
		viewName = string(agenda.ViewMonth)
	}
	view, err := agenda.ParseView(viewName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	now := time.Now().In(st.Location)
	anchor := now
	if raw := q.Get("anchor"); raw != "" {
		anchor, err = time.ParseInLocation("2006-01-02", raw, st.Location)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("anchor must be YYYY-MM-DD"))
			return
		}
	}

	ctrl := agenda.Controller{View: view, Anchor: anchor}
	switch q.Get("nav") {
	case "":
	case "next":
		ctrl = ctrl.Next()
	case "prev":
		ctrl = ctrl.Prev()
	case "today":
		ctrl = ctrl.Today(now)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("nav must be next, prev or today"))
		return
	}

	result, err := h.svc.View(r.Context(), ctrl, q.Get("agent_id"))
	if err != nil {
		h.writeServiceError(w, "agenda view failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateForm handles GET /events/form. Query parameters: slot (RFC 3339),
// the clicked time-slot start.
func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("slot")
	slot, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("slot must be RFC 3339"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.PrefillCreate(slot))
}

// EditForm handles GET /events/{id}/form: the edit-dialog load, including
// the visit backfill for incomplete VISIT events.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, err := h.svc.LoadEditForm(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		h.writeServiceError(w, "edit form load failed", err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// CreateEvent handles POST /events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		if fields, ok := fieldErrors(err); ok {
			writeJSON(w, http.StatusBadRequest, validationBody(fields))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}

	st := h.svc.Settings()
	start, err := startInstant(req.Date, req.Time, st.Location)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	created, err := h.svc.Create(r.Context(), domain.CalendarEvent{
		Title:       req.Title,
		Description: req.Description,
		Type:        domain.EventType(req.Type),
		Start:       start,
		AgentID:     req.AgentID,
		ClientID:    req.ClientID,
		PropertyID:  req.PropertyID,
		OperationID: req.OperationID,
		VisitID:     req.VisitID,
	})
	if err != nil {
		h.writeServiceError(w, "create event failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateEvent handles PUT /events/{id}. A quoted If-Match tag enforces
// optimistic concurrency against the cached copy.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		if fields, ok := fieldErrors(err); ok {
			writeJSON(w, http.StatusBadRequest, validationBody(fields))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}

	st := h.svc.Settings()
	start, err := startInstant(req.Date, req.Time, st.Location)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	updated, err := h.svc.Update(r.Context(), id, ifMatch, start, time.Time{}, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("event was modified by another agent"))
		default:
			h.writeServiceError(w, "update event failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteEvent handles DELETE /events/{id}.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		h.writeServiceError(w, "delete event failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// References handles GET /refs: the dropdown client and property lists.
func (h *Handler) References(w http.ResponseWriter, r *http.Request) {
	clients, properties, err := h.svc.References(r.Context())
	if err != nil {
		h.writeServiceError(w, "reference lists failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ReferencesResponse{Clients: clients, Properties: properties})
}

// Clients serves only the client dropdown list.
func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	clients, _, err := h.svc.References(r.Context())
	if err != nil {
		h.writeServiceError(w, "reference lists failed", err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// Properties serves only the property dropdown list.
func (h *Handler) Properties(w http.ResponseWriter, r *http.Request) {
	_, properties, err := h.svc.References(r.Context())
	if err != nil {
		h.writeServiceError(w, "reference lists failed", err)
		return
	}
	writeJSON(w, http.StatusOK, properties)
}

// writeServiceError maps an upstream failure onto the surfaced error
// contract: the backend's detail message when one exists, a generic
// unavailability notice otherwise.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, slog.String("error", err.Error()))

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, http.StatusBadGateway, errorBody(apiErr.Detail))
		return
	}
	if errors.Is(err, apperr.ErrUnavailable) {
		writeJSON(w, http.StatusBadGateway, errorBody("backend unavailable"))
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
