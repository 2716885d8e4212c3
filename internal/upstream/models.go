package upstream

import (
	"time"

	"github.com/vivenda/agenda/internal/domain"
)

// EventCreate is the POST /calendar-events/ payload.
type EventCreate struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Start       string `json:"start_date"` // RFC 3339
	End         string `json:"end_date"`   // RFC 3339
	AgentID     string `json:"agent_id,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	PropertyID  string `json:"property_id,omitempty"`
	OperationID string `json:"operation_id,omitempty"`
	VisitID     string `json:"visit_id,omitempty"`
}

// EventUpdate is the PUT /calendar-events/{id} payload. Title and type are
// immutable after creation; only schedule and description change.
type EventUpdate struct {
	Description string `json:"description,omitempty"`
	Start       string `json:"start_date"`
	End         string `json:"end_date"`
}

// NewEventCreate converts a domain event into its wire form.
func NewEventCreate(e domain.CalendarEvent) EventCreate {
	return EventCreate{
		Title:       e.Title,
		Description: e.Description,
		Type:        string(e.Type),
		Start:       e.Start.Format(time.RFC3339),
		End:         e.End.Format(time.RFC3339),
		AgentID:     e.AgentID,
		ClientID:    e.ClientID,
		PropertyID:  e.PropertyID,
		OperationID: e.OperationID,
		VisitID:     e.VisitID,
	}
}

// NewEventUpdate converts the editable fields into their wire form.
func NewEventUpdate(start, end time.Time, description string) EventUpdate {
	return EventUpdate{
		Description: description,
		Start:       start.Format(time.RFC3339),
		End:         end.Format(time.RFC3339),
	}
}

// errorBody is the backend's error envelope. Malformed bodies fall back to
// a generic message at the call site.
type errorBody struct {
	Detail string `json:"detail"`
}
