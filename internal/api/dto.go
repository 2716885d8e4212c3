package api

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/vivenda/agenda/internal/agendaservice"
	"github.com/vivenda/agenda/internal/domain"
)

// CreateEventRequest is the body for POST /events. Date and time arrive as
// the dialog collects them and are combined into the start instant in the
// agency timezone; the end instant is derived from the default duration.
type CreateEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time"` // HH:MM
	AgentID     string `json:"agent_id,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	PropertyID  string `json:"property_id,omitempty"`
	OperationID string `json:"operation_id,omitempty"`
	VisitID     string `json:"visit_id,omitempty"`
}

// Validate applies the dialog's schema rules. Client and property become
// required when the event is a visit.
func (r CreateEventRequest) Validate() error {
	isVisit := r.Type == string(domain.EventVisit)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Type, validation.Required,
			validation.In("VISIT", "NOTE", "CAPTATION", "REMINDER")),
		validation.Field(&r.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&r.Time, validation.Required, validation.Date("15:04")),
		validation.Field(&r.ClientID,
			validation.Required.When(isVisit).Error("client is required for visits")),
		validation.Field(&r.PropertyID,
			validation.Required.When(isVisit).Error("property is required for visits")),
	)
}

// UpdateEventRequest is the body for PUT /events/{id}. Title and type are
// immutable post-creation; only schedule and description are editable.
type UpdateEventRequest struct {
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// Validate checks the editable fields.
func (r UpdateEventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&r.Time, validation.Required, validation.Date("15:04")),
	)
}

// startInstant combines a validated date and time into an instant in loc.
func startInstant(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("combine date and time: %w", err)
	}
	return t, nil
}

// ReferencesResponse wraps the dropdown reference lists.
type ReferencesResponse struct {
	Clients    []domain.ClientSummary   `json:"clients"`
	Properties []domain.PropertySummary `json:"properties"`
}

// AgendaResponse is the computed agenda view (aliased from the service layer).
type AgendaResponse = agendaservice.AgendaView

// EditFormResponse is the loaded edit dialog state (aliased from the service layer).
type EditFormResponse = agendaservice.EditForm

// fieldErrors flattens ozzo validation errors into per-field messages.
func fieldErrors(err error) (map[string]string, bool) {
	verrs, ok := err.(validation.Errors)
	if !ok {
		return nil, false
	}
	fields := make(map[string]string, len(verrs))
	for name, ferr := range verrs {
		fields[name] = ferr.Error()
	}
	return fields, true
}
