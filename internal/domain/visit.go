package domain

import "time"

// VisitStatus is the lifecycle state of a property visit, distinct from
// the status of any calendar event linked to it.
type VisitStatus string

const (
	VisitPending   VisitStatus = "PENDING"
	VisitDone      VisitStatus = "DONE"
	VisitCancelled VisitStatus = "CANCELLED"
)

// Visit is a scheduled in-person property viewing. Unlike CalendarEvent it
// embeds lightweight summaries of the parties involved, because the
// back-office visit screens display them without extra lookups.
type Visit struct {
	ID         string           `json:"id"`
	Status     VisitStatus      `json:"status"`
	Date       time.Time        `json:"date"`
	ClientID   string           `json:"client_id,omitempty"`
	PropertyID string           `json:"property_id,omitempty"`
	AgentID    string           `json:"agent_id,omitempty"`
	Client     *ClientSummary   `json:"client,omitempty"`
	Property   *PropertySummary `json:"property,omitempty"`
	Agent      *AgentSummary    `json:"agent,omitempty"`
	Notes      []VisitNote      `json:"notes,omitempty"`
}

// VisitNote is a free-text annotation on a visit.
type VisitNote struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
