// Package domain holds the agenda entities shared by every layer.
// The upstream backend owns all of them; nothing here persists locally
// beyond the disposable event cache.
package domain

import "time"

// EventType classifies a calendar event. The set is closed: validation
// rules and presentation (color, icon) switch on it.
type EventType string

const (
	EventVisit     EventType = "VISIT"
	EventNote      EventType = "NOTE"
	EventCaptation EventType = "CAPTATION"
	EventReminder  EventType = "REMINDER"
)

// EventTypes lists every valid event type, in display order.
var EventTypes = []EventType{EventVisit, EventNote, EventCaptation, EventReminder}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventVisit, EventNote, EventCaptation, EventReminder:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of a calendar event.
type EventStatus string

const (
	EventActive    EventStatus = "ACTIVE"
	EventCancelled EventStatus = "CANCELLED"
	EventCompleted EventStatus = "COMPLETED"
)

// CalendarEvent is the central agenda entity. Client, property, operation
// and visit references are ids only; the backend does not embed cascades.
type CalendarEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        EventType   `json:"type"`
	Status      EventStatus `json:"status"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	AgentID     string      `json:"agent_id,omitempty"`
	ClientID    string      `json:"client_id,omitempty"`
	PropertyID  string      `json:"property_id,omitempty"`
	OperationID string      `json:"operation_id,omitempty"`
	VisitID     string      `json:"visit_id,omitempty"`
}

// Duration returns the stored duration. Display layers apply their own
// minimum; this never floors.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// OnDay reports whether the event starts on the given calendar day in loc.
// Day membership is always judged by the start instant's wall-clock date
// in the agency timezone, never by instant equality.
func (e CalendarEvent) OnDay(day time.Time, loc *time.Location) bool {
	return SameDay(e.Start.In(loc), day.In(loc))
}

// SameDay reports whether a and b fall on the same calendar day.
// Both must already be in the zone the comparison should happen in.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
