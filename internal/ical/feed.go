// Package ical exports the agenda as an iCalendar feed so agents can
// subscribe from their phone calendars.
package ical

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/vivenda/agenda/internal/agenda"
	"github.com/vivenda/agenda/internal/agendaservice"
	"github.com/vivenda/agenda/internal/domain"
)

// Feed serves GET /agenda/feed.ics.
type Feed struct {
	svc *agendaservice.Service
}

// NewFeed creates the feed handler.
func NewFeed(svc *agendaservice.Service) *Feed {
	return &Feed{svc: svc}
}

// ServeHTTP renders the month around the anchor query parameter (default
// today) as an iCalendar document. Cancelled events are skipped.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := f.svc.Settings()

	anchor := time.Now().In(st.Location)
	if raw := r.URL.Query().Get("anchor"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, st.Location)
		if err != nil {
			http.Error(w, "anchor must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		anchor = parsed
	}

	ctrl := agenda.Controller{View: agenda.ViewMonth, Anchor: anchor}
	view, err := f.svc.View(r.Context(), ctrl, r.URL.Query().Get("agent_id"))
	if err != nil {
		slog.Error("ical feed failed", slog.String("error", err.Error()))
		http.Error(w, "feed unavailable", http.StatusBadGateway)
		return
	}

	var events []domain.CalendarEvent
	for _, cell := range view.Month {
		events = append(events, cell.Events...)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write([]byte(Render(r.Context(), events)))
}

// Render serializes events into an iCalendar document.
func Render(_ context.Context, events []domain.CalendarEvent) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)

	now := time.Now().UTC()
	for _, ev := range events {
		if ev.Status == domain.EventCancelled {
			continue
		}
		ve := cal.AddEvent(ev.ID + "@agenda.vivenda")
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(summaryFor(ev))
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
	}
	return cal.Serialize()
}

// summaryFor prefixes the title with the event kind the way the agenda
// color-codes it.
func summaryFor(ev domain.CalendarEvent) string {
	switch ev.Type {
	case domain.EventVisit:
		return "[Visita] " + ev.Title
	case domain.EventCaptation:
		return "[Captación] " + ev.Title
	case domain.EventReminder:
		return "[Recordatorio] " + ev.Title
	default:
		return ev.Title
	}
}
