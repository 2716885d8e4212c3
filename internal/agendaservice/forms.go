package agendaservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/vivenda/agenda/internal/domain"
)

// CreateForm is the prefilled state handed to the create dialog after a
// time-slot click.
type CreateForm struct {
	Date  string    `json:"date"` // YYYY-MM-DD in the agency timezone
	Time  string    `json:"time"` // HH:MM
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PrefillCreate maps a clicked slot onto the create-dialog prefill: the
// slot's date and start time, with the end derived from the default
// duration.
func (s *Service) PrefillCreate(slotStart time.Time) CreateForm {
	st := s.settings.Current()
	start := slotStart.In(st.Location)
	return CreateForm{
		Date:  start.Format("2006-01-02"),
		Time:  start.Format("15:04"),
		Start: start,
		End:   start.Add(st.DefaultDuration),
	}
}

// EditForm is the loaded state of the edit dialog. Title and type are
// shown read-only; only schedule and description are editable.
type EditForm struct {
	Event domain.CalendarEvent `json:"event"`
	ETag  string               `json:"etag"`

	// Backfilled is set when the client/property links were recovered
	// from the linked visit rather than the event record itself.
	Backfilled bool `json:"backfilled,omitempty"`
}

// LoadEditForm loads an event into the edit dialog. VISIT-typed events
// that carry neither client nor property link get those backfilled from
// the linked visit, best effort: a failed lookup leaves the fields empty
// and the dialog still opens.
func (s *Service) LoadEditForm(ctx context.Context, id string) (EditForm, error) {
	ev, err := s.cache.Get(id)
	if err != nil {
		return EditForm{}, err
	}

	form := EditForm{Event: ev}
	if ev.Type == domain.EventVisit && ev.VisitID != "" && (ev.ClientID == "" || ev.PropertyID == "") {
		visit, err := s.backend.Visit(ctx, ev.VisitID)
		if err != nil {
			s.logger.Warn("visit backfill failed",
				slog.String("event_id", ev.ID),
				slog.String("visit_id", ev.VisitID),
				slog.String("error", err.Error()))
		} else {
			if form.Event.ClientID == "" {
				form.Event.ClientID = visit.ClientID
			}
			if form.Event.PropertyID == "" {
				form.Event.PropertyID = visit.PropertyID
			}
			form.Backfilled = form.Event.ClientID != ev.ClientID || form.Event.PropertyID != ev.PropertyID
		}
	}

	// The tag covers the stored record, not the backfilled projection.
	form.ETag = EventTag(ev)
	return form, nil
}
