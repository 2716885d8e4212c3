package agendaservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vivenda/agenda/internal/agenda"
	"github.com/vivenda/agenda/internal/apperr"
	"github.com/vivenda/agenda/internal/domain"
	"github.com/vivenda/agenda/internal/testutil"
	"github.com/vivenda/agenda/internal/upstream"
)

// fakeBackend is an in-memory agency backend.
type fakeBackend struct {
	mu     sync.Mutex
	nextID int
	events map[string]domain.CalendarEvent
	visits map[string]domain.Visit

	failEvents bool
	visitErr   error

	clientCalls   int
	propertyCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		events: make(map[string]domain.CalendarEvent),
		visits: make(map[string]domain.Visit),
	}
}

func (f *fakeBackend) Events(_ context.Context, start, end time.Time, agentID string) ([]domain.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEvents {
		return nil, apperr.ErrUnavailable
	}
	var out []domain.CalendarEvent
	for _, ev := range f.events {
		if ev.Start.Before(start) || !ev.Start.Before(end) {
			continue
		}
		if agentID != "" && ev.AgentID != agentID {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeBackend) CreateEvent(_ context.Context, p upstream.EventCreate) (domain.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	start, _ := time.Parse(time.RFC3339, p.Start)
	end, _ := time.Parse(time.RFC3339, p.End)
	ev := domain.CalendarEvent{
		ID:          time.Now().Format("20060102") + "-" + string(rune('a'+f.nextID)),
		Title:       p.Title,
		Description: p.Description,
		Type:        domain.EventType(p.Type),
		Status:      domain.EventActive,
		Start:       start,
		End:         end,
		AgentID:     p.AgentID,
		ClientID:    p.ClientID,
		PropertyID:  p.PropertyID,
		VisitID:     p.VisitID,
	}
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeBackend) UpdateEvent(_ context.Context, id string, p upstream.EventUpdate) (domain.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return domain.CalendarEvent{}, &upstream.APIError{StatusCode: 404, Detail: "no such event"}
	}
	ev.Start, _ = time.Parse(time.RFC3339, p.Start)
	ev.End, _ = time.Parse(time.RFC3339, p.End)
	ev.Description = p.Description
	f.events[id] = ev
	return ev, nil
}

func (f *fakeBackend) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return &upstream.APIError{StatusCode: 404, Detail: "no such event"}
	}
	delete(f.events, id)
	return nil
}

func (f *fakeBackend) Visit(_ context.Context, id string) (domain.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visitErr != nil {
		return domain.Visit{}, f.visitErr
	}
	v, ok := f.visits[id]
	if !ok {
		return domain.Visit{}, &upstream.APIError{StatusCode: 404, Detail: "no such visit"}
	}
	return v, nil
}

func (f *fakeBackend) Clients(context.Context) ([]domain.ClientSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clientCalls++
	return []domain.ClientSummary{{ID: "c1", Name: "Ana Torres"}}, nil
}

func (f *fakeBackend) Properties(context.Context) ([]domain.PropertySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.propertyCalls++
	return []domain.PropertySummary{{ID: "p1", Address: "Calle Mayor 12"}}, nil
}

func newTestService(t *testing.T) (*Service, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	svc := New(backend, testutil.TestCache(t), testutil.TestSettings(t), nil, nil)
	return svc, backend
}

func madrid(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestCreateAppliesDefaultDuration(t *testing.T) {
	svc, _ := newTestService(t)
	loc := madrid(t)
	start := time.Date(2024, 4, 18, 10, 0, 0, 0, loc)

	created, err := svc.Create(context.Background(), domain.CalendarEvent{
		Title: "Llamar a Ana",
		Type:  domain.EventNote,
		Start: start,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := created.End.Sub(created.Start); got != time.Hour {
		t.Errorf("duration = %s, want the 1h default", got)
	}
}

func TestViewAfterCreateShowsEvent(t *testing.T) {
	svc, _ := newTestService(t)
	loc := madrid(t)
	start := time.Date(2024, 4, 18, 10, 0, 0, 0, loc)

	created, err := svc.Create(context.Background(), domain.CalendarEvent{
		Title: "Visita piso", Type: domain.EventVisit, Start: start,
		ClientID: "c1", PropertyID: "p1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ctrl := agenda.Controller{View: agenda.ViewWeek, Anchor: start}
	view, err := svc.View(context.Background(), ctrl, "")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Stale {
		t.Error("view flagged stale with a healthy backend")
	}
	if len(view.Columns) != 7 {
		t.Fatalf("columns = %d", len(view.Columns))
	}
	thursday := view.Columns[3]
	if len(thursday.Events) != 1 || thursday.Events[0].Event.ID != created.ID {
		t.Errorf("thursday events = %+v", thursday.Events)
	}
}

func TestViewServesCacheWhenBackendDown(t *testing.T) {
	svc, backend := newTestService(t)
	loc := madrid(t)
	start := time.Date(2024, 4, 18, 10, 0, 0, 0, loc)

	if _, err := svc.Create(context.Background(), domain.CalendarEvent{
		Title: "Nota", Type: domain.EventNote, Start: start,
	}); err != nil {
		t.Fatal(err)
	}

	backend.mu.Lock()
	backend.failEvents = true
	backend.mu.Unlock()

	view, err := svc.View(context.Background(), agenda.Controller{View: agenda.ViewList, Anchor: start}, "")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !view.Stale {
		t.Error("degraded view not flagged stale")
	}
	if len(view.Groups) != 1 || len(view.Groups[0].Events) != 1 {
		t.Errorf("groups = %+v", view.Groups)
	}
}

func TestUpdateRejectsStaleTag(t *testing.T) {
	svc, _ := newTestService(t)
	loc := madrid(t)
	start := time.Date(2024, 4, 18, 10, 0, 0, 0, loc)

	created, err := svc.Create(context.Background(), domain.CalendarEvent{
		Title: "Nota", Type: domain.EventNote, Start: start,
	})
	if err != nil {
		t.Fatal(err)
	}

	// First edit succeeds and changes the tag.
	if _, err := svc.Update(context.Background(), created.ID, "", start.Add(time.Hour), time.Time{}, "moved"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// An edit presenting the pre-move tag loses.
	oldTag := EventTag(created)
	_, err = svc.Update(context.Background(), created.ID, oldTag, start.Add(2*time.Hour), time.Time{}, "")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	svc, backend := newTestService(t)
	loc := madrid(t)
	start := time.Date(2024, 4, 18, 10, 0, 0, 0, loc)

	created, err := svc.Create(context.Background(), domain.CalendarEvent{
		Title: "Nota", Type: domain.EventNote, Start: start,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	backend.mu.Lock()
	_, stillThere := backend.events[created.ID]
	backend.mu.Unlock()
	if stillThere {
		t.Error("event still present upstream")
	}

	view, err := svc.View(context.Background(), agenda.Controller{View: agenda.ViewList, Anchor: start}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Groups) != 0 {
		t.Errorf("groups = %+v, want empty", view.Groups)
	}
}

func TestPrefillCreate(t *testing.T) {
	svc, _ := newTestService(t)
	loc := madrid(t)

	form := svc.PrefillCreate(time.Date(2024, 4, 18, 14, 30, 0, 0, loc))
	if form.Date != "2024-04-18" || form.Time != "14:30" {
		t.Errorf("prefill = %s %s", form.Date, form.Time)
	}
	if got := form.End.Sub(form.Start); got != time.Hour {
		t.Errorf("prefilled duration = %s", got)
	}
}

func TestLoadEditFormBackfillsVisitLinks(t *testing.T) {
	svc, backend := newTestService(t)
	loc := madrid(t)
	start := time.Date(2024, 4, 18, 10, 0, 0, 0, loc)

	backend.mu.Lock()
	backend.visits["v1"] = domain.Visit{ID: "v1", ClientID: "c1", PropertyID: "p1", Status: domain.VisitPending}
	backend.mu.Unlock()

	created, err := svc.Create(context.Background(), domain.CalendarEvent{
		Title: "Visita", Type: domain.EventVisit, Start: start, VisitID: "v1",
	})
	if err != nil {
		t.Fatal(err)
	}

	form, err := svc.LoadEditForm(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("LoadEditForm: %v", err)
	}
	if !form.Backfilled {
		t.Error("form not marked backfilled")
	}
	if form.Event.ClientID != "c1" || form.Event.PropertyID != "p1" {
		t.Errorf("backfill = client %q, property %q", form.Event.ClientID, form.Event.PropertyID)
	}
}

func TestLoadEditFormBackfillFailureIsNonFatal(t *testing.T) {
	svc, backend := newTestService(t)
	loc := madrid(t)
	start := time.Date(2024, 4, 18, 10, 0, 0, 0, loc)

	created, err := svc.Create(context.Background(), domain.CalendarEvent{
		Title: "Visita", Type: domain.EventVisit, Start: start, VisitID: "v-gone",
	})
	if err != nil {
		t.Fatal(err)
	}

	backend.mu.Lock()
	backend.visitErr = apperr.ErrUnavailable
	backend.mu.Unlock()

	form, err := svc.LoadEditForm(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("LoadEditForm: %v", err)
	}
	if form.Backfilled {
		t.Error("form claims backfill after a failed lookup")
	}
	if form.Event.ClientID != "" || form.Event.PropertyID != "" {
		t.Errorf("fields = %q, %q, want empty", form.Event.ClientID, form.Event.PropertyID)
	}
}

func TestReferencesCachedWithinTTL(t *testing.T) {
	svc, backend := newTestService(t)

	for i := 0; i < 3; i++ {
		clients, properties, err := svc.References(context.Background())
		if err != nil {
			t.Fatalf("References: %v", err)
		}
		if len(clients) != 1 || len(properties) != 1 {
			t.Fatalf("refs = %d clients, %d properties", len(clients), len(properties))
		}
	}

	backend.mu.Lock()
	calls := backend.clientCalls
	backend.mu.Unlock()
	if calls != 1 {
		t.Errorf("backend client fetches = %d, want 1 within TTL", calls)
	}
}

func TestStaleRefreshDiscarded(t *testing.T) {
	svc, _ := newTestService(t)
	loc := madrid(t)
	start := time.Date(2024, 4, 15, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 7)

	// Simulate an older request resolving after a newer one: a newer
	// generation has already been applied, so this fetch must be discarded.
	svc.refreshApplied.Store(svc.refreshGen.Load() + 10)

	err := svc.RefreshRange(context.Background(), start, end, "")
	if !errors.Is(err, apperr.ErrStale) {
		t.Errorf("err = %v, want ErrStale", err)
	}
}
