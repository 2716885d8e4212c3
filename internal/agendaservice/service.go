// Package agendaservice coordinates the upstream backend, the local event
// cache, and the grid builders behind the agenda API.
package agendaservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vivenda/agenda/internal/agenda"
	"github.com/vivenda/agenda/internal/apperr"
	"github.com/vivenda/agenda/internal/cache"
	"github.com/vivenda/agenda/internal/checksum"
	"github.com/vivenda/agenda/internal/domain"
	"github.com/vivenda/agenda/internal/settings"
	"github.com/vivenda/agenda/internal/upstream"
)

// Backend is the slice of the upstream client the service needs.
type Backend interface {
	Events(ctx context.Context, start, end time.Time, agentID string) ([]domain.CalendarEvent, error)
	CreateEvent(ctx context.Context, payload upstream.EventCreate) (domain.CalendarEvent, error)
	UpdateEvent(ctx context.Context, id string, payload upstream.EventUpdate) (domain.CalendarEvent, error)
	DeleteEvent(ctx context.Context, id string) error
	Visit(ctx context.Context, id string) (domain.Visit, error)
	Clients(ctx context.Context) ([]domain.ClientSummary, error)
	Properties(ctx context.Context) ([]domain.PropertySummary, error)
}

// Publisher receives change notifications after successful mutations.
type Publisher interface {
	PublishEventChange(kind, id string)
}

// nopPublisher is used when no broker is wired (tests, MCP mode).
type nopPublisher struct{}

func (nopPublisher) PublishEventChange(string, string) {}

const refTTL = 5 * time.Minute

// Service is the agenda application service.
type Service struct {
	backend  Backend
	cache    cache.EventCache
	settings *settings.Store
	pub      Publisher
	logger   *slog.Logger

	// refreshGen orders range refreshes so a slow refetch can never
	// clobber the result of a newer one.
	refreshGen     atomic.Uint64
	refreshApplied atomic.Uint64

	// Reference lists for the dialog dropdowns, cached in-process.
	refMu       sync.Mutex
	refLoadedAt time.Time
	clients     []domain.ClientSummary
	properties  []domain.PropertySummary
}

// New creates the service. pub may be nil.
func New(backend Backend, c cache.EventCache, st *settings.Store, pub Publisher, logger *slog.Logger) *Service {
	if pub == nil {
		pub = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, cache: c, settings: st, pub: pub, logger: logger}
}

// Settings exposes the current display settings snapshot.
func (s *Service) Settings() settings.Settings {
	return s.settings.Current()
}

// AgendaView is the computed model for one agenda request.
type AgendaView struct {
	View       agenda.View        `json:"view"`
	Anchor     time.Time          `json:"anchor"`
	RangeStart time.Time          `json:"range_start"`
	RangeEnd   time.Time          `json:"range_end"`
	Stale      bool               `json:"stale,omitempty"`
	Month      []agenda.DayCell   `json:"month,omitempty"`
	Columns    []agenda.DayColumn `json:"columns,omitempty"`
	Groups     []agenda.DayGroup  `json:"groups,omitempty"`
}

// View refreshes the visible range and builds the model for the active
// view. When the backend is unreachable the cached copy is served and the
// result is flagged stale.
func (s *Service) View(ctx context.Context, ctrl agenda.Controller, agentID string) (AgendaView, error) {
	st := s.settings.Current()
	start, end := ctrl.VisibleRange()

	events, stale, err := s.rangeEvents(ctx, start, end, agentID)
	if err != nil {
		return AgendaView{}, err
	}

	out := AgendaView{
		View:       ctrl.View,
		Anchor:     ctrl.Anchor,
		RangeStart: start,
		RangeEnd:   end,
		Stale:      stale,
	}
	switch ctrl.View {
	case agenda.ViewMonth:
		out.Month = agenda.MonthGrid(ctrl.Anchor, events, st.Location)
	case agenda.ViewWeek:
		out.Columns = agenda.WeekGrid(ctrl.Anchor, events, st.Location, st.SlotGranularity)
	case agenda.ViewDay:
		out.Columns = agenda.DayGrid(ctrl.Anchor, events, st.Location, st.SlotGranularity)
	case agenda.ViewList:
		out.Groups = agenda.ListView(events, st.Location)
	}
	return out, nil
}

// rangeEvents refetches [start, end) from the backend and reconciles the
// cache. Upstream failure degrades to the cached copy; a refetch that lost
// the generation race is discarded and the cache read instead.
func (s *Service) rangeEvents(ctx context.Context, start, end time.Time, agentID string) ([]domain.CalendarEvent, bool, error) {
	if err := s.RefreshRange(ctx, start, end, agentID); err != nil {
		if errors.Is(err, apperr.ErrStale) {
			events, cerr := s.cache.ListRange(start, end, agentID)
			return events, false, cerr
		}
		s.logger.Warn("range refresh failed, serving cached events",
			slog.String("error", err.Error()))
		events, cerr := s.cache.ListRange(start, end, agentID)
		if cerr != nil {
			return nil, false, err
		}
		return events, true, nil
	}
	events, err := s.cache.ListRange(start, end, agentID)
	return events, false, err
}

// RefreshRange fetches [start, end) from the backend and replaces the
// cached copy, unless a newer refresh finished first.
func (s *Service) RefreshRange(ctx context.Context, start, end time.Time, agentID string) error {
	gen := s.refreshGen.Add(1)

	events, err := s.backend.Events(ctx, start, end, agentID)
	if err != nil {
		return err
	}

	// Discard responses that resolved out of order.
	for {
		applied := s.refreshApplied.Load()
		if gen <= applied {
			s.logger.Debug("discarding stale range refresh",
				slog.Uint64("generation", gen),
				slog.Uint64("applied", applied))
			return apperr.ErrStale
		}
		if s.refreshApplied.CompareAndSwap(applied, gen) {
			break
		}
	}

	return s.cache.ReplaceRange(start, end, agentID, events)
}

// Create persists a new event upstream, patches the cache optimistically,
// reconciles the surrounding week, and notifies subscribers. The end
// instant is derived from the configured default duration; the dialogs do
// not collect one.
func (s *Service) Create(ctx context.Context, draft domain.CalendarEvent) (domain.CalendarEvent, error) {
	st := s.settings.Current()
	if draft.End.IsZero() {
		draft.End = draft.Start.Add(st.DefaultDuration)
	}
	if draft.End.Before(draft.Start) {
		return domain.CalendarEvent{}, fmt.Errorf("event ends before it starts")
	}
	if draft.Status == "" {
		draft.Status = domain.EventActive
	}

	created, err := s.backend.CreateEvent(ctx, upstream.NewEventCreate(draft))
	if err != nil {
		return domain.CalendarEvent{}, err
	}

	s.patchAndReconcile(ctx, created, created.AgentID)
	s.pub.PublishEventChange("created", created.ID)
	return created, nil
}

// Update applies the editable fields (schedule and description; title and
// type are immutable after creation). A non-empty ifMatch tag must match
// the cached copy, otherwise another agent got there first.
func (s *Service) Update(ctx context.Context, id, ifMatch string, start, end time.Time, description string) (domain.CalendarEvent, error) {
	if ifMatch != "" {
		current, err := s.cache.Get(id)
		if err == nil && EventTag(current) != ifMatch {
			return domain.CalendarEvent{}, apperr.ErrConflict
		}
	}

	st := s.settings.Current()
	if end.IsZero() {
		end = start.Add(st.DefaultDuration)
	}
	if end.Before(start) {
		return domain.CalendarEvent{}, fmt.Errorf("event ends before it starts")
	}

	updated, err := s.backend.UpdateEvent(ctx, id, upstream.NewEventUpdate(start, end, description))
	if err != nil {
		return domain.CalendarEvent{}, err
	}

	s.patchAndReconcile(ctx, updated, updated.AgentID)
	s.pub.PublishEventChange("updated", updated.ID)
	return updated, nil
}

// Delete removes the event upstream and from the cache.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteEvent(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(id); err != nil {
		s.logger.Warn("cache delete failed", slog.String("event_id", id), slog.String("error", err.Error()))
	}
	s.pub.PublishEventChange("deleted", id)
	return nil
}

// patchAndReconcile applies the optimistic patch, then re-derives the
// surrounding week from the backend so the cache converges on server
// truth even if the patch raced another writer.
func (s *Service) patchAndReconcile(ctx context.Context, ev domain.CalendarEvent, agentID string) {
	if err := s.cache.Upsert(ev); err != nil {
		s.logger.Warn("cache patch failed", slog.String("event_id", ev.ID), slog.String("error", err.Error()))
	}

	st := s.settings.Current()
	weekStart := agenda.StartOfWeek(ev.Start.In(st.Location))
	if err := s.RefreshRange(ctx, weekStart, weekStart.AddDate(0, 0, 7), agentID); err != nil && !errors.Is(err, apperr.ErrStale) {
		s.logger.Warn("post-mutation reconcile failed",
			slog.String("event_id", ev.ID), slog.String("error", err.Error()))
	}
}

// References returns the client and property lists for the dialog
// dropdowns, re-fetching at most once per TTL.
func (s *Service) References(ctx context.Context) ([]domain.ClientSummary, []domain.PropertySummary, error) {
	s.refMu.Lock()
	defer s.refMu.Unlock()

	if time.Since(s.refLoadedAt) < refTTL && s.clients != nil {
		return s.clients, s.properties, nil
	}

	clients, err := s.backend.Clients(ctx)
	if err != nil {
		return nil, nil, err
	}
	properties, err := s.backend.Properties(ctx)
	if err != nil {
		return nil, nil, err
	}

	s.clients, s.properties, s.refLoadedAt = clients, properties, time.Now()
	return clients, properties, nil
}

// EventTag computes the optimistic-concurrency tag for an event. Instants
// are normalized to UTC so the tag is stable across zone representations.
func EventTag(ev domain.CalendarEvent) string {
	ev.Start = ev.Start.UTC()
	ev.End = ev.End.UTC()
	data, _ := json.Marshal(ev)
	return checksum.Sum(data)
}
