package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vivenda/agenda/internal/agendaservice"
	"github.com/vivenda/agenda/internal/domain"
	"github.com/vivenda/agenda/internal/testutil"
	"github.com/vivenda/agenda/internal/upstream"
)

// fakeBackend implements the slice of the backend the MCP tools reach.
type fakeBackend struct {
	nextID int
	events map[string]domain.CalendarEvent
}

func (f *fakeBackend) Events(_ context.Context, start, end time.Time, _ string) ([]domain.CalendarEvent, error) {
	var out []domain.CalendarEvent
	for _, ev := range f.events {
		if !ev.Start.Before(start) && ev.Start.Before(end) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateEvent(_ context.Context, p upstream.EventCreate) (domain.CalendarEvent, error) {
	f.nextID++
	start, _ := time.Parse(time.RFC3339, p.Start)
	end, _ := time.Parse(time.RFC3339, p.End)
	ev := domain.CalendarEvent{
		ID: fmt.Sprintf("ev-%d", f.nextID), Title: p.Title,
		Type: domain.EventType(p.Type), Status: domain.EventActive,
		Start: start, End: end, ClientID: p.ClientID, PropertyID: p.PropertyID,
	}
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeBackend) UpdateEvent(_ context.Context, id string, p upstream.EventUpdate) (domain.CalendarEvent, error) {
	ev := f.events[id]
	ev.Start, _ = time.Parse(time.RFC3339, p.Start)
	ev.End, _ = time.Parse(time.RFC3339, p.End)
	f.events[id] = ev
	return ev, nil
}

func (f *fakeBackend) DeleteEvent(_ context.Context, id string) error {
	delete(f.events, id)
	return nil
}

func (f *fakeBackend) Visit(_ context.Context, id string) (domain.Visit, error) {
	return domain.Visit{ID: id}, nil
}

func (f *fakeBackend) Clients(context.Context) ([]domain.ClientSummary, error) {
	return []domain.ClientSummary{{ID: "c1", Name: "Ana Torres"}}, nil
}

func (f *fakeBackend) Properties(context.Context) ([]domain.PropertySummary, error) {
	return []domain.PropertySummary{{ID: "p1", Address: "Calle Mayor 12"}}, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()
	backend := &fakeBackend{events: make(map[string]domain.CalendarEvent)}
	svc := agendaservice.New(backend, testutil.TestCache(t), testutil.TestSettings(t), nil, nil)
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error
	switch name {
	case "view_agenda":
		result, err = srv.viewAgenda(ctx, req)
	case "create_event":
		result, err = srv.createEvent(ctx, req)
	case "get_event":
		result, err = srv.getEvent(ctx, req)
	case "list_references":
		result, err = srv.listReferences(ctx, req)
	case "get_scheduling_contract":
		result, err = srv.getSchedulingContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndViewAgenda(t *testing.T) {
	srv := testServer(t)

	res := callTool(t, srv, "create_event", map[string]any{
		"title": "Llamar a Ana",
		"type":  "NOTE",
		"date":  "2024-04-18",
		"time":  "10:30",
	})
	if res.IsError {
		t.Fatalf("create failed: %s", resultText(res))
	}
	if !strings.HasPrefix(resultText(res), "created: ") {
		t.Errorf("result = %q", resultText(res))
	}

	res = callTool(t, srv, "view_agenda", map[string]any{"anchor": "2024-04-18"})
	if res.IsError {
		t.Fatalf("view failed: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "Llamar a Ana") {
		t.Errorf("agenda missing created event: %s", resultText(res))
	}
}

func TestViewAgendaEmpty(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "view_agenda", map[string]any{"anchor": "2030-01-07"})
	if got := resultText(res); got != "no events in this period" {
		t.Errorf("result = %q", got)
	}
}

func TestCreateVisitRequiresLinks(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "create_event", map[string]any{
		"title": "Visita",
		"type":  "VISIT",
		"date":  "2024-04-18",
		"time":  "10:30",
	})
	if !res.IsError {
		t.Fatal("visit without links was accepted")
	}
	if !strings.Contains(resultText(res), "client_id") {
		t.Errorf("error = %q", resultText(res))
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "create_event", map[string]any{
		"title": "x", "type": "PARTY", "date": "2024-04-18", "time": "10:30",
	})
	if !res.IsError {
		t.Fatal("unknown type accepted")
	}
}

func TestListReferences(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "list_references", nil)
	text := resultText(res)
	if !strings.Contains(text, "Ana Torres") || !strings.Contains(text, "Calle Mayor 12") {
		t.Errorf("references = %s", text)
	}
}

func TestSchedulingContract(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "get_scheduling_contract", nil)
	if !strings.Contains(resultText(res), "Scheduling Contract") {
		t.Errorf("contract = %q", resultText(res))
	}
}
