// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the agenda for LLM assistant integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vivenda/agenda/internal/agenda"
	"github.com/vivenda/agenda/internal/agendaservice"
	"github.com/vivenda/agenda/internal/domain"
)

// Server wraps the MCP server with agenda tools.
type Server struct {
	mcp *server.MCPServer
	svc *agendaservice.Service
}

// New creates a new MCP server with all agenda tools registered.
func New(svc *agendaservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Vivenda Agenda",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("view_agenda",
		mcp.WithDescription("Show the agency agenda for a view and anchor date. "+
			"Returns day groups with the scheduled events."),
		mcp.WithString("anchor", mcp.Description("Anchor date YYYY-MM-DD (defaults to today)")),
		mcp.WithString("agent_id", mcp.Description("Optional agent to filter by")),
	), s.viewAgenda)

	s.mcp.AddTool(mcp.NewTool("create_event",
		mcp.WithDescription("Schedule a new agenda event. type must be VISIT, NOTE, "+
			"CAPTATION or REMINDER; visits additionally require client_id and property_id. "+
			"Read the scheduling contract first via the get_scheduling_contract tool."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Event title")),
		mcp.WithString("type", mcp.Required(), mcp.Description("VISIT, NOTE, CAPTATION or REMINDER")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date YYYY-MM-DD")),
		mcp.WithString("time", mcp.Required(), mcp.Description("Start time HH:MM")),
		mcp.WithString("description", mcp.Description("Optional free-text description")),
		mcp.WithString("client_id", mcp.Description("Linked client (required for visits)")),
		mcp.WithString("property_id", mcp.Description("Linked property (required for visits)")),
	), s.createEvent)

	s.mcp.AddTool(mcp.NewTool("get_event",
		mcp.WithDescription("Load one event with its edit state, including client/property "+
			"links backfilled from the linked visit when missing."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Event id")),
	), s.getEvent)

	s.mcp.AddTool(mcp.NewTool("list_references",
		mcp.WithDescription("List the clients and properties available for linking."),
	), s.listReferences)

	s.mcp.AddTool(mcp.NewTool("get_scheduling_contract",
		mcp.WithDescription("Returns the agenda scheduling contract. Call this before "+
			"creating events to ensure correct structure."),
	), s.getSchedulingContract)

	// Resource: scheduling contract.
	s.mcp.AddResource(
		mcp.NewResource("vivenda://scheduling-contract", "Scheduling Contract",
			mcp.WithResourceDescription("Rules every agenda event must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) viewAgenda(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.svc.Settings()

	anchor := time.Now().In(st.Location)
	if raw, err := req.RequireString("anchor"); err == nil && raw != "" {
		parsed, perr := time.ParseInLocation("2006-01-02", raw, st.Location)
		if perr != nil {
			return mcp.NewToolResultError("anchor must be YYYY-MM-DD"), nil
		}
		anchor = parsed
	}

	agentID := ""
	if v, err := req.RequireString("agent_id"); err == nil {
		agentID = v
	}

	view, err := s.svc.View(ctx, agenda.Controller{View: agenda.ViewList, Anchor: anchor}, agentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(view.Groups) == 0 {
		return mcp.NewToolResultText("no events in this period"), nil
	}
	out, _ := json.MarshalIndent(view.Groups, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	clock, err := req.RequireString("time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	eventType := domain.EventType(typ)
	if !eventType.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown event type %q", typ)), nil
	}

	clientID := ""
	if v, err := req.RequireString("client_id"); err == nil {
		clientID = v
	}
	propertyID := ""
	if v, err := req.RequireString("property_id"); err == nil {
		propertyID = v
	}
	if eventType == domain.EventVisit && (clientID == "" || propertyID == "") {
		return mcp.NewToolResultError("visits require client_id and property_id"), nil
	}
	description := ""
	if v, err := req.RequireString("description"); err == nil {
		description = v
	}

	st := s.svc.Settings()
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, st.Location)
	if err != nil {
		return mcp.NewToolResultError("date must be YYYY-MM-DD and time HH:MM"), nil
	}

	created, err := s.svc.Create(ctx, domain.CalendarEvent{
		Title:       title,
		Description: description,
		Type:        eventType,
		Start:       start,
		ClientID:    clientID,
		PropertyID:  propertyID,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s at %s", created.ID,
		created.Start.In(st.Location).Format("2006-01-02 15:04"))), nil
}

func (s *Server) getEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	form, err := s.svc.LoadEditForm(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(form, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listReferences(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clients, properties, err := s.svc.References(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"clients":    clients,
		"properties": properties,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSchedulingContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SchedulingContract), nil
}

func (s *Server) readContractResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "vivenda://scheduling-contract",
			MIMEType: "text/markdown",
			Text:     SchedulingContract,
		},
	}, nil
}
