// Package upstream is the client for the agency backend, the source of
// truth for every entity the agenda displays.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vivenda/agenda/internal/apperr"
	"github.com/vivenda/agenda/internal/domain"
)

const defaultTimeout = 30 * time.Second

// APIError carries the backend's detail message for a non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Detail)
}

// Unwrap maps backend statuses onto the shared sentinels so callers can
// use errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusConflict:
		return apperr.ErrConflict
	}
	return nil
}

// Client talks to the agency backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a backend client. token may be empty; requests then carry no
// Authorization header.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upstream: marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("upstream: create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %w: %w", apperr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("upstream: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("upstream: decode response: %w", err)
		}
	}
	return nil
}

// errorDetail extracts the backend's detail field; malformed bodies fall
// back to a generic message.
func errorDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Detail == "" {
		return "unknown error"
	}
	return eb.Detail
}

// Events returns the calendar events whose start falls in [start, end).
// agentID is optional; empty means the shared agency agenda.
func (c *Client) Events(ctx context.Context, start, end time.Time, agentID string) ([]domain.CalendarEvent, error) {
	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))
	if agentID != "" {
		q.Set("agent_id", agentID)
	}

	var events []domain.CalendarEvent
	if err := c.do(ctx, http.MethodGet, "/calendar-events/?"+q.Encode(), nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CreateEvent persists a new event and returns it with its assigned id.
func (c *Client) CreateEvent(ctx context.Context, payload EventCreate) (domain.CalendarEvent, error) {
	var created domain.CalendarEvent
	if err := c.do(ctx, http.MethodPost, "/calendar-events/", payload, &created); err != nil {
		return domain.CalendarEvent{}, err
	}
	return created, nil
}

// UpdateEvent applies the editable fields and returns the updated event.
func (c *Client) UpdateEvent(ctx context.Context, id string, payload EventUpdate) (domain.CalendarEvent, error) {
	var updated domain.CalendarEvent
	if err := c.do(ctx, http.MethodPut, "/calendar-events/"+url.PathEscape(id), payload, &updated); err != nil {
		return domain.CalendarEvent{}, err
	}
	return updated, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/calendar-events/"+url.PathEscape(id), nil, nil)
}

// Visit fetches a single visit, used to backfill client and property
// links on VISIT-typed events that carry neither.
func (c *Client) Visit(ctx context.Context, id string) (domain.Visit, error) {
	var v domain.Visit
	if err := c.do(ctx, http.MethodGet, "/visits/"+url.PathEscape(id), nil, &v); err != nil {
		return domain.Visit{}, err
	}
	return v, nil
}

// Clients returns the client reference list for selection dropdowns.
func (c *Client) Clients(ctx context.Context) ([]domain.ClientSummary, error) {
	var out []domain.ClientSummary
	if err := c.do(ctx, http.MethodGet, "/clients/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Properties returns the property reference list for selection dropdowns.
func (c *Client) Properties(ctx context.Context) ([]domain.PropertySummary, error) {
	var out []domain.PropertySummary
	if err := c.do(ctx, http.MethodGet, "/properties/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
