package agenda

import (
	"fmt"
	"time"
)

// View is the active agenda visualization.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
	ViewList  View = "list"
)

// ParseView validates a view name from the outside world.
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewMonth, ViewWeek, ViewDay, ViewList:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Controller is the agenda view state: which visualization is active and
// which date it is anchored on. It is a value type; navigation returns the
// updated state so callers can round-trip it through query parameters.
type Controller struct {
	View   View
	Anchor time.Time
}

// SetView switches the visualization, preserving the anchor date.
func (c Controller) SetView(v View) Controller {
	c.View = v
	return c
}

// Next advances the anchor by the active view's unit: a month, a week, or
// a day. The list view pages by week alongside the sidebar it shares a
// range with.
func (c Controller) Next() Controller { return c.step(1) }

// Prev moves the anchor back by the active view's unit.
func (c Controller) Prev() Controller { return c.step(-1) }

// Today re-anchors on the current day, keeping the view.
func (c Controller) Today(now time.Time) Controller {
	c.Anchor = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return c
}

func (c Controller) step(n int) Controller {
	switch c.View {
	case ViewMonth:
		c.Anchor = c.Anchor.AddDate(0, n, 0)
	case ViewWeek, ViewList:
		c.Anchor = c.Anchor.AddDate(0, 0, 7*n)
	case ViewDay:
		c.Anchor = c.Anchor.AddDate(0, 0, n)
	}
	return c
}

// VisibleRange is the [Start, End) window of events the active view needs.
// The month view includes the padding days from the adjacent months, so
// fetching the range is enough to fill every cell.
func (c Controller) VisibleRange() (time.Time, time.Time) {
	anchor := c.Anchor
	loc := anchor.Location()
	switch c.View {
	case ViewMonth:
		first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, loc)
		last := first.AddDate(0, 1, -1)
		return StartOfWeek(first), StartOfWeek(last).AddDate(0, 0, 7)
	case ViewDay:
		day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)
		return day, day.AddDate(0, 0, 1)
	default: // week and list share the week window
		start := StartOfWeek(anchor)
		return start, start.AddDate(0, 0, 7)
	}
}
