package agenda

import (
	"time"

	"github.com/vivenda/agenda/internal/domain"
)

// DayCell is one cell of the month grid.
type DayCell struct {
	Date    time.Time              `json:"date"`
	InMonth bool                   `json:"in_month"`
	Today   bool                   `json:"today"`
	Events  []domain.CalendarEvent `json:"events"`
}

// MonthGrid builds the day cells for the month containing anchor. Weeks
// start on Monday; leading and trailing days from the adjacent months pad
// the grid to whole weeks, so the result length is always a multiple of 7
// (35 or 42 cells). Events are bucketed onto the cell whose date matches
// their start instant's calendar day in loc; within a cell they keep the
// order they were given in.
func MonthGrid(anchor time.Time, events []domain.CalendarEvent, loc *time.Location) []DayCell {
	return monthGridAt(anchor, events, loc, time.Now().In(loc))
}

// monthGridAt is MonthGrid with an injectable "today" for tests.
func monthGridAt(anchor time.Time, events []domain.CalendarEvent, loc *time.Location, now time.Time) []DayCell {
	anchor = anchor.In(loc)

	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	start := StartOfWeek(first)
	end := StartOfWeek(last).AddDate(0, 0, 7) // exclusive

	byDay := bucketByDay(events, loc)

	var cells []DayCell
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		cells = append(cells, DayCell{
			Date:    d,
			InMonth: d.Month() == first.Month(),
			Today:   domain.SameDay(d, now),
			Events:  byDay[dayKey(d)],
		})
	}
	return cells
}

// StartOfWeek returns midnight of the Monday of t's week, in t's location.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	t = t.AddDate(0, 0, -offset)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// bucketByDay groups events by their start instant's calendar day in loc,
// preserving input order within each bucket.
func bucketByDay(events []domain.CalendarEvent, loc *time.Location) map[string][]domain.CalendarEvent {
	byDay := make(map[string][]domain.CalendarEvent, len(events))
	for _, ev := range events {
		k := dayKey(ev.Start.In(loc))
		byDay[k] = append(byDay[k], ev)
	}
	return byDay
}
