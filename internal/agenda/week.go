package agenda

import (
	"time"

	"github.com/vivenda/agenda/internal/domain"
)

// PlacedEvent pairs an event with its vertical position on a day column.
type PlacedEvent struct {
	Event    domain.CalendarEvent `json:"event"`
	Position Position             `json:"position"`
}

// TimeSlot is one empty-cell click target on a day column. Clicking it
// prefills the create dialog with the slot's start time.
type TimeSlot struct {
	Start time.Time `json:"start"`
}

// DayColumn is one 24-hour column of the week or day grid.
type DayColumn struct {
	Date   time.Time     `json:"date"`
	Today  bool          `json:"today"`
	Events []PlacedEvent `json:"events"`
	Slots  []TimeSlot    `json:"slots"`

	// NowOffset is the current-time indicator position, set only on the
	// column matching today. Nil elsewhere.
	NowOffset *float64 `json:"now_offset,omitempty"`
}

// WeekGrid builds the seven columns, Monday through Sunday, of the week
// containing anchor. Column membership follows the same local-day rule as
// the month grid. granularity is the slot lattice step; week and day views
// share it rather than carrying the historical 60/30 split.
func WeekGrid(anchor time.Time, events []domain.CalendarEvent, loc *time.Location, granularity time.Duration) []DayColumn {
	return gridColumns(StartOfWeek(anchor.In(loc)), 7, events, loc, granularity, time.Now().In(loc))
}

// DayGrid builds the single column for the day containing anchor.
func DayGrid(anchor time.Time, events []domain.CalendarEvent, loc *time.Location, granularity time.Duration) []DayColumn {
	anchor = anchor.In(loc)
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)
	return gridColumns(day, 1, events, loc, granularity, time.Now().In(loc))
}

func gridColumns(start time.Time, days int, events []domain.CalendarEvent, loc *time.Location, granularity time.Duration, now time.Time) []DayColumn {
	byDay := bucketByDay(events, loc)

	cols := make([]DayColumn, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)

		var placed []PlacedEvent
		for _, ev := range byDay[dayKey(date)] {
			placed = append(placed, PlacedEvent{
				Event:    ev,
				Position: Place(ev.Start.In(loc), ev.End.In(loc)),
			})
		}

		col := DayColumn{
			Date:   date,
			Today:  domain.SameDay(date, now),
			Events: placed,
			Slots:  daySlots(date, granularity),
		}
		if col.Today {
			off := NowOffset(now)
			col.NowOffset = &off
		}
		cols = append(cols, col)
	}
	return cols
}

// daySlots returns the click targets for one day at the given step.
// A non-positive or oversized step falls back to 30 minutes.
func daySlots(day time.Time, step time.Duration) []TimeSlot {
	if step <= 0 || step > 24*time.Hour {
		step = 30 * time.Minute
	}
	var slots []TimeSlot
	for t := day; domain.SameDay(t, day); t = t.Add(step) {
		slots = append(slots, TimeSlot{Start: t})
	}
	return slots
}
