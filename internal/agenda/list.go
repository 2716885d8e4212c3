package agenda

import (
	"sort"
	"time"

	"github.com/vivenda/agenda/internal/domain"
)

// DayGroup is one day's worth of events in the agenda list view.
type DayGroup struct {
	Date   time.Time              `json:"date"`
	Today  bool                   `json:"today"`
	Events []domain.CalendarEvent `json:"events"`
}

// ListView groups events chronologically by calendar day in loc. Days with
// no events are omitted; an empty result means "no events in this period"
// and renders as the explicit empty state. Within a day, events are
// ordered by start time.
func ListView(events []domain.CalendarEvent, loc *time.Location) []DayGroup {
	return listViewAt(events, loc, time.Now().In(loc))
}

func listViewAt(events []domain.CalendarEvent, loc *time.Location, now time.Time) []DayGroup {
	byDay := bucketByDay(events, loc)

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]DayGroup, 0, len(keys))
	for _, k := range keys {
		date, _ := time.ParseInLocation("2006-01-02", k, loc)
		evs := byDay[k]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].Start.Before(evs[j].Start) })
		groups = append(groups, DayGroup{
			Date:   date,
			Today:  domain.SameDay(date, now),
			Events: evs,
		})
	}
	return groups
}
