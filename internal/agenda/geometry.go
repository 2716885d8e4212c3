// Package agenda computes the calendar view models: month and week/day
// grids, the chronological list view, and the view-state navigation that
// the back-office UI drives. Everything here is pure; fetching and
// mutation live in the service layer.
package agenda

import "time"

const (
	minutesPerDay = 24 * 60

	// minVisualMinutes floors the rendered height of short events so a
	// 10-minute visit stays clickable. Stored durations are untouched.
	minVisualMinutes = 30
)

// Position is a vertical placement on a 24-hour column, both values in
// percent of the column height.
type Position struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Place maps a start/end pair, already known to fall on the rendered day,
// onto the 24-hour axis. It is total over valid instants: no clipping, no
// errors. Events crossing midnight are the caller's problem; only the
// same-day portion should ever be passed in.
func Place(start, end time.Time) Position {
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	duration := endMin - startMin
	if duration < minVisualMinutes {
		duration = minVisualMinutes
	}

	return Position{
		Top:    float64(startMin) / minutesPerDay * 100,
		Height: float64(duration) / minutesPerDay * 100,
	}
}

// NowOffset returns the vertical position of the current-time indicator
// line, in percent of the column height.
func NowOffset(now time.Time) float64 {
	return float64(now.Hour()*60+now.Minute()) / minutesPerDay * 100
}
