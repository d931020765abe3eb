package models

import "time"

// Event represents an upcoming calendar event.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID       string // Unique identifier for the event (e.g., from the source calendar)
	Summary  string // Summary or title of the event
	Start    string // Local start time with a trailing UTC offset, e.g. 2024-01-01T10:00:00-05:00
	End      string // Local end time with a trailing UTC offset
	Location string // Free-form address of the event, empty if none
	Source   string // The source of the event (e.g., "google-primary")
}

// Coordinates is a geocoded position in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// SunWindow holds the UTC sunrise and sunset for one location and date.
type SunWindow struct {
	Sunrise time.Time
	Sunset  time.Time
}

// Pass is a predicted ISS overflight.
type Pass struct {
	Risetime time.Time
	Duration time.Duration
}

// Settime is when the station drops below the horizon again.
func (p Pass) Settime() time.Time {
	return p.Risetime.Add(p.Duration)
}
