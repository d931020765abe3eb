// Package visibility decides which ISS passes can be seen during an event.
package visibility

import (
	"math"
	"time"

	"issvis/internal/models"
)

// OrbitPeriod is the approximate time the ISS takes for one orbit.
const OrbitPeriod = 92 * time.Minute

// Bucket is the classification of a single pass.
type Bucket int

const (
	Visible     Bucket = iota // in darkness and during the event
	Sunlit                    // not in darkness
	OutOfWindow               // in darkness but outside the event
)

func (b Bucket) String() string {
	switch b {
	case Visible:
		return "visible"
	case Sunlit:
		return "sunlit"
	case OutOfWindow:
		return "out-of-window"
	default:
		return "unknown"
	}
}

// InDarkness reports whether the interval [start, end] overlaps darkness for sun.
//
// The interval counts as dark when it starts before sunrise or after sunset, or
// ends after sunset. An interval that both starts and ends before sunrise is
// therefore dark too; an interval ending before sunrise is not checked on its own.
func InDarkness(start, end time.Time, sun models.SunWindow) bool {
	return start.Before(sun.Sunrise) || start.After(sun.Sunset) || end.After(sun.Sunset)
}

// DuringEvent reports whether p overlaps the event [start, end]. A pass rising
// exactly at start is not counted.
func DuringEvent(p models.Pass, start, end time.Time) bool {
	rise := p.Risetime
	return (rise.Before(start) && p.Settime().After(start)) ||
		(rise.After(start) && rise.Before(end))
}

// ClassifyPass puts p into exactly one bucket.
func ClassifyPass(p models.Pass, start, end time.Time, sun models.SunWindow) Bucket {
	if !InDarkness(p.Risetime, p.Settime(), sun) {
		return Sunlit
	}
	if DuringEvent(p, start, end) {
		return Visible
	}
	return OutOfWindow
}

// Classification is the partition of a pass list into the three buckets.
// Each bucket keeps the order of the input list.
type Classification struct {
	Visible     []models.Pass
	Sunlit      []models.Pass
	OutOfWindow []models.Pass
}

// Total is the number of classified passes.
func (c Classification) Total() int {
	return len(c.Visible) + len(c.Sunlit) + len(c.OutOfWindow)
}

// Classify sorts every pass into its bucket for an event [start, end].
func Classify(passes []models.Pass, start, end time.Time, sun models.SunWindow) Classification {
	var c Classification
	for _, p := range passes {
		switch ClassifyPass(p, start, end, sun) {
		case Visible:
			c.Visible = append(c.Visible, p)
		case Sunlit:
			c.Sunlit = append(c.Sunlit, p)
		default:
			c.OutOfWindow = append(c.OutOfWindow, p)
		}
	}
	return c
}

// PassCount estimates how many orbits fit between now and the event end,
// rounding half to even. The result is zero or negative for events that have
// already ended.
func PassCount(now, end time.Time) int {
	orbits := end.Sub(now).Seconds() / OrbitPeriod.Seconds()
	return int(math.RoundToEven(orbits))
}
