package finder

import (
	"errors"
	"strings"
	"unicode"

	"issvis/internal/visibility"
)

// Per-event failures, in the order the pipeline checks them.
var (
	ErrNoLocation        = errors.New("no location available from this event")
	ErrNoCoordinates     = errors.New("no coordinates found for the event location")
	ErrNoSunWindow       = errors.New("unable to get sunrise and sunset times from API")
	ErrNoDarkness        = errors.New("event does not contain any darkness hours")
	ErrInvalidPassCount  = errors.New("event has already ended, no ISS passes to request")
	ErrPassesUnavailable = errors.New("unable to get ISS passes from API")
)

var eventErrors = []error{
	visibility.ErrBadTimestamp,
	ErrNoLocation,
	ErrNoCoordinates,
	ErrNoSunWindow,
	ErrNoDarkness,
	ErrInvalidPassCount,
	ErrPassesUnavailable,
}

// Describe returns the sentence shown to the user for an event failure.
// Details wrapped around a known failure are dropped.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, known := range eventErrors {
		if errors.Is(err, known) {
			msg = known.Error()
			break
		}
	}
	return sentence(msg)
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	s = string(r)
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
