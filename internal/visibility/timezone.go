package visibility

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadTimestamp is returned when an event time cannot be normalized to UTC.
var ErrBadTimestamp = errors.New("unable to read the event start or end time")

const localLayout = "2006-01-02T15:04:05"

// ParseEventTime converts a local timestamp with a trailing ±HH:MM offset,
// such as "2024-01-01T10:00:00-05:00", to UTC. A trailing "Z" is read as +00:00.
func ParseEventTime(s string) (time.Time, error) {
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	if len(s) < 6 {
		return time.Time{}, fmt.Errorf("%w: %q has no UTC offset", ErrBadTimestamp, s)
	}

	local, suffix := s[:len(s)-6], s[len(s)-6:]
	offset, err := parseOffset(suffix)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrBadTimestamp, s, err)
	}

	t, err := time.Parse(localLayout, local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrBadTimestamp, s, err)
	}

	// A negative offset means local time is behind UTC.
	return t.Add(-offset), nil
}

// LocalDate returns the YYYY-MM-DD part of an event timestamp.
func LocalDate(s string) (string, error) {
	if len(s) < len("2006-01-02") {
		return "", fmt.Errorf("%w: %q has no date", ErrBadTimestamp, s)
	}
	d := s[:len("2006-01-02")]
	if _, err := time.Parse(time.DateOnly, d); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrBadTimestamp, s, err)
	}
	return d, nil
}

// parseOffset reads a signed ±HH:MM offset.
func parseOffset(s string) (time.Duration, error) {
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return 0, fmt.Errorf("offset %q is not in ±HH:MM form", s)
	}
	hours, err := parseDigits(s[1:3])
	if err != nil {
		return 0, fmt.Errorf("offset %q: %w", s, err)
	}
	minutes, err := parseDigits(s[4:6])
	if err != nil {
		return 0, fmt.Errorf("offset %q: %w", s, err)
	}
	if minutes >= 60 {
		return 0, fmt.Errorf("offset %q: minutes out of range", s)
	}

	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if s[0] == '-' {
		d = -d
	}
	return d, nil
}

func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q is not a number", s)
		}
	}
	return strconv.Atoi(s)
}
