// Package caldav reads upcoming events from a CalDAV calendar such as iCloud.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"issvis/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/teambition/rrule-go"
)

// DefaultEndpoint is the iCloud CalDAV server.
const DefaultEndpoint = "https://caldav.icloud.com/"

// offsetLayout always renders a ±HH:MM offset, never "Z".
const offsetLayout = "2006-01-02T15:04:05-07:00"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "issvis/1.0")
	return t.Transport.RoundTrip(req)
}

// Client reads events from one named CalDAV calendar.
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendarPath string
	lookahead    time.Duration
	location     *time.Location
	now          func() time.Time
}

// Options describes the calendar to read.
type Options struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
	Lookahead    time.Duration  // how far ahead to search for events
	Location     *time.Location // zone for floating times, time.Local if nil
}

// NewClient connects to the server and locates the named calendar.
func NewClient(ctx context.Context, logger *slog.Logger, opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = 30 * 24 * time.Hour
	}

	httpClient := &http.Client{
		Transport: &customTransport{
			Username:  opts.Username,
			Password:  opts.Password,
			Transport: http.DefaultTransport,
		},
		Timeout: 30 * time.Second,
	}

	caldavClient, err := caldav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		logger:       logger,
		lookahead:    opts.Lookahead,
		location:     opts.Location,
		now:          time.Now,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", opts.CalendarName)
	calendarPath, err := c.findCalendar(ctx, opts.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", opts.CalendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// UpcomingEvents returns up to max events that end after now and start within
// the lookahead window, sorted by start time. Recurring events are expanded.
func (c *Client) UpcomingEvents(ctx context.Context, max int) ([]*models.Event, error) {
	from := c.now()
	to := from.Add(c.lookahead)

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	cals := make([]*ical.Calendar, 0, len(objects))
	for _, obj := range objects {
		if obj.Data != nil {
			cals = append(cals, obj.Data)
		}
	}

	events := expandEvents(c.logger, cals, from, to, c.location)
	if len(events) > max {
		events = events[:max]
	}
	c.logger.Info("Successfully fetched events from CalDAV", "count", len(events), "path", c.calendarPath)
	return events, nil
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

type occurrence struct {
	event *models.Event
	start time.Time
}

// expandEvents flattens calendar objects into single event occurrences that
// overlap (from, to]. Overridden instances of a recurring event replace the
// generated ones.
func expandEvents(logger *slog.Logger, cals []*ical.Calendar, from, to time.Time, loc *time.Location) []*models.Event {
	var out []occurrence

	for _, cal := range cals {
		overridden := make(map[string]map[int64]bool)
		for _, ev := range cal.Events() {
			if rid := ev.Props.Get(ical.PropRecurrenceID); rid != nil {
				t, err := rid.DateTime(loc)
				if err != nil {
					continue
				}
				uid, _ := ev.Props.Text(ical.PropUID)
				if overridden[uid] == nil {
					overridden[uid] = make(map[int64]bool)
				}
				overridden[uid][t.Unix()] = true
			}
		}

		for _, ev := range cal.Events() {
			occ, err := occurrences(ev, from, to, loc, overridden)
			if err != nil {
				uid, _ := ev.Props.Text(ical.PropUID)
				logger.Warn("Skipping unreadable calendar event", "uid", uid, "error", err)
				continue
			}
			out = append(out, occ...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })

	events := make([]*models.Event, 0, len(out))
	for _, o := range out {
		events = append(events, o.event)
	}
	return events
}

func occurrences(ev ical.Event, from, to time.Time, loc *time.Location, overridden map[string]map[int64]bool) ([]occurrence, error) {
	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid DTSTART: %w", err)
	}
	end, err := eventEnd(ev, start, loc)
	if err != nil {
		return nil, err
	}
	duration := end.Sub(start)

	uid, _ := ev.Props.Text(ical.PropUID)
	summary, _ := ev.Props.Text(ical.PropSummary)
	location, _ := ev.Props.Text(ical.PropLocation)
	allDay := isAllDay(ev)

	build := func(s time.Time) occurrence {
		e := s.Add(duration)
		return occurrence{
			start: s,
			event: &models.Event{
				ID:       fmt.Sprintf("%s@%d", uid, s.Unix()),
				Summary:  summary,
				Start:    formatTime(s, allDay),
				End:      formatTime(e, allDay),
				Location: location,
				Source:   "caldav",
			},
		}
	}

	starts := []time.Time{start}
	if ev.Props.Get(ical.PropRecurrenceID) == nil {
		set, err := ev.RecurrenceSet(loc)
		if err != nil {
			return nil, fmt.Errorf("invalid recurrence: %w", err)
		}
		if set != nil {
			starts = between(set, from.Add(-duration), to)
		}
	}

	var out []occurrence
	for _, s := range starts {
		if overridden[uid][s.Unix()] && ev.Props.Get(ical.PropRecurrenceID) == nil {
			continue
		}
		if !s.Add(duration).After(from) || !s.Before(to) {
			continue
		}
		out = append(out, build(s))
	}
	return out, nil
}

// eventEnd resolves DTEND or DURATION; events with neither end when they start.
func eventEnd(ev ical.Event, start time.Time, loc *time.Location) (time.Time, error) {
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid DTEND: %w", err)
	}
	if end.IsZero() || end.Before(start) {
		return start, nil
	}
	return end, nil
}

// between lists recurrence starts in [from, to].
func between(set *rrule.Set, from, to time.Time) []time.Time {
	return set.Between(from, to, true)
}

func isAllDay(ev ical.Event) bool {
	p := ev.Props.Get(ical.PropDateTimeStart)
	return p != nil && p.ValueType() == ical.ValueDate
}

// formatTime renders all-day events as a bare date, like Google Calendar does.
func formatTime(t time.Time, allDay bool) string {
	if allDay {
		return t.Format(time.DateOnly)
	}
	return t.Format(offsetLayout)
}
