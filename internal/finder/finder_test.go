package finder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"issvis/internal/models"
	"issvis/internal/visibility"
)

type fakeEvents struct {
	events []*models.Event
	err    error
	gotMax int
}

func (f *fakeEvents) UpcomingEvents(ctx context.Context, max int) ([]*models.Event, error) {
	f.gotMax = max
	return f.events, f.err
}

type fakeGeocoder struct {
	coords models.Coordinates
	err    error
	calls  []string
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (models.Coordinates, error) {
	f.calls = append(f.calls, address)
	return f.coords, f.err
}

type fakeSun struct {
	sun   models.SunWindow
	err   error
	dates []string
}

func (f *fakeSun) SunWindow(ctx context.Context, coords models.Coordinates, date string) (models.SunWindow, error) {
	f.dates = append(f.dates, date)
	return f.sun, f.err
}

type fakePasses struct {
	passes []models.Pass
	err    error
	gotN   []int
}

func (f *fakePasses) Passes(ctx context.Context, coords models.Coordinates, n int) ([]models.Pass, error) {
	f.gotN = append(f.gotN, n)
	return f.passes, f.err
}

type fixture struct {
	events   *fakeEvents
	geocoder *fakeGeocoder
	sun      *fakeSun
	passes   *fakePasses
	finder   *Finder
}

var (
	// Winter evening in New York: sunset 21:39 UTC.
	nySun = models.SunWindow{
		Sunrise: time.Date(2024, 1, 1, 12, 20, 0, 0, time.UTC),
		Sunset:  time.Date(2024, 1, 1, 21, 39, 0, 0, time.UTC),
	}
	now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)

func newFixture(events ...*models.Event) *fixture {
	fx := &fixture{
		events:   &fakeEvents{events: events},
		geocoder: &fakeGeocoder{coords: models.Coordinates{Latitude: 40.71, Longitude: -74.0}},
		sun:      &fakeSun{sun: nySun},
		passes:   &fakePasses{},
	}
	fx.finder = New(slog.New(slog.NewTextHandler(io.Discard, nil)), fx.events, fx.geocoder, fx.sun, fx.passes, DefaultOptions())
	fx.finder.now = func() time.Time { return now }
	return fx
}

func eveningEvent() *models.Event {
	return &models.Event{
		ID:       "evt-1",
		Summary:  "Stargazing",
		Start:    "2024-01-01T17:00:00-05:00", // 22:00 UTC
		End:      "2024-01-01T19:00:00-05:00", // 00:00 UTC next day
		Location: "Central Park, New York",
	}
}

func TestEvaluate_ClassifiesPasses(t *testing.T) {
	fx := newFixture()
	fx.passes.passes = []models.Pass{
		{Risetime: time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC), Duration: 5 * time.Minute},  // sunlit
		{Risetime: time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC), Duration: 6 * time.Minute}, // visible
		{Risetime: time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC), Duration: 4 * time.Minute},   // out of window
	}

	res := fx.finder.Evaluate(context.Background(), eveningEvent())
	if res.Err != nil {
		t.Fatalf("Evaluate() returned an error: %v", res.Err)
	}

	if !res.Start.Equal(time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected UTC start %v", res.Start)
	}
	if len(res.Classification.Visible) != 1 || len(res.Classification.Sunlit) != 1 || len(res.Classification.OutOfWindow) != 1 {
		t.Errorf("unexpected classification %+v", res.Classification)
	}
	if res.Coordinates == nil || res.Sun == nil {
		t.Error("expected coordinates and sun window on the result")
	}
	if len(fx.sun.dates) != 1 || fx.sun.dates[0] != "2024-01-01" {
		t.Errorf("expected sun window for local date 2024-01-01, got %v", fx.sun.dates)
	}
	// 12 hours until the event ends: 720 / 92 = 7.83 orbits.
	if len(fx.passes.gotN) != 1 || fx.passes.gotN[0] != 8 {
		t.Errorf("expected a request for 8 passes, got %v", fx.passes.gotN)
	}
}

func TestEvaluate_NoLocation(t *testing.T) {
	fx := newFixture()
	ev := eveningEvent()
	ev.Location = ""

	res := fx.finder.Evaluate(context.Background(), ev)
	if !errors.Is(res.Err, ErrNoLocation) {
		t.Fatalf("Evaluate() error = %v, want ErrNoLocation", res.Err)
	}
	if len(fx.geocoder.calls) != 0 || len(fx.sun.dates) != 0 || len(fx.passes.gotN) != 0 {
		t.Error("expected no remote calls for an event without a location")
	}
	if res.Start.IsZero() {
		t.Error("expected UTC times to be set before the location check")
	}
}

func TestEvaluate_NoCoordinates(t *testing.T) {
	fx := newFixture()
	fx.geocoder.err = errors.New("status ZERO_RESULTS")

	res := fx.finder.Evaluate(context.Background(), eveningEvent())
	if !errors.Is(res.Err, ErrNoCoordinates) {
		t.Fatalf("Evaluate() error = %v, want ErrNoCoordinates", res.Err)
	}
	if len(fx.sun.dates) != 0 {
		t.Error("expected no sun lookup without coordinates")
	}
}

func TestEvaluate_NoSunWindow(t *testing.T) {
	fx := newFixture()
	fx.sun.err = errors.New("timeout")

	res := fx.finder.Evaluate(context.Background(), eveningEvent())
	if !errors.Is(res.Err, ErrNoSunWindow) {
		t.Fatalf("Evaluate() error = %v, want ErrNoSunWindow", res.Err)
	}
}

func TestEvaluate_NoDarkness(t *testing.T) {
	fx := newFixture()
	ev := eveningEvent()
	ev.Start = "2024-01-01T09:00:00-05:00" // 14:00 UTC
	ev.End = "2024-01-01T11:00:00-05:00"   // 16:00 UTC

	res := fx.finder.Evaluate(context.Background(), ev)
	if !errors.Is(res.Err, ErrNoDarkness) {
		t.Fatalf("Evaluate() error = %v, want ErrNoDarkness", res.Err)
	}
	if len(fx.passes.gotN) != 0 {
		t.Error("expected no pass request for a daylight event")
	}
	if res.Sun == nil {
		t.Error("expected the sun window to be kept on the result")
	}
}

func TestEvaluate_EventAlreadyEnded(t *testing.T) {
	fx := newFixture()
	fx.finder.now = func() time.Time { return time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC) }

	res := fx.finder.Evaluate(context.Background(), eveningEvent())
	if !errors.Is(res.Err, ErrInvalidPassCount) {
		t.Fatalf("Evaluate() error = %v, want ErrInvalidPassCount", res.Err)
	}
	if len(fx.passes.gotN) != 0 {
		t.Error("expected no pass request for an ended event")
	}
}

func TestEvaluate_CapsPassCount(t *testing.T) {
	fx := newFixture()
	fx.finder.opts.MaxPasses = 5

	res := fx.finder.Evaluate(context.Background(), eveningEvent())
	if res.Err != nil {
		t.Fatalf("Evaluate() returned an error: %v", res.Err)
	}
	if fx.passes.gotN[0] != 5 {
		t.Errorf("expected pass request capped at 5, got %d", fx.passes.gotN[0])
	}
}

func TestEvaluate_PassesUnavailable(t *testing.T) {
	fx := newFixture()
	fx.passes.err = errors.New("message: failure")

	res := fx.finder.Evaluate(context.Background(), eveningEvent())
	if !errors.Is(res.Err, ErrPassesUnavailable) {
		t.Fatalf("Evaluate() error = %v, want ErrPassesUnavailable", res.Err)
	}
	if got := Describe(res.Err); got != "Unable to get ISS passes from API." {
		t.Errorf("Describe() = %q", got)
	}
}

func TestEvaluate_BadTimestamp(t *testing.T) {
	fx := newFixture()
	ev := eveningEvent()
	ev.End = "2024-01-01" // all-day events carry a date only

	res := fx.finder.Evaluate(context.Background(), ev)
	if !errors.Is(res.Err, visibility.ErrBadTimestamp) {
		t.Fatalf("Evaluate() error = %v, want ErrBadTimestamp", res.Err)
	}
	if len(fx.geocoder.calls) != 0 {
		t.Error("expected no geocoding for an unreadable event")
	}
}

func TestRun_ContinuesAfterFailures(t *testing.T) {
	noLocation := eveningEvent()
	noLocation.Location = ""
	broken := eveningEvent()
	broken.Start = "garbage"

	fx := newFixture(noLocation, broken, eveningEvent())
	results, err := fx.finder.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned an error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !errors.Is(results[0].Err, ErrNoLocation) {
		t.Errorf("results[0].Err = %v, want ErrNoLocation", results[0].Err)
	}
	if !errors.Is(results[1].Err, visibility.ErrBadTimestamp) {
		t.Errorf("results[1].Err = %v, want ErrBadTimestamp", results[1].Err)
	}
	if results[2].Err != nil {
		t.Errorf("results[2].Err = %v, want nil", results[2].Err)
	}
	if fx.events.gotMax != 20 {
		t.Errorf("expected 20 events requested, got %d", fx.events.gotMax)
	}
}

func TestRun_EventSourceFailure(t *testing.T) {
	fx := newFixture()
	fx.events.err = errors.New("unauthorized")

	if _, err := fx.finder.Run(context.Background()); err == nil {
		t.Fatal("expected Run() to fail when events cannot be listed")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNoLocation, "No location available from this event."},
		{ErrNoDarkness, "Event does not contain any darkness hours."},
		{ErrPassesUnavailable, "Unable to get ISS passes from API."},
		{errors.Join(errors.New("x"), ErrNoCoordinates), "No coordinates found for the event location."},
		{errors.New("something else"), "Something else."},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := Describe(tt.err); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
