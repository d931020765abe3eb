package finder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"issvis/internal/models"
	"issvis/internal/visibility"
)

// EventSource lists upcoming calendar events in start order.
type EventSource interface {
	UpcomingEvents(ctx context.Context, max int) ([]*models.Event, error)
}

// Geocoder resolves an event location to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Coordinates, error)
}

// SunSource returns the sun window for a location and YYYY-MM-DD date.
type SunSource interface {
	SunWindow(ctx context.Context, coords models.Coordinates, date string) (models.SunWindow, error)
}

// PassPredictor returns the next n ISS passes over a location.
type PassPredictor interface {
	Passes(ctx context.Context, coords models.Coordinates, n int) ([]models.Pass, error)
}

// Options tunes a Finder.
type Options struct {
	MaxEvents int // upcoming events to evaluate
	MaxPasses int // cap on passes requested per event
}

// DefaultOptions matches the limits of the upstream services.
func DefaultOptions() Options {
	return Options{MaxEvents: 20, MaxPasses: 100}
}

// Result is the outcome for a single event. Err is set when the event was
// skipped; fields filled before the failure are kept.
type Result struct {
	Event          *models.Event
	Start          time.Time
	End            time.Time
	Coordinates    *models.Coordinates
	Sun            *models.SunWindow
	Classification visibility.Classification
	Err            error
}

// Finder evaluates upcoming events one at a time against ISS passes.
type Finder struct {
	logger   *slog.Logger
	events   EventSource
	geocoder Geocoder
	sun      SunSource
	passes   PassPredictor
	opts     Options
	now      func() time.Time
}

// New creates a new Finder.
func New(logger *slog.Logger, events EventSource, geocoder Geocoder, sun SunSource, passes PassPredictor, opts Options) *Finder {
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = DefaultOptions().MaxEvents
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultOptions().MaxPasses
	}
	return &Finder{
		logger:   logger,
		events:   events,
		geocoder: geocoder,
		sun:      sun,
		passes:   passes,
		opts:     opts,
		now:      time.Now,
	}
}

// Run fetches the upcoming events and evaluates each of them in order.
// Only a failure to list events is returned as an error.
func (f *Finder) Run(ctx context.Context) ([]*Result, error) {
	f.logger.Info("Fetching upcoming events.", "max", f.opts.MaxEvents)

	events, err := f.events.UpcomingEvents(ctx, f.opts.MaxEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch upcoming events: %w", err)
	}
	f.logger.Info("Fetched upcoming events.", "count", len(events))

	results := make([]*Result, 0, len(events))
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := f.Evaluate(ctx, event)
		if res.Err != nil {
			// Continue with the next event even if one fails.
			f.logger.Warn("Skipping event", "summary", event.Summary, "error", res.Err)
		} else {
			f.logger.Info("Evaluated event", "summary", event.Summary,
				"visible", len(res.Classification.Visible),
				"sunlit", len(res.Classification.Sunlit),
				"outOfWindow", len(res.Classification.OutOfWindow))
		}
		results = append(results, res)
	}
	return results, nil
}

// Evaluate runs the full pipeline for one event. The first failing step
// decides the Result's error.
func (f *Finder) Evaluate(ctx context.Context, event *models.Event) *Result {
	res := &Result{Event: event}

	start, err := visibility.ParseEventTime(event.Start)
	if err != nil {
		res.Err = err
		return res
	}
	end, err := visibility.ParseEventTime(event.End)
	if err != nil {
		res.Err = err
		return res
	}
	date, err := visibility.LocalDate(event.Start)
	if err != nil {
		res.Err = err
		return res
	}
	res.Start, res.End = start, end

	if event.Location == "" {
		res.Err = ErrNoLocation
		return res
	}

	coords, err := f.geocoder.Geocode(ctx, event.Location)
	if err != nil {
		f.logger.Debug("Geocoding failed", "location", event.Location, "error", err)
		res.Err = fmt.Errorf("%w: %v", ErrNoCoordinates, err)
		return res
	}
	res.Coordinates = &coords

	sun, err := f.sun.SunWindow(ctx, coords, date)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrNoSunWindow, err)
		return res
	}
	res.Sun = &sun

	if !visibility.InDarkness(start, end, sun) {
		res.Err = ErrNoDarkness
		return res
	}

	n := visibility.PassCount(f.now().UTC(), end)
	if n <= 0 {
		res.Err = fmt.Errorf("%w: %d", ErrInvalidPassCount, n)
		return res
	}
	if n > f.opts.MaxPasses {
		f.logger.Debug("Capping requested passes", "estimated", n, "max", f.opts.MaxPasses)
		n = f.opts.MaxPasses
	}

	passes, err := f.passes.Passes(ctx, coords, n)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrPassesUnavailable, err)
		return res
	}

	res.Classification = visibility.Classify(passes, start, end, sun)
	return res
}
