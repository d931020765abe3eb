// Package report renders finder results for the console.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"issvis/internal/finder"
	"issvis/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

const rule = "-------------"

// WriteText prints one block per event: its header followed by either an
// error line or the three pass lists.
func WriteText(w io.Writer, results []*finder.Result) error {
	p := &printer{w: w}
	if len(results) == 0 {
		p.line("No upcoming events found.")
		return p.err
	}

	for _, res := range results {
		p.event(res)
	}
	return p.err
}

// printer remembers the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) event(res *finder.Result) {
	p.line(rule)
	p.line("Event Summary: %s", res.Event.Summary)
	if !res.Start.IsZero() {
		p.line("Event Start UTC: %s", formatTime(res.Start))
		p.line("Event End UTC: %s", formatTime(res.End))
	}
	if res.Sun != nil && res.Coordinates != nil {
		p.line("Sunrise UTC: %s", formatTime(res.Sun.Sunrise))
		p.line("Sunset UTC: %s", formatTime(res.Sun.Sunset))
		p.line("Event Location: %s", res.Event.Location)
		p.line("Event Latitude: %v", res.Coordinates.Latitude)
		p.line("Event Longitude: %v", res.Coordinates.Longitude)
		p.line(rule)
	}
	p.line("")

	if res.Err != nil {
		p.line("Error: %s", finder.Describe(res.Err))
		p.line("")
		return
	}

	p.passes("Visible ISS passes during your event", res.Classification.Visible)
	p.passes("Non-visible ISS passes during your event, due to sunshine", res.Classification.Sunlit)
	p.passes("Passes which occur outside the event window", res.Classification.OutOfWindow)
}

func (p *printer) passes(label string, passes []models.Pass) {
	p.line(" %s: (%d)", label, len(passes))
	for _, pass := range passes {
		p.line("     %s", formatTime(pass.Risetime))
	}
	p.line("")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

type jsonPass struct {
	Risetime string `json:"risetime"`
	Duration int64  `json:"duration_seconds"`
}

type jsonResult struct {
	Summary     string     `json:"summary"`
	Location    string     `json:"location,omitempty"`
	StartUTC    string     `json:"start_utc,omitempty"`
	EndUTC      string     `json:"end_utc,omitempty"`
	SunriseUTC  string     `json:"sunrise_utc,omitempty"`
	SunsetUTC   string     `json:"sunset_utc,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Error       string     `json:"error,omitempty"`
	Visible     []jsonPass `json:"visible"`
	Sunlit      []jsonPass `json:"sunlit"`
	OutOfWindow []jsonPass `json:"out_of_window"`
}

// WriteJSON prints results as an indented JSON array.
func WriteJSON(w io.Writer, results []*finder.Result) error {
	out := make([]jsonResult, 0, len(results))
	for _, res := range results {
		jr := jsonResult{
			Summary:     res.Event.Summary,
			Location:    res.Event.Location,
			Error:       finder.Describe(res.Err),
			Visible:     toJSONPasses(res.Classification.Visible),
			Sunlit:      toJSONPasses(res.Classification.Sunlit),
			OutOfWindow: toJSONPasses(res.Classification.OutOfWindow),
		}
		if !res.Start.IsZero() {
			jr.StartUTC = res.Start.UTC().Format(time.RFC3339)
			jr.EndUTC = res.End.UTC().Format(time.RFC3339)
		}
		if res.Sun != nil {
			jr.SunriseUTC = res.Sun.Sunrise.UTC().Format(time.RFC3339)
			jr.SunsetUTC = res.Sun.Sunset.UTC().Format(time.RFC3339)
		}
		if res.Coordinates != nil {
			jr.Latitude = &res.Coordinates.Latitude
			jr.Longitude = &res.Coordinates.Longitude
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toJSONPasses(passes []models.Pass) []jsonPass {
	out := make([]jsonPass, 0, len(passes))
	for _, p := range passes {
		out = append(out, jsonPass{
			Risetime: p.Risetime.UTC().Format(time.RFC3339),
			Duration: int64(p.Duration / time.Second),
		})
	}
	return out
}
