// Package sunrise fetches sunrise and sunset times from sunrise-sunset.org.
package sunrise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"issvis/internal/models"

	"github.com/go-resty/resty/v2"
)

// DefaultURL is the sunrise-sunset.org JSON endpoint.
const DefaultURL = "https://api.sunrise-sunset.org/json"

// clockLayout matches the service's formatted times, e.g. "7:27:02 AM".
const clockLayout = "2006-01-02 3:04:05 PM"

// ErrFailure is returned when the service answers with a status other than "OK".
var ErrFailure = errors.New("sunrise-sunset service reported a failure")

type response struct {
	Status  string `json:"status"`
	Results struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"results"`
}

// Client looks up sun windows.
type Client struct {
	http   *resty.Client
	url    string
	logger *slog.Logger
}

// NewClient creates a sunrise-sunset client.
func NewClient(logger *slog.Logger, rc *resty.Client, url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{http: rc, url: url, logger: logger}
}

// SunWindow returns the UTC sunrise and sunset at c on date (YYYY-MM-DD).
func (c *Client) SunWindow(ctx context.Context, coords models.Coordinates, date string) (models.SunWindow, error) {
	var out response
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":  strconv.FormatFloat(coords.Latitude, 'f', -1, 64),
			"lng":  strconv.FormatFloat(coords.Longitude, 'f', -1, 64),
			"date": date,
		}).
		SetResult(&out).
		Get(c.url)
	if err != nil {
		return models.SunWindow{}, fmt.Errorf("failed to fetch sun times: %w", err)
	}
	if resp.IsError() {
		return models.SunWindow{}, fmt.Errorf("failed to fetch sun times: %s", resp.Status())
	}
	if out.Status != "OK" {
		return models.SunWindow{}, fmt.Errorf("%w: status %q", ErrFailure, out.Status)
	}

	rise, err := parseClock(date, out.Results.Sunrise)
	if err != nil {
		return models.SunWindow{}, fmt.Errorf("invalid sunrise: %w", err)
	}
	set, err := parseClock(date, out.Results.Sunset)
	if err != nil {
		return models.SunWindow{}, fmt.Errorf("invalid sunset: %w", err)
	}

	c.logger.Debug("Fetched sun window", "date", date, "sunrise", rise, "sunset", set)
	return models.SunWindow{Sunrise: rise, Sunset: set}, nil
}

// parseClock combines date with a UTC time of day.
func parseClock(date, clock string) (time.Time, error) {
	return time.ParseInLocation(clockLayout, date+" "+clock, time.UTC)
}
