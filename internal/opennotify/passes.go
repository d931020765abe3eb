// Package opennotify requests ISS pass predictions from the Open Notify API.
package opennotify

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

// DefaultURL is the Open Notify pass prediction endpoint.
const DefaultURL = "http://api.open-notify.org/iss-pass.json"

var (
	// ErrFailure is returned when the service answers with a message other than "success".
	ErrFailure = errors.New("ISS pass service reported a failure")
	// ErrInvalidCount is returned for a non-positive pass count.
	ErrInvalidCount = errors.New("pass count must be positive")
)

type response struct {
	Message  string `json:"message"`
	Reason   string `json:"reason"`
	Response []struct {
		Risetime int64 `json:"risetime"`
		Duration int64 `json:"duration"`
	} `json:"response"`
}

// Client fetches predicted passes.
type Client struct {
	http   *resty.Client
	url    string
	logger *slog.Logger
}

// NewClient creates an Open Notify client.
func NewClient(logger *slog.Logger, rc *resty.Client, url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{http: rc, url: url, logger: logger}
}

// Passes returns the next n passes over coords, in ascending rise time as the
// service orders them.
func (c *Client) Passes(ctx context.Context, coords models.Coordinates, n int) ([]models.Pass, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}

	var out response
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat": strconv.FormatFloat(coords.Latitude, 'f', -1, 64),
			"lon": strconv.FormatFloat(coords.Longitude, 'f', -1, 64),
			"n":   strconv.Itoa(n),
		}).
		SetResult(&out).
		SetError(&out).
		Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ISS passes: %w", err)
	}
	if resp.IsError() && out.Message == "" {
		return nil, fmt.Errorf("failed to fetch ISS passes: %s", resp.Status())
	}
	if out.Message != "success" {
		c.logger.Debug("ISS pass service rejected request", "message", out.Message, "reason", out.Reason)
		return nil, fmt.Errorf("%w: %s", ErrFailure, out.Message)
	}

	passes := make([]models.Pass, 0, len(out.Response))
	for _, p := range out.Response {
		passes = append(passes, models.Pass{
			Risetime: time.Unix(p.Risetime, 0).UTC(),
			Duration: time.Duration(p.Duration) * time.Second,
		})
	}
	c.logger.Debug("Fetched ISS passes", "requested", n, "returned", len(passes))
	return passes, nil
}
