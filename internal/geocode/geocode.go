// Package geocode resolves free-form addresses with the Google Geocoding API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"issvis/internal/models"

	"github.com/go-resty/resty/v2"
)

// DefaultURL is the Google Geocoding JSON endpoint.
const DefaultURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrNoResults is returned when the service does not answer with status "OK"
// and at least one result.
var ErrNoResults = errors.New("geocoder returned no usable coordinates")

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Client geocodes addresses.
type Client struct {
	http   *resty.Client
	url    string
	apiKey string
	logger *slog.Logger
}

// NewClient creates a geocoding client. apiKey may be empty.
func NewClient(logger *slog.Logger, rc *resty.Client, url, apiKey string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{http: rc, url: url, apiKey: apiKey, logger: logger}
}

// Geocode returns the coordinates of the first match for address.
func (c *Client) Geocode(ctx context.Context, address string) (models.Coordinates, error) {
	var out response
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("address", address).
		SetResult(&out)
	if c.apiKey != "" {
		req.SetQueryParam("key", c.apiKey)
	}

	resp, err := req.Get(c.url)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to geocode %q: %w", address, err)
	}
	if resp.IsError() {
		return models.Coordinates{}, fmt.Errorf("failed to geocode %q: %s", address, resp.Status())
	}

	if out.Status != "OK" || len(out.Results) == 0 {
		c.logger.Debug("Geocoder returned no result", "address", address, "status", out.Status, "message", out.ErrorMessage)
		return models.Coordinates{}, fmt.Errorf("%w: status %q", ErrNoResults, out.Status)
	}

	loc := out.Results[0].Geometry.Location
	c.logger.Debug("Geocoded address", "address", address, "match", out.Results[0].FormattedAddress, "lat", loc.Lat, "lng", loc.Lng)
	return models.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
