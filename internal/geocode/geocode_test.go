package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"issvis/internal/rest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpClient := rest.NewClient(logger, rest.Options{Timeout: 2 * time.Second, RetryWait: 10 * time.Millisecond})
	return NewClient(logger, httpClient, srv.URL, apiKey)
}

func TestGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("address"); got != "1600 Amphitheatre Pkwy, Mountain View" {
			t.Errorf("unexpected address %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "secret" {
			t.Errorf("unexpected key %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"status": "OK",
			"results": [
				{"formatted_address": "Mountain View, CA", "geometry": {"location": {"lat": 37.422, "lng": -122.084}}},
				{"formatted_address": "Elsewhere", "geometry": {"location": {"lat": 1, "lng": 2}}}
			]
		}`)
	}, "secret")

	coords, err := c.Geocode(context.Background(), "1600 Amphitheatre Pkwy, Mountain View")
	if err != nil {
		t.Fatalf("Geocode() returned an error: %v", err)
	}
	if coords.Latitude != 37.422 || coords.Longitude != -122.084 {
		t.Errorf("Geocode() = %+v, want first result", coords)
	}
}

func TestGeocode_NotOK(t *testing.T) {
	for _, body := range []string{
		`{"status": "ZERO_RESULTS", "results": []}`,
		`{"status": "REQUEST_DENIED", "error_message": "no key"}`,
		`{"status": "OK", "results": []}`,
		`{}`,
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, body)
		}, "")

		_, err := c.Geocode(context.Background(), "nowhere")
		if !errors.Is(err, ErrNoResults) {
			t.Errorf("Geocode() with %s: error = %v, want ErrNoResults", body, err)
		}
	}
}

func TestGeocode_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, "")

	_, err := c.Geocode(context.Background(), "somewhere")
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrNoResults) {
		t.Errorf("HTTP failure should not be reported as ErrNoResults: %v", err)
	}
}
