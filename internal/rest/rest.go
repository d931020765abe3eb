// Package rest builds the HTTP client shared by the remote lookup services.
package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "issvis/1.0"

// Options controls timeouts and retries for every request made by a client.
type Options struct {
	Timeout   time.Duration // per attempt
	Retries   int           // extra attempts after the first
	RetryWait time.Duration
}

// DefaultOptions is one retry and a ten second timeout.
func DefaultOptions() Options {
	return Options{
		Timeout:   10 * time.Second,
		Retries:   1,
		RetryWait: 500 * time.Millisecond,
	}
}

// NewClient returns a JSON client that retries transport errors and 5xx responses.
func NewClient(logger *slog.Logger, opts Options) *resty.Client {
	c := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4 * opts.RetryWait).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})

	c.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		logger.Debug("HTTP request finished",
			"method", r.Request.Method,
			"url", r.Request.URL,
			"status", r.StatusCode(),
			"attempt", r.Request.Attempt,
			"duration", r.Time())
		return nil
	})

	return c
}
