// Package feed implements the per-feed monitor loop (spec.md §4.5): fetch a
// scalar from an HTTP/JSON source, compare it against the on-chain value, and
// submit an update when a time or deviation threshold is crossed.
package feed

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const fetchTimeout = 30 * time.Second

// FetchErrorKind classifies a fetch failure for LogSink rows (spec.md §4.5
// "Fetch + extract").
type FetchErrorKind string

const (
	FetchErrorHTTP    FetchErrorKind = "http_status"
	FetchErrorNetwork FetchErrorKind = "network_error"
	FetchErrorParse   FetchErrorKind = "parse_error"
)

// FetchError wraps a fetch failure with its LogSink classification.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Cause.Error()
	}
	return string(e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Fetcher retrieves JSON payloads from feed URLs with a reusable HTTP client.
type Fetcher struct {
	client *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: fetchTimeout}}
}

// FetchJSON performs an HTTP GET against url and returns the raw response
// body. Non-2xx responses, connection/DNS failures, and body-read failures
// are all surfaced as a classified *FetchError.
func (f *Fetcher) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorNetwork, Cause: errors.Wrap(err, "building request")}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorNetwork, Cause: errors.Wrapf(err, "fetching %s", url)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Kind: FetchErrorHTTP, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorParse, Cause: errors.Wrap(err, "reading response body")}
	}
	return body, nil
}
