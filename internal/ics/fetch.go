package ics

import (
	"context"
	"errors"
	"io"
	"net/http"

	"eventcal/internal/feed"
	appLog "eventcal/internal/log"
)

// Source represents a single ICS subscription source.
type Source struct {
	// ID is used for logging only.
	ID string
	// URL is the ICS endpoint.
	URL string
}

// Fetcher downloads ICS payloads. Every call goes to the network; nothing is
// cached between loads.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client means http.DefaultClient, which
// has no timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// Fetch returns the body of src. Non-2xx responses become a FeedError whose
// cause carries the status.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	if src.URL == "" {
		return nil, feed.Errorf(nil, "source URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, feed.Wrap(err)
	}
	req.Header.Set("Accept", "text/calendar")

	appLog.Info("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, feed.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		appLog.Error("ics fetch non-OK", errors.New(resp.Status), "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode)
		return nil, feed.Errorf(feed.NewTransportError(resp.StatusCode, ""), "fetch %s", redactURL(src.URL))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, feed.Wrap(err)
	}

	appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// redactURL hides sensitive parts of an ICS URL for logging purposes.
// Example:
//
//	https://example.com/path/to/private.ics?token=abcd
//	-> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "ics://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
