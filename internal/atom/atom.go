// Package atom reads event feeds in the gdata Atom format, where each entry
// carries its start times as gd:when elements.
package atom

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"eventcal/internal/feed"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

const publicFeedBase = "https://www.google.com/calendar/feeds/"

// Provider fetches gdata Atom calendar feeds.
type Provider struct {
	parser *gofeed.Parser
}

// New creates a Provider. A nil client uses gofeed's default client, which
// has no request timeout.
func New(client *http.Client) *Provider {
	p := gofeed.NewParser()
	p.UserAgent = "eventcal/1.0"
	if client != nil {
		p.Client = client
	}
	return &Provider{parser: p}
}

// FeedURL returns the URL for feedID, which may be a full feed URL or a
// bare public calendar id.
func FeedURL(feedID string) string {
	if strings.HasPrefix(feedID, "http://") || strings.HasPrefix(feedID, "https://") {
		return feedID
	}
	return publicFeedBase + url.PathEscape(feedID) + "/public/full"
}

// Events implements feed.Provider. Ordering and the result cap are applied
// by the remote service through the query parameters.
func (p *Provider) Events(ctx context.Context, feedID string, q feed.Query) ([]model.EventRecord, error) {
	if feedID == "" {
		return nil, feed.Errorf(nil, "feed id is empty")
	}
	u, err := url.Parse(FeedURL(feedID))
	if err != nil {
		return nil, feed.Wrap(err)
	}
	params := u.Query()
	for k, vs := range q.Values() {
		params[k] = vs
	}
	u.RawQuery = params.Encode()

	appLog.Info("atom fetch start", "url", redactURL(u.String()))

	parsed, err := p.parser.ParseURLWithContext(u.String(), ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, feed.Errorf(feed.NewTransportError(httpErr.StatusCode, statusText(httpErr.Status)),
				"fetch %s failed", redactURL(u.String()))
		}
		return nil, feed.Wrap(err)
	}

	records := make([]model.EventRecord, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		records = append(records, toRecord(item))
	}

	appLog.Info("atom fetch success", "url", redactURL(u.String()), "entries", len(records))
	return records, nil
}

func toRecord(item *gofeed.Item) model.EventRecord {
	rec := model.EventRecord{
		Title: item.Title,
		Link:  item.Link,
	}
	for _, when := range whenElements(item.Extensions) {
		st, ok := parseStart(when.Attrs["startTime"])
		if !ok {
			continue
		}
		rec.Times = append(rec.Times, st)
	}
	return rec
}

// whenElements finds gd:when extensions regardless of the prefix the feed
// bound the gdata namespace to.
func whenElements(exts ext.Extensions) []ext.Extension {
	if whens, ok := exts["gd"]["when"]; ok {
		return whens
	}
	for _, byName := range exts {
		if whens, ok := byName["when"]; ok {
			return whens
		}
	}
	return nil
}

// parseStart accepts gdata date ("2026-10-20") and date-time values.
func parseStart(v string) (model.StartTime, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return model.StartTime{}, false
	}
	if !strings.Contains(v, "T") {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return model.StartTime{}, false
		}
		return model.StartTime{At: t, DateOnly: true}, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return model.StartTime{}, false
	}
	return model.StartTime{At: t}, true
}

// statusText strips the numeric prefix from an HTTP status line ("500 Server Error").
func statusText(status string) string {
	if i := strings.IndexByte(status, ' '); i >= 0 {
		return status[i+1:]
	}
	return status
}

// redactURL drops the path and query so private calendar ids stay out of logs.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "feed://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
