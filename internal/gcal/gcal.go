// Package gcal lists upcoming events through the Google Calendar API v3.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"eventcal/internal/feed"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

// Options configures the API client.
type Options struct {
	// APIKey is enough for public calendars.
	APIKey string
	// Endpoint overrides the API base URL (tests, proxies).
	Endpoint string
	// HTTPClient, if set, is used as-is and disables API key handling.
	HTTPClient *http.Client
	// Now defaults to time.Now.
	Now func() time.Time
}

// Provider implements feed.Provider on top of events.list.
type Provider struct {
	svc *calendar.Service
	now func() time.Time
}

// New creates the API service. It does not contact the API.
func New(ctx context.Context, opts Options) (*Provider, error) {
	var clientOpts []option.ClientOption
	switch {
	case opts.HTTPClient != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	default:
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcal: create service: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Provider{svc: svc, now: now}, nil
}

// Events implements feed.Provider. The API only orders by start time in
// ascending order, which is exactly what the page asks for.
func (p *Provider) Events(ctx context.Context, calendarID string, q feed.Query) ([]model.EventRecord, error) {
	if calendarID == "" {
		return nil, feed.Errorf(nil, "calendar id is empty")
	}

	call := p.svc.Events.List(calendarID).
		SingleEvents(q.SingleEvents).
		Context(ctx)
	if q.OrderBy == feed.OrderByStartTime && q.SingleEvents {
		call = call.OrderBy("startTime")
	}
	if q.FutureOnly {
		call = call.TimeMin(p.now().Format(time.RFC3339))
	}
	if q.MaxResults > 0 {
		call = call.MaxResults(int64(q.MaxResults))
	}

	appLog.Info("gcal list start", "calendar", calendarID, "max_results", q.MaxResults)

	res, err := call.Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, feed.Errorf(feed.NewTransportError(apiErr.Code, ""), "list events: %s", apiErr.Message)
		}
		return nil, feed.Wrap(err)
	}

	records := make([]model.EventRecord, 0, len(res.Items))
	for _, item := range res.Items {
		records = append(records, toRecord(item))
	}
	if q.MaxResults > 0 && len(records) > q.MaxResults {
		records = records[:q.MaxResults]
	}

	appLog.Info("gcal list success", "calendar", calendarID, "events", len(records))
	return records, nil
}

func toRecord(ev *calendar.Event) model.EventRecord {
	rec := model.EventRecord{
		Title: ev.Summary,
		Link:  ev.HtmlLink,
	}
	if st, ok := parseEventDateTime(ev.Start); ok {
		rec.Times = append(rec.Times, st)
	}
	return rec
}

func parseEventDateTime(dt *calendar.EventDateTime) (model.StartTime, bool) {
	if dt == nil {
		return model.StartTime{}, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return model.StartTime{}, false
		}
		return model.StartTime{At: t}, true
	}
	if dt.Date != "" {
		t, err := time.Parse("2006-01-02", dt.Date)
		if err != nil {
			return model.StartTime{}, false
		}
		return model.StartTime{At: t, DateOnly: true}, true
	}
	return model.StartTime{}, false
}
