// Package ics serves calendar feeds published as iCalendar files. Unlike a
// query-capable calendar service, an ICS endpoint returns everything, so the
// feed query is applied locally after parsing.
package ics

import (
	"context"
	"net/http"
	"sort"
	"time"

	"eventcal/internal/feed"
	"eventcal/internal/model"
)

const defaultHorizon = 365 * 24 * time.Hour

// Options configures a Provider.
type Options struct {
	Client *http.Client
	// Horizon bounds recurrence expansion into the future. Zero means one year.
	Horizon time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Provider implements feed.Provider for ICS URLs.
type Provider struct {
	fetcher *Fetcher
	horizon time.Duration
	now     func() time.Time
}

func New(opts Options) *Provider {
	if opts.Horizon <= 0 {
		opts.Horizon = defaultHorizon
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{
		fetcher: NewFetcher(opts.Client),
		horizon: opts.Horizon,
		now:     opts.Now,
	}
}

// Events fetches and parses the ICS file at feedURL and applies q: future
// filtering on the event end, recurrence expansion, ascending start order
// and the result cap.
func (p *Provider) Events(ctx context.Context, feedURL string, q feed.Query) ([]model.EventRecord, error) {
	src := Source{ID: redactURL(feedURL), URL: feedURL}
	body, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseICS(src, body)
	if err != nil {
		return nil, feed.Wrap(err)
	}

	now := p.now()
	var occurrences []Occurrence
	if q.SingleEvents {
		rangeStart := now.Add(-p.horizon)
		if q.FutureOnly {
			rangeStart = now
		}
		occurrences, err = ExpandOccurrences(parsed, ExpandConfig{
			RangeStart: rangeStart,
			RangeEnd:   now.Add(p.horizon),
		})
		if err != nil {
			return nil, feed.Wrap(err)
		}
	} else {
		occurrences = BaseOccurrences(parsed)
	}

	if q.FutureOnly {
		kept := occurrences[:0]
		for _, occ := range occurrences {
			if occ.End.After(now) {
				kept = append(kept, occ)
			}
		}
		occurrences = kept
	}

	if q.OrderBy == feed.OrderByStartTime {
		descending := q.SortOrder != "" && q.SortOrder != feed.SortAscending
		sort.SliceStable(occurrences, func(i, j int) bool {
			if descending {
				return occurrences[i].Start.After(occurrences[j].Start)
			}
			return occurrences[i].Start.Before(occurrences[j].Start)
		})
	}

	if q.MaxResults > 0 && len(occurrences) > q.MaxResults {
		occurrences = occurrences[:q.MaxResults]
	}

	records := make([]model.EventRecord, 0, len(occurrences))
	for _, occ := range occurrences {
		records = append(records, model.EventRecord{
			Title: occ.Summary,
			Link:  occ.URL,
			Times: []model.StartTime{{At: occ.Start, DateOnly: occ.AllDay}},
		})
	}
	return records, nil
}
