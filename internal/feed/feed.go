// Package feed defines the boundary to remote calendar providers: the fixed
// query every load sends, the Provider interface, and the structured error
// providers return.
package feed

import (
	"context"
	"net/url"
	"strconv"

	"eventcal/internal/model"
)

// Query controls which events a provider returns and in what order.
type Query struct {
	OrderBy      string
	SortOrder    string
	FutureOnly   bool
	SingleEvents bool
	MaxResults   int
}

const (
	OrderByStartTime = "starttime"
	SortAscending    = "ascending"

	DefaultMaxResults = 5
)

// DefaultQuery is the configuration used for every page load: upcoming
// events only, recurring events expanded, earliest first, five at most.
func DefaultQuery() Query {
	return Query{
		OrderBy:      OrderByStartTime,
		SortOrder:    SortAscending,
		FutureOnly:   true,
		SingleEvents: true,
		MaxResults:   DefaultMaxResults,
	}
}

// Values renders q as gdata-style URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.OrderBy != "" {
		v.Set("orderby", q.OrderBy)
	}
	if q.SortOrder != "" {
		v.Set("sortorder", q.SortOrder)
	}
	v.Set("futureevents", strconv.FormatBool(q.FutureOnly))
	v.Set("singleevents", strconv.FormatBool(q.SingleEvents))
	if q.MaxResults > 0 {
		v.Set("max-results", strconv.Itoa(q.MaxResults))
	}
	return v
}

// Provider fetches the events of one feed. Implementations must return
// records already ordered and capped according to q.
type Provider interface {
	Events(ctx context.Context, feedID string, q Query) ([]model.EventRecord, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, feedID string, q Query) ([]model.EventRecord, error)

func (f ProviderFunc) Events(ctx context.Context, feedID string, q Query) ([]model.EventRecord, error) {
	return f(ctx, feedID, q)
}
