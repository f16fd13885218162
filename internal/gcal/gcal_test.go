package gcal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/feed"
)

const listResponse = `{
  "kind": "calendar#events",
  "items": [
    {"summary": "Standup", "htmlLink": "https://calendar.example.com/e1",
     "start": {"dateTime": "2026-10-20T13:15:00-05:00"}},
    {"summary": "Holiday",
     "start": {"date": "2026-11-26"}},
    {"summary": "No start"}
  ]
}`

func newTestProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	now := time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)
	p, err := New(context.Background(), Options{
		Endpoint:   srv.URL + "/",
		HTTPClient: srv.Client(),
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	return p
}

func TestEventsSendsQueryAndMapsItems(t *testing.T) {
	var got url.Values
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listResponse))
	})

	records, err := p.Events(context.Background(), "club@group.calendar.google.com", feed.DefaultQuery())
	require.NoError(t, err)

	assert.Equal(t, "startTime", got.Get("orderBy"))
	assert.Equal(t, "true", got.Get("singleEvents"))
	assert.Equal(t, "5", got.Get("maxResults"))
	assert.Equal(t, "2026-10-16T12:00:00Z", got.Get("timeMin"))

	require.Len(t, records, 3)
	assert.Equal(t, "Standup", records[0].Title)
	assert.Equal(t, "https://calendar.example.com/e1", records[0].Link)
	require.Len(t, records[0].Times, 1)
	assert.Equal(t, 13, records[0].Times[0].At.Hour())
	assert.False(t, records[0].Times[0].DateOnly)

	assert.Empty(t, records[1].Link)
	require.Len(t, records[1].Times, 1)
	assert.True(t, records[1].Times[0].DateOnly)

	assert.Empty(t, records[2].Times)
}

func TestEventsAPIErrorBecomesCause(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": 404, "message": "Not Found"}}`))
	})

	_, err := p.Events(context.Background(), "missing", feed.DefaultQuery())
	require.Error(t, err)

	var fe *feed.FeedError
	require.True(t, errors.As(err, &fe))
	require.NotNil(t, fe.Cause)
	assert.Equal(t, 404, fe.Cause.Status)
	assert.Equal(t, "Not Found", fe.Cause.StatusText)
	assert.Equal(t, "gcal.go", fe.File)
}

func TestEventsEmptyCalendarID(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	})
	_, err := p.Events(context.Background(), "", feed.DefaultQuery())
	var fe *feed.FeedError
	assert.True(t, errors.As(err, &fe))
}
