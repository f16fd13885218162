package ics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/feed"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//eventcal//test//EN
BEGIN:VEVENT
UID:past@test
DTSTAMP:20261001T000000Z
DTSTART:20261001T100000Z
DTEND:20261001T110000Z
SUMMARY:Past
END:VEVENT
BEGIN:VEVENT
UID:talk@test
DTSTAMP:20261001T000000Z
DTSTART:20261020T190500Z
DTEND:20261020T200000Z
SUMMARY:Talk
URL:https://example.com/talk
END:VEVENT
BEGIN:VEVENT
UID:fair@test
DTSTAMP:20261001T000000Z
DTSTART;VALUE=DATE:20261018
DTEND;VALUE=DATE:20261019
SUMMARY:Fair
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20261001T000000Z
DTSTART:20261005T150000Z
DTEND:20261005T160000Z
RRULE:FREQ=WEEKLY;COUNT=6
SUMMARY:Weekly
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20261001T000000Z
RECURRENCE-ID:20261026T150000Z
DTSTART:20261027T150000Z
DTEND:20261027T160000Z
SUMMARY:Weekly (moved)
END:VEVENT
END:VCALENDAR
`

var testNow = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

func serveICS(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(strings.ReplaceAll(body, "\n", "\r\n")))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newProvider(srv *httptest.Server) *Provider {
	return New(Options{Client: srv.Client(), Now: func() time.Time { return testNow }})
}

func titles(t *testing.T, p *Provider, url string, q feed.Query) []string {
	t.Helper()
	records, err := p.Events(context.Background(), url, q)
	require.NoError(t, err)
	out := make([]string, 0, len(records))
	for _, r := range records {
		require.Len(t, r.Times, 1)
		out = append(out, r.Title)
	}
	return out
}

func TestEventsAppliesDefaultQuery(t *testing.T) {
	srv := serveICS(t, http.StatusOK, sampleICS)
	p := newProvider(srv)

	assert.Equal(t,
		[]string{"Fair", "Weekly", "Talk", "Weekly (moved)", "Weekly"},
		titles(t, p, srv.URL+"/cal.ics", feed.DefaultQuery()))
}

func TestEventsRecordDetails(t *testing.T) {
	srv := serveICS(t, http.StatusOK, sampleICS)
	records, err := newProvider(srv).Events(context.Background(), srv.URL, feed.DefaultQuery())
	require.NoError(t, err)

	fair := records[0]
	assert.True(t, fair.Times[0].DateOnly)
	assert.Equal(t, 18, fair.Times[0].At.Day())
	assert.Empty(t, fair.Link)

	talk := records[2]
	assert.False(t, talk.Times[0].DateOnly)
	assert.Equal(t, "https://example.com/talk", talk.Link)
	assert.Equal(t, 19, talk.Times[0].At.Hour())
	assert.Equal(t, 5, talk.Times[0].At.Minute())

	moved := records[3]
	assert.Equal(t, 27, moved.Times[0].At.Day())
}

func TestEventsWithoutExpansion(t *testing.T) {
	srv := serveICS(t, http.StatusOK, sampleICS)
	q := feed.DefaultQuery()
	q.SingleEvents = false

	assert.Equal(t, []string{"Fair", "Talk"}, titles(t, newProvider(srv), srv.URL, q))
}

func TestEventsUncapped(t *testing.T) {
	srv := serveICS(t, http.StatusOK, sampleICS)
	q := feed.DefaultQuery()
	q.MaxResults = 0

	assert.Equal(t,
		[]string{"Fair", "Weekly", "Talk", "Weekly (moved)", "Weekly", "Weekly"},
		titles(t, newProvider(srv), srv.URL, q))
}

func TestEventsStatusErrorBecomesCause(t *testing.T) {
	srv := serveICS(t, http.StatusServiceUnavailable, "down")
	_, err := newProvider(srv).Events(context.Background(), srv.URL, feed.DefaultQuery())

	var fe *feed.FeedError
	require.True(t, errors.As(err, &fe))
	require.NotNil(t, fe.Cause)
	assert.Equal(t, 503, fe.Cause.Status)
	assert.Equal(t, "Service Unavailable", fe.Cause.StatusText)
	assert.Equal(t, "fetch.go", fe.File)
}

func TestEventsInvalidBody(t *testing.T) {
	srv := serveICS(t, http.StatusOK, "")
	_, err := newProvider(srv).Events(context.Background(), srv.URL, feed.DefaultQuery())

	var fe *feed.FeedError
	require.True(t, errors.As(err, &fe))
	assert.Nil(t, fe.Cause)
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	_, err := ExpandOccurrences(nil, ExpandConfig{RangeStart: testNow, RangeEnd: testNow.Add(-time.Hour)})
	assert.Error(t, err)
}

func TestExpandExDate(t *testing.T) {
	start := time.Date(2026, time.October, 19, 15, 0, 0, 0, time.UTC)
	ev := ParsedEvent{
		UID:      "x",
		Summary:  "Daily",
		Start:    start,
		End:      start.Add(time.Hour),
		RawRRule: "FREQ=DAILY;COUNT=3",
		ExDates:  []time.Time{start.AddDate(0, 0, 1)},
	}
	occ, err := ExpandOccurrences([]ParsedEvent{ev}, ExpandConfig{RangeStart: testNow, RangeEnd: testNow.AddDate(0, 1, 0)})
	require.NoError(t, err)
	require.Len(t, occ, 2)
	assert.Equal(t, 19, occ[0].Start.Day())
	assert.Equal(t, 21, occ[1].Start.Day())
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/path/private.ics?token=abcd"))
	assert.Equal(t, "ics://...(redacted)", redactURL("nonsense"))
}
