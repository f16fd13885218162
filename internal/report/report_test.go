package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"eventcal/internal/feed"
	"eventcal/internal/surface"
)

type recorder struct {
	msgs []string
	err  error
}

func (r *recorder) Alert(_ context.Context, msg string) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestReportStructuredErrorWithCause(t *testing.T) {
	doc := surface.NewPage()
	source := doc.Surface(surface.SourceID)
	rec := &recorder{}

	err := &feed.FeedError{
		Line:    42,
		File:    "x",
		Message: "timeout",
		Cause:   &feed.TransportError{Status: 500, StatusText: "Server Error"},
	}
	msgs := New(rec, source).Report(context.Background(), err)

	assert.Equal(t, []string{
		"Error at line 42 in x\nMessage: timeout",
		"Root cause: HTTP error 500 with status text of: Server Error",
	}, msgs)
	assert.Equal(t, msgs, rec.msgs)
	assert.False(t, source.Visible())
}

func TestReportStructuredErrorWithoutCause(t *testing.T) {
	rec := &recorder{}
	msgs := New(rec, nil).Report(context.Background(), &feed.FeedError{Line: 7, File: "atom.go", Message: "eof"})
	assert.Equal(t, []string{"Error at line 7 in atom.go\nMessage: eof"}, msgs)
	assert.Len(t, rec.msgs, 1)
}

func TestReportUnstructuredError(t *testing.T) {
	doc := surface.NewPage()
	source := doc.Surface(surface.SourceID)
	rec := &recorder{}

	msgs := New(rec, source).Report(context.Background(), errors.New("something odd"))
	assert.Equal(t, []string{"something odd"}, msgs)
	assert.Equal(t, msgs, rec.msgs)
	assert.False(t, source.Visible())
}

func TestReportStopsWhenAlertFails(t *testing.T) {
	rec := &recorder{err: context.Canceled}
	err := &feed.FeedError{Message: "m", Cause: &feed.TransportError{Status: 502, StatusText: "Bad Gateway"}}

	msgs := New(rec, nil).Report(context.Background(), err)
	assert.Len(t, msgs, 2)
	assert.Len(t, rec.msgs, 1)
}

func TestMessagesWrappedFeedError(t *testing.T) {
	inner := feed.Errorf(feed.NewTransportError(404, ""), "gone")
	msgs := Messages(errors.Join(errors.New("load"), inner))
	assert.Len(t, msgs, 2)
	assert.Equal(t, "Root cause: HTTP error 404 with status text of: Not Found", msgs[1])
	assert.Nil(t, Messages(nil))
}

func TestAlerterFunc(t *testing.T) {
	var got string
	a := AlerterFunc(func(_ context.Context, msg string) error { got = msg; return nil })
	assert.NoError(t, a.Alert(context.Background(), "hi"))
	assert.Equal(t, "hi", got)
}
