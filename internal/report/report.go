// Package report turns load failures into messages for the viewer.
package report

import (
	"context"
	"errors"
	"fmt"

	"eventcal/internal/feed"
	appLog "eventcal/internal/log"
	"eventcal/internal/surface"
)

// Alerter shows a message and blocks until the viewer acknowledges it.
type Alerter interface {
	Alert(ctx context.Context, msg string) error
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(ctx context.Context, msg string) error

func (f AlerterFunc) Alert(ctx context.Context, msg string) error { return f(ctx, msg) }

// Reporter surfaces errors through an Alerter.
type Reporter struct {
	alerter Alerter
	source  surface.Surface
}

// New creates a Reporter. source is hidden whenever an error is reported;
// it may be nil.
func New(alerter Alerter, source surface.Surface) *Reporter {
	return &Reporter{alerter: alerter, source: source}
}

// Messages formats err without side effects. Structured feed errors produce
// a location message plus, when the failure came from an HTTP response, a
// separate root-cause message.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var fe *feed.FeedError
	if !errors.As(err, &fe) {
		return []string{err.Error()}
	}
	msgs := []string{fmt.Sprintf("Error at line %d in %s\nMessage: %s", fe.Line, fe.File, fe.Message)}
	if fe.Cause != nil {
		msgs = append(msgs, fmt.Sprintf("Root cause: HTTP error %d with status text of: %s",
			fe.Cause.Status, fe.Cause.StatusText))
	}
	return msgs
}

// Report hides the source surface, then alerts each message in order,
// waiting for every acknowledgement. It returns the messages shown.
func (r *Reporter) Report(ctx context.Context, err error) []string {
	if r.source != nil {
		r.source.SetVisible(false)
	}
	msgs := Messages(err)
	appLog.Error("feed load failed", err, "messages", len(msgs))

	for _, msg := range msgs {
		if r.alerter == nil {
			break
		}
		if aerr := r.alerter.Alert(ctx, msg); aerr != nil {
			appLog.Error("alert not delivered", aerr)
			break
		}
	}
	return msgs
}
