// Package loader runs one page load: fetch the feed, build the list, attach
// it to the page and crossfade from the loading indicator.
package loader

import (
	"context"
	"sync"
	"time"

	"eventcal/internal/feed"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/render"
	"eventcal/internal/report"
	"eventcal/internal/surface"
	"eventcal/internal/transition"
)

// Target is the page a load renders into.
type Target struct {
	Loader   surface.Surface
	Content  surface.Surface
	Reporter *report.Reporter
}

// PageTarget wires a Target to the standard surfaces of doc.
func PageTarget(doc *surface.Document, alerter report.Alerter) Target {
	return Target{
		Loader:   doc.Surface(surface.LoaderID),
		Content:  doc.Surface(surface.ContentID),
		Reporter: report.New(alerter, doc.Surface(surface.SourceID)),
	}
}

// Loader holds the fixed load configuration.
type Loader struct {
	provider   feed.Provider
	feedID     string
	query      feed.Query
	transition transition.Config
}

// New creates a Loader that always sends feed.DefaultQuery.
func New(provider feed.Provider, feedID string, tc transition.Config) *Loader {
	return &Loader{
		provider:   provider,
		feedID:     feedID,
		query:      feed.DefaultQuery(),
		transition: tc,
	}
}

// FeedID returns the identifier of the loaded feed.
func (l *Loader) FeedID() string { return l.feedID }

// Fetch performs the feed request and builds the renderable list. It makes
// exactly one provider call and never retries.
func (l *Loader) Fetch(ctx context.Context) ([]model.RenderableEvent, error) {
	start := time.Now()
	records, err := l.provider.Events(ctx, l.feedID, l.query)
	if err != nil {
		return nil, err
	}
	events, err := render.Build(records)
	if err != nil {
		return nil, err
	}
	appLog.Info("feed loaded", "events", len(events), "elapsed", time.Since(start))
	return events, nil
}

// Pending is the result of an asynchronous Load.
type Pending struct {
	done   chan struct{}
	once   sync.Once
	events []model.RenderableEvent
	err    error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(events []model.RenderableEvent, err error) {
	p.once.Do(func() {
		p.events = events
		p.err = err
		close(p.done)
	})
}

// Done is closed once the load has finished, including the transition.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the load finishes or ctx is done.
func (p *Pending) Wait(ctx context.Context) ([]model.RenderableEvent, error) {
	select {
	case <-p.done:
		return p.events, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Load starts a load into t and returns immediately.
//
// On success the content surface is cleared, the complete list is attached
// in a single mutation, and only then a fresh transition runs. On failure the
// error is reported once, the content surface stays hidden, and no
// transition starts.
func (l *Loader) Load(ctx context.Context, t Target) *Pending {
	p := newPending()
	go func() {
		events, err := l.Fetch(ctx)
		if err != nil {
			if t.Reporter != nil {
				t.Reporter.Report(ctx, err)
			}
			t.Content.SetVisible(false)
			p.resolve(nil, err)
			return
		}

		t.Content.SetVisible(false)
		t.Content.Clear()
		t.Content.Append(render.List(events))

		ctrl := transition.New(t.Loader, t.Content, l.transition)
		if err := ctrl.Run(ctx); err != nil {
			appLog.Error("transition interrupted", err, "phase", ctrl.Phase().String())
			p.resolve(events, err)
			return
		}
		p.resolve(events, nil)
	}()
	return p
}
