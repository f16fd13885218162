// Package render turns feed entries into display-ready events and builds the
// markup for the event list.
package render

import (
	"fmt"

	"eventcal/internal/format"
	"eventcal/internal/model"
)

// MalformedRecordError reports a feed entry without any start time.
type MalformedRecordError struct {
	Index int
	Title string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("render: event %d (%q) has no start time", e.Index, e.Title)
}

// Build projects records into RenderableEvents, preserving order and count.
// Records are expected to arrive sorted and capped by the provider; Build
// neither sorts nor truncates.
//
// A record without start times fails the whole build: a partial list would
// silently hide an event the feed claimed to have.
func Build(records []model.EventRecord) ([]model.RenderableEvent, error) {
	out := make([]model.RenderableEvent, 0, len(records))
	for i, rec := range records {
		if len(rec.Times) == 0 {
			return nil, &MalformedRecordError{Index: i, Title: rec.Title}
		}
		start := rec.Times[0]

		ev := model.RenderableEvent{
			Title:     rec.Title,
			DateLabel: format.DateLabel(start.At),
			Link:      rec.Link,
		}
		if label, ok := format.TimeLabel(start); ok {
			ev.TimeLabel = label
		}
		out = append(out, ev)
	}
	return out, nil
}
