package model

import "time"

// StartTime is a single start instant of a feed entry.
type StartTime struct {
	At time.Time
	// DateOnly marks all-day values that carry no time-of-day.
	DateOnly bool
}

// EventRecord is one entry as delivered by a feed provider. It is read-only
// and never outlives a single build pass.
type EventRecord struct {
	Title string

	// Times holds zero or more start instants; the first one is canonical.
	Times []StartTime

	// Link is the event's web page. Empty means the feed had none.
	Link string
}

// RenderableEvent is the display-ready projection of one EventRecord.
type RenderableEvent struct {
	Title     string `json:"title"`
	DateLabel string `json:"date_label"`
	TimeLabel string `json:"time_label,omitempty"`
	Link      string `json:"link,omitempty"`
}

func (e RenderableEvent) HasTime() bool { return e.TimeLabel != "" }

func (e RenderableEvent) HasLink() bool { return e.Link != "" }
