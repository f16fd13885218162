// Package surface models the addressable regions of the calendar page. A
// Document mirrors the browser's state and reports every mutation so it can
// be replayed remotely.
package surface

import (
	"bytes"
	"sync"

	"golang.org/x/net/html"
)

// Stable identifiers of the regions used by the calendar page.
const (
	LoaderID  = "calendar-loader"
	ContentID = "events"
	SourceID  = "source-final"
)

// Surface is the minimal capability the pipeline needs from a page region.
type Surface interface {
	ID() string
	Opacity() float64
	SetOpacity(op float64)
	Visible() bool
	SetVisible(visible bool)
	// Clear removes all children.
	Clear()
	// Append attaches nodes as children, in order, as one mutation.
	Append(nodes ...*html.Node)
}

// Change describes a single surface mutation. Only the touched field is set.
type Change struct {
	ID      string   `json:"id"`
	Opacity *float64 `json:"opacity,omitempty"`
	Visible *bool    `json:"visible,omitempty"`
	HTML    *string  `json:"html,omitempty"`
}

// Document owns a set of surfaces addressed by id.
type Document struct {
	mu       sync.Mutex
	surfaces map[string]*Element
	listener func(Change)
}

// NewDocument creates a document with the given surfaces, all visible at
// full opacity.
func NewDocument(ids ...string) *Document {
	d := &Document{surfaces: make(map[string]*Element, len(ids))}
	for _, id := range ids {
		d.surfaces[id] = &Element{doc: d, id: id, opacity: 1, visible: true}
	}
	return d
}

// NewPage creates the document used by the calendar page: loader shown,
// content hidden, source notice shown.
func NewPage() *Document {
	d := NewDocument(LoaderID, ContentID, SourceID)
	d.surfaces[ContentID].visible = false
	return d
}

// OnChange installs fn as the mutation listener. fn runs synchronously on
// the mutating goroutine, after the document lock is released.
func (d *Document) OnChange(fn func(Change)) {
	d.mu.Lock()
	d.listener = fn
	d.mu.Unlock()
}

// Surface returns the surface with the given id, or nil.
func (d *Document) Surface(id string) Surface {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.surfaces[id]
	if !ok {
		return nil
	}
	return el
}

// Snapshot returns one full Change per surface describing its current state.
func (d *Document) Snapshot() []Change {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Change, 0, len(d.surfaces))
	for id, el := range d.surfaces {
		op := el.opacity
		vis := el.visible
		markup := renderNodes(el.children)
		out = append(out, Change{ID: id, Opacity: &op, Visible: &vis, HTML: &markup})
	}
	return out
}

func (d *Document) emit(c Change) {
	d.mu.Lock()
	fn := d.listener
	d.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

// Element is the in-memory Surface implementation backing a Document.
type Element struct {
	doc      *Document
	id       string
	opacity  float64
	visible  bool
	children []*html.Node
}

func (e *Element) ID() string { return e.id }

func (e *Element) Opacity() float64 {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.opacity
}

func (e *Element) SetOpacity(op float64) {
	e.doc.mu.Lock()
	e.opacity = op
	e.doc.mu.Unlock()
	e.doc.emit(Change{ID: e.id, Opacity: &op})
}

func (e *Element) Visible() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.visible
}

func (e *Element) SetVisible(visible bool) {
	e.doc.mu.Lock()
	e.visible = visible
	e.doc.mu.Unlock()
	e.doc.emit(Change{ID: e.id, Visible: &visible})
}

func (e *Element) Clear() {
	e.doc.mu.Lock()
	e.children = nil
	e.doc.mu.Unlock()
	empty := ""
	e.doc.emit(Change{ID: e.id, HTML: &empty})
}

func (e *Element) Append(nodes ...*html.Node) {
	e.doc.mu.Lock()
	e.children = append(e.children, nodes...)
	markup := renderNodes(e.children)
	e.doc.mu.Unlock()
	e.doc.emit(Change{ID: e.id, HTML: &markup})
}

// Children returns the current child nodes.
func (e *Element) Children() []*html.Node {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return append([]*html.Node(nil), e.children...)
}

// HTML serializes the current children.
func (e *Element) HTML() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return renderNodes(e.children)
}

func renderNodes(nodes []*html.Node) string {
	var buf bytes.Buffer
	for _, n := range nodes {
		// Render only fails on writer errors; bytes.Buffer never returns one.
		_ = html.Render(&buf, n)
	}
	return buf.String()
}
