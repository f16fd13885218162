package render

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"eventcal/internal/model"
)

// List builds the <ul> for events, one <li> per event in order.
func List(events []model.RenderableEvent) *html.Node {
	ul := element(atom.Ul)
	for _, ev := range events {
		ul.AppendChild(Item(ev))
	}
	return ul
}

// Item builds one list item.
//
// Linked events get a date block and a summary block; the summary carries
// "<time> - " when the event is timed, followed by a link labelled with the
// title. Unlinked events collapse to a single "<title> - <date>" text node
// and never show the time.
func Item(ev model.RenderableEvent) *html.Node {
	li := element(atom.Li)

	if !ev.HasLink() {
		li.AppendChild(text(ev.Title + " - " + ev.DateLabel))
		return li
	}

	dateDiv := element(atom.Div, html.Attribute{Key: "class", Val: "event-date"})
	dateDiv.AppendChild(text(ev.DateLabel))

	summaryDiv := element(atom.Div, html.Attribute{Key: "class", Val: "event-summary"})
	if ev.HasTime() {
		span := element(atom.Span)
		span.AppendChild(text(ev.TimeLabel + " - "))
		summaryDiv.AppendChild(span)
	}
	link := element(atom.A, html.Attribute{Key: "href", Val: ev.Link})
	link.AppendChild(text(ev.Title))
	summaryDiv.AppendChild(link)

	li.AppendChild(dateDiv)
	li.AppendChild(summaryDiv)
	return li
}

// HTML serializes n.
func HTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     a.String(),
		DataAtom: a,
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
