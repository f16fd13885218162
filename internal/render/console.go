package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"eventcal/internal/model"
)

var (
	dateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff"))
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c9d1d9"))
	linkStyle  = lipgloss.NewStyle().Faint(true).Underline(true)
)

// Console writes events to a terminal using the same layout rules as Item.
func Console(w io.Writer, events []model.RenderableEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, timeStyle.Render("No upcoming events"))
		return err
	}
	for _, ev := range events {
		var line string
		if ev.HasLink() {
			summary := titleStyle.Render(ev.Title) + " " + linkStyle.Render(ev.Link)
			if ev.HasTime() {
				summary = timeStyle.Render(ev.TimeLabel+" - ") + summary
			}
			line = dateStyle.Render(ev.DateLabel) + "\n  " + summary
		} else {
			line = titleStyle.Render(ev.Title + " - " + ev.DateLabel)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
