package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"ticketgate/models"
	"ticketgate/scanner"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 4)
)

type outcomeLook struct {
	icon  string
	title string
	color lipgloss.Color
}

var outcomeLooks = map[models.Outcome]outcomeLook{
	models.OutcomeValid:        {"✓", "VALID", lipgloss.Color("42")},
	models.OutcomeUsed:         {"!", "ALREADY USED", lipgloss.Color("214")},
	models.OutcomeInvalid:      {"✗", "INVALID", lipgloss.Color("196")},
	models.OutcomeUnauthorized: {"⊘", "NOT AUTHORIZED", lipgloss.Color("196")},
}

// View implements tea.Model.
func (model Model) View() string {
	if model.result != nil {
		return model.place(model.resultCard())
	}
	return model.acquiringView()
}

func (model Model) acquiringView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ticketgate · " + model.station.Brand()))
	b.WriteString("\n\n")
	b.WriteString(model.input.View())
	b.WriteString("\n\n")

	if model.busy {
		b.WriteString("Checking ticket...\n")
	}
	if model.scanner != nil {
		b.WriteString(scannerLine(model.status))
		b.WriteString("\n")
	}
	if model.notice != "" {
		b.WriteString(noticeStyle.Render(model.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render(helpLine(model.keys.Submit, model.keys.ToggleScanner, model.keys.Quit)))
	return b.String()
}

func (model Model) resultCard() string {
	look, ok := outcomeLooks[model.result.Outcome]
	if !ok {
		look = outcomeLooks[models.OutcomeInvalid]
	}
	accent := lipgloss.NewStyle().Bold(true).Foreground(look.color)

	lines := []string{
		accent.Render(look.icon + "  " + look.title),
		"",
		model.result.Message,
	}
	if details := detailLines(model.result.Event); len(details) > 0 {
		lines = append(lines, "")
		lines = append(lines, details...)
	}
	lines = append(lines, "", hintStyle.Render(helpLine(model.keys.Next)))

	return cardStyle.BorderForeground(look.color).Render(strings.Join(lines, "\n"))
}

func detailLines(event *models.EventDetails) []string {
	if event == nil {
		return nil
	}
	fields := []struct{ label, value string }{
		{"Event", event.EventName},
		{"Attendee", event.Name},
		{"Ticket", event.TicketType},
		{"Date", event.Date},
		{"Venue", event.Address},
		{"Brand", event.Brand},
		{"Checked in", event.CheckedInAt},
	}
	var lines []string
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		lines = append(lines, labelStyle.Render(f.label)+f.value)
	}
	return lines
}

func scannerLine(status scanner.Status) string {
	line := fmt.Sprintf("Camera: %s", status.State)
	if status.Message != "" {
		line += "  " + noticeStyle.Render(status.Message)
	}
	return line
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

// place centers content once the terminal size is known.
func (model Model) place(content string) string {
	if model.width == 0 || model.height == 0 {
		return content
	}
	return lipgloss.Place(model.width, model.height, lipgloss.Center, lipgloss.Center, content)
}
