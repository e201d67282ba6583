package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/leadboard/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

// LeadDetailModel manages the lead detail screen.
type LeadDetailModel struct {
	api     LeadAPI
	timeout time.Duration
	leadID  string
	lead    *models.Lead
	events  []models.LeadEvent
	err     error
	width   int
	height  int
	loading bool
	scroll  int
}

// NewLeadDetailModel creates a new lead detail model.
func NewLeadDetailModel(api LeadAPI, timeout time.Duration) *LeadDetailModel {
	return &LeadDetailModel{api: api, timeout: timeout}
}

// SetLead sets the lead to display.
func (m *LeadDetailModel) SetLead(id string) {
	m.leadID = id
	m.lead = nil
	m.events = nil
	m.err = nil
	m.scroll = 0
}

// SetSize sets the dimensions.
func (m *LeadDetailModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Refresh fetches the lead with its inspections and audit trail.
func (m *LeadDetailModel) Refresh() tea.Cmd {
	m.loading = true
	id := m.leadID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		lead, err := m.api.GetLead(ctx, id)
		if err != nil {
			return leadDetailLoadedMsg{id: id, err: err}
		}
		events, _ := m.api.Events(ctx, id)
		return leadDetailLoadedMsg{id: id, lead: lead, events: events}
	}
}

// Update handles messages.
func (m *LeadDetailModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case leadDetailLoadedMsg:
		if msg.id != m.leadID {
			return nil
		}
		m.loading = false
		m.lead = msg.lead
		m.events = msg.events
		m.err = msg.err

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			m.scroll++
		case "k", "up":
			if m.scroll > 0 {
				m.scroll--
			}
		case "r":
			return m.Refresh()
		}
	}
	return nil
}

// View renders the lead detail.
func (m *LeadDetailModel) View() string {
	if m.err != nil {
		return "\n  " + errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	if m.loading || m.lead == nil {
		return "\n  Loading lead..."
	}

	var b strings.Builder
	l := m.lead

	b.WriteString(headerStyle.Render(l.FullName()))
	b.WriteString("\n\n")

	b.WriteString(m.renderField("ID", l.ID))
	b.WriteString(m.renderField("Status", formatStatus(l.Status)))
	b.WriteString(m.renderField("Email", l.Email))
	b.WriteString(m.renderField("Phone", l.Phone))
	b.WriteString(m.renderField("Address", strings.TrimSpace(strings.Join([]string{l.Address, l.Suburb, l.Postcode}, " "))))
	b.WriteString(m.renderField("Service", humanize(string(l.ServiceType))))
	b.WriteString(m.renderField("Urgency", formatUrgency(l.Urgency)))
	b.WriteString(m.renderField("Source", humanize(string(l.Source))))
	if l.EstimatedValue != nil {
		b.WriteString(m.renderField("Estimate", fmt.Sprintf("$%.2f", *l.EstimatedValue)))
	}
	if l.AssignedTo != "" {
		b.WriteString(m.renderField("Assigned", l.AssignedTo))
	}
	b.WriteString(m.renderField("Created", l.CreatedAt.Local().Format("2006-01-02 15:04")))
	b.WriteString(m.renderField("Updated", l.UpdatedAt.Local().Format("2006-01-02 15:04")))
	if l.Notes != "" {
		b.WriteString(m.renderField("Notes", truncate(l.Notes, 200)))
	}

	if len(l.Inspections) > 0 {
		b.WriteString(sectionStyle.Render("Inspections"))
		b.WriteString("\n")
		for _, in := range l.Inspections {
			state := "booked"
			if in.Completed {
				state = "done"
			}
			line := fmt.Sprintf("  • %s  %s", in.ScheduledAt.Local().Format("Mon 02 Jan 15:04"), state)
			if in.Inspector != "" {
				line += "  (" + in.Inspector + ")"
			}
			b.WriteString(line + "\n")
			if in.Findings != "" {
				b.WriteString(fmt.Sprintf("    → %s\n", truncate(in.Findings, 100)))
			}
		}
	}

	if len(m.events) > 0 {
		b.WriteString(sectionStyle.Render("History"))
		b.WriteString("\n")
		for i, ev := range m.events {
			if i >= 8 {
				b.WriteString(fmt.Sprintf("  ... and %d more events\n", len(m.events)-8))
				break
			}
			line := fmt.Sprintf("  %s  %s", ev.Timestamp.Local().Format("01-02 15:04"), ev.Action)
			if ev.Details != "" {
				line += "  " + ev.Details
			}
			if ev.Outcome == "error" {
				line = errorStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	lines := strings.Split(b.String(), "\n")
	if m.scroll >= len(lines) {
		m.scroll = len(lines) - 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
	visible := lines[m.scroll:]
	if m.height > 0 && len(visible) > m.height {
		visible = visible[:m.height]
	}

	return strings.Join(visible, "\n")
}

func (m *LeadDetailModel) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-9s", label+":")), valueStyle.Render(value))
}

type leadDetailLoadedMsg struct {
	id     string
	lead   *models.Lead
	events []models.LeadEvent
	err    error
}
