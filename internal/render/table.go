package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gridline-app/gridline/internal/model"
)

const maxTitleWidth = 40

// StyledText applies a lipgloss style to text when colors are enabled.
// When colors are disabled, it returns the plain text unchanged.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// ColorFromName maps model color name strings to lipgloss colors.
func ColorFromName(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("9")
	case "yellow":
		return lipgloss.Color("11")
	case "blue":
		return lipgloss.Color("12")
	case "green":
		return lipgloss.Color("10")
	case "magenta":
		return lipgloss.Color("13")
	case "gray":
		return lipgloss.Color("8")
	case "white":
		return lipgloss.Color("15")
	default:
		return lipgloss.Color("15")
	}
}

// truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// statusLabel returns a status string with icon, e.g. "● done".
func statusLabel(s model.Status) string {
	return s.Icon() + " " + string(s)
}

// countBadges summarizes an issue's aggregate counters, e.g. "2c 1l 3a".
// Zero counters are omitted; an issue with nothing attached yields "".
func countBadges(issue model.Issue) string {
	var parts []string
	if issue.CommentCount > 0 {
		parts = append(parts, fmt.Sprintf("%dc", issue.CommentCount))
	}
	if issue.LinkCount > 0 {
		parts = append(parts, fmt.Sprintf("%dl", issue.LinkCount))
	}
	if issue.AttachmentCount > 0 {
		parts = append(parts, fmt.Sprintf("%da", issue.AttachmentCount))
	}
	if issue.SubIssueCount > 0 {
		parts = append(parts, fmt.Sprintf("%ds", issue.SubIssueCount))
	}
	return strings.Join(parts, " ")
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When colors are enabled the message is rendered in dim gray and the hint is italic.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}

// RenderTable renders a list of issues as a formatted table.
func RenderTable(issues []model.Issue) string {
	if len(issues) == 0 {
		return EmptyState("No issues found.", "Create one with: gridline issue create", false)
	}

	if !ColorsEnabled() {
		return renderPlainTable(issues)
	}

	headers := []string{"ID", "Status", "Priority", "Title", "Assignee", "Counts", "Updated"}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, issueToRow(issue))
	}

	type rowColors struct {
		statusColor   string
		priorityColor string
	}
	colorMap := make([]rowColors, len(issues))
	for i, issue := range issues {
		colorMap[i] = rowColors{
			statusColor:   issue.Status.Color(),
			priorityColor: issue.Priority.Color(),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}

			if row < 0 || row >= len(colorMap) {
				return s
			}

			rc := colorMap[row]
			switch col {
			case 0: // ID
				return s.Foreground(lipgloss.Color("15"))
			case 1: // Status
				return s.Foreground(ColorFromName(rc.statusColor))
			case 2: // Priority
				return s.Foreground(ColorFromName(rc.priorityColor))
			case 3: // Title
				return s.Bold(true)
			case 5: // Counts
				return s.Foreground(lipgloss.Color("8"))
			default:
				return s
			}
		})

	return t.Render()
}

func issueToRow(issue model.Issue) []string {
	return []string{
		model.ShortID(issue.ID),
		statusLabel(issue.Status),
		fmt.Sprintf("%s %s", issue.Priority.Icon(), string(issue.Priority)),
		truncate(issue.Title, maxTitleWidth),
		issue.AssigneeID,
		countBadges(issue),
		humanize.Time(issue.UpdatedAt),
	}
}

func renderPlainTable(issues []model.Issue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-10s %-14s %-12s %-40s %-12s %-12s %s\n",
		"ID", "Status", "Priority", "Title", "Assignee", "Counts", "Updated")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 110))

	for _, issue := range issues {
		fmt.Fprintf(&b, "%-10s %-16s %-14s %-40s %-12s %-12s %s\n",
			model.ShortID(issue.ID),
			statusLabel(issue.Status),
			fmt.Sprintf("%s %s", issue.Priority.Icon(), string(issue.Priority)),
			truncate(issue.Title, maxTitleWidth),
			issue.AssigneeID,
			countBadges(issue),
			humanize.Time(issue.UpdatedAt),
		)
	}

	return b.String()
}

// RenderMemberTable renders project members with their roles.
func RenderMemberTable(members []model.Member) string {
	if len(members) == 0 {
		return EmptyState("No members found.", "", false)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-24s %-28s %-8s %s\n", "ID", "Name", "Email", "Role", "Joined")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 90))
	for _, m := range members {
		fmt.Fprintf(&b, "%-10s %-24s %-28s %-8s %s\n",
			model.ShortID(m.ID),
			truncate(m.DisplayName, 24),
			truncate(m.Email, 28),
			string(m.Role),
			humanize.Time(m.JoinedAt),
		)
	}
	return b.String()
}

// RenderPageTable renders project pages, marking private ones.
func RenderPageTable(pages []model.Page) string {
	if len(pages) == 0 {
		return EmptyState("No pages found.", "Create one with: gridline page create", false)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-40s %-8s %s\n", "ID", "Title", "Access", "Updated")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 80))
	for _, p := range pages {
		fmt.Fprintf(&b, "%-10s %-40s %-8s %s\n",
			model.ShortID(p.ID),
			truncate(p.Title, maxTitleWidth),
			string(p.Access),
			humanize.Time(p.UpdatedAt),
		)
	}
	return b.String()
}
