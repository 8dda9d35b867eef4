package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
	"github.com/gridline-app/gridline/internal/service"
	"github.com/spf13/cobra"
)

type labelStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type statsResult struct {
	Total      int            `json:"total"`
	RootIssues int            `json:"root_issues"`
	SubIssues  int            `json:"sub_issues"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	Labels     []labelStat    `json:"labels"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show summary statistics for the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		if _, err := sess.Issues.Fetch(cmd.Context(), sess.Scope, service.IssueFilter{IncludeDone: true}); err != nil {
			return cmdErr(fmt.Errorf("fetching issues: %w", err), output.CodeForError(err))
		}
		issues, _ := sess.Issues.ByProject(sess.Scope.Project)

		result := statsResult{
			Total:      len(issues),
			ByStatus:   make(map[string]int),
			ByPriority: make(map[string]int),
		}
		labelCounts := make(map[string]int)
		for _, issue := range issues {
			if issue.ParentID == "" {
				result.RootIssues++
			}
			result.ByStatus[string(issue.Status)]++
			result.ByPriority[string(issue.Priority)]++
			for _, l := range issue.Labels {
				labelCounts[l]++
			}
		}
		result.SubIssues = result.Total - result.RootIssues

		names := make([]string, 0, len(labelCounts))
		for name := range labelCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			result.Labels = append(result.Labels, labelStat{Name: name, Count: labelCounts[name]})
		}

		var message string
		if !w.JSONMode {
			message = renderStats(result)
		}
		w.Success(result, message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// renderStats renders the stats result as a styled human-readable string.
func renderStats(s statsResult) string {
	if !render.ColorsEnabled() {
		return renderPlainStats(s)
	}

	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle := lipgloss.NewStyle().Bold(true)

	var sections []string

	overviewLines := []string{
		sectionStyle.Render("Overview"),
		fmt.Sprintf("  %s %s", labelStyle.Render("Total issues:"), valueStyle.Render(fmt.Sprintf("%d", s.Total))),
		fmt.Sprintf("  %s %s", labelStyle.Render("Root issues:"), valueStyle.Render(fmt.Sprintf("%d", s.RootIssues))),
		fmt.Sprintf("  %s %s", labelStyle.Render("Sub-issues:"), valueStyle.Render(fmt.Sprintf("%d", s.SubIssues))),
	}
	sections = append(sections, strings.Join(overviewLines, "\n"))

	statusLines := []string{sectionStyle.Render("By Status")}
	for _, status := range render.StatusOrder {
		count := s.ByStatus[string(status)]
		countStyle := lipgloss.NewStyle().Bold(true).Foreground(render.ColorFromName(status.Color()))
		statusLines = append(statusLines,
			fmt.Sprintf("  %s %s", labelStyle.Render(fmt.Sprintf("%-14s", string(status)+":")), countStyle.Render(fmt.Sprintf("%d", count))),
		)
	}
	sections = append(sections, strings.Join(statusLines, "\n"))

	priorityLines := []string{sectionStyle.Render("By Priority")}
	for _, priority := range render.PriorityOrder {
		count := s.ByPriority[string(priority)]
		countStyle := lipgloss.NewStyle().Bold(true).Foreground(render.ColorFromName(priority.Color()))
		priorityLines = append(priorityLines,
			fmt.Sprintf("  %s %s", labelStyle.Render(fmt.Sprintf("%-14s", string(priority)+":")), countStyle.Render(fmt.Sprintf("%d", count))),
		)
	}
	sections = append(sections, strings.Join(priorityLines, "\n"))

	labelLines := []string{sectionStyle.Render("Labels")}
	if len(s.Labels) == 0 {
		labelLines = append(labelLines, fmt.Sprintf("  %s", labelStyle.Render("(none)")))
	} else {
		for _, l := range s.Labels {
			labelLines = append(labelLines,
				fmt.Sprintf("  %s %s", labelStyle.Render(fmt.Sprintf("%-20s", l.Name+":")), valueStyle.Render(fmt.Sprintf("%d", l.Count))),
			)
		}
	}
	sections = append(sections, strings.Join(labelLines, "\n"))

	return strings.Join(sections, "\n\n")
}

// renderPlainStats renders the stats result as plain text without styling.
func renderPlainStats(s statsResult) string {
	var b strings.Builder

	b.WriteString("Overview\n")
	fmt.Fprintf(&b, "  Total issues:  %d\n", s.Total)
	fmt.Fprintf(&b, "  Root issues:   %d\n", s.RootIssues)
	fmt.Fprintf(&b, "  Sub-issues:    %d\n", s.SubIssues)

	b.WriteString("\nBy Status\n")
	for _, status := range render.StatusOrder {
		fmt.Fprintf(&b, "  %-14s %d\n", string(status)+":", s.ByStatus[string(status)])
	}

	b.WriteString("\nBy Priority\n")
	for _, priority := range render.PriorityOrder {
		fmt.Fprintf(&b, "  %-14s %d\n", string(priority)+":", s.ByPriority[string(priority)])
	}

	b.WriteString("\nLabels\n")
	if len(s.Labels) == 0 {
		b.WriteString("  (none)\n")
	} else {
		for _, l := range s.Labels {
			fmt.Fprintf(&b, "  %-20s %d\n", l.Name+":", l.Count)
		}
	}

	return b.String()
}
