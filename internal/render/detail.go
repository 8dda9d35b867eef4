package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"

	"github.com/gridline-app/gridline/internal/model"
)

// DetailData bundles everything the issue detail view shows.
type DetailData struct {
	Issue       model.Issue        `json:"issue"`
	Comments    []model.Comment    `json:"comments,omitempty"`
	Reactions   []model.Reaction   `json:"reactions,omitempty"`
	Links       []model.Link       `json:"links,omitempty"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
	Relations   []model.Relation   `json:"relations,omitempty"`
	Activity    []model.Activity   `json:"activity,omitempty"`
	Subscribed  bool               `json:"subscribed"`
}

// RenderDetail renders a full issue detail view including metadata,
// description, reactions, links, attachments, relations, comments, and
// recent activity.
func RenderDetail(d DetailData) string {
	if !ColorsEnabled() {
		return renderPlainDetail(d)
	}

	var sections []string

	sections = append(sections, renderHeader(d.Issue, d.Subscribed))
	sections = append(sections, renderMetadata(d.Issue))

	if d.Issue.Description != "" {
		sections = append(sections, renderDescription(d.Issue.Description))
	}
	if len(d.Reactions) > 0 {
		sections = append(sections, renderReactions(d.Reactions))
	}
	if len(d.Links) > 0 {
		sections = append(sections, renderLinks(d.Links))
	}
	if len(d.Attachments) > 0 {
		sections = append(sections, renderAttachments(d.Attachments))
	}
	if len(d.Relations) > 0 {
		sections = append(sections, renderRelations(d.Issue.ID, d.Relations))
	}
	if len(d.Comments) > 0 {
		sections = append(sections, renderComments(d.Comments))
	}
	if len(d.Activity) > 0 {
		sections = append(sections, renderActivity(d.Activity))
	}

	return strings.Join(sections, "\n\n")
}

func renderHeader(issue model.Issue, subscribed bool) string {
	idStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	titleStyle := lipgloss.NewStyle().Bold(true)
	statusStyle := lipgloss.NewStyle().
		Foreground(ColorFromName(issue.Status.Color())).
		Bold(true)
	priorityStyle := lipgloss.NewStyle().
		Foreground(ColorFromName(issue.Priority.Color())).
		Bold(true)

	bell := ""
	if subscribed {
		bell = "  " + lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render("🔔")
	}

	return fmt.Sprintf("%s  %s%s\n%s  %s",
		idStyle.Render(model.ShortID(issue.ID)),
		titleStyle.Render(issue.Title),
		bell,
		statusStyle.Render(statusLabel(issue.Status)),
		priorityStyle.Render(fmt.Sprintf("%s %s", issue.Priority.Icon(), string(issue.Priority))),
	)
}

func renderMetadata(issue model.Issue) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var lines []string

	if issue.AssigneeID != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Assignee:"), model.ShortID(issue.AssigneeID)))
	}
	if len(issue.Labels) > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Labels:"), strings.Join(issue.Labels, ", ")))
	}
	if issue.ParentID != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Parent:"), model.ShortID(issue.ParentID)))
	}
	if issue.SubIssueCount > 0 {
		lines = append(lines, fmt.Sprintf("%s %d", labelStyle.Render("Sub-issues:"), issue.SubIssueCount))
	}
	if !issue.StartDate.IsZero() || !issue.TargetDate.IsZero() {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Schedule:"), formatDateRange(issue.StartDate, issue.TargetDate)))
	}

	lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Created:"), humanize.Time(issue.CreatedAt)))
	lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Updated:"), humanize.Time(issue.UpdatedAt)))

	return strings.Join(lines, "\n")
}

func renderDescription(description string) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	header := sectionStyle.Render("Description")

	rendered, err := RenderMarkdown(description)
	if err != nil {
		rendered = description
	}

	return header + "\n" + rendered
}

// groupReactions collapses reactions into emoji counts, sorted by emoji so
// the line is stable across renders.
func groupReactions(reactions []model.Reaction) []string {
	counts := make(map[string]int)
	for _, r := range reactions {
		counts[r.Emoji]++
	}
	emojis := make([]string, 0, len(counts))
	for e := range counts {
		emojis = append(emojis, e)
	}
	sort.Strings(emojis)

	parts := make([]string, 0, len(emojis))
	for _, e := range emojis {
		parts = append(parts, fmt.Sprintf("%s %d", e, counts[e]))
	}
	return parts
}

func renderReactions(reactions []model.Reaction) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	return sectionStyle.Render("Reactions") + "\n  " + strings.Join(groupReactions(reactions), "   ")
}

func renderLinks(links []model.Link) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	urlStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)

	var lines []string
	for _, l := range links {
		if l.Title != "" {
			lines = append(lines, fmt.Sprintf("  %s  %s", l.Title, urlStyle.Render(l.URL)))
		} else {
			lines = append(lines, "  "+urlStyle.Render(l.URL))
		}
	}
	return sectionStyle.Render("Links") + "\n" + strings.Join(lines, "\n")
}

func renderAttachments(attachments []model.Attachment) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var lines []string
	for _, a := range attachments {
		lines = append(lines, fmt.Sprintf("  📎 %s  %s",
			a.FileName,
			dimStyle.Render(humanize.Bytes(uint64(a.Size))),
		))
	}
	return sectionStyle.Render("Attachments") + "\n" + strings.Join(lines, "\n")
}

// RelationArrow returns a directional arrow for a relation type as seen
// from the viewing issue's side.
func RelationArrow(rt model.RelationType) string {
	switch rt {
	case model.RelationBlocks:
		return "→"
	case model.RelationBlockedBy:
		return "←"
	case model.RelationRelatesTo:
		return "↔"
	case model.RelationDuplicates:
		return "≡"
	default:
		return "→"
	}
}

// RelationColor returns a color name for the given relation type.
func RelationColor(rt model.RelationType) string {
	switch rt {
	case model.RelationBlocks:
		return "red"
	case model.RelationBlockedBy:
		return "yellow"
	case model.RelationRelatesTo:
		return "blue"
	case model.RelationDuplicates:
		return "gray"
	default:
		return "white"
	}
}

func renderRelations(issueID string, relations []model.Relation) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	header := sectionStyle.Render("Relations")

	var lines []string
	for _, rel := range relations {
		rt, otherID := rel.TypeFor(issueID)
		typeStyle := lipgloss.NewStyle().Foreground(ColorFromName(RelationColor(rt)))
		lines = append(lines, fmt.Sprintf("  %s %s %s",
			RelationArrow(rt),
			typeStyle.Render(string(rt)),
			model.ShortID(otherID),
		))
	}

	return header + "\n" + strings.Join(lines, "\n")
}

// RenderCommentList renders a styled comment list. Exported for reuse by the
// comment list CLI command.
func RenderCommentList(comments []model.Comment) string {
	return renderComments(comments)
}

func renderComments(comments []model.Comment) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	authorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	header := sectionStyle.Render("Comments")

	var parts []string
	for _, c := range comments {
		body, err := RenderMarkdown(c.Body)
		if err != nil {
			body = c.Body
		}

		author := c.AuthorID
		if author == "" {
			author = "anonymous"
		}
		commentHeader := fmt.Sprintf("%s  %s",
			authorStyle.Render(model.ShortID(author)),
			timeStyle.Render(humanize.Time(c.CreatedAt)),
		)

		parts = append(parts, commentHeader+"\n"+body)
	}

	return header + "\n" + strings.Join(parts, "\n\n")
}

// activityIcon returns a semantic icon for an activity entry.
func activityIcon(a model.Activity) string {
	if a.FieldChanged == "created" {
		return "✨"
	}
	if a.FieldChanged == "status" {
		if a.NewValue != "" {
			return model.Status(a.NewValue).Icon()
		}
		return "○"
	}
	return "✎"
}

func activityDetail(a model.Activity) string {
	switch {
	case a.OldValue != "" && a.NewValue != "":
		return fmt.Sprintf("%s -> %s", a.OldValue, a.NewValue)
	case a.NewValue != "":
		return fmt.Sprintf("added %s", a.NewValue)
	case a.OldValue != "":
		return fmt.Sprintf("removed %s", a.OldValue)
	default:
		return ""
	}
}

func renderActivity(activity []model.Activity) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	fieldStyle := lipgloss.NewStyle().Bold(true)
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	header := sectionStyle.Render("Activity")

	var lines []string
	for _, a := range activity {
		icon := activityIcon(a)
		var line string
		if a.FieldChanged == "created" {
			line = fmt.Sprintf("  %s Issue created  %s",
				icon,
				timeStyle.Render(humanize.Time(a.CreatedAt)),
			)
		} else {
			actor := a.ActorID
			if actor == "" {
				actor = "system"
			}
			line = fmt.Sprintf("  %s %s changed %s: %s  %s",
				icon,
				model.ShortID(actor),
				fieldStyle.Render(a.FieldChanged),
				activityDetail(a),
				timeStyle.Render(humanize.Time(a.CreatedAt)),
			)
		}
		lines = append(lines, line)
	}

	return header + "\n" + strings.Join(lines, "\n")
}

// formatDateRange renders a schedule like "2026-03-02 .. 2026-03-09",
// leaving either end open when the date is unset.
func formatDateRange(start, target time.Time) string {
	const layout = "2006-01-02"
	switch {
	case start.IsZero():
		return ".. " + target.Format(layout)
	case target.IsZero():
		return start.Format(layout) + " .."
	default:
		return start.Format(layout) + " .. " + target.Format(layout)
	}
}

// renderPlainDetail renders a detail view without any color or styling.
func renderPlainDetail(d DetailData) string {
	issue := d.Issue
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s", model.ShortID(issue.ID), issue.Title)
	if d.Subscribed {
		b.WriteString("  [subscribed]")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s %s\n", statusLabel(issue.Status), issue.Priority.Icon(), string(issue.Priority))

	b.WriteString("\n")
	if issue.AssigneeID != "" {
		fmt.Fprintf(&b, "Assignee: %s\n", model.ShortID(issue.AssigneeID))
	}
	if len(issue.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(issue.Labels, ", "))
	}
	if issue.ParentID != "" {
		fmt.Fprintf(&b, "Parent: %s\n", model.ShortID(issue.ParentID))
	}
	if issue.SubIssueCount > 0 {
		fmt.Fprintf(&b, "Sub-issues: %d\n", issue.SubIssueCount)
	}
	fmt.Fprintf(&b, "Created: %s\n", humanize.Time(issue.CreatedAt))
	fmt.Fprintf(&b, "Updated: %s\n", humanize.Time(issue.UpdatedAt))

	if issue.Description != "" {
		fmt.Fprintf(&b, "\nDescription\n%s\n", issue.Description)
	}

	if len(d.Reactions) > 0 {
		fmt.Fprintf(&b, "\nReactions\n  %s\n", strings.Join(groupReactions(d.Reactions), "   "))
	}

	if len(d.Links) > 0 {
		b.WriteString("\nLinks\n")
		for _, l := range d.Links {
			if l.Title != "" {
				fmt.Fprintf(&b, "  %s  %s\n", l.Title, l.URL)
			} else {
				fmt.Fprintf(&b, "  %s\n", l.URL)
			}
		}
	}

	if len(d.Attachments) > 0 {
		b.WriteString("\nAttachments\n")
		for _, a := range d.Attachments {
			fmt.Fprintf(&b, "  %s  %s\n", a.FileName, humanize.Bytes(uint64(a.Size)))
		}
	}

	if len(d.Relations) > 0 {
		b.WriteString("\nRelations\n")
		for _, rel := range d.Relations {
			rt, otherID := rel.TypeFor(issue.ID)
			fmt.Fprintf(&b, "  %s %s %s\n", RelationArrow(rt), string(rt), model.ShortID(otherID))
		}
	}

	if len(d.Comments) > 0 {
		b.WriteString("\nComments\n")
		for _, c := range d.Comments {
			author := c.AuthorID
			if author == "" {
				author = "anonymous"
			}
			fmt.Fprintf(&b, "  %s  %s\n  %s\n\n", model.ShortID(author), humanize.Time(c.CreatedAt), c.Body)
		}
	}

	if len(d.Activity) > 0 {
		b.WriteString("\nActivity\n")
		for _, a := range d.Activity {
			icon := activityIcon(a)
			if a.FieldChanged == "created" {
				fmt.Fprintf(&b, "  %s Issue created  %s\n", icon, humanize.Time(a.CreatedAt))
			} else {
				actor := a.ActorID
				if actor == "" {
					actor = "system"
				}
				fmt.Fprintf(&b, "  %s %s changed %s: %s  %s\n",
					icon, model.ShortID(actor), a.FieldChanged, activityDetail(a), humanize.Time(a.CreatedAt))
			}
		}
	}

	return b.String()
}
