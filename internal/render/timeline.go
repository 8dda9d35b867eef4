package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gridline-app/gridline/internal/model"
)

const timelineBarWidth = 40

// RenderTimeline renders timeline blocks in their sort order as horizontal
// bars positioned within the project's overall date window. titles maps an
// issue id to its display title; unknown ids fall back to the short id.
func RenderTimeline(blocks []model.GanttBlock, titles map[string]string) string {
	if len(blocks) == 0 {
		return EmptyState("No timeline blocks.", "Schedule an issue with: gridline timeline set", false)
	}

	windowStart, windowEnd := timelineWindow(blocks)

	var b strings.Builder
	for _, block := range blocks {
		title := titles[block.IssueID]
		if title == "" {
			title = model.ShortID(block.IssueID)
		}

		label := fmt.Sprintf("%-10s %-24s", model.ShortID(block.ID), truncate(title, 24))
		if block.StartDate.IsZero() && block.TargetDate.IsZero() {
			fmt.Fprintf(&b, "%s %s\n", label, dim("unscheduled"))
			continue
		}

		bar := timelineBar(block, windowStart, windowEnd)
		fmt.Fprintf(&b, "%s %s %s\n", label, bar, formatDateRange(block.StartDate, block.TargetDate))
	}
	return b.String()
}

// timelineWindow returns the earliest and latest dates across all dated
// blocks, defining the horizontal extent of the chart.
func timelineWindow(blocks []model.GanttBlock) (time.Time, time.Time) {
	var start, end time.Time
	for _, block := range blocks {
		for _, d := range []time.Time{block.StartDate, block.TargetDate} {
			if d.IsZero() {
				continue
			}
			if start.IsZero() || d.Before(start) {
				start = d
			}
			if end.IsZero() || d.After(end) {
				end = d
			}
		}
	}
	return start, end
}

func timelineBar(block model.GanttBlock, windowStart, windowEnd time.Time) string {
	window := windowEnd.Sub(windowStart)
	if window <= 0 {
		return strings.Repeat("█", timelineBarWidth)
	}

	start := block.StartDate
	if start.IsZero() {
		start = windowStart
	}
	end := block.TargetDate
	if end.IsZero() {
		end = start
	}

	offset := int(float64(timelineBarWidth) * float64(start.Sub(windowStart)) / float64(window))
	length := int(float64(timelineBarWidth) * float64(end.Sub(start)) / float64(window))
	if length < 1 {
		length = 1
	}
	if offset+length > timelineBarWidth {
		length = timelineBarWidth - offset
	}
	if length < 1 {
		offset = timelineBarWidth - 1
		length = 1
	}

	bar := strings.Repeat("·", offset) +
		strings.Repeat("█", length) +
		strings.Repeat("·", timelineBarWidth-offset-length)
	if ColorsEnabled() {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Render(bar)
	}
	return bar
}

func dim(s string) string {
	if ColorsEnabled() {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(s)
	}
	return s
}
