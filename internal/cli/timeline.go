package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
	"github.com/gridline-app/gridline/internal/schedule"
	"github.com/gridline-app/gridline/internal/service"
	"github.com/gridline-app/gridline/internal/store"
)

const dateLayout = "2006-01-02"

var timelineCmd = &cobra.Command{
	Use:     "timeline",
	Short:   "View and arrange the project timeline",
	Aliases: []string{"tl"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		blocks, titles, err := loadTimeline(cmd, sess)
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		var message string
		if !w.JSONMode {
			if len(blocks) == 0 {
				message = render.EmptyState("No issues to schedule", "Create one with 'gridline issue create'", w.QuietMode)
			} else {
				message = render.RenderTimeline(blocks, titles)
			}
		}
		w.Success(blocks, message)
		return nil
	},
}

var timelineSetCmd = &cobra.Command{
	Use:   "set <issue-id>",
	Short: "Set an issue's scheduled date range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		startFlag, _ := cmd.Flags().GetString("start")
		targetFlag, _ := cmd.Flags().GetString("target")

		var start, target time.Time
		var err error
		if startFlag != "" {
			if start, err = time.Parse(dateLayout, startFlag); err != nil {
				return cmdErr(fmt.Errorf("invalid start date %q, want YYYY-MM-DD", startFlag), output.ErrValidation)
			}
		}
		if targetFlag != "" {
			if target, err = time.Parse(dateLayout, targetFlag); err != nil {
				return cmdErr(fmt.Errorf("invalid target date %q, want YYYY-MM-DD", targetFlag), output.ErrValidation)
			}
		}

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		// Blocks must be loaded for the optimistic patch; the block id is
		// the issue id.
		if err := sess.Gantt.Fetch(cmd.Context(), sess.Scope); err != nil {
			return cmdErr(fmt.Errorf("fetching timeline: %w", err), output.CodeForError(err))
		}

		block, err := sess.Gantt.UpdateDates(cmd.Context(), sess.Scope, id, start, target)
		if err != nil {
			return cmdErr(fmt.Errorf("scheduling issue: %w", err), output.CodeForError(err))
		}

		w.Success(block, fmt.Sprintf("Scheduled %s", model.ShortID(id)))
		return nil
	},
}

var timelineMoveCmd = &cobra.Command{
	Use:   "move <issue-id> <position>",
	Short: "Move an issue to a new position in the timeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		pos, err := strconv.Atoi(args[1])
		if err != nil || pos < 0 {
			return cmdErr(fmt.Errorf("invalid position %q", args[1]), output.ErrValidation)
		}

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Gantt.Fetch(cmd.Context(), sess.Scope); err != nil {
			return cmdErr(fmt.Errorf("fetching timeline: %w", err), output.CodeForError(err))
		}

		if err := sess.Gantt.Move(cmd.Context(), sess.Scope, id, pos); err != nil {
			return cmdErr(fmt.Errorf("moving issue: %w", err), output.CodeForError(err))
		}

		block, _ := sess.Gantt.Get(id)
		w.Success(block, fmt.Sprintf("Moved %s to position %d", model.ShortID(id), pos))
		return nil
	},
}

type planPhase struct {
	Number int           `json:"number"`
	Issues []model.Issue `json:"issues"`
}

type planResult struct {
	Phases         []planPhase `json:"phases"`
	TotalIssues    int         `json:"total_issues"`
	TotalPhases    int         `json:"total_phases"`
	MaxParallelism int         `json:"max_parallelism"`
}

var timelinePlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Propose an execution order from blocking relations",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		statuses, _ := cmd.Flags().GetStringSlice("status")
		labels, _ := cmd.Flags().GetStringSlice("label")

		g, err := loadGraph(cmd, sess)
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		plan, err := schedule.GeneratePlan(g, schedule.PlanFilters{Statuses: statuses, Labels: labels})
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		result := planResult{
			TotalIssues:    plan.TotalIssues,
			TotalPhases:    plan.TotalPhases,
			MaxParallelism: plan.MaxParallelism,
		}
		for _, p := range plan.Phases {
			result.Phases = append(result.Phases, planPhase{Number: p.Number, Issues: p.Issues})
		}

		var message string
		if !w.JSONMode {
			if plan.TotalIssues == 0 {
				message = render.EmptyState("Nothing to plan", "", w.QuietMode)
			} else {
				message = renderPlan(plan)
			}
		}
		w.Success(result, message)
		return nil
	},
}

var timelineNextCmd = &cobra.Command{
	Use:   "next",
	Short: "List issues that are ready to start",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		statuses, _ := cmd.Flags().GetStringSlice("status")

		g, err := loadGraph(cmd, sess)
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		ready := schedule.FindReady(g, statuses)

		var message string
		if !w.JSONMode {
			if len(ready) == 0 {
				message = render.EmptyState("Nothing is ready", "Issues may be blocked or already in flight", w.QuietMode)
			} else {
				message = render.RenderTable(ready)
			}
		}
		w.Success(ready, message)
		return nil
	},
}

// loadTimeline fetches the project's blocks and a block-id-to-title map.
func loadTimeline(cmd *cobra.Command, sess *store.Session) ([]model.GanttBlock, map[string]string, error) {
	ctx := cmd.Context()
	if err := sess.Gantt.Fetch(ctx, sess.Scope); err != nil {
		return nil, nil, fmt.Errorf("fetching timeline: %w", err)
	}
	if _, err := sess.Issues.Fetch(ctx, sess.Scope, service.IssueFilter{IncludeDone: true}); err != nil {
		return nil, nil, fmt.Errorf("fetching issues: %w", err)
	}

	blocks, _ := sess.Gantt.Blocks(sess.Scope.Project)
	issues, _ := sess.Issues.ByProject(sess.Scope.Project)

	titles := make(map[string]string, len(issues))
	for _, issue := range issues {
		titles[issue.ID] = issue.Title
	}
	return blocks, titles, nil
}

// loadGraph fetches every issue and its relations and builds the
// dependency graph.
func loadGraph(cmd *cobra.Command, sess *store.Session) (*schedule.Graph, error) {
	ctx := cmd.Context()
	if _, err := sess.Issues.Fetch(ctx, sess.Scope, service.IssueFilter{IncludeDone: true}); err != nil {
		return nil, fmt.Errorf("fetching issues: %w", err)
	}
	issues, _ := sess.Issues.ByProject(sess.Scope.Project)

	seen := make(map[string]struct{})
	var relations []model.Relation
	for _, issue := range issues {
		if err := sess.Detail.Relations.Fetch(ctx, sess.Scope, issue.ID); err != nil {
			return nil, fmt.Errorf("fetching relations: %w", err)
		}
		recs, _ := sess.Detail.Relations.ByIssue(issue.ID)
		for _, rel := range recs {
			if _, ok := seen[rel.ID]; ok {
				continue
			}
			seen[rel.ID] = struct{}{}
			relations = append(relations, rel)
		}
	}

	return schedule.BuildGraph(issues, relations), nil
}

func renderPlan(plan *schedule.Plan) string {
	colors := render.ColorsEnabled()
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var b strings.Builder
	for i, phase := range plan.Phases {
		if i > 0 {
			b.WriteString("\n")
		}
		header := fmt.Sprintf("Phase %d (%d issue(s))", phase.Number, len(phase.Issues))
		if colors {
			header = headerStyle.Render(header)
		}
		b.WriteString(header + "\n")
		for _, issue := range phase.Issues {
			line := fmt.Sprintf("  %s %s %s [%s]",
				issue.Priority.Icon(), model.ShortID(issue.ID), issue.Title, string(issue.Status))
			b.WriteString(line + "\n")
		}
	}

	summary := fmt.Sprintf("%d issue(s) across %d phase(s), up to %d in parallel",
		plan.TotalIssues, plan.TotalPhases, plan.MaxParallelism)
	if colors {
		summary = dimStyle.Render(summary)
	}
	b.WriteString("\n" + summary)
	return b.String()
}

func init() {
	timelineSetCmd.Flags().String("start", "", "Start date (YYYY-MM-DD, empty clears)")
	timelineSetCmd.Flags().String("target", "", "Target date (YYYY-MM-DD, empty clears)")
	timelinePlanCmd.Flags().StringSliceP("status", "s", nil, "Filter by status (repeatable)")
	timelinePlanCmd.Flags().StringSliceP("label", "l", nil, "Filter by label (repeatable)")
	timelineNextCmd.Flags().StringSliceP("status", "s", nil, "Ready statuses (default: backlog, todo)")

	timelineCmd.AddCommand(timelineSetCmd)
	timelineCmd.AddCommand(timelineMoveCmd)
	timelineCmd.AddCommand(timelinePlanCmd)
	timelineCmd.AddCommand(timelineNextCmd)
	rootCmd.AddCommand(timelineCmd)
}
