package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
	"github.com/gridline-app/gridline/internal/service"
)

type listResult struct {
	Issues []model.Issue `json:"issues"`
	Total  int           `json:"total"`
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List issues",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		statuses, _ := cmd.Flags().GetStringSlice("status")
		priorities, _ := cmd.Flags().GetStringSlice("priority")
		labels, _ := cmd.Flags().GetStringSlice("label")
		assignee, _ := cmd.Flags().GetString("assignee")
		parent, _ := cmd.Flags().GetString("parent")
		rootsOnly, _ := cmd.Flags().GetBool("roots")
		boardMode, _ := cmd.Flags().GetBool("board")
		sortFlag, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		all, _ := cmd.Flags().GetBool("all")

		for _, s := range statuses {
			if err := model.ValidateStatus(model.Status(s)); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}
		for _, p := range priorities {
			if err := model.ValidatePriority(model.Priority(p)); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}

		f := service.IssueFilter{
			Statuses:    statuses,
			Priorities:  priorities,
			Labels:      labels,
			AssigneeID:  assignee,
			RootsOnly:   rootsOnly,
			IncludeDone: all || boardMode,
			Limit:       limit,
			Offset:      offset,
		}

		if parent != "" {
			parentID, err := resolveIssueID(cmd, sess, parent)
			if err != nil {
				return cmdErr(fmt.Errorf("invalid parent: %w", err), output.CodeForError(err))
			}
			f.ParentID = parentID
		}

		// --sort takes field:direction, e.g. priority:asc.
		if sortFlag != "" {
			parts := strings.SplitN(sortFlag, ":", 2)
			f.Sort = parts[0]
			if len(parts) > 1 {
				f.SortDir = parts[1]
			}
		}

		total, err := sess.Issues.Fetch(cmd.Context(), sess.Scope, f)
		if err != nil {
			return cmdErr(fmt.Errorf("listing issues: %w", err), output.CodeForError(err))
		}
		issues, _ := sess.Issues.ByProject(sess.Scope.Project)

		var message string
		if !w.JSONMode {
			switch {
			case len(issues) == 0:
				message = render.EmptyState("No issues found", "Create one with 'gridline issue create'", w.QuietMode)
			case boardMode:
				message = render.RenderBoard(issues, render.BoardOptions{Progress: subIssueProgress(issues)})
			default:
				message = render.RenderTable(issues)
			}
		}
		w.Success(listResult{Issues: issues, Total: total}, message)
		return nil
	},
}

// subIssueProgress tallies done/total sub-issue counts for every parent
// present in the result set.
func subIssueProgress(issues []model.Issue) map[string]render.SubIssueProgress {
	progress := make(map[string]render.SubIssueProgress)
	for _, issue := range issues {
		if issue.ParentID == "" {
			continue
		}
		p := progress[issue.ParentID]
		p.Total++
		if issue.Status == model.StatusDone {
			p.Done++
		}
		progress[issue.ParentID] = p
	}
	return progress
}

func init() {
	listCmd.Flags().StringSliceP("status", "s", nil, "Filter by status (repeatable)")
	listCmd.Flags().StringSliceP("priority", "p", nil, "Filter by priority (repeatable)")
	listCmd.Flags().StringSliceP("label", "l", nil, "Filter by label (repeatable)")
	listCmd.Flags().StringP("assignee", "a", "", "Filter by assignee member id")
	listCmd.Flags().String("parent", "", "Filter by parent issue id")
	listCmd.Flags().Bool("roots", false, "Only show root issues (no parent)")
	listCmd.Flags().Bool("board", false, "Display as a kanban board")
	listCmd.Flags().String("sort", "", "Sort by field:direction (e.g. priority:asc)")
	listCmd.Flags().Int("limit", 50, "Maximum number of results")
	listCmd.Flags().Int("offset", 0, "Skip this many results")
	listCmd.Flags().Bool("all", false, "Include done issues")
	issueCmd.AddCommand(listCmd)
}
