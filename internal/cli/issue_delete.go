package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
)

type deleteResult struct {
	ID string `json:"id"`
}

var deleteCmd = &cobra.Command{
	Use:   "delete <issue-id>",
	Short: "Delete an issue and its nested records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		force, _ := cmd.Flags().GetBool("force")

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		issue, err := sess.Issues.FetchOne(cmd.Context(), sess.Scope, id)
		if err != nil {
			return cmdErr(fmt.Errorf("fetching issue: %w", err), output.CodeForError(err))
		}

		// Deleting cascades to sub-issues, comments, and the rest of the
		// issue's records; confirm unless forced or scripted.
		if !force && !w.JSONMode {
			var confirmed bool
			prompt := fmt.Sprintf("Delete %s: %s?", model.ShortID(id), issue.Title)
			if issue.SubIssueCount > 0 {
				prompt = fmt.Sprintf("Delete %s: %s and its %d sub-issue(s)?",
					model.ShortID(id), issue.Title, issue.SubIssueCount)
			}
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().Title(prompt).Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				return cmdErr(fmt.Errorf("confirmation failed: %w", err), output.ErrGeneral)
			}
			if !confirmed {
				w.Info("Cancelled.")
				return nil
			}
		}

		if err := sess.Issues.Remove(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("deleting issue: %w", err), output.CodeForError(err))
		}

		w.Success(deleteResult{ID: id}, fmt.Sprintf("Deleted %s: %s", model.ShortID(id), issue.Title))
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")
	issueCmd.AddCommand(deleteCmd)
}
