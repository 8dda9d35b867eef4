package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
)

var editCmd = &cobra.Command{
	Use:   "edit <issue-id>",
	Short: "Edit issue fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		fields := map[string]any{}
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			fields["title"] = title
		}
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			description, err := readBodyArg(description)
			if err != nil {
				return cmdErr(err, output.ErrGeneral)
			}
			fields["description"] = description
		}
		if cmd.Flags().Changed("status") {
			status, _ := cmd.Flags().GetString("status")
			if err := model.ValidateStatus(model.Status(status)); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
			fields["status"] = status
		}
		if cmd.Flags().Changed("priority") {
			priority, _ := cmd.Flags().GetString("priority")
			if err := model.ValidatePriority(model.Priority(priority)); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
			fields["priority"] = priority
		}
		if cmd.Flags().Changed("assignee") {
			assignee, _ := cmd.Flags().GetString("assignee")
			fields["assignee_id"] = assignee
		}
		if cmd.Flags().Changed("parent") {
			parent, _ := cmd.Flags().GetString("parent")
			if parent != "" {
				parentID, err := resolveIssueID(cmd, sess, parent)
				if err != nil {
					return cmdErr(fmt.Errorf("invalid parent: %w", err), output.CodeForError(err))
				}
				parent = parentID
			}
			fields["parent_id"] = parent
		}

		if len(fields) == 0 {
			return cmdErr(fmt.Errorf("no fields to update, pass at least one flag"), output.ErrValidation)
		}

		// Update needs the current record locally for the optimistic patch
		// and its rollback snapshot.
		if _, err := sess.Issues.FetchOne(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching issue: %w", err), output.CodeForError(err))
		}

		updated, err := sess.Issues.Update(cmd.Context(), sess.Scope, id, fields)
		if err != nil {
			return cmdErr(fmt.Errorf("updating issue: %w", err), output.CodeForError(err))
		}

		w.Success(updated, fmt.Sprintf("Updated %s: %s", model.ShortID(updated.ID), updated.Title))
		return nil
	},
}

func init() {
	editCmd.Flags().StringP("title", "t", "", "New title")
	editCmd.Flags().StringP("description", "d", "", "New description (use \"-\" for stdin)")
	editCmd.Flags().StringP("status", "s", "", "New status")
	editCmd.Flags().StringP("priority", "p", "", "New priority")
	editCmd.Flags().StringP("assignee", "a", "", "New assignee member id (empty to clear)")
	editCmd.Flags().String("parent", "", "New parent issue id (empty to detach)")
	issueCmd.AddCommand(editCmd)
}
