package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
)

var commentCmd = &cobra.Command{
	Use:     "comment",
	Short:   "Manage issue comments",
	Aliases: []string{"c"},
}

var commentAddCmd = &cobra.Command{
	Use:   "add <issue-id>",
	Short: "Add a comment to an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		message, _ := cmd.Flags().GetString("message")
		message, err := readBodyArg(message)
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		comment, err := sess.Issue(id).Comment(cmd.Context(), message)
		if err != nil {
			return cmdErr(fmt.Errorf("adding comment: %w", err), output.CodeForError(err))
		}

		w.Success(comment, fmt.Sprintf("Commented on %s", model.ShortID(id)))
		return nil
	},
}

var commentListCmd = &cobra.Command{
	Use:     "list <issue-id>",
	Short:   "List an issue's comments",
	Aliases: []string{"ls"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Detail.Comments.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching comments: %w", err), output.CodeForError(err))
		}
		comments, _ := sess.Detail.Comments.ByIssue(id)

		var message string
		if !w.JSONMode {
			if len(comments) == 0 {
				message = render.EmptyState("No comments", "Add one with 'gridline issue comment add'", w.QuietMode)
			} else {
				message = render.RenderCommentList(comments)
			}
		}
		w.Success(comments, message)
		return nil
	},
}

var commentEditCmd = &cobra.Command{
	Use:   "edit <issue-id> <comment-id>",
	Short: "Edit a comment's body",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		message, _ := cmd.Flags().GetString("message")
		message, err := readBodyArg(message)
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		// Update works against the locally held record.
		if err := sess.Detail.Comments.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching comments: %w", err), output.CodeForError(err))
		}

		comment, err := sess.Detail.Comments.Update(cmd.Context(), sess.Scope, id, args[1], message)
		if err != nil {
			return cmdErr(fmt.Errorf("updating comment: %w", err), output.CodeForError(err))
		}

		w.Success(comment, "Comment updated")
		return nil
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <issue-id> <comment-id>",
	Short: "Delete a comment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Detail.Comments.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching comments: %w", err), output.CodeForError(err))
		}

		if err := sess.Detail.Comments.Remove(cmd.Context(), sess.Scope, id, args[1]); err != nil {
			return cmdErr(fmt.Errorf("deleting comment: %w", err), output.CodeForError(err))
		}

		w.Success(deleteResult{ID: args[1]}, "Comment deleted")
		return nil
	},
}

func init() {
	commentAddCmd.Flags().StringP("message", "m", "", "Comment body (use \"-\" for stdin)")
	commentAddCmd.MarkFlagRequired("message")
	commentEditCmd.Flags().StringP("message", "m", "", "New comment body (use \"-\" for stdin)")
	commentEditCmd.MarkFlagRequired("message")

	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentListCmd)
	commentCmd.AddCommand(commentEditCmd)
	commentCmd.AddCommand(commentDeleteCmd)
	issueCmd.AddCommand(commentCmd)
}
