package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
)

var reactCmd = &cobra.Command{
	Use:   "react <issue-id> <emoji>",
	Short: "Toggle an emoji reaction on an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		remove, _ := cmd.Flags().GetBool("remove")
		emoji := args[1]

		if err := model.ValidateEmoji(emoji); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		// Load current reactions first so re-reacting with an emoji the
		// member already used stays a silent no-op.
		if err := sess.Detail.Reactions.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching reactions: %w", err), output.CodeForError(err))
		}

		handle := sess.Issue(id)
		if remove {
			if err := handle.Unreact(cmd.Context(), emoji); err != nil {
				return cmdErr(fmt.Errorf("removing reaction: %w", err), output.CodeForError(err))
			}
			w.Success(deleteResult{ID: id}, fmt.Sprintf("Removed %s from %s", emoji, model.ShortID(id)))
			return nil
		}

		reaction, err := handle.React(cmd.Context(), emoji)
		if err != nil {
			return cmdErr(fmt.Errorf("adding reaction: %w", err), output.CodeForError(err))
		}
		w.Success(reaction, fmt.Sprintf("Reacted %s to %s", emoji, model.ShortID(id)))
		return nil
	},
}

func init() {
	reactCmd.Flags().Bool("remove", false, "Remove the reaction instead of adding it")
	issueCmd.AddCommand(reactCmd)
}
