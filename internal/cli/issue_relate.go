package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
)

var relateCmd = &cobra.Command{
	Use:   "relate <issue-id> <type> <other-issue-id>",
	Short: "Relate an issue to another (blocks, blocked_by, relates_to, duplicates)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		typ, err := model.ParseRelationType(args[1])
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}
		otherID, err := resolveIssueID(cmd, sess, args[2])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		// Load existing relations so duplicates are rejected locally
		// before the service round trip.
		if err := sess.Detail.Relations.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching relations: %w", err), output.CodeForError(err))
		}

		rel, err := sess.Issue(id).RelateTo(cmd.Context(), otherID, typ)
		if err != nil {
			return cmdErr(fmt.Errorf("creating relation: %w", err), output.CodeForError(err))
		}

		w.Success(rel, fmt.Sprintf("%s %s %s %s",
			model.ShortID(id), render.RelationArrow(typ), string(typ), model.ShortID(otherID)))
		return nil
	},
}

var unrelateCmd = &cobra.Command{
	Use:   "unrelate <issue-id> <other-issue-id>",
	Short: "Remove the relation between two issues",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}
		otherID, err := resolveIssueID(cmd, sess, args[1])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Detail.Relations.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching relations: %w", err), output.CodeForError(err))
		}

		if err := sess.Detail.Relations.Remove(cmd.Context(), sess.Scope, id, otherID); err != nil {
			return cmdErr(fmt.Errorf("removing relation: %w", err), output.CodeForError(err))
		}

		w.Success(deleteResult{ID: otherID}, fmt.Sprintf("Unrelated %s and %s",
			model.ShortID(id), model.ShortID(otherID)))
		return nil
	},
}

func init() {
	issueCmd.AddCommand(relateCmd)
	issueCmd.AddCommand(unrelateCmd)
}
