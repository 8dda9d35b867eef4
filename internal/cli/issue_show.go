package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
)

var showCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show full issue details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		issue, err := sess.Issue(id).Load(cmd.Context())
		if err != nil {
			return cmdErr(fmt.Errorf("loading issue: %w", err), output.CodeForError(err))
		}

		comments, _ := sess.Detail.Comments.ByIssue(id)
		reactions, _ := sess.Detail.Reactions.Records(id)
		links, _ := sess.Detail.Links.ByIssue(id)
		attachments, _ := sess.Detail.Attachments.ByIssue(id)
		relations, _ := sess.Detail.Relations.ByIssue(id)
		activity, _ := sess.Detail.Activity.ByIssue(id)
		subscribed, _ := sess.Detail.Subscriptions.IsSubscribed(id, sess.CurrentMemberID)

		data := render.DetailData{
			Issue:       issue,
			Comments:    comments,
			Reactions:   reactions,
			Links:       links,
			Attachments: attachments,
			Relations:   relations,
			Activity:    activity,
			Subscribed:  subscribed,
		}

		var message string
		if !w.JSONMode {
			message = render.RenderDetail(data)
		}
		w.Success(data, message)
		return nil
	},
}

func init() {
	issueCmd.AddCommand(showCmd)
}
