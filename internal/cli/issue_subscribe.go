package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
)

type subscriptionResult struct {
	IssueID    string `json:"issue_id"`
	Subscribed bool   `json:"subscribed"`
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <issue-id>",
	Short: "Subscribe to an issue's notifications",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubscribe(true),
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <issue-id>",
	Short: "Unsubscribe from an issue's notifications",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubscribe(false),
}

// runSubscribe builds the handler for both directions; subscribing while
// already subscribed (and the reverse) is a silent no-op.
func runSubscribe(subscribe bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Detail.Subscriptions.Fetch(cmd.Context(), sess.Scope, id, sess.CurrentMemberID); err != nil {
			return cmdErr(fmt.Errorf("fetching subscription: %w", err), output.CodeForError(err))
		}

		handle := sess.Issue(id)
		if subscribe {
			err = handle.Subscribe(cmd.Context())
		} else {
			err = handle.Unsubscribe(cmd.Context())
		}
		if err != nil {
			return cmdErr(fmt.Errorf("updating subscription: %w", err), output.CodeForError(err))
		}

		verb := "Subscribed to"
		if !subscribe {
			verb = "Unsubscribed from"
		}
		w.Success(subscriptionResult{IssueID: id, Subscribed: subscribe},
			fmt.Sprintf("%s %s", verb, model.ShortID(id)))
		return nil
	}
}

func init() {
	issueCmd.AddCommand(subscribeCmd)
	issueCmd.AddCommand(unsubscribeCmd)
}
