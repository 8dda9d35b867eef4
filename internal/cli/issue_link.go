package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Manage issue links",
}

var linkAddCmd = &cobra.Command{
	Use:   "add <issue-id> <url>",
	Short: "Attach an external link to an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		title, _ := cmd.Flags().GetString("title")

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		link, err := sess.Issue(id).AddLink(cmd.Context(), title, args[1])
		if err != nil {
			return cmdErr(fmt.Errorf("adding link: %w", err), output.CodeForError(err))
		}

		w.Success(link, fmt.Sprintf("Linked %s to %s", link.DisplayTitle(), model.ShortID(id)))
		return nil
	},
}

var linkListCmd = &cobra.Command{
	Use:     "list <issue-id>",
	Short:   "List an issue's links",
	Aliases: []string{"ls"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Detail.Links.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching links: %w", err), output.CodeForError(err))
		}
		links, _ := sess.Detail.Links.ByIssue(id)

		var message string
		if !w.JSONMode {
			if len(links) == 0 {
				message = render.EmptyState("No links", "Add one with 'gridline issue link add'", w.QuietMode)
			} else {
				message = renderLinkList(links)
			}
		}
		w.Success(links, message)
		return nil
	},
}

var linkRemoveCmd = &cobra.Command{
	Use:   "remove <issue-id> <link-id>",
	Short: "Remove a link from an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Detail.Links.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching links: %w", err), output.CodeForError(err))
		}

		if err := sess.Detail.Links.Remove(cmd.Context(), sess.Scope, id, args[1]); err != nil {
			return cmdErr(fmt.Errorf("removing link: %w", err), output.CodeForError(err))
		}

		w.Success(deleteResult{ID: args[1]}, "Link removed")
		return nil
	},
}

func renderLinkList(links []model.Link) string {
	idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	urlStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)

	lines := make([]string, len(links))
	for i, link := range links {
		if render.ColorsEnabled() {
			lines[i] = fmt.Sprintf("%s %s %s",
				idStyle.Render(model.ShortID(link.ID)),
				link.DisplayTitle(),
				urlStyle.Render(link.URL),
			)
		} else {
			lines[i] = fmt.Sprintf("%s %s %s", model.ShortID(link.ID), link.DisplayTitle(), link.URL)
		}
	}
	return strings.Join(lines, "\n")
}

func init() {
	linkAddCmd.Flags().StringP("title", "t", "", "Link title (default: the URL's host)")

	linkCmd.AddCommand(linkAddCmd)
	linkCmd.AddCommand(linkListCmd)
	linkCmd.AddCommand(linkRemoveCmd)
	issueCmd.AddCommand(linkCmd)
}
