package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
	"github.com/gridline-app/gridline/internal/service"
	"github.com/gridline-app/gridline/internal/store"
)

var pageCmd = &cobra.Command{
	Use:     "page",
	Short:   "Manage project pages",
	Aliases: []string{"p"},
}

var pageListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List pages visible to you",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		if err := sess.Pages.Fetch(cmd.Context(), sess.Scope); err != nil {
			return cmdErr(fmt.Errorf("fetching pages: %w", err), output.CodeForError(err))
		}
		pages, _ := sess.Pages.ByProject(sess.Scope.Project)

		var message string
		if !w.JSONMode {
			if len(pages) == 0 {
				message = render.EmptyState("No pages", "Create one with 'gridline page create'", w.QuietMode)
			} else {
				message = render.RenderPageTable(pages)
			}
		}
		w.Success(pages, message)
		return nil
	},
}

var pageCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a page",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		title, _ := cmd.Flags().GetString("title")
		access, _ := cmd.Flags().GetString("access")

		if err := model.ValidatePageAccess(model.PageAccess(access)); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		page, err := sess.Pages.Create(cmd.Context(), sess.Scope, model.Page{
			ProjectID: sess.Scope.Project,
			Title:     title,
			Access:    model.PageAccess(access),
			OwnerID:   sess.CurrentMemberID,
		})
		if err != nil {
			return cmdErr(fmt.Errorf("creating page: %w", err), output.CodeForError(err))
		}

		w.Success(page, fmt.Sprintf("Created page %s: %s", model.ShortID(page.ID), page.Title))
		return nil
	},
}

var pageRenameCmd = &cobra.Command{
	Use:   "rename <page-id> <title>",
	Short: "Rename a page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolvePageID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		// Rename goes through the autosave path the editor uses: the title
		// applies locally at once and Flush persists it before the command
		// exits.
		sess.Autosave.Set(id, args[1])
		if err := sess.Autosave.Flush(cmd.Context(), id); err != nil {
			return cmdErr(fmt.Errorf("renaming page: %w", err), output.CodeForError(err))
		}

		page, _ := sess.Pages.Get(id)
		w.Success(page, fmt.Sprintf("Renamed page %s to %s", model.ShortID(id), args[1]))
		return nil
	},
}

var pageAccessCmd = &cobra.Command{
	Use:   "access <page-id> <public|private>",
	Short: "Change a page's visibility",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		access := model.PageAccess(args[1])
		if err := model.ValidatePageAccess(access); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		id, err := resolvePageID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		page, err := sess.Pages.SetAccess(cmd.Context(), sess.Scope, id, access)
		if err != nil {
			return cmdErr(fmt.Errorf("updating access: %w", err), output.CodeForError(err))
		}

		w.Success(page, fmt.Sprintf("Page %s is now %s", model.ShortID(id), string(access)))
		return nil
	},
}

var pageDeleteCmd = &cobra.Command{
	Use:   "delete <page-id>",
	Short: "Delete a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolvePageID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Pages.Remove(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("deleting page: %w", err), output.CodeForError(err))
		}

		w.Success(deleteResult{ID: id}, "Page deleted")
		return nil
	},
}

// resolvePageID expands a short page id prefix, fetching the project's
// pages first so mutations have their local records.
func resolvePageID(cmd *cobra.Command, sess *store.Session, arg string) (string, error) {
	if err := sess.Pages.Fetch(cmd.Context(), sess.Scope); err != nil {
		return "", err
	}
	if _, err := uuid.Parse(arg); err == nil {
		return arg, nil
	}

	pages, _ := sess.Pages.ByProject(sess.Scope.Project)
	var match string
	for _, p := range pages {
		if !strings.HasPrefix(p.ID, arg) {
			continue
		}
		if match != "" && match != p.ID {
			return "", fmt.Errorf("ambiguous page id %q, use more characters", arg)
		}
		match = p.ID
	}
	if match == "" {
		return "", fmt.Errorf("page %s: %w", arg, service.ErrNotFound)
	}
	return match, nil
}

func init() {
	pageCreateCmd.Flags().StringP("title", "t", "", "Page title")
	pageCreateCmd.MarkFlagRequired("title")
	pageCreateCmd.Flags().String("access", "public", "Page visibility (public or private)")

	pageCmd.AddCommand(pageListCmd)
	pageCmd.AddCommand(pageCreateCmd)
	pageCmd.AddCommand(pageRenameCmd)
	pageCmd.AddCommand(pageAccessCmd)
	pageCmd.AddCommand(pageDeleteCmd)
	rootCmd.AddCommand(pageCmd)
}
