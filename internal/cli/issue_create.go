package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/service"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new issue",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		status, _ := cmd.Flags().GetString("status")
		priority, _ := cmd.Flags().GetString("priority")
		labelFlag, _ := cmd.Flags().GetStringSlice("label")
		assignee, _ := cmd.Flags().GetString("assignee")
		parent, _ := cmd.Flags().GetString("parent")
		jsonMode, _ := cmd.Flags().GetBool("json")

		if jsonMode && title == "" {
			return cmdErr(fmt.Errorf("--title is required in JSON mode"), output.ErrValidation)
		}

		// No title and not JSON mode: launch the interactive form. The
		// status and priority variables already hold their flag defaults,
		// so the select widgets pre-select them.
		if !jsonMode && title == "" {
			var labelStr string
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Title").
						Value(&title).
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return fmt.Errorf("title is required")
							}
							return nil
						}),
					huh.NewText().
						Title("Description").
						Value(&description),
					huh.NewSelect[string]().
						Title("Status").
						Options(
							huh.NewOption("backlog", "backlog"),
							huh.NewOption("todo", "todo"),
							huh.NewOption("in-progress", "in-progress"),
							huh.NewOption("review", "review"),
							huh.NewOption("done", "done"),
						).
						Value(&status),
					huh.NewSelect[string]().
						Title("Priority").
						Options(
							huh.NewOption("none", "none"),
							huh.NewOption("low", "low"),
							huh.NewOption("medium", "medium"),
							huh.NewOption("high", "high"),
							huh.NewOption("urgent", "urgent"),
						).
						Value(&priority),
					huh.NewInput().
						Title("Assignee (member id)").
						Value(&assignee),
					huh.NewInput().
						Title("Labels (comma-separated)").
						Value(&labelStr),
				),
			)

			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}

			if labelStr != "" {
				for _, l := range strings.Split(labelStr, ",") {
					l = strings.TrimSpace(l)
					if l != "" {
						labelFlag = append(labelFlag, l)
					}
				}
			}
		}

		description, err := readBodyArg(description)
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		if err := model.ValidateStatus(model.Status(status)); err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		if err := model.ValidatePriority(model.Priority(priority)); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		var parentID string
		if parent != "" {
			parentID, err = resolveIssueID(cmd, sess, parent)
			if err != nil {
				return cmdErr(fmt.Errorf("invalid parent: %w", err), output.CodeForError(err))
			}
			if _, err := sess.Issues.FetchOne(cmd.Context(), sess.Scope, parentID); err != nil {
				if errors.Is(err, service.ErrNotFound) {
					return cmdErr(fmt.Errorf("parent issue %s not found", parent), output.ErrNotFound)
				}
				return cmdErr(fmt.Errorf("checking parent issue: %w", err), output.ErrGeneral)
			}
		}

		created, err := sess.Issues.Create(cmd.Context(), sess.Scope, model.Issue{
			ProjectID:   sess.Scope.Project,
			ParentID:    parentID,
			Title:       title,
			Description: description,
			Status:      model.Status(status),
			Priority:    model.Priority(priority),
			AssigneeID:  assignee,
			Labels:      labelFlag,
		})
		if err != nil {
			return cmdErr(fmt.Errorf("creating issue: %w", err), output.CodeForError(err))
		}

		w.Success(created, fmt.Sprintf("Created %s: %s", model.ShortID(created.ID), created.Title))
		return nil
	},
}

func init() {
	createCmd.Flags().StringP("title", "t", "", "Issue title")
	createCmd.Flags().StringP("description", "d", "", "Issue description (use \"-\" for stdin)")
	createCmd.Flags().StringP("status", "s", "backlog", "Issue status")
	createCmd.Flags().StringP("priority", "p", "none", "Issue priority")
	createCmd.Flags().StringSliceP("label", "l", nil, "Issue labels (repeatable)")
	createCmd.Flags().StringP("assignee", "a", "", "Assignee member id")
	createCmd.Flags().String("parent", "", "Parent issue id")
	issueCmd.AddCommand(createCmd)
}
