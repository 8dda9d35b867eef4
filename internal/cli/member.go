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

var memberCmd = &cobra.Command{
	Use:     "member",
	Short:   "Manage project members",
	Aliases: []string{"m"},
}

var memberListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List project members",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		roleFlags, _ := cmd.Flags().GetStringSlice("role")
		search, _ := cmd.Flags().GetString("search")
		byName, _ := cmd.Flags().GetBool("by-name")

		roles := make([]model.Role, 0, len(roleFlags))
		for _, r := range roleFlags {
			role := model.Role(r)
			if err := model.ValidateRole(role); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
			roles = append(roles, role)
		}

		if err := sess.Members.Fetch(cmd.Context(), sess.Scope); err != nil {
			return cmdErr(fmt.Errorf("fetching members: %w", err), output.CodeForError(err))
		}
		members, _ := sess.Members.Query(sess.Scope.Project, store.MemberQuery{
			Roles:           roles,
			Search:          search,
			ByName:          byName,
			CurrentMemberID: sess.CurrentMemberID,
		})

		var message string
		if !w.JSONMode {
			if len(members) == 0 {
				message = render.EmptyState("No members found", "", w.QuietMode)
			} else {
				message = render.RenderMemberTable(members)
			}
		}
		w.Success(members, message)
		return nil
	},
}

var memberRoleCmd = &cobra.Command{
	Use:   "role <member-id> <role>",
	Short: "Change a member's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		role := model.Role(args[1])
		if err := model.ValidateRole(role); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		id, err := resolveMemberID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		// SetRole patches the locally held record, so load members first.
		if err := sess.Members.Fetch(cmd.Context(), sess.Scope); err != nil {
			return cmdErr(fmt.Errorf("fetching members: %w", err), output.CodeForError(err))
		}

		member, err := sess.Members.SetRole(cmd.Context(), sess.Scope, id, role)
		if err != nil {
			return cmdErr(fmt.Errorf("updating role: %w", err), output.CodeForError(err))
		}

		w.Success(member, fmt.Sprintf("%s is now %s", member.DisplayName, string(member.Role)))
		return nil
	},
}

var memberRemoveCmd = &cobra.Command{
	Use:   "remove <member-id>",
	Short: "Remove a member from the project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveMemberID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}
		if id == sess.CurrentMemberID {
			return cmdErr(fmt.Errorf("cannot remove yourself from the project"), output.ErrValidation)
		}

		if err := sess.Members.Fetch(cmd.Context(), sess.Scope); err != nil {
			return cmdErr(fmt.Errorf("fetching members: %w", err), output.CodeForError(err))
		}

		if err := sess.Members.Remove(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("removing member: %w", err), output.CodeForError(err))
		}

		w.Success(deleteResult{ID: id}, "Member removed")
		return nil
	},
}

// resolveMemberID expands a short member id prefix, fetching the project's
// members if needed.
func resolveMemberID(cmd *cobra.Command, sess *store.Session, arg string) (string, error) {
	if _, err := uuid.Parse(arg); err == nil {
		return arg, nil
	}

	if err := sess.Members.Fetch(cmd.Context(), sess.Scope); err != nil {
		return "", err
	}
	members, _ := sess.Members.All(sess.Scope.Project)

	var match string
	for _, m := range members {
		if !strings.HasPrefix(m.ID, arg) {
			continue
		}
		if match != "" && match != m.ID {
			return "", fmt.Errorf("ambiguous member id %q, use more characters", arg)
		}
		match = m.ID
	}
	if match == "" {
		return "", fmt.Errorf("member %s: %w", arg, service.ErrNotFound)
	}
	return match, nil
}

func init() {
	memberListCmd.Flags().StringSlice("role", nil, "Filter by role (repeatable)")
	memberListCmd.Flags().String("search", "", "Match on name or email")
	memberListCmd.Flags().Bool("by-name", false, "Sort alphabetically instead of by role")

	memberCmd.AddCommand(memberListCmd)
	memberCmd.AddCommand(memberRoleCmd)
	memberCmd.AddCommand(memberRemoveCmd)
	rootCmd.AddCommand(memberCmd)
}
