package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/service"
	"github.com/gridline-app/gridline/internal/store"
)

// resolveIssueID expands a short id prefix to a full issue id by matching
// against the project's issues. Full UUIDs pass through untouched; an
// ambiguous prefix is an error.
func resolveIssueID(cmd *cobra.Command, sess *store.Session, arg string) (string, error) {
	if _, err := uuid.Parse(arg); err == nil {
		return arg, nil
	}

	ctx := cmd.Context()
	if _, err := sess.Issues.Fetch(ctx, sess.Scope, service.IssueFilter{IncludeDone: true}); err != nil {
		return "", err
	}
	issues, _ := sess.Issues.ByProject(sess.Scope.Project)

	var match string
	for _, issue := range issues {
		if !strings.HasPrefix(issue.ID, arg) {
			continue
		}
		if match != "" && match != issue.ID {
			return "", fmt.Errorf("ambiguous issue id %q, use more characters", arg)
		}
		match = issue.ID
	}
	if match == "" {
		return "", fmt.Errorf("issue %s: %w", arg, service.ErrNotFound)
	}
	return match, nil
}

// readBodyArg returns the given body text, reading from stdin when the
// value is "-". Stdin input is capped at 1 MiB.
func readBodyArg(body string) (string, error) {
	if body != "-" {
		return body, nil
	}
	const maxStdinSize = 1 << 20
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinSize))
	if err != nil {
		return "", fmt.Errorf("reading from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
