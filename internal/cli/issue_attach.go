package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
	"github.com/gridline-app/gridline/internal/service"
)

var attachCmd = &cobra.Command{
	Use:   "attach <issue-id> <file>...",
	Short: "Upload files as issue attachments",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}
		handle := sess.Issue(id)

		var uploaded []model.Attachment
		for _, path := range args[1:] {
			f, err := os.Open(path)
			if err != nil {
				return cmdErr(fmt.Errorf("opening %s: %w", path, err), output.ErrGeneral)
			}
			info, err := f.Stat()
			if err != nil {
				f.Close()
				return cmdErr(fmt.Errorf("stat %s: %w", path, err), output.ErrGeneral)
			}

			contentType := mime.TypeByExtension(filepath.Ext(path))
			if contentType == "" {
				contentType = "application/octet-stream"
			}

			name := filepath.Base(path)
			req := service.UploadRequest{
				FileName:    name,
				Size:        info.Size(),
				ContentType: contentType,
				Content:     f,
			}
			if !w.JSONMode && !w.QuietMode {
				req.Progress = func(percent int) {
					fmt.Fprintf(w.Stderr, "\r%s %d%%", name, percent)
				}
			}

			att, err := handle.Attach(cmd.Context(), req)
			if !w.JSONMode && !w.QuietMode {
				fmt.Fprintln(w.Stderr)
			}
			f.Close()
			if err != nil {
				return cmdErr(fmt.Errorf("uploading %s: %w", path, err), output.CodeForError(err))
			}
			uploaded = append(uploaded, att)
		}

		names := make([]string, len(uploaded))
		for i, att := range uploaded {
			names[i] = att.FileName
		}
		w.Success(uploaded, fmt.Sprintf("Attached %s to %s", strings.Join(names, ", "), model.ShortID(id)))
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:   "files <issue-id>",
	Short: "List an issue's attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Detail.Attachments.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching attachments: %w", err), output.CodeForError(err))
		}
		attachments, _ := sess.Detail.Attachments.ByIssue(id)

		var message string
		if !w.JSONMode {
			if len(attachments) == 0 {
				message = render.EmptyState("No attachments", "Add one with 'gridline issue attach'", w.QuietMode)
			} else {
				lines := make([]string, len(attachments))
				for i, att := range attachments {
					lines[i] = fmt.Sprintf("%s %s (%s)", model.ShortID(att.ID), att.FileName, humanize.Bytes(uint64(att.Size)))
				}
				message = strings.Join(lines, "\n")
			}
		}
		w.Success(attachments, message)
		return nil
	},
}

var detachCmd = &cobra.Command{
	Use:   "detach <issue-id> <attachment-id>",
	Short: "Remove an attachment from an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		sess := getSession(cmd)

		id, err := resolveIssueID(cmd, sess, args[0])
		if err != nil {
			return cmdErr(err, output.CodeForError(err))
		}

		if err := sess.Detail.Attachments.Fetch(cmd.Context(), sess.Scope, id); err != nil {
			return cmdErr(fmt.Errorf("fetching attachments: %w", err), output.CodeForError(err))
		}

		if err := sess.Detail.Attachments.Remove(cmd.Context(), sess.Scope, id, args[1]); err != nil {
			return cmdErr(fmt.Errorf("removing attachment: %w", err), output.CodeForError(err))
		}

		w.Success(deleteResult{ID: args[1]}, "Attachment removed")
		return nil
	},
}

func init() {
	issueCmd.AddCommand(attachCmd)
	issueCmd.AddCommand(filesCmd)
	issueCmd.AddCommand(detachCmd)
}
