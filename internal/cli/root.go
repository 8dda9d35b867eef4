// Package cli wires the cobra command tree over the session store layer.
// Every command that touches data goes through a store.Session so the
// optimistic-update semantics the web client relies on are exercised by
// the CLI as well.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridline-app/gridline/internal/config"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/service"
	"github.com/gridline-app/gridline/internal/service/local"
	"github.com/gridline-app/gridline/internal/store"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type contextKey string

const (
	cfgKey     contextKey = "cfg"
	writerKey  contextKey = "writer"
	storeKey   contextKey = "store"
	sessionKey contextKey = "session"
)

// CmdError wraps an error with a machine-readable error code for structured output.
type CmdError struct {
	Err  error
	Code output.ErrorCode
}

func (e *CmdError) Error() string { return e.Err.Error() }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

var rootCmd = &cobra.Command{
	Use:     "gridline",
	Short:   "Local-first CLI for the gridline project tracker",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve()
		if err != nil {
			return err
		}

		// One Writer per invocation: the autosave and refresh callbacks
		// warn from background goroutines, and the Writer serializes
		// those against the command's own output.
		w := newWriter(cmd)
		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)
		ctx = context.WithValue(ctx, writerKey, w)

		if _, ok := cmd.Annotations["skipDB"]; ok {
			cmd.SetContext(ctx)
			return nil
		}

		if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
			return cmdErr(
				fmt.Errorf("no gridline workspace found, run 'gridline init' to create one"),
				output.ErrNotFound,
			)
		}

		settings, err := cfg.LoadSettings()
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		scope := service.Scope{Workspace: settings.Workspace, Project: settings.Project}
		if err := scope.Validate(); err != nil {
			return cmdErr(
				fmt.Errorf("workspace settings incomplete (%v), run 'gridline init' to repair them", err),
				output.ErrValidation,
			)
		}

		db, err := local.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}

		actor := settings.Actor
		if actor == "" {
			actor = config.DefaultActor()
		}
		st := local.NewStore(db, actor)

		sess := store.NewSession(st.Bundle(), scope, settings.MemberID, store.SessionOptions{
			OnAutosaveError: func(err error) { w.Warn("autosave failed: %v", err) },
			OnRefreshError:  func(err error) { w.Warn("timeline refresh failed: %v", err) },
		})

		ctx = context.WithValue(ctx, storeKey, st)
		cmd.SetContext(context.WithValue(ctx, sessionKey, sess))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if sess := getSession(cmd); sess != nil {
			// Flush any pending page title autosave before closing.
			if err := sess.Autosave.Close(cmd.Context()); err != nil {
				getWriter(cmd).Warn("flushing autosave: %v", err)
			}
		}
		if st := getStore(cmd); st != nil {
			return st.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func newWriter(cmd *cobra.Command) *output.Writer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	return output.New(jsonMode, quietMode)
}

func getWriter(cmd *cobra.Command) *output.Writer {
	if w, ok := cmd.Context().Value(writerKey).(*output.Writer); ok {
		return w
	}
	return newWriter(cmd)
}

func getCfg(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey).(*config.Config)
	return cfg
}

func getStore(cmd *cobra.Command) *local.Store {
	st, _ := cmd.Context().Value(storeKey).(*local.Store)
	return st
}

func getSession(cmd *cobra.Command) *store.Session {
	sess, _ := cmd.Context().Value(sessionKey).(*store.Session)
	return sess
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		jsonMode, _ := rootCmd.PersistentFlags().GetBool("json")
		quietMode, _ := rootCmd.PersistentFlags().GetBool("quiet")
		w := output.New(jsonMode, quietMode)

		var ce *CmdError
		if errors.As(err, &ce) {
			return w.Error(ce.Err, ce.Code)
		}
		return w.Error(err, output.CodeForError(err))
	}
	return 0
}
