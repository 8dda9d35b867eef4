package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/gridline-app/gridline/internal/config"
	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"
	"github.com/gridline-app/gridline/internal/service"
	"github.com/gridline-app/gridline/internal/service/local"

	"github.com/spf13/cobra"
)

type initResult struct {
	Path          string `json:"path"`
	DBPath        string `json:"db_path"`
	SchemaVersion int    `json:"schema_version"`
	Workspace     string `json:"workspace"`
	Project       string `json:"project"`
	MemberID      string `json:"member_id"`
	Created       bool   `json:"created"`
}

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Initialize a new gridline workspace",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		workspace, _ := cmd.Flags().GetString("workspace")
		project, _ := cmd.Flags().GetString("project")
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking workspace: %w", err), output.ErrGeneral)
		}

		if exists {
			w.Warn("Workspace already exists at %s", cfg.DBPath)

			db, err := local.Open(cfg.DBPath)
			if err != nil {
				return cmdErr(fmt.Errorf("opening database: %w", err), output.ErrGeneral)
			}
			defer db.Close()

			if err := local.Migrate(db); err != nil {
				return cmdErr(fmt.Errorf("migrating schema: %w", err), output.ErrGeneral)
			}
			schemaVersion, err := local.SchemaVersion(db)
			if err != nil {
				return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
			}
			settings, err := cfg.LoadSettings()
			if err != nil {
				return cmdErr(err, output.ErrGeneral)
			}

			msg := render.StyledText("Workspace already initialized", lipgloss.NewStyle().Foreground(lipgloss.Color("3")))
			w.Success(initResult{
				Path:          cfg.GridlineDir,
				DBPath:        cfg.DBPath,
				SchemaVersion: schemaVersion,
				Workspace:     settings.Workspace,
				Project:       settings.Project,
				MemberID:      settings.MemberID,
				Created:       false,
			}, msg)
			return nil
		}

		if project == "" {
			project = model.NewID()
		}
		if name == "" {
			name = config.DefaultActor()
		}
		scope := service.Scope{Workspace: workspace, Project: project}
		if err := scope.Validate(); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		if err := os.MkdirAll(cfg.GridlineDir, 0o755); err != nil {
			return cmdErr(fmt.Errorf("creating directory: %w", err), output.ErrGeneral)
		}

		db, err := local.Open(cfg.DBPath)
		if err != nil {
			return cmdErr(fmt.Errorf("opening database: %w", err), output.ErrGeneral)
		}
		defer db.Close()

		if err := local.Initialize(db); err != nil {
			return cmdErr(fmt.Errorf("initializing schema: %w", err), output.ErrGeneral)
		}
		if err := local.Migrate(db); err != nil {
			return cmdErr(fmt.Errorf("migrating schema: %w", err), output.ErrGeneral)
		}

		schemaVersion, err := local.SchemaVersion(db)
		if err != nil {
			return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
		}

		st := local.NewStore(db, name)
		member, err := st.AddMember(cmd.Context(), scope, model.Member{
			DisplayName: name,
			Email:       email,
			Role:        model.RoleAdmin,
		})
		if err != nil {
			return cmdErr(fmt.Errorf("creating member: %w", err), output.ErrGeneral)
		}

		if err := cfg.SaveSettings(config.Settings{
			Workspace: workspace,
			Project:   project,
			MemberID:  member.ID,
		}); err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		successMsg := render.StyledText("Initialized gridline workspace", lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")))
		w.Success(initResult{
			Path:          cfg.GridlineDir,
			DBPath:        cfg.DBPath,
			SchemaVersion: schemaVersion,
			Workspace:     workspace,
			Project:       project,
			MemberID:      member.ID,
			Created:       true,
		}, successMsg)

		w.Info("Workspace created at %s", cfg.DBPath)
		w.Info("Consider adding .gridline/ to your .gitignore")

		return nil
	},
}

func init() {
	initCmd.Flags().String("workspace", "main", "Workspace slug")
	initCmd.Flags().String("project", "", "Project id (default: generated)")
	initCmd.Flags().String("name", "", "Your display name (default: git user.name)")
	initCmd.Flags().String("email", "", "Your email address")
	rootCmd.AddCommand(initCmd)
}
