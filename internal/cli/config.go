package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gridline-app/gridline/internal/config"
	"github.com/gridline-app/gridline/internal/output"
	"github.com/gridline-app/gridline/internal/render"

	"github.com/spf13/cobra"
)

type configInfo struct {
	Path      string `json:"path"`
	DBPath    string `json:"db_path"`
	Settings  string `json:"settings"`
	EnvVarSet bool   `json:"env_var_set"`
	Exists    bool   `json:"exists"`
	Workspace string `json:"workspace,omitempty"`
	Project   string `json:"project,omitempty"`
	MemberID  string `json:"member_id,omitempty"`
	Actor     string `json:"actor"`
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Show the resolved workspace configuration",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking workspace: %w", err), output.ErrGeneral)
		}
		settings, err := cfg.LoadSettings()
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		actor := settings.Actor
		if actor == "" {
			actor = config.DefaultActor()
		}

		info := configInfo{
			Path:      cfg.GridlineDir,
			DBPath:    cfg.DBPath,
			Settings:  cfg.Settings,
			EnvVarSet: cfg.EnvVarSet,
			Exists:    exists,
			Workspace: settings.Workspace,
			Project:   settings.Project,
			MemberID:  settings.MemberID,
			Actor:     actor,
		}

		var message string
		if !w.JSONMode {
			message = renderConfig(info)
		}
		w.Success(info, message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func renderConfig(info configInfo) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle := lipgloss.NewStyle().Bold(true)

	line := func(label, value string) string {
		if !render.ColorsEnabled() {
			return fmt.Sprintf("  %-12s %s", label+":", value)
		}
		return fmt.Sprintf("  %s %s",
			labelStyle.Render(fmt.Sprintf("%-12s", label+":")),
			valueStyle.Render(value),
		)
	}

	lines := []string{
		line("Directory", info.Path),
		line("Database", info.DBPath),
		line("Settings", info.Settings),
		line("Exists", fmt.Sprintf("%t", info.Exists)),
		line("Workspace", info.Workspace),
		line("Project", info.Project),
		line("Member", info.MemberID),
		line("Actor", info.Actor),
	}
	if info.EnvVarSet {
		lines = append(lines, line("Source", "GRIDLINE_PATH"))
	}
	return strings.Join(lines, "\n")
}
