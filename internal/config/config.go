// Package config resolves the .gridline directory, its workspace
// database, and the settings file identifying the current member.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	dbFileName       = "workspace.db"
	settingsFileName = "config.toml"
)

// Config holds resolved paths for the gridline directory and database.
type Config struct {
	GridlineDir string // resolved .gridline directory path
	DBPath      string // full path to workspace.db
	Settings    string // full path to config.toml
	EnvVarSet   bool   // whether GRIDLINE_PATH was used
}

// Settings is the persisted workspace identity, stored as TOML.
type Settings struct {
	Workspace string `toml:"workspace"`
	Project   string `toml:"project"`
	MemberID  string `toml:"member_id"`
	Actor     string `toml:"actor,omitempty"`
}

// Resolve returns the current configuration by checking GRIDLINE_PATH
// first, then falling back to $PWD/.gridline.
func Resolve() (*Config, error) {
	var dir string
	var envVarSet bool

	if envPath := os.Getenv("GRIDLINE_PATH"); envPath != "" {
		dir = envPath
		envVarSet = true
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(cwd, ".gridline")
	}

	return &Config{
		GridlineDir: dir,
		DBPath:      filepath.Join(dir, dbFileName),
		Settings:    filepath.Join(dir, settingsFileName),
		EnvVarSet:   envVarSet,
	}, nil
}

// Exists checks if the gridline directory and DB file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	for _, path := range []string{c.GridlineDir, c.DBPath} {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// LoadSettings reads and parses config.toml. A missing file returns a
// zero Settings without error so init can run before any settings exist.
func (c *Config) LoadSettings() (Settings, error) {
	data, err := os.ReadFile(c.Settings)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing %s: %w", settingsFileName, err)
	}
	return s, nil
}

// SaveSettings writes config.toml, creating the gridline directory if
// needed.
func (c *Config) SaveSettings(s Settings) error {
	if err := os.MkdirAll(c.GridlineDir, 0o755); err != nil {
		return fmt.Errorf("creating gridline directory: %w", err)
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(c.Settings, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

var (
	defaultActor     string
	defaultActorOnce sync.Once
)

// DefaultActor returns the default actor name recorded on mutations.
// It tries git config user.name first and falls back to the OS username.
// The result is cached for the lifetime of the process.
func DefaultActor() string {
	defaultActorOnce.Do(func() {
		defaultActor = resolveActor()
	})
	return defaultActor
}

func resolveActor() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "config", "user.name").Output()
	if err == nil {
		if name := strings.TrimSpace(string(out)); name != "" {
			return name
		}
	}

	u, err := user.Current()
	if err == nil && u.Username != "" {
		return u.Username
	}

	return "unknown"
}
