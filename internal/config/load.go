package config

// This file locates and decodes the optional TOML config file and applies
// environment overrides. Precedence: environment > file > defaults.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables read by ApplyEnv and DefaultPath.
const (
	EnvConfig   = "MUXTAG_CONFIG"
	EnvLogLevel = "MUXTAG_LOG_LEVEL"
	EnvLogFile  = "MUXTAG_LOG_FILE"
	EnvNoColor  = "NO_COLOR"
)

// Load decodes the config file at path over cfg. An empty path means
// [DefaultPath]; a missing default file is not an error, a missing explicit
// one is. It returns the path read, or "" when no file was used.
func Load(cfg *Config, path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath(os.Getenv)
		if path == "" {
			return "", nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return "", fmt.Errorf("parse config %s: %w", path, err)
	}
	return path, nil
}

// DefaultPath returns $MUXTAG_CONFIG, else $XDG_CONFIG_HOME/muxtag/config.toml,
// else ~/.config/muxtag/config.toml. It returns "" if no home directory is
// known.
func DefaultPath(getenv func(string) string) string {
	if p := strings.TrimSpace(getenv(EnvConfig)); p != "" {
		return p
	}
	if xdg := strings.TrimSpace(getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "muxtag", "config.toml")
	}
	if home := strings.TrimSpace(getenv("HOME")); home != "" {
		return filepath.Join(home, ".config", "muxtag", "config.toml")
	}
	return ""
}

// ApplyEnv overrides cfg from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(EnvLogFile)); v != "" {
		c.LogFile = v
	}
	// https://no-color.org: any non-empty value disables color.
	if getenv(EnvNoColor) != "" {
		c.ColorMode = ColorNever
	}
}
