// Package config holds runtime configuration: defaults, an optional TOML
// file, environment overrides, and validation.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/backmassage/muxtag/internal/naming"
)

// DefaultDescriptor is the remux topology. The demux (parse) and mux
// halves are deliberately unlinked: parsebin exposes its pads only once the
// input has been parsed.
const DefaultDescriptor = "filesrc name=src ! queue name=queueafterfilesrc ! parsebin name=parse  " +
	"matroskamux name=mux ! queue name=queuebeforefilesink ! filesink name=sink sync=false"

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Log levels accepted in LogLevel.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by [Load] and [Config.ApplyEnv], before being passed (by pointer) to
// packages that need it.
type Config struct {
	// Positional arguments (not read from the config file).
	Input string `toml:"-"`
	Tag   string `toml:"-"`

	// Graph.
	Descriptor   string `toml:"descriptor"`    // Default: DefaultDescriptor.
	BufferType   string `toml:"buffer_type"`   // Node type interposed per linked stream. Default: "queue".
	OutputSuffix string `toml:"output_suffix"` // Default: "with_data.mkv".

	// Display and logging.
	LogLevel  string    `toml:"log_level"` // Default: "info".
	LogFile   string    `toml:"log_file"`  // Optional append-only log file.
	ColorMode ColorMode `toml:"color"`     // Default: "auto".
}

// DefaultConfig returns a Config with all defaults.
func DefaultConfig() Config {
	return Config{
		Descriptor:   DefaultDescriptor,
		BufferType:   "queue",
		OutputSuffix: naming.DefaultSuffix,
		LogLevel:     LevelInfo,
		ColorMode:    ColorAuto,
	}
}

// Validate normalizes and checks enum and graph fields. Input and Tag are
// not checked: any tag string, including the empty one, is embedded as is.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		// valid
	case "":
		c.LogLevel = LevelInfo
	default:
		return fmt.Errorf("invalid log level %q (use debug, info, warn, or error)", c.LogLevel)
	}

	c.ColorMode = ColorMode(strings.ToLower(string(c.ColorMode)))
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	case "":
		c.ColorMode = ColorAuto
	default:
		return fmt.Errorf("invalid color mode %q (use auto, always, or never)", c.ColorMode)
	}

	if strings.TrimSpace(c.Descriptor) == "" {
		return errors.New("graph descriptor must not be empty")
	}
	if strings.TrimSpace(c.BufferType) == "" {
		return errors.New("buffer type must not be empty")
	}
	c.OutputSuffix = strings.TrimPrefix(strings.TrimSpace(c.OutputSuffix), ".")
	if c.OutputSuffix == "" {
		return errors.New("output suffix must not be empty")
	}
	if strings.ContainsRune(c.OutputSuffix, '/') {
		return fmt.Errorf("output suffix %q must not contain a path separator", c.OutputSuffix)
	}
	return nil
}
