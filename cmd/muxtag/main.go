// Command muxtag remuxes a media file into Matroska with a string embedded
// as the container's comment tag. Streams are copied, never re-encoded.
//
// Usage:
//
//	muxtag <input> <embedded-data>
//
// The output is written next to the input as <stem>.with_data.mkv.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/backmassage/muxtag/internal/config"
	"github.com/backmassage/muxtag/internal/display"
	"github.com/backmassage/muxtag/internal/engine"
	"github.com/backmassage/muxtag/internal/engine/gstengine"
	"github.com/backmassage/muxtag/internal/logging"
	"github.com/backmassage/muxtag/internal/pipeline"
)

// version and commit are set at build time via -ldflags (e.g. Makefile).
var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

// errReported marks a failure the logger has already printed.
var errReported = errors.New("error reported")

func main() {
	cmd := newRootCmd(func() engine.Engine { return gstengine.New() })
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "muxtag: %v\n", err)
		}
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. newEngine is called only once arguments and
// configuration are valid.
func newRootCmd(newEngine func() engine.Engine) *cobra.Command {
	return &cobra.Command{
		Use:           "muxtag <input> <embedded-data>",
		Short:         "Remux a media file into Matroska with an embedded comment tag",
		Args:          cobra.ExactArgs(2),
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args[0], args[1])
			if err != nil {
				return err
			}
			return run(cfg, newEngine)
		},
	}
}

// loadConfig layers defaults, the config file, and the environment, then
// validates the result.
func loadConfig(input, tag string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if _, err := config.Load(&cfg, ""); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.Input = input
	cfg.Tag = tag
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func run(cfg *config.Config, newEngine func() engine.Engine) error {
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	log.Info("=== muxtag v%s ===", version)
	log.Info("In:  %s", cfg.Input)

	res, err := pipeline.Remux(pipeline.Options{
		Engine: newEngine(),
		Config: cfg,
		Log:    log,
	})
	if err != nil {
		log.Error("%v", err)
		return errReported
	}

	log.Info("Out: %s", res.Output)
	log.Success("Remuxed %s, %s in %s",
		display.FormatStreams(res.Linked, res.Dropped),
		display.FormatBytes(res.Size),
		display.FormatElapsed(res.Elapsed))
	return nil
}
