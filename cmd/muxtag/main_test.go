package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/muxtag/internal/config"
	"github.com/backmassage/muxtag/internal/engine"
	"github.com/backmassage/muxtag/internal/engine/enginetest"
)

// isolate points config lookup at an empty directory and disables color.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvNoColor, "1")
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvLogFile, "")
}

func execute(t *testing.T, eng *enginetest.Engine, args ...string) error {
	t.Helper()
	cmd := newRootCmd(func() engine.Engine { return eng })
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestRoot_ArgCount(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{{}, {"a.mp4"}, {"a.mp4", "tag", "extra"}} {
		eng := enginetest.NewDefault()
		err := execute(t, eng, args...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accepts 2 arg(s)")
		assert.Equal(t, 0, eng.Calls())
	}
}

func TestRoot_Remux(t *testing.T) {
	isolate(t)
	input := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(input, []byte("data"), 0o644))

	eng := enginetest.NewDefault()
	eng.OnNewGraph(func(g *enginetest.Graph) {
		g.OnPlaying(func() {
			g.Lookup("parse").Expose("src_0", enginetest.Caps{"audio/x-opus"})
			g.PostEOS()
		})
	})

	require.NoError(t, execute(t, eng, input, "hello"))
	g := eng.Graphs()[0]
	assert.Equal(t, []string{"hello"}, g.Lookup("mux").Tags(engine.TagComment))
}

func TestRoot_FailureIsReported(t *testing.T) {
	isolate(t)
	eng := enginetest.NewDefault()
	err := execute(t, eng, filepath.Join(t.TempDir(), "missing.mp4"), "hello")
	assert.True(t, errors.Is(err, errReported))
	assert.Equal(t, 0, eng.Calls())
}

func TestRoot_BadConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("no_such_key = 1\n"), 0o644))
	t.Setenv(config.EnvConfig, path)

	err := execute(t, enginetest.NewDefault(), "a.mp4", "hello")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errReported))
}
