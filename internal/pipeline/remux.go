package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/backmassage/muxtag/internal/config"
	"github.com/backmassage/muxtag/internal/engine"
	"github.com/backmassage/muxtag/internal/graph"
	"github.com/backmassage/muxtag/internal/naming"
)

// Options configures a single remux run.
type Options struct {
	Engine engine.Engine
	Config *config.Config // Input, Tag, and graph settings.
	Log    Logger
}

// Remux copies every compatible stream of cfg.Input into a new container at
// the derived output path, with cfg.Tag embedded as the comment tag.
//
// Order matters: the output path is derived and checked against the input
// before the engine is touched, and the output lock is held for the whole
// run so two runs on the same input cannot interleave writes. A failed run
// removes its partial output.
func Remux(opts Options) (Result, error) {
	cfg, log := opts.Config, opts.Log
	start := time.Now()

	output, err := naming.OutputPath(cfg.Input, cfg.OutputSuffix)
	if err != nil {
		return Result{}, err
	}
	if err := checkInput(cfg.Input); err != nil {
		return Result{}, err
	}
	if sameFile(cfg.Input, output) {
		return Result{}, fmt.Errorf("%s: %w", output, ErrOutputIsInput)
	}

	lock := flock.New(output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("lock output: %w", err)
	}
	if !locked {
		return Result{}, fmt.Errorf("%s: %w", output, ErrOutputLocked)
	}
	// The lock file is left in place so every run locks the same inode.
	defer func() { _ = lock.Unlock() }()

	desc, err := graph.Parse(cfg.Descriptor)
	if err != nil {
		return Result{}, err
	}
	log.Debug("Graph: %s", desc)

	g, err := graph.Build(opts.Engine, desc)
	if err != nil {
		return Result{}, err
	}

	linker, err := prepare(g, cfg, output, log)
	if err != nil {
		_ = g.SetState(engine.StateNull)
		return Result{}, err
	}

	if err := NewRunLoop(g, linker, log).Run(); err != nil {
		removeOutput(output, log)
		return Result{}, err
	}
	// A wiring failure can race with end-of-stream on the event stream.
	if err := linker.Err(); err != nil {
		removeOutput(output, log)
		return Result{}, &EngineError{Source: "/" + graph.DefaultGraphName + "/" + DemuxNode, Err: err}
	}
	if linker.Linked() == 0 {
		log.Warn("No streams were linked into %s", output)
	}

	res := Result{
		Output:  output,
		Linked:  linker.Linked(),
		Dropped: linker.Dropped(),
		Elapsed: time.Since(start),
	}
	if fi, err := os.Stat(output); err == nil {
		res.Size = fi.Size()
	}
	return res, nil
}

// prepare wires the linker, embeds the tag, and binds file locations
// before playback starts.
func prepare(g engine.Graph, cfg *config.Config, output string, log Logger) (*Linker, error) {
	demux, err := g.Node(DemuxNode)
	if err != nil {
		return nil, fmt.Errorf("graph descriptor: %w", err)
	}
	mux, err := g.Node(MuxNode)
	if err != nil {
		return nil, fmt.Errorf("graph descriptor: %w", err)
	}

	linker := NewLinker(g, demux, mux, cfg.BufferType, log)
	if err := linker.Attach(); err != nil {
		return nil, err
	}
	if err := EmbedTag(mux, cfg.Tag); err != nil {
		return nil, err
	}
	if err := (Endpoints{Source: cfg.Input, Sink: output}).Bind(g); err != nil {
		return nil, err
	}
	return linker, nil
}

func checkInput(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("input not found: %s", path)
		}
		return fmt.Errorf("inspect input: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("input is a directory: %s", path)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("input is not a regular file: %s", path)
	}
	return nil
}

// sameFile reports whether a and b name the same file, by path or, when
// both exist, by identity (hard links, symlinks).
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}

func removeOutput(path string, log Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Cannot remove partial output %s: %v", path, err)
	}
}
