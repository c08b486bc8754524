package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTagSetter is returned when the mux node cannot carry tags.
	ErrNoTagSetter = errors.New("node does not support tag setting")

	// ErrOutputLocked is returned when another run holds the output lock.
	ErrOutputLocked = errors.New("output is being written by another muxtag run")

	// ErrOutputIsInput is returned when the derived output path names the
	// input file itself.
	ErrOutputIsInput = errors.New("output path is the input file")
)

// EngineError is an error reported by the engine while the graph ran, or
// by the linker when wiring a stream failed.
type EngineError struct {
	Source string // Path of the originating node, e.g. "/pipeline0/parse".
	Err    error
	Debug  string
}

func (e *EngineError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("engine error: %v", e.Err)
	}
	return fmt.Sprintf("error from %s: %v", e.Source, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
