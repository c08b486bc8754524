package pipeline

import (
	"fmt"

	"github.com/backmassage/muxtag/internal/engine"
)

// State is a run loop state.
type State int

const (
	StateNull    State = iota // Idle, before start and after teardown.
	StatePlaying              // Consuming events.
	StateEos                  // Ended cleanly.
	StateFailed               // Ended on an error.
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StatePlaying:
		return "playing"
	case StateEos:
		return "eos"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// RunLoop drives a graph from null to playing, consumes its event stream
// until end-of-stream or an error, and always tears the graph back down to
// null.
type RunLoop struct {
	graph  engine.Graph
	linker *Linker // May be nil.
	log    Logger
	state  State
}

// NewRunLoop returns a run loop for g. linker, if non-nil, is stopped as
// soon as the run ends so no stream is linked into a dying graph.
func NewRunLoop(g engine.Graph, linker *Linker, log Logger) *RunLoop {
	return &RunLoop{graph: g, linker: linker, log: log}
}

// State returns the loop's current state. It is StateNull again once Run
// has returned.
func (r *RunLoop) State() State { return r.state }

// Run starts playback and blocks until the run ends. It returns nil after
// end-of-stream and an *EngineError after an error message. The graph is
// set to null on every path.
func (r *RunLoop) Run() (err error) {
	defer func() {
		if r.linker != nil {
			r.linker.Stop()
		}
		if stopErr := r.graph.SetState(engine.StateNull); stopErr != nil {
			if err == nil {
				err = fmt.Errorf("stop pipeline: %w", stopErr)
			} else {
				r.log.Error("Stop pipeline: %v", stopErr)
			}
		}
		r.state = StateNull
		r.log.Debug("Pipeline state: %s", r.graph.State())
	}()

	r.log.Debug("Pipeline state: %s", r.graph.State())
	if err := r.graph.SetState(engine.StatePlaying); err != nil {
		r.state = StateFailed
		return &EngineError{Source: "pipeline", Err: err}
	}
	r.state = StatePlaying
	r.log.Debug("Pipeline state: %s", r.graph.State())

	for {
		msg := r.graph.NextMessage()
		switch msg.Kind {
		case engine.MessageEndOfStream:
			r.state = StateEos
			r.log.Debug("End of stream")
			return nil
		case engine.MessageError:
			r.state = StateFailed
			if r.linker != nil {
				r.linker.Stop()
			}
			r.log.Error("Error from %s: %v", msg.Source, msg.Err)
			if msg.Debug != "" {
				r.log.Debug("Debug info: %s", msg.Debug)
			}
			return &EngineError{Source: msg.Source, Err: msg.Err, Debug: msg.Debug}
		default:
			r.log.Debug("Message: %s from %s", msg.Type, msg.Source)
		}
	}
}
