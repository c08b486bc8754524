package pipeline

import (
	"fmt"
	"sync"

	"github.com/backmassage/muxtag/internal/engine"
)

// Logger is the logging surface the pipeline needs. Defined here (rather
// than importing the logging package) so tests can capture log lines.
type Logger interface {
	Debug(string, ...interface{})
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// Linker completes the demux → mux segment of the graph, one elementary
// stream at a time, as the demux exposes source pads.
//
// Each accepted pad is wired as
//
//	demux:src_N → <buffer node> → mux:<request pad>
//
// HandlePad may be called from several engine threads at once. All graph
// mutation goes through the engine; the linker only remembers which demux
// pads it has already handled, so a repeated pad-added for the same pad is
// a no-op.
type Linker struct {
	graph      engine.Graph
	demux      engine.Node
	mux        engine.Node
	bufferType string
	log        Logger

	mu      sync.Mutex
	linked  map[string]string // demux pad → mux pad
	dropped int
	stopped bool
	err     error
}

// NewLinker returns a linker wiring demux into mux through nodes of
// bufferType (normally "queue").
func NewLinker(g engine.Graph, demux, mux engine.Node, bufferType string, log Logger) *Linker {
	return &Linker{
		graph:      g,
		demux:      demux,
		mux:        mux,
		bufferType: bufferType,
		log:        log,
		linked:     make(map[string]string),
	}
}

// Attach registers the linker on the demux node's pad-added event.
func (l *Linker) Attach() error {
	return l.demux.OnPadAdded(l.HandlePad)
}

// HandlePad links one newly exposed demux pad. Pads without negotiated caps
// or without a compatible mux template are logged and dropped. Engine
// failures while wiring are fatal: the linker stops and posts an error onto
// the graph's event stream.
func (l *Linker) HandlePad(pad engine.Pad) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		l.log.Debug("Ignoring pad %s: linking stopped", pad.Name())
		return
	}
	if sink, ok := l.linked[pad.Name()]; ok {
		l.log.Debug("Pad %s already linked to %s", pad.Name(), sink)
		return
	}
	l.log.Debug("Pad added: %s", pad.Name())

	caps, ok := pad.CurrentCaps()
	if !ok {
		l.log.Warn("No caps on pad %s, stream dropped", pad.Name())
		l.dropped++
		return
	}
	tmpl, ok := SelectTemplate(l.mux.PadTemplates(), caps)
	if !ok {
		l.log.Warn("No %s pad template accepts %s (%s), stream dropped", l.mux.Name(), pad.Name(), caps)
		l.dropped++
		return
	}

	sink, err := l.wire(pad, tmpl)
	if err != nil {
		l.fail(err)
		return
	}
	l.linked[pad.Name()] = sink.Name()
	l.log.Debug("Linked %s to %s", pad.Name(), sink.Name())
}

// wire requests a mux pad from tmpl and connects pad to it through a new
// buffer node.
func (l *Linker) wire(pad engine.Pad, tmpl engine.PadTemplate) (engine.Pad, error) {
	sink, err := l.mux.RequestPad(tmpl)
	if err != nil {
		return nil, fmt.Errorf("request %s pad on %s: %w", tmpl.Name(), l.mux.Name(), err)
	}

	buf, err := l.graph.AddNode(l.bufferType, "")
	if err != nil {
		return nil, fmt.Errorf("add %s node for %s: %w", l.bufferType, pad.Name(), err)
	}
	bufSink, err := buf.StaticPad("sink")
	if err != nil {
		return nil, err
	}
	bufSrc, err := buf.StaticPad("src")
	if err != nil {
		return nil, err
	}

	if err := pad.Link(bufSink); err != nil {
		return nil, fmt.Errorf("link %s to %s: %w", pad.Name(), buf.Name(), err)
	}
	if err := bufSrc.Link(sink); err != nil {
		return nil, fmt.Errorf("link %s to %s:%s: %w", buf.Name(), l.mux.Name(), sink.Name(), err)
	}
	if err := buf.SyncStateWithParent(); err != nil {
		return nil, fmt.Errorf("start %s: %w", buf.Name(), err)
	}
	return sink, nil
}

// fail records the first wiring error and reports it on the event stream.
// Caller holds l.mu.
func (l *Linker) fail(err error) {
	if l.err == nil {
		l.err = err
	}
	l.stopped = true
	l.log.Error("Linking failed: %v", err)
	l.graph.PostError(l.demux, err)
}

// Stop prevents any further linking. Pads arriving afterwards are ignored.
func (l *Linker) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
}

// Err returns the first wiring failure, if any.
func (l *Linker) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Linked returns the number of streams linked into the mux.
func (l *Linker) Linked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.linked)
}

// Dropped returns the number of streams excluded from the output.
func (l *Linker) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// SelectTemplate returns the first request sink template, in declaration
// order, whose caps intersect caps.
func SelectTemplate(templates []engine.PadTemplate, caps engine.Caps) (engine.PadTemplate, bool) {
	for _, t := range templates {
		if t.Presence() != engine.PresenceRequest || t.Direction() != engine.DirectionSink {
			continue
		}
		if t.Caps().CanIntersect(caps) {
			return t, true
		}
	}
	return nil, false
}
