// Package gstengine implements [engine.Engine] on GStreamer via go-gst.
//
// GStreamer is initialized once, on the first call to [New]. Everything the
// orchestration layer needs maps onto a go-gst call, except the few
// operations go-gst does not expose, which go through a cgo shim (shim.go).
package gstengine

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"unicode/utf8"
	"unsafe"

	"github.com/go-gst/go-gst/gst"

	"github.com/backmassage/muxtag/internal/engine"
)

var initOnce sync.Once

// Engine is the GStreamer element registry.
type Engine struct{}

// New initializes GStreamer (once per process) and returns an engine.
func New() *Engine {
	initOnce.Do(func() { gst.Init(nil) })
	return &Engine{}
}

// HasNodeType reports whether an element factory named typ is registered.
func (e *Engine) HasNodeType(typ string) bool {
	return gst.Find(typ) != nil
}

func (e *Engine) NewGraph(name string) (engine.Graph, error) {
	p, err := gst.NewPipeline(name)
	if err != nil {
		return nil, fmt.Errorf("create pipeline %q: %w", name, err)
	}
	return &graph{pipeline: p, bus: p.GetPipelineBus()}, nil
}

type graph struct {
	pipeline *gst.Pipeline
	bus      *gst.Bus
}

func (g *graph) AddNode(typ, name string) (engine.Node, error) {
	var (
		elem *gst.Element
		err  error
	)
	if name == "" {
		elem, err = gst.NewElement(typ)
	} else {
		elem, err = gst.NewElementWithName(typ, name)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s element: %w", typ, err)
	}
	if err := g.pipeline.Add(elem); err != nil {
		return nil, fmt.Errorf("add %s to pipeline: %w", elem.GetName(), err)
	}
	return &node{elem: elem, typ: typ}, nil
}

func (g *graph) Node(name string) (engine.Node, error) {
	elem, err := g.pipeline.GetElementByName(name)
	if err != nil || elem == nil {
		return nil, fmt.Errorf("node %q: %w", name, engine.ErrNotFound)
	}
	typ := ""
	if f := elem.GetFactory(); f != nil {
		typ = f.GetName()
	}
	return &node{elem: elem, typ: typ}, nil
}

func (g *graph) Link(src, dst engine.Node) error {
	s, d, err := unwrapPair(src, dst)
	if err != nil {
		return err
	}
	if err := s.elem.Link(d.elem); err != nil {
		return fmt.Errorf("link %s -> %s: %w", s.Name(), d.Name(), err)
	}
	return nil
}

func (g *graph) SetState(state engine.State) error {
	if err := g.pipeline.SetState(toGstState(state)); err != nil {
		return fmt.Errorf("set pipeline state %s: %w", state, err)
	}
	return nil
}

func (g *graph) State() engine.State {
	return fromGstState(g.pipeline.GetCurrentState())
}

func (g *graph) NextMessage() engine.Message {
	for {
		msg := g.bus.TimedPop(gst.ClockTimeNone)
		if msg == nil {
			continue
		}
		out := engine.Message{
			Type:   msg.Type().String(),
			Source: messageSourcePath(unsafe.Pointer(msg.Instance())),
		}
		if out.Source == "" {
			out.Source = msg.Source()
		}
		switch msg.Type() {
		case gst.MessageEOS:
			out.Kind = engine.MessageEndOfStream
		case gst.MessageError:
			out.Kind = engine.MessageError
			if gerr := msg.ParseError(); gerr != nil {
				out.Err = errors.New(gerr.Error())
				out.Debug = gerr.DebugString()
			} else {
				out.Err = errors.New("unknown engine error")
			}
		}
		return out
	}
}

func (g *graph) PostError(source engine.Node, err error) {
	target := g.pipeline.Element
	if n, ok := source.(*node); ok {
		target = n.elem
	}
	postFailure(target.Unsafe(), err.Error(), fmt.Sprintf("%+v", err))
}

type node struct {
	elem *gst.Element
	typ  string
}

func (n *node) Name() string { return n.elem.GetName() }
func (n *node) Type() string { return n.typ }

// SetProperty converts value to text and lets GStreamer parse it into the
// property's type, the way gst-launch assigns properties.
func (n *node) SetProperty(key string, value any) error {
	if err := setPropertyText(n.elem.Unsafe(), key, propertyText(value)); err != nil {
		return fmt.Errorf("set %s.%s: %w", n.Name(), key, err)
	}
	return nil
}

func propertyText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return fmt.Sprint(value)
}

func (n *node) PadTemplates() []engine.PadTemplate {
	tmpls := n.elem.GetPadTemplates()
	out := make([]engine.PadTemplate, 0, len(tmpls))
	for _, t := range tmpls {
		out = append(out, &padTemplate{tmpl: t})
	}
	return out
}

func (n *node) RequestPad(tmpl engine.PadTemplate) (engine.Pad, error) {
	t, ok := tmpl.(*padTemplate)
	if !ok {
		return nil, fmt.Errorf("%s: foreign pad template %q", n.Name(), tmpl.Name())
	}
	p := requestPad(n.elem.Unsafe(), t.tmpl.Unsafe())
	if p == nil {
		return nil, fmt.Errorf("%s: request pad from template %q failed", n.Name(), t.Name())
	}
	return &pad{pad: gst.FromGstPadUnsafeFull(p)}, nil
}

func (n *node) StaticPad(name string) (engine.Pad, error) {
	p := n.elem.GetStaticPad(name)
	if p == nil {
		return nil, fmt.Errorf("pad %s:%s: %w", n.Name(), name, engine.ErrNotFound)
	}
	return &pad{pad: p}, nil
}

func (n *node) SyncStateWithParent() error {
	if !n.elem.SyncStateWithParent() {
		return fmt.Errorf("%s: sync state with parent failed", n.Name())
	}
	return nil
}

func (n *node) OnPadAdded(fn func(engine.Pad)) error {
	_, err := n.elem.Connect("pad-added", func(_ *gst.Element, p *gst.Pad) {
		fn(&pad{pad: p})
	})
	if err != nil {
		return fmt.Errorf("%s: connect pad-added: %w", n.Name(), err)
	}
	return nil
}

func (n *node) TagSetter() (engine.TagSetter, bool) {
	if !isTagSetter(n.elem.Unsafe()) {
		return nil, false
	}
	return tagSetter{elem: n.elem}, true
}

type tagSetter struct{ elem *gst.Element }

// ErrTagValue is returned for string tag values GStreamer would silently
// discard.
var ErrTagValue = errors.New("tag value must be non-empty UTF-8")

func (t tagSetter) AddTag(key, value string, mode engine.MergeMode) error {
	if value == "" || !utf8.ValidString(value) {
		return fmt.Errorf("tag %s: %w", key, ErrTagValue)
	}
	addStringTag(t.elem.Unsafe(), key, value, mode)
	return nil
}

type padTemplate struct{ tmpl *gst.PadTemplate }

func (t *padTemplate) Name() string { return t.tmpl.Name() }

func (t *padTemplate) Direction() engine.Direction { return fromGstDirection(t.tmpl.Direction()) }

func (t *padTemplate) Presence() engine.Presence {
	switch t.tmpl.Presence() {
	case gst.PadPresenceRequest:
		return engine.PresenceRequest
	case gst.PadPresenceSometimes:
		return engine.PresenceSometimes
	}
	return engine.PresenceAlways
}

func (t *padTemplate) Caps() engine.Caps { return &caps{caps: t.tmpl.Caps()} }

type pad struct{ pad *gst.Pad }

func (p *pad) Name() string { return p.pad.GetName() }

func (p *pad) Direction() engine.Direction { return fromGstDirection(p.pad.GetDirection()) }

func (p *pad) CurrentCaps() (engine.Caps, bool) {
	c := p.pad.GetCurrentCaps()
	if c == nil {
		return nil, false
	}
	return &caps{caps: c}, true
}

func (p *pad) Link(sink engine.Pad) error {
	s, ok := sink.(*pad)
	if !ok {
		return fmt.Errorf("link %s: foreign pad %q", p.Name(), sink.Name())
	}
	if ret := p.pad.Link(s.pad); ret != gst.PadLinkOK {
		return fmt.Errorf("link %s -> %s: %v", p.Name(), s.Name(), ret)
	}
	return nil
}

type caps struct{ caps *gst.Caps }

func (c *caps) CanIntersect(other engine.Caps) bool {
	o, ok := other.(*caps)
	if !ok || c.caps == nil || o.caps == nil {
		return false
	}
	return c.caps.CanIntersect(o.caps)
}

func (c *caps) String() string {
	if c.caps == nil {
		return "EMPTY"
	}
	return c.caps.String()
}

func unwrapPair(src, dst engine.Node) (*node, *node, error) {
	s, ok := src.(*node)
	if !ok {
		return nil, nil, fmt.Errorf("foreign node %q", src.Name())
	}
	d, ok := dst.(*node)
	if !ok {
		return nil, nil, fmt.Errorf("foreign node %q", dst.Name())
	}
	return s, d, nil
}

func toGstState(s engine.State) gst.State {
	switch s {
	case engine.StateReady:
		return gst.StateReady
	case engine.StatePaused:
		return gst.StatePaused
	case engine.StatePlaying:
		return gst.StatePlaying
	}
	return gst.StateNull
}

func fromGstState(s gst.State) engine.State {
	switch s {
	case gst.StateReady:
		return engine.StateReady
	case gst.StatePaused:
		return engine.StatePaused
	case gst.StatePlaying:
		return engine.StatePlaying
	}
	return engine.StateNull
}

func fromGstDirection(d gst.PadDirection) engine.Direction {
	switch d {
	case gst.PadDirectionSource:
		return engine.DirectionSrc
	case gst.PadDirectionSink:
		return engine.DirectionSink
	}
	return engine.DirectionUnknown
}
