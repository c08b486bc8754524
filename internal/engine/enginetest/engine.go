// Package enginetest provides an in-memory [engine.Engine] for tests.
//
// Caps are plain media-type lists; two caps intersect when they share a
// media type or either side is [Any]. Graphs record every state change, node,
// property, tag, and pad link so tests can assert on the resulting topology.
// Like a real engine, everything here is safe for concurrent use.
package enginetest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/backmassage/muxtag/internal/engine"
)

// Any matches every media type.
const Any = "ANY"

// ErrWasLinked is returned when either pad of a link is already linked.
var ErrWasLinked = errors.New("pad was already linked")

// Caps is a list of media types.
type Caps []string

// CanIntersect reports whether c and other share a media type.
func (c Caps) CanIntersect(other engine.Caps) bool {
	o, ok := other.(Caps)
	if !ok {
		return false
	}
	for _, a := range c {
		for _, b := range o {
			if a == b || a == Any || b == Any {
				return true
			}
		}
	}
	return false
}

func (c Caps) String() string {
	if len(c) == 0 {
		return "EMPTY"
	}
	return strings.Join(c, "; ")
}

// Template is a pad template of a [NodeType].
type Template struct {
	name     string
	dir      engine.Direction
	presence engine.Presence
	caps     Caps
}

// NewTemplate returns a pad template. Request template names use "%u" as
// the instance counter placeholder, e.g. "audio_%u".
func NewTemplate(name string, dir engine.Direction, presence engine.Presence, caps ...string) *Template {
	return &Template{name: name, dir: dir, presence: presence, caps: Caps(caps)}
}

func (t *Template) Name() string                { return t.name }
func (t *Template) Direction() engine.Direction { return t.dir }
func (t *Template) Presence() engine.Presence   { return t.presence }
func (t *Template) Caps() engine.Caps           { return t.caps }

// NodeType is a registered node type.
type NodeType struct {
	Name      string
	Templates []*Template
	TagSetter bool
}

// DefaultTypes returns the node types used by muxtag's default descriptor,
// with template layouts modeled on the GStreamer elements of the same name.
func DefaultTypes() []NodeType {
	src, sink := engine.DirectionSrc, engine.DirectionSink
	always, sometimes, request := engine.PresenceAlways, engine.PresenceSometimes, engine.PresenceRequest
	return []NodeType{
		{Name: "filesrc", Templates: []*Template{NewTemplate("src", src, always, Any)}},
		{Name: "queue", Templates: []*Template{
			NewTemplate("sink", sink, always, Any),
			NewTemplate("src", src, always, Any),
		}},
		{Name: "parsebin", Templates: []*Template{
			NewTemplate("sink", sink, always, Any),
			NewTemplate("src_%u", src, sometimes, Any),
		}},
		{Name: "matroskamux", TagSetter: true, Templates: []*Template{
			NewTemplate("src", src, always, "video/x-matroska"),
			NewTemplate("video_%u", sink, request, "video/x-h264", "video/x-h265", "video/x-vp8", "video/x-vp9"),
			NewTemplate("audio_%u", sink, request, "audio/mpeg", "audio/x-opus", "audio/x-ac3", "audio/x-flac"),
			NewTemplate("subtitle_%u", sink, request, "text/x-raw", "application/x-ssa", "subpicture/x-pgs"),
		}},
		{Name: "filesink", Templates: []*Template{NewTemplate("sink", sink, always, Any)}},
	}
}

// Engine is an in-memory node-type registry.
type Engine struct {
	mu     sync.Mutex
	types  map[string]NodeType
	calls  int
	graphs []*Graph
	hooks  []func(*Graph)
}

// New returns an engine with the given node types registered.
func New(types ...NodeType) *Engine {
	e := &Engine{types: make(map[string]NodeType, len(types))}
	for _, t := range types {
		e.types[t.Name] = t
	}
	return e
}

// NewDefault returns an engine with [DefaultTypes] registered.
func NewDefault() *Engine { return New(DefaultTypes()...) }

// Without returns an engine with the default types minus the named ones.
func Without(names ...string) *Engine {
	e := NewDefault()
	for _, n := range names {
		delete(e.types, n)
	}
	return e
}

func (e *Engine) HasNodeType(typ string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	_, ok := e.types[typ]
	return ok
}

func (e *Engine) NewGraph(name string) (engine.Graph, error) {
	e.mu.Lock()
	e.calls++
	g := &Graph{
		engine:   e,
		name:     name,
		nodes:    make(map[string]*Node),
		messages: make(chan engine.Message, 256),
	}
	e.graphs = append(e.graphs, g)
	hooks := append(([]func(*Graph))(nil), e.hooks...)
	e.mu.Unlock()

	for _, h := range hooks {
		h(g)
	}
	return g, nil
}

// OnNewGraph runs fn on every graph created afterwards, before NewGraph
// returns it.
func (e *Engine) OnNewGraph(fn func(*Graph)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// Calls returns how many engine methods have been invoked.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Graphs returns every graph created so far.
func (e *Engine) Graphs() []*Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Graph(nil), e.graphs...)
}

func (e *Engine) nodeType(typ string) (NodeType, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.types[typ]
	return t, ok
}

// Graph is an in-memory live graph.
type Graph struct {
	engine *Engine
	name   string

	mu        sync.Mutex
	nodes     map[string]*Node
	order     []string
	links     []string
	state     engine.State
	history   []engine.State
	onPlaying []func()
	startErr  error
	stopErr   error

	messages chan engine.Message
}

func (g *Graph) AddNode(typ, name string) (engine.Node, error) {
	t, ok := g.engine.nodeType(typ)
	if !ok {
		return nil, fmt.Errorf("no such node type %q", typ)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if name == "" {
		for i := 0; ; i++ {
			candidate := typ + strconv.Itoa(i)
			if _, taken := g.nodes[candidate]; !taken {
				name = candidate
				break
			}
		}
	}
	if _, taken := g.nodes[name]; taken {
		return nil, fmt.Errorf("node name %q already in use", name)
	}

	n := &Node{
		graph:     g,
		name:      name,
		typ:       typ,
		tagSetter: t.TagSetter,
		templates: t.Templates,
		props:     make(map[string]any),
		pads:      make(map[string]*Pad),
		counters:  make(map[*Template]int),
		tags:      make(map[string][]string),
	}
	for _, tmpl := range t.Templates {
		if tmpl.presence == engine.PresenceAlways {
			n.pads[tmpl.name] = &Pad{node: n, name: tmpl.name, dir: tmpl.dir, caps: tmpl.caps}
			n.padOrder = append(n.padOrder, tmpl.name)
		}
	}
	g.nodes[name] = n
	g.order = append(g.order, name)
	return n, nil
}

func (g *Graph) Node(name string) (engine.Node, error) {
	n := g.Lookup(name)
	if n == nil {
		return nil, fmt.Errorf("node %q: %w", name, engine.ErrNotFound)
	}
	return n, nil
}

// Lookup returns the named node, or nil.
func (g *Graph) Lookup(name string) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[name]
}

// NodeNames returns node names in creation order.
func (g *Graph) NodeNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.order...)
}

// NodesOfType returns nodes of typ in creation order.
func (g *Graph) NodesOfType(typ string) []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*Node
	for _, name := range g.order {
		if n := g.nodes[name]; n.typ == typ {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) Link(src, dst engine.Node) error {
	s, ok := src.(*Node)
	if !ok {
		return fmt.Errorf("foreign node %q", src.Name())
	}
	d, ok := dst.(*Node)
	if !ok {
		return fmt.Errorf("foreign node %q", dst.Name())
	}
	sp := s.freePad(engine.DirectionSrc)
	if sp == nil {
		return fmt.Errorf("link %s -> %s: no free src pad", s.name, d.name)
	}
	dp := d.freePad(engine.DirectionSink)
	if dp == nil {
		return fmt.Errorf("link %s -> %s: no free sink pad", s.name, d.name)
	}
	return sp.Link(dp)
}

// Links returns pad links as "node:pad -> node:pad" in link order.
func (g *Graph) Links() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.links...)
}

func (g *Graph) SetState(state engine.State) error {
	g.mu.Lock()
	if state == engine.StatePlaying && g.startErr != nil {
		err := g.startErr
		g.mu.Unlock()
		return err
	}
	if state == engine.StateNull && g.stopErr != nil {
		err := g.stopErr
		g.mu.Unlock()
		return err
	}
	g.state = state
	g.history = append(g.history, state)
	for _, n := range g.nodes {
		n.setState(state)
	}
	var hooks []func()
	if state == engine.StatePlaying {
		hooks = append(hooks, g.onPlaying...)
	}
	g.mu.Unlock()

	for _, h := range hooks {
		go h()
	}
	return nil
}

func (g *Graph) State() engine.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// States returns every state the graph was set to, in order.
func (g *Graph) States() []engine.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]engine.State(nil), g.history...)
}

// FailStart makes SetState(StatePlaying) return err.
func (g *Graph) FailStart(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startErr = err
}

// FailStop makes SetState(StateNull) return err.
func (g *Graph) FailStop(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopErr = err
}

// OnPlaying runs fn on its own goroutine each time the graph starts playing.
// Tests use it to script demux pad discovery and bus messages.
func (g *Graph) OnPlaying(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onPlaying = append(g.onPlaying, fn)
}

func (g *Graph) NextMessage() engine.Message {
	return <-g.messages
}

// Post appends msg to the event stream.
func (g *Graph) Post(msg engine.Message) {
	g.messages <- msg
}

// PostEOS appends an end-of-stream message.
func (g *Graph) PostEOS() {
	g.Post(engine.Message{Kind: engine.MessageEndOfStream, Type: "eos", Source: "/" + g.name})
}

func (g *Graph) PostError(source engine.Node, err error) {
	g.Post(engine.Message{Kind: engine.MessageError, Type: "error", Source: g.path(source), Err: err})
}

func (g *Graph) path(n engine.Node) string {
	if n == nil {
		return "/" + g.name
	}
	return "/" + g.name + "/" + n.Name()
}

func (g *Graph) recordLink(src, sink *Pad) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.links = append(g.links, src.String()+" -> "+sink.String())
}

// Node is an in-memory node.
type Node struct {
	graph     *Graph
	name      string
	typ       string
	tagSetter bool
	templates []*Template

	mu         sync.Mutex
	props      map[string]any
	pads       map[string]*Pad
	padOrder   []string
	counters   map[*Template]int
	handlers   []func(engine.Pad)
	state      engine.State
	tags       map[string][]string
	requestErr error
	syncErr    error
}

func (n *Node) Name() string { return n.name }
func (n *Node) Type() string { return n.typ }

func (n *Node) SetProperty(key string, value any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.props[key] = value
	return nil
}

// Property returns a property previously assigned with SetProperty.
func (n *Node) Property(key string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.props[key]
	return v, ok
}

func (n *Node) PadTemplates() []engine.PadTemplate {
	out := make([]engine.PadTemplate, len(n.templates))
	for i, t := range n.templates {
		out[i] = t
	}
	return out
}

func (n *Node) RequestPad(tmpl engine.PadTemplate) (engine.Pad, error) {
	t, ok := tmpl.(*Template)
	if !ok || !n.ownsTemplate(t) {
		return nil, fmt.Errorf("%s: template %q does not belong to node", n.name, tmpl.Name())
	}
	if t.presence != engine.PresenceRequest {
		return nil, fmt.Errorf("%s: template %q is not a request template", n.name, t.name)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.requestErr != nil {
		return nil, n.requestErr
	}
	idx := n.counters[t]
	n.counters[t] = idx + 1
	name := strings.Replace(t.name, "%u", strconv.Itoa(idx), 1)
	p := &Pad{node: n, name: name, dir: t.dir, caps: t.caps}
	n.pads[name] = p
	n.padOrder = append(n.padOrder, name)
	return p, nil
}

func (n *Node) StaticPad(name string) (engine.Pad, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.pads[name]
	if !ok {
		return nil, fmt.Errorf("pad %s:%s: %w", n.name, name, engine.ErrNotFound)
	}
	return p, nil
}

// Pads returns pad names in creation order.
func (n *Node) Pads() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.padOrder...)
}

func (n *Node) SyncStateWithParent() error {
	state := n.graph.State()
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.syncErr != nil {
		return n.syncErr
	}
	n.state = state
	return nil
}

// State returns the node's own run state.
func (n *Node) State() engine.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Node) OnPadAdded(fn func(engine.Pad)) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, fn)
	return nil
}

// Expose adds a source pad with the given negotiated caps and fires the
// pad-added handlers on the calling goroutine. Nil caps model a pad that
// has not negotiated yet.
func (n *Node) Expose(name string, caps Caps) *Pad {
	n.mu.Lock()
	p, ok := n.pads[name]
	if !ok {
		p = &Pad{node: n, name: name, dir: engine.DirectionSrc, caps: caps}
		n.pads[name] = p
		n.padOrder = append(n.padOrder, name)
	}
	handlers := append(([]func(engine.Pad))(nil), n.handlers...)
	n.mu.Unlock()

	for _, h := range handlers {
		h(p)
	}
	return p
}

func (n *Node) TagSetter() (engine.TagSetter, bool) {
	if !n.tagSetter {
		return nil, false
	}
	return tagSetter{n}, true
}

// Tags returns the values stored for key.
func (n *Node) Tags(key string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.tags[key]...)
}

// FailRequestPads makes RequestPad return err.
func (n *Node) FailRequestPads(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requestErr = err
}

// FailSync makes SyncStateWithParent return err.
func (n *Node) FailSync(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.syncErr = err
}

func (n *Node) setState(state engine.State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = state
}

func (n *Node) ownsTemplate(t *Template) bool {
	for _, own := range n.templates {
		if own == t {
			return true
		}
	}
	return false
}

// freePad returns the first unlinked pad with direction dir.
func (n *Node) freePad(dir engine.Direction) *Pad {
	n.mu.Lock()
	pads := make([]*Pad, 0, len(n.padOrder))
	for _, name := range n.padOrder {
		pads = append(pads, n.pads[name])
	}
	n.mu.Unlock()

	for _, p := range pads {
		if p.dir == dir && p.Peer() == nil {
			return p
		}
	}
	return nil
}

type tagSetter struct{ n *Node }

func (t tagSetter) AddTag(key, value string, mode engine.MergeMode) error {
	t.n.mu.Lock()
	defer t.n.mu.Unlock()
	existing := t.n.tags[key]
	switch mode {
	case engine.MergeReplaceAll:
		t.n.tags = map[string][]string{key: {value}}
	case engine.MergeReplace:
		t.n.tags[key] = []string{value}
	case engine.MergeAppend:
		t.n.tags[key] = append(existing, value)
	case engine.MergePrepend:
		t.n.tags[key] = append([]string{value}, existing...)
	case engine.MergeKeep, engine.MergeKeepAll:
		if len(existing) == 0 {
			t.n.tags[key] = []string{value}
		}
	default:
		return fmt.Errorf("unknown merge mode %d", mode)
	}
	return nil
}

// Pad is an in-memory pad.
type Pad struct {
	node *Node
	name string
	dir  engine.Direction
	caps Caps

	mu   sync.Mutex
	peer *Pad
}

func (p *Pad) Name() string                { return p.name }
func (p *Pad) Direction() engine.Direction { return p.dir }

func (p *Pad) CurrentCaps() (engine.Caps, bool) {
	if p.caps == nil {
		return nil, false
	}
	return p.caps, true
}

// Link connects p to sink. Pads lock source first, then sink, so concurrent
// links never deadlock.
func (p *Pad) Link(sink engine.Pad) error {
	s, ok := sink.(*Pad)
	if !ok {
		return fmt.Errorf("link %s: foreign pad %q", p, sink.Name())
	}
	if p.dir != engine.DirectionSrc || s.dir != engine.DirectionSink {
		return fmt.Errorf("link %s -> %s: wrong direction", p, s)
	}
	if p.node.graph != s.node.graph {
		return fmt.Errorf("link %s -> %s: pads belong to different graphs", p, s)
	}
	if p.caps != nil && s.caps != nil && !p.caps.CanIntersect(s.caps) {
		return fmt.Errorf("link %s -> %s: caps do not intersect", p, s)
	}

	p.mu.Lock()
	s.mu.Lock()
	if p.peer != nil || s.peer != nil {
		s.mu.Unlock()
		p.mu.Unlock()
		return fmt.Errorf("link %s -> %s: %w", p, s, ErrWasLinked)
	}
	p.peer, s.peer = s, p
	s.mu.Unlock()
	p.mu.Unlock()

	p.node.graph.recordLink(p, s)
	return nil
}

// Peer returns the linked pad, or nil.
func (p *Pad) Peer() *Pad {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer
}

func (p *Pad) String() string { return p.node.name + ":" + p.name }
