// Package engine defines the media-graph engine surface that muxtag drives.
//
// The orchestration layer never talks to GStreamer directly: it builds,
// links, and runs graphs through these interfaces. [gstengine] implements
// them on top of GStreamer; [enginetest] provides an in-memory engine for
// tests. Implementations must be safe for concurrent use, because pad-added
// callbacks run on engine worker threads while the control loop blocks in
// [Graph.NextMessage].
package engine

import (
	"errors"
	"fmt"
)

// TagComment is the metadata tag key muxtag embeds.
const TagComment = "comment"

// ErrNotFound is returned when a named node or pad does not exist.
var ErrNotFound = errors.New("not found")

// State is a node or graph run state.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Direction is the data-flow direction of a pad.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionSrc               // Produces data.
	DirectionSink              // Consumes data.
)

func (d Direction) String() string {
	switch d {
	case DirectionSrc:
		return "src"
	case DirectionSink:
		return "sink"
	}
	return "unknown"
}

// Presence is the cardinality of a pad template.
type Presence int

const (
	PresenceAlways    Presence = iota // Exactly one pad exists for the node's lifetime.
	PresenceSometimes                 // Pads appear as data is parsed.
	PresenceRequest                   // New pads are created on demand.
)

func (p Presence) String() string {
	switch p {
	case PresenceAlways:
		return "always"
	case PresenceSometimes:
		return "sometimes"
	case PresenceRequest:
		return "request"
	}
	return fmt.Sprintf("presence(%d)", int(p))
}

// MergeMode decides how a new tag value combines with an existing one.
type MergeMode int

const (
	MergeReplaceAll MergeMode = iota + 1
	MergeReplace
	MergeAppend
	MergePrepend
	MergeKeep
	MergeKeepAll
)

// MessageKind classifies bus messages. Everything the run loop does not act
// on is MessageOther.
type MessageKind int

const (
	MessageOther MessageKind = iota
	MessageEndOfStream
	MessageError
)

// Message is one event from a graph's ordered event stream.
type Message struct {
	Kind   MessageKind
	Type   string // Engine-specific message type name, for logging.
	Source string // Path of the emitting node, e.g. "/pipeline0/parse".
	Err    error  // Set for MessageError.
	Debug  string // Optional engine debug detail for MessageError.
}

// Caps is an opaque capability descriptor.
type Caps interface {
	// CanIntersect reports whether the two formats have any overlap.
	CanIntersect(other Caps) bool
	String() string
}

// PadTemplate describes pads a node type can expose.
type PadTemplate interface {
	Name() string
	Direction() Direction
	Presence() Presence
	Caps() Caps
}

// Pad is a concrete connection point on a node.
type Pad interface {
	Name() string
	Direction() Direction
	// CurrentCaps returns the negotiated caps, if negotiation has happened.
	CurrentCaps() (Caps, bool)
	// Link connects this source pad to sink.
	Link(sink Pad) error
}

// TagSetter is the tag-writing capability of a node.
type TagSetter interface {
	AddTag(key, value string, mode MergeMode) error
}

// Node is a named element inside a graph.
type Node interface {
	Name() string
	Type() string
	SetProperty(key string, value any) error
	PadTemplates() []PadTemplate
	RequestPad(tmpl PadTemplate) (Pad, error)
	StaticPad(name string) (Pad, error)
	SyncStateWithParent() error
	// OnPadAdded registers fn for every new pad the node exposes. fn may be
	// called from engine worker threads, possibly concurrently.
	OnPadAdded(fn func(Pad)) error
	// TagSetter returns the node's tag-writing capability, if it has one.
	TagSetter() (TagSetter, bool)
}

// Graph is a live pipeline.
type Graph interface {
	// AddNode creates a node of type typ and adds it to the graph. An empty
	// name lets the engine pick a unique one.
	AddNode(typ, name string) (Node, error)
	Node(name string) (Node, error)
	// Link connects the first compatible pads of src and dst.
	Link(src, dst Node) error
	SetState(state State) error
	State() State
	// NextMessage blocks until the next event is available.
	NextMessage() Message
	// PostError injects an error message from source into the event stream.
	PostError(source Node, err error)
}

// Engine resolves node types and creates graphs.
type Engine interface {
	HasNodeType(typ string) bool
	NewGraph(name string) (Graph, error)
}
