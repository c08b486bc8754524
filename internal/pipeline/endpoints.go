package pipeline

import (
	"fmt"

	"github.com/backmassage/muxtag/internal/engine"
)

// Node names the remux descriptor must declare.
const (
	SourceNode = "src"
	DemuxNode  = "parse"
	MuxNode    = "mux"
	SinkNode   = "sink"
)

// locationProperty is the file path property of the reader and writer.
const locationProperty = "location"

// Endpoints are the file locations of the graph's reader and writer.
type Endpoints struct {
	Source string
	Sink   string
}

// Bind assigns the endpoint locations to the SourceNode and SinkNode of g.
func (e Endpoints) Bind(g engine.Graph) error {
	for _, b := range []struct{ node, path string }{
		{SourceNode, e.Source},
		{SinkNode, e.Sink},
	} {
		n, err := g.Node(b.node)
		if err != nil {
			return fmt.Errorf("bind %s location: %w", b.node, err)
		}
		if err := n.SetProperty(locationProperty, b.path); err != nil {
			return fmt.Errorf("bind %s location: %w", b.node, err)
		}
	}
	return nil
}
