package graph

import (
	"fmt"
	"strings"

	"github.com/backmassage/muxtag/internal/engine"
)

// DefaultGraphName is the name of graphs created by [Build].
const DefaultGraphName = "pipeline0"

// ConfigError lists descriptor node types the engine does not provide.
type ConfigError struct {
	Missing []string // First-encounter order, no duplicates.
}

func (e *ConfigError) Error() string {
	return "missing engine node types: " + strings.Join(e.Missing, ", ")
}

// MissingTypes returns the descriptor's node types that eng cannot
// instantiate, in first-encounter order.
func MissingTypes(eng engine.Engine, d *Descriptor) []string {
	var missing []string
	for _, typ := range d.Types() {
		if !eng.HasNodeType(typ) {
			missing = append(missing, typ)
		}
	}
	return missing
}

// Build instantiates d on eng: every node is created and given its static
// properties, and every static link is connected. Node types are checked
// before anything is created, so a [ConfigError] never leaves a graph
// behind. If instantiation fails midway, the partial graph is set back to
// null before the error is returned.
func Build(eng engine.Engine, d *Descriptor) (engine.Graph, error) {
	if missing := MissingTypes(eng, d); len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	g, err := eng.NewGraph(DefaultGraphName)
	if err != nil {
		return nil, err
	}
	if err := populate(g, d); err != nil {
		_ = g.SetState(engine.StateNull)
		return nil, err
	}
	return g, nil
}

func populate(g engine.Graph, d *Descriptor) error {
	nodes := make(map[string]engine.Node, len(d.nodes))
	for _, spec := range d.nodes {
		n, err := g.AddNode(spec.Type, spec.Name)
		if err != nil {
			return fmt.Errorf("add node %s (%s): %w", spec.Name, spec.Type, err)
		}
		for _, p := range spec.Properties {
			if err := n.SetProperty(p.Key, p.Value); err != nil {
				return fmt.Errorf("node %s: %w", spec.Name, err)
			}
		}
		nodes[spec.Name] = n
	}
	for _, l := range d.links {
		if err := g.Link(nodes[l.From], nodes[l.To]); err != nil {
			return fmt.Errorf("static link %s -> %s: %w", l.From, l.To, err)
		}
	}
	return nil
}
