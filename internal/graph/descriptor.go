// Package graph parses declarative graph descriptors and builds live graph
// skeletons from them.
//
// Descriptors use gst-launch syntax: "!" links the previous node to the
// next, a node type without a preceding "!" starts a new chain, and
// key=value tokens set properties on the node before them:
//
//	filesrc name=src ! queue ! parsebin name=parse  matroskamux name=mux ! filesink name=sink sync=false
package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// Property is a typed static node property. Value is a bool, an int64, or a
// string, decided when the descriptor is parsed.
type Property struct {
	Key   string
	Value any
}

// NodeSpec declares one node instance.
type NodeSpec struct {
	Type       string
	Name       string
	Properties []Property
}

// Link is a static node-to-node connection.
type Link struct {
	From string
	To   string
}

// Descriptor is a parsed graph template. It is immutable: accessors return
// copies.
type Descriptor struct {
	nodes []NodeSpec
	links []Link
}

// DescriptorError reports a syntax problem in a descriptor.
type DescriptorError struct {
	Text   string
	Reason string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("invalid graph descriptor: %s", e.Reason)
}

// Nodes returns the declared nodes in descriptor order.
func (d *Descriptor) Nodes() []NodeSpec {
	out := make([]NodeSpec, len(d.nodes))
	for i, n := range d.nodes {
		n.Properties = append([]Property(nil), n.Properties...)
		out[i] = n
	}
	return out
}

// Links returns the static links in descriptor order.
func (d *Descriptor) Links() []Link {
	return append([]Link(nil), d.links...)
}

// Node returns the node named name.
func (d *Descriptor) Node(name string) (NodeSpec, bool) {
	for _, n := range d.Nodes() {
		if n.Name == name {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// Types returns the referenced node types, de-duplicated, in order of first
// appearance.
func (d *Descriptor) Types() []string {
	seen := make(map[string]bool, len(d.nodes))
	var types []string
	for _, n := range d.nodes {
		if !seen[n.Type] {
			seen[n.Type] = true
			types = append(types, n.Type)
		}
	}
	return types
}

// String renders the descriptor back to launch syntax.
func (d *Descriptor) String() string {
	linked := make(map[Link]bool, len(d.links))
	for _, l := range d.links {
		linked[l] = true
	}
	var b strings.Builder
	for i, n := range d.nodes {
		if i > 0 {
			if linked[Link{From: d.nodes[i-1].Name, To: n.Name}] {
				b.WriteString(" ! ")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteString(n.Type)
		b.WriteString(" name=")
		b.WriteString(n.Name)
		for _, p := range n.Properties {
			b.WriteString(" ")
			b.WriteString(p.Key)
			b.WriteString("=")
			b.WriteString(formatValue(p.Value))
		}
	}
	return b.String()
}

// Parse parses a descriptor. Unnamed nodes are named "<type><n>", counting
// from 0 per type and skipping names already in use.
func Parse(text string) (*Descriptor, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, &DescriptorError{Text: text, Reason: err.Error()}
	}
	fail := func(format string, args ...any) (*Descriptor, error) {
		return nil, &DescriptorError{Text: text, Reason: fmt.Sprintf(format, args...)}
	}

	var (
		nodes   []NodeSpec
		links   [][2]int
		pending bool
	)
	for _, tok := range tokens {
		if tok.text == "!" && !tok.quoted {
			if len(nodes) == 0 || pending {
				return fail("unexpected '!'")
			}
			pending = true
			continue
		}
		if key, raw, ok := strings.Cut(tok.text, "="); ok && !tok.quoted {
			if len(nodes) == 0 || pending {
				return fail("property %q has no node", tok.text)
			}
			if key == "" {
				return fail("property %q has an empty key", tok.text)
			}
			cur := &nodes[len(nodes)-1]
			if key == "name" {
				cur.Name = unquote(raw)
				continue
			}
			cur.Properties = append(cur.Properties, Property{Key: key, Value: parseValue(raw)})
			continue
		}
		if tok.quoted {
			return fail("unexpected quoted token %q", tok.text)
		}
		nodes = append(nodes, NodeSpec{Type: tok.text})
		if pending {
			links = append(links, [2]int{len(nodes) - 2, len(nodes) - 1})
			pending = false
		}
	}
	if len(nodes) == 0 {
		return fail("no nodes")
	}
	if pending {
		return fail("trailing '!'")
	}

	taken := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.Name == "" {
			continue
		}
		if taken[n.Name] {
			return fail("duplicate node name %q", n.Name)
		}
		taken[n.Name] = true
	}
	counters := make(map[string]int)
	for i := range nodes {
		if nodes[i].Name != "" {
			continue
		}
		for {
			name := nodes[i].Type + strconv.Itoa(counters[nodes[i].Type])
			counters[nodes[i].Type]++
			if !taken[name] {
				nodes[i].Name = name
				taken[name] = true
				break
			}
		}
	}

	d := &Descriptor{nodes: nodes}
	for _, l := range links {
		d.links = append(d.links, Link{From: nodes[l[0]].Name, To: nodes[l[1]].Name})
	}
	return d, nil
}

// MustParse is Parse for descriptors known to be valid. It panics on error.
func MustParse(text string) *Descriptor {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

type token struct {
	text   string
	quoted bool // The whole token is one double-quoted string.
}

// tokenize splits on whitespace, keeping double-quoted runs together. "!"
// outside quotes is always a token on its own.
func tokenize(text string) ([]token, error) {
	var (
		tokens  []token
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		s := cur.String()
		tokens = append(tokens, token{text: s, quoted: len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'})
		cur.Reset()
	}
	for _, r := range text {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case inQuote:
			cur.WriteRune(r)
		case r == '!':
			flush()
			tokens = append(tokens, token{text: "!"})
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	flush()
	return tokens, nil
}

func unquote(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func parseValue(raw string) any {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

func formatValue(v any) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case string:
		_, numErr := strconv.ParseInt(val, 10, 64)
		if val == "" || strings.ContainsAny(val, " \t!=") || numErr == nil || val == "true" || val == "false" {
			return `"` + val + `"`
		}
		return val
	}
	return fmt.Sprint(v)
}
