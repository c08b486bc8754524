package enginetest

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/muxtag/internal/engine"
)

func TestCaps_CanIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Caps
		want bool
	}{
		{"shared type", Caps{"audio/mpeg", "audio/x-opus"}, Caps{"audio/x-opus"}, true},
		{"disjoint", Caps{"audio/mpeg"}, Caps{"video/x-h264"}, false},
		{"any left", Caps{Any}, Caps{"video/x-h264"}, true},
		{"any right", Caps{"text/x-raw"}, Caps{Any}, true},
		{"empty", Caps{}, Caps{"audio/mpeg"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.CanIntersect(tt.b))
		})
	}
}

func TestGraph_AddNodeNames(t *testing.T) {
	g := newGraph(t)

	first, err := g.AddNode("queue", "")
	require.NoError(t, err)
	second, err := g.AddNode("queue", "")
	require.NoError(t, err)
	assert.Equal(t, "queue0", first.Name())
	assert.Equal(t, "queue1", second.Name())

	_, err = g.AddNode("queue", "queue0")
	assert.Error(t, err, "duplicate name")

	_, err = g.AddNode("x264enc", "")
	assert.Error(t, err, "unregistered type")
}

func TestNode_RequestPadConcurrent(t *testing.T) {
	g := newGraph(t)
	mux, err := g.AddNode("matroskamux", "mux")
	require.NoError(t, err)

	var audio engine.PadTemplate
	for _, tmpl := range mux.PadTemplates() {
		if tmpl.Name() == "audio_%u" {
			audio = tmpl
		}
	}
	require.NotNil(t, audio)

	const n = 32
	names := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := mux.RequestPad(audio)
			if assert.NoError(t, err) {
				names <- p.Name()
			}
		}()
	}
	wg.Wait()
	close(names)

	seen := make(map[string]bool)
	for name := range names {
		assert.False(t, seen[name], "pad %s allocated twice", name)
		seen[name] = true
	}
	assert.Len(t, seen, n)
}

func TestPad_LinkOnce(t *testing.T) {
	g := newGraph(t)
	src, err := g.AddNode("filesrc", "src")
	require.NoError(t, err)
	q, err := g.AddNode("queue", "q")
	require.NoError(t, err)

	require.NoError(t, g.Link(src, q))
	assert.Equal(t, []string{"src:src -> q:sink"}, g.(*Graph).Links())

	srcPad, err := src.StaticPad("src")
	require.NoError(t, err)
	sinkPad, err := q.StaticPad("sink")
	require.NoError(t, err)
	assert.True(t, errors.Is(srcPad.Link(sinkPad), ErrWasLinked))
}

func TestTagSetter_MergeModes(t *testing.T) {
	g := newGraph(t)
	mux, err := g.AddNode("matroskamux", "mux")
	require.NoError(t, err)
	ts, ok := mux.TagSetter()
	require.True(t, ok)

	n := mux.(*Node)
	require.NoError(t, ts.AddTag("comment", "a", engine.MergeReplace))
	require.NoError(t, ts.AddTag("comment", "b", engine.MergeAppend))
	assert.Equal(t, []string{"a", "b"}, n.Tags("comment"))
	require.NoError(t, ts.AddTag("comment", "c", engine.MergeKeep))
	assert.Equal(t, []string{"a", "b"}, n.Tags("comment"))
	require.NoError(t, ts.AddTag("comment", "d", engine.MergeReplace))
	assert.Equal(t, []string{"d"}, n.Tags("comment"))

	q, err := g.AddNode("queue", "")
	require.NoError(t, err)
	_, ok = q.TagSetter()
	assert.False(t, ok)
}

func TestGraph_SetStatePropagates(t *testing.T) {
	g := newGraph(t)
	q, err := g.AddNode("queue", "q")
	require.NoError(t, err)

	require.NoError(t, g.SetState(engine.StatePlaying))
	assert.Equal(t, engine.StatePlaying, q.(*Node).State())

	late, err := g.AddNode("queue", "")
	require.NoError(t, err)
	assert.Equal(t, engine.StateNull, late.(*Node).State())
	require.NoError(t, late.SyncStateWithParent())
	assert.Equal(t, engine.StatePlaying, late.(*Node).State())
}

func newGraph(t *testing.T) engine.Graph {
	t.Helper()
	g, err := NewDefault().NewGraph("pipeline0")
	require.NoError(t, err)
	return g
}

func TestEngine_OnNewGraph(t *testing.T) {
	e := NewDefault()
	var seen []string
	e.OnNewGraph(func(g *Graph) { seen = append(seen, g.name) })
	e.OnNewGraph(func(g *Graph) { seen = append(seen, "again:"+g.name) })

	_, err := e.NewGraph("a")
	require.NoError(t, err)
	_, err = e.NewGraph("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "again:a", "b", "again:b"}, seen)
}

func TestNode_ExposeRunsEveryHandler(t *testing.T) {
	e := NewDefault()
	g, err := e.NewGraph("g")
	require.NoError(t, err)
	n, err := g.AddNode("parsebin", "parse")
	require.NoError(t, err)

	var got []string
	for _, prefix := range []string{"first", "second"} {
		require.NoError(t, n.OnPadAdded(func(p engine.Pad) { got = append(got, prefix+":"+p.Name()) }))
	}
	n.(*Node).Expose("src_0", Caps{"audio/mpeg"})
	assert.Equal(t, []string{"first:src_0", "second:src_0"}, got)
}
