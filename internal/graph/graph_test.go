package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/muxtag/internal/engine"
	"github.com/backmassage/muxtag/internal/engine/enginetest"
)

const remuxDescriptor = "filesrc name=src ! queue name=queueafterfilesrc ! parsebin name=parse  " +
	"matroskamux name=mux ! queue name=queuebeforefilesink ! filesink name=sink sync=false"

func TestParse_RemuxDescriptor(t *testing.T) {
	d, err := Parse(remuxDescriptor)
	require.NoError(t, err)

	var names []string
	for _, n := range d.Nodes() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"src", "queueafterfilesrc", "parse", "mux", "queuebeforefilesink", "sink"}, names)
	assert.Equal(t, []Link{
		{From: "src", To: "queueafterfilesrc"},
		{From: "queueafterfilesrc", To: "parse"},
		{From: "mux", To: "queuebeforefilesink"},
		{From: "queuebeforefilesink", To: "sink"},
	}, d.Links())

	sink, ok := d.Node("sink")
	require.True(t, ok)
	assert.Equal(t, []Property{{Key: "sync", Value: false}}, sink.Properties)
}

func TestParse_PropertyTypes(t *testing.T) {
	d, err := Parse(`queue max-size-buffers=200 leaky=downstream silent=true ! filesink location="/tmp/a b.mkv" name="out"`)
	require.NoError(t, err)

	q, ok := d.Node("queue0")
	require.True(t, ok)
	assert.Equal(t, []Property{
		{Key: "max-size-buffers", Value: int64(200)},
		{Key: "leaky", Value: "downstream"},
		{Key: "silent", Value: true},
	}, q.Properties)

	out, ok := d.Node("out")
	require.True(t, ok)
	assert.Equal(t, []Property{{Key: "location", Value: "/tmp/a b.mkv"}}, out.Properties)
}

func TestParse_AutoNames(t *testing.T) {
	d, err := Parse("queue name=queue0 ! queue ! queue")
	require.NoError(t, err)
	var names []string
	for _, n := range d.Nodes() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"queue0", "queue1", "queue2"}, names)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"only whitespace", "   "},
		{"leading link", "! queue"},
		{"trailing link", "queue !"},
		{"double link", "queue ! ! queue"},
		{"property first", "name=src queue"},
		{"property after link", "queue ! sync=false filesink"},
		{"empty key", "queue =3"},
		{"unterminated quote", `filesink location="/tmp/x`},
		{"duplicate name", "queue name=q ! queue name=q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			var de *DescriptorError
			assert.True(t, errors.As(err, &de), "want DescriptorError, got %v", err)
		})
	}
}

func TestDescriptor_StringRoundTrip(t *testing.T) {
	d := MustParse(remuxDescriptor)
	again, err := Parse(d.String())
	require.NoError(t, err)
	assert.Equal(t, d.Nodes(), again.Nodes())
	assert.Equal(t, d.Links(), again.Links())
}

func TestDescriptor_Immutable(t *testing.T) {
	d := MustParse(remuxDescriptor)
	nodes := d.Nodes()
	nodes[0].Name = "changed"
	nodes[5].Properties[0].Value = true

	sink, _ := d.Node("sink")
	assert.Equal(t, "src", d.Nodes()[0].Name)
	assert.Equal(t, false, sink.Properties[0].Value)
}

func TestBuild_MissingTypes(t *testing.T) {
	eng := enginetest.Without("parsebin", "matroskamux")
	d := MustParse("filesrc ! parsebin ! queue  matroskamux ! parsebin ! filesink")

	g, err := Build(eng, d)
	assert.Nil(t, g)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"parsebin", "matroskamux"}, ce.Missing)
	assert.Equal(t, "missing engine node types: parsebin, matroskamux", ce.Error())
	assert.Empty(t, eng.Graphs(), "no graph may be created")
}

func TestBuild_Skeleton(t *testing.T) {
	eng := enginetest.NewDefault()
	g, err := Build(eng, MustParse(remuxDescriptor))
	require.NoError(t, err)

	fg := g.(*enginetest.Graph)
	assert.Equal(t, []string{"src", "queueafterfilesrc", "parse", "mux", "queuebeforefilesink", "sink"}, fg.NodeNames())
	assert.Equal(t, []string{
		"src:src -> queueafterfilesrc:sink",
		"queueafterfilesrc:src -> parse:sink",
		"mux:src -> queuebeforefilesink:sink",
		"queuebeforefilesink:src -> sink:sink",
	}, fg.Links())

	sync, ok := fg.Lookup("sink").Property("sync")
	require.True(t, ok)
	assert.Equal(t, false, sync)
	assert.Equal(t, engine.StateNull, g.State())
}

func TestBuild_LinkFailureTearsDown(t *testing.T) {
	eng := enginetest.NewDefault()
	// filesink has no src pad, so the static link cannot be made.
	_, err := Build(eng, MustParse("filesink name=a ! queue"))
	require.Error(t, err)

	graphs := eng.Graphs()
	require.Len(t, graphs, 1)
	assert.Equal(t, []engine.State{engine.StateNull}, graphs[0].States())
}
