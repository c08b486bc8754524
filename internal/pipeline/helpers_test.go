package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backmassage/muxtag/internal/config"
	"github.com/backmassage/muxtag/internal/engine/enginetest"
	"github.com/backmassage/muxtag/internal/graph"
)

// testLogger records formatted lines as "LEVEL message".
type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) add(level, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *testLogger) Debug(f string, a ...interface{})   { l.add("DEBUG", f, a) }
func (l *testLogger) Info(f string, a ...interface{})    { l.add("INFO", f, a) }
func (l *testLogger) Success(f string, a ...interface{}) { l.add("OK", f, a) }
func (l *testLogger) Warn(f string, a ...interface{})    { l.add("WARN", f, a) }
func (l *testLogger) Error(f string, a ...interface{})   { l.add("ERROR", f, a) }

// count returns how many lines start with "LEVEL " and contain substr.
func (l *testLogger) count(level, substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// remuxGraph builds the default remux skeleton on a fresh fake engine.
func remuxGraph(t *testing.T) (*enginetest.Engine, *enginetest.Graph) {
	t.Helper()
	eng := enginetest.NewDefault()
	g, err := graph.Build(eng, graph.MustParse(config.DefaultDescriptor))
	require.NoError(t, err)
	return eng, g.(*enginetest.Graph)
}

// newTestLinker returns a linker attached to the demux of the default graph.
func newTestLinker(t *testing.T) (*Linker, *enginetest.Graph, *testLogger) {
	t.Helper()
	_, g := remuxGraph(t)
	log := &testLogger{}
	l := NewLinker(g, g.Lookup(DemuxNode), g.Lookup(MuxNode), "queue", log)
	require.NoError(t, l.Attach())
	return l, g, log
}
