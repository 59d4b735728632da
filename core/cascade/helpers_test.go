package cascade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func opts(names ...string) []Option {
	options := make([]Option, 0, len(names))
	for _, n := range names {
		options = append(options, Option{ID: n, Name: n})
	}
	return options
}

func ids(options []Option) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		out = append(out, opt.ID)
	}
	return out
}

// static returns options by parent value; unknown parents get no options.
func static(byParent map[string][]Option) FetchFunc {
	return func(_ context.Context, parent string) ([]Option, error) {
		return byParent[parent], nil
	}
}

func failing(msg string) FetchFunc {
	return func(context.Context, string) ([]Option, error) {
		return nil, errors.New(msg)
	}
}

// gate blocks fetches until their parent value is released.
type gate struct {
	mu       sync.Mutex
	byParent map[string][]Option
	chans    map[string]chan struct{}
	calls    []string
}

func newGate(byParent map[string][]Option) *gate {
	return &gate{byParent: byParent, chans: make(map[string]chan struct{})}
}

func (g *gate) ch(parent string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.chans[parent]
	if !ok {
		ch = make(chan struct{})
		g.chans[parent] = ch
	}
	return ch
}

func (g *gate) fetch(ctx context.Context, parent string) ([]Option, error) {
	g.mu.Lock()
	g.calls = append(g.calls, parent)
	g.mu.Unlock()

	select {
	case <-g.ch(parent):
		return g.byParent[parent], nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gate) release(parent string) {
	close(g.ch(parent))
}

func (g *gate) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type logEntry struct {
	level string
	msg   string
}

type recordLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordLogger) add(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
	l.mu.Unlock()
}

func (l *recordLogger) Debug(msg string, _ ...interface{}) { l.add("debug", msg) }
func (l *recordLogger) Info(msg string, _ ...interface{})  { l.add("info", msg) }
func (l *recordLogger) Warn(msg string, _ ...interface{})  { l.add("warn", msg) }
func (l *recordLogger) Error(msg string, _ ...interface{}) { l.add("error", msg) }
func (l *recordLogger) Fatal(msg string, _ ...interface{}) { l.add("fatal", msg) }

func (l *recordLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

var (
	countries = opts("India", "USA", "X")
	states    = map[string][]Option{
		"India": opts("Maharashtra", "Gujarat"),
		"USA":   opts("Texas"),
		"X":     opts("Y"),
	}
	districts = map[string][]Option{
		"Maharashtra": opts("Pune", "Nagpur"),
		"Gujarat":     opts("Surat"),
	}
	talukas = map[string][]Option{
		"Pune":   opts("Haveli", "Mulshi"),
		"Nagpur": opts("Kamptee"),
	}
)

type regionFetchers struct {
	country, state, district, taluka FetchFunc
}

func regionGraph(t *testing.T, f regionFetchers) *Graph {
	t.Helper()
	if f.country == nil {
		f.country = static(map[string][]Option{"": countries})
	}
	if f.state == nil {
		f.state = static(states)
	}
	if f.district == nil {
		f.district = static(districts)
	}
	if f.taluka == nil {
		f.taluka = static(talukas)
	}
	g, err := NewGraph(
		Level{Key: "country", Fetch: f.country},
		Level{Key: "state", Parent: "country", Fetch: f.state},
		Level{Key: "district", Parent: "state", Fetch: f.district},
		Level{Key: "taluka", Parent: "district", Fetch: f.taluka},
	)
	require.NoError(t, err)
	return g
}

// newRegionEngine returns an engine whose countries are loaded.
func newRegionEngine(t *testing.T, f regionFetchers, logger ...*recordLogger) *Engine {
	t.Helper()
	eopts := EngineOptions{EagerRoot: true}
	if len(logger) > 0 {
		eopts.Logger = logger[0]
	}
	e := NewEngine(regionGraph(t, f), eopts)
	t.Cleanup(e.Close)
	e.Wait()
	return e
}

func mustState(t *testing.T, e *Engine, key string) SelectionState {
	t.Helper()
	st, ok := e.State(key)
	require.True(t, ok, "unknown level %q", key)
	return st
}

// selectChain selects `values` level by level from the root, waiting for each fetch.
func selectChain(t *testing.T, e *Engine, values ...string) {
	t.Helper()
	keys := e.Graph().Keys()
	for i, value := range values {
		require.NoError(t, e.Select(keys[i], value))
		e.Wait()
	}
}

func assertEmpty(t *testing.T, e *Engine, keys ...string) {
	t.Helper()
	for _, key := range keys {
		st := mustState(t, e, key)
		require.Equal(t, "", st.Value, "%s.value", key)
		require.Empty(t, st.Options, "%s.options", key)
		require.False(t, st.Loading, "%s.loading", key)
		require.False(t, st.Error, "%s.error", key)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}
