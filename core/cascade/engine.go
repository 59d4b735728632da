package cascade

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
)

type EngineOptions struct {
	// RootValue seeds the root level, eg. the logged-in teacher for Teacher → Item → Purchase.
	RootValue string
	// EagerRoot fetches the root options at construction (and on Reset) instead of on LoadRoot.
	EagerRoot bool
	Logger    core.Logger
}

// Engine holds the selection state of one form.
//
// Every mutation runs under a single lock. Fetches run on their own goroutines and
// only take the lock to apply their result, which is dropped when a newer request
// for the same level was issued in the meantime.
type Engine struct {
	graph     *Graph
	logger    core.Logger
	eagerRoot bool

	mu     sync.Mutex
	store  *store
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEngine(graph *Graph, opts EngineOptions) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		graph:     graph,
		logger:    opts.Logger,
		eagerRoot: opts.EagerRoot,
		store:     newStore(graph),
		ctx:       ctx,
		cancel:    cancel,
	}
	if e.logger == nil {
		e.logger = nopLogger{}
	}

	e.mu.Lock()
	e.reset(core.CleanString(opts.RootValue))
	e.mu.Unlock()
	return e
}

func (e *Engine) Graph() *Graph { return e.graph }

// State returns the current state of a level.
func (e *Engine) State(key string) (SelectionState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.graph.indexOf(key)
	if !ok {
		return SelectionState{}, false
	}
	return e.store.snapshot(i), true
}

// States returns the state of every level, root first.
func (e *Engine) States() []SelectionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	states := make([]SelectionState, len(e.store.levels))
	for i := range e.store.levels {
		states[i] = e.store.snapshot(i)
	}
	return states
}

// Select sets the value of a level, clears every level below it and, for a non-empty value,
// starts fetching the options of the next level. An empty value only clears.
//
// Fetch failures are never returned: they surface as the child level's Error flag.
// Select only fails on unknown levels and values that are not among the level's options.
func (e *Engine) Select(key, value string) error {
	value = core.CleanString(value)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	i, ok := e.graph.indexOf(key)
	if !ok {
		return unknownLevelError(key)
	}
	if value != "" && !e.store.hasOption(i, value) {
		return invalidOptionError(key, value, e.store.levels[i].Options)
	}

	e.store.setValue(i, value)
	if value != "" && i+1 < e.graph.Len() {
		e.fetchLocked(i+1, value)
	}
	return nil
}

// Seed initializes a level from already known data, eg. the saved district of a student being edited.
// Unlike Select it triggers no fetch, and levels below are only cleared when the value changes.
// The parent level must already hold a value.
func (e *Engine) Seed(key, value string, options []Option) error {
	value = core.CleanString(value)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	i, ok := e.graph.indexOf(key)
	if !ok {
		return unknownLevelError(key)
	}
	if i > 0 && e.store.levels[i-1].Value == "" {
		return errors.Wrapf(ErrParentNotSelected, "seeding %q", key)
	}
	if _, ok := findOption(options, value); value != "" && !ok {
		return invalidOptionError(key, value, options)
	}

	e.store.issue(i) // supersedes any request in flight for this level
	e.seedLocked(i, value, options)
	return nil
}

// Hydrate seeds the chain from the root with `values` (one per level, in order), fetching each
// level's options synchronously with the value of its parent. Each level is emptied, along with
// every level below it, before its fetch. When the last value has a child level, the child's
// options are then fetched as on Select.
//
// A fetch failure marks the level as failed and is returned; the levels below it stay empty.
func (e *Engine) Hydrate(ctx context.Context, values ...string) error {
	if len(values) > e.graph.Len() {
		return ErrTooManyValues
	}

	for i, value := range values {
		value = core.CleanString(value)
		lvl := e.graph.levels[i]

		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return ErrClosed
		}
		var parent string
		if i > 0 {
			if parent = e.store.levels[i-1].Value; parent == "" {
				e.mu.Unlock()
				return errors.Wrapf(ErrParentNotSelected, "hydrating %q", lvl.Key)
			}
		}
		e.store.setValue(i, "")
		e.store.setOptions(i, nil)
		e.store.setError(i, false)
		e.store.setLoading(i, true)
		token := e.store.issue(i)
		e.mu.Unlock()

		options, err := safeFetch(ctx, lvl, parent)

		e.mu.Lock()
		if !e.store.isLatest(i, token) {
			e.mu.Unlock()
			return errors.Wrapf(ErrHydrationCancelled, "hydrating %q", lvl.Key)
		}
		e.store.setLoading(i, false)
		if err != nil {
			e.store.setOptions(i, nil)
			e.store.setError(i, true)
			e.mu.Unlock()
			return errors.Wrapf(err, "fetching %q options", lvl.Key)
		}
		if _, ok := findOption(options, value); value != "" && !ok {
			e.store.setOptions(i, options)
			e.store.setValue(i, "")
			e.mu.Unlock()
			return invalidOptionError(lvl.Key, value, options)
		}
		e.seedLocked(i, value, options)
		if value == "" {
			e.mu.Unlock()
			return nil
		}
		if i == len(values)-1 && i+1 < e.graph.Len() {
			e.fetchLocked(i+1, value)
		}
		e.mu.Unlock()
	}
	return nil
}

// Retry fetches the options of a level again, with the current value of its parent.
// The level's own value and every level below it are cleared.
func (e *Engine) Retry(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	i, ok := e.graph.indexOf(key)
	if !ok {
		return unknownLevelError(key)
	}
	var parent string
	if i > 0 {
		if parent = e.store.levels[i-1].Value; parent == "" {
			return errors.Wrapf(ErrParentNotSelected, "retrying %q", key)
		}
	}
	e.store.setValue(i, "")
	e.fetchLocked(i, parent)
	return nil
}

// LoadRoot fetches the root options unless they are loaded or loading already.
// Lazy forms call it on first interaction.
func (e *Engine) LoadRoot() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if root := e.store.levels[0]; root.Status() == StatusEmpty {
		e.fetchLocked(0, "")
	}
}

// Reset clears the whole chain and optionally seeds the root with rootValue[0].
func (e *Engine) Reset(rootValue ...string) {
	var root string
	if len(rootValue) > 0 {
		root = core.CleanString(rootValue[0])
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.reset(root)
}

// Wait blocks until every fetch started so far has completed.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close releases the engine: in-flight fetches are cancelled and their results dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for i := range e.store.levels {
		e.store.issue(i)
		e.store.setLoading(i, false)
	}
	e.mu.Unlock()

	e.cancel()
}

func (e *Engine) reset(root string) {
	for i := range e.store.levels {
		e.store.clear(i)
	}
	if e.eagerRoot {
		e.fetchLocked(0, "")
	}
	if root != "" {
		e.store.setValue(0, root)
		if e.graph.Len() > 1 {
			e.fetchLocked(1, root)
		}
	}
}

func (e *Engine) seedLocked(i int, value string, options []Option) {
	if e.store.levels[i].Value != value {
		e.store.setValue(i, value)
	}
	e.store.setOptions(i, options)
	e.store.setLoading(i, false)
	e.store.setError(i, false)
}

// fetchLocked marks level i as loading and fetches its options in the background.
func (e *Engine) fetchLocked(i int, parent string) {
	e.store.setOptions(i, nil)
	e.store.setError(i, false)
	e.store.setLoading(i, true)
	token := e.store.issue(i)

	e.wg.Add(1)
	go e.fetch(i, parent, token)
}

func (e *Engine) fetch(i int, parent string, token uint64) {
	defer e.wg.Done()

	lvl := e.graph.levels[i]
	options, err := safeFetch(e.ctx, lvl, parent)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.store.isLatest(i, token) {
		e.logger.Debug(
			fmt.Sprintf("cascade: dropped stale %q options", lvl.Key),
			map[string]interface{}{"parent": parent, "seq": token},
		)
		return
	}

	e.store.setLoading(i, false)
	if err != nil {
		e.store.setOptions(i, nil)
		e.store.setError(i, true)
		e.logger.Warn(
			fmt.Sprintf("cascade: fetching %q options failed", lvl.Key),
			errors.Wrapf(err, "parent %q", parent),
		)
		return
	}
	e.store.setOptions(i, options)
}

func safeFetch(ctx context.Context, lvl Level, parent string) (options []Option, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return lvl.Fetch(ctx, parent)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
