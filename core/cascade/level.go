// Package cascade resolves chains of dependent selections, eg. Country → State → District → Taluka.
//
// Selecting a value on a level clears every level below it and fetches the options of the
// next level. Each level tracks its own loading and error state, and only the response of the
// latest request issued for a level is ever applied to it.
package cascade

import (
	"context"
	"fmt"
	"strings"
)

// Option is one selectable entry of a level, eg. a State.
// Attrs carries the option's own parent linkage (eg. "country_id"); the engine never reads it.
type Option struct {
	ID    string            `json:"id" validate:"required"`
	Name  string            `json:"name"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// FetchFunc returns the options of a level given the value selected on its parent.
// The root level is called with an empty parent.
type FetchFunc func(ctx context.Context, parent string) ([]Option, error)

type Level struct {
	Key    string
	Parent string // empty for the root
	Fetch  FetchFunc
}

func (l Level) IsRoot() bool { return l.Parent == "" }

// ConfigurationError reports a malformed Graph. It is not recoverable at runtime.
type ConfigurationError struct {
	Level  string
	Reason string
}

func (err *ConfigurationError) Error() string {
	if err.Level == "" {
		return "cascade: " + err.Reason
	}
	return fmt.Sprintf("cascade: level %q: %s", err.Level, err.Reason)
}

// Graph is a validated, ordered chain of levels.
type Graph struct {
	levels []Level
	index  map[string]int
}

// NewGraph validates `levels` as a strict chain declared root first.
func NewGraph(levels ...Level) (*Graph, error) {
	if len(levels) == 0 {
		return nil, &ConfigurationError{Reason: "no levels"}
	}

	index := make(map[string]int, len(levels))
	for i, lvl := range levels {
		if lvl.Key == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("level #%d has no key", i)}
		}
		if _, ok := index[lvl.Key]; ok {
			return nil, &ConfigurationError{Level: lvl.Key, Reason: "declared more than once"}
		}
		if lvl.Fetch == nil {
			return nil, &ConfigurationError{Level: lvl.Key, Reason: "no fetch function"}
		}
		index[lvl.Key] = i
	}

	var roots []string
	for _, lvl := range levels {
		if lvl.IsRoot() {
			roots = append(roots, lvl.Key)
			continue
		}
		if lvl.Parent == lvl.Key {
			return nil, &ConfigurationError{Level: lvl.Key, Reason: "cycle: level is its own parent"}
		}
		if _, ok := index[lvl.Parent]; !ok {
			return nil, &ConfigurationError{Level: lvl.Key, Reason: fmt.Sprintf("unknown parent %q", lvl.Parent)}
		}
	}
	if err := checkCycles(levels, index); err != nil {
		return nil, err
	}
	switch {
	case len(roots) == 0:
		return nil, &ConfigurationError{Reason: "no root level"}
	case len(roots) > 1:
		return nil, &ConfigurationError{Reason: "multiple root levels: " + strings.Join(roots, ", ")}
	case !levels[0].IsRoot():
		return nil, &ConfigurationError{Level: roots[0], Reason: "root level must be declared first"}
	}

	children := make(map[string]string, len(levels))
	for i, lvl := range levels[1:] {
		if pi := index[lvl.Parent]; pi > i {
			return nil, &ConfigurationError{Level: lvl.Key, Reason: fmt.Sprintf("parent %q is declared after it", lvl.Parent)}
		}
		if sibling, ok := children[lvl.Parent]; ok {
			return nil, &ConfigurationError{
				Level:  lvl.Parent,
				Reason: fmt.Sprintf("more than one child (%q, %q); levels must form a chain", sibling, lvl.Key),
			}
		}
		children[lvl.Parent] = lvl.Key
	}

	g := &Graph{levels: make([]Level, len(levels)), index: index}
	copy(g.levels, levels)
	return g, nil
}

// MustNewGraph is like NewGraph but panics on a malformed graph.
func MustNewGraph(levels ...Level) *Graph {
	g, err := NewGraph(levels...)
	if err != nil {
		panic(err)
	}
	return g
}

// checkCycles follows parent keys from every level; a walk that comes back to a visited level is a cycle.
func checkCycles(levels []Level, index map[string]int) error {
	for _, lvl := range levels {
		seen := map[string]bool{lvl.Key: true}
		for curr := lvl; !curr.IsRoot(); {
			curr = levels[index[curr.Parent]]
			if seen[curr.Key] {
				return &ConfigurationError{Level: lvl.Key, Reason: fmt.Sprintf("cycle through %q", curr.Key)}
			}
			seen[curr.Key] = true
		}
	}
	return nil
}

func (g *Graph) Len() int { return len(g.levels) }

func (g *Graph) Root() Level { return g.levels[0] }

// Keys returns the level keys in declaration order.
func (g *Graph) Keys() []string {
	keys := make([]string, len(g.levels))
	for i, lvl := range g.levels {
		keys[i] = lvl.Key
	}
	return keys
}

func (g *Graph) Level(key string) (Level, bool) {
	i, ok := g.index[key]
	if !ok {
		return Level{}, false
	}
	return g.levels[i], true
}

// Child returns the level depending on `key`, if any.
func (g *Graph) Child(key string) (Level, bool) {
	i, ok := g.index[key]
	if !ok || i+1 >= len(g.levels) {
		return Level{}, false
	}
	return g.levels[i+1], true
}

// Descendants returns the keys of every level below `key`, nearest first.
func (g *Graph) Descendants(key string) []string {
	i, ok := g.index[key]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(g.levels)-i-1)
	for _, lvl := range g.levels[i+1:] {
		keys = append(keys, lvl.Key)
	}
	return keys
}

func (g *Graph) indexOf(key string) (int, bool) {
	i, ok := g.index[key]
	return i, ok
}
