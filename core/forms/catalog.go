package forms

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
)

// Provider serves the options of a set of levels, eg. region.Service.
type Provider interface {
	Levels() []string
	OrderingFields(level string) []string
	Options(ctx context.Context, level, parent string, ords ...core.DBOrdering) ([]cascade.Option, error)
}

// Catalog routes levels to their Provider. It is the local cascade.Source of every form.
type Catalog struct {
	providers map[string]Provider
}

var _ cascade.Source = (*Catalog)(nil)

func NewCatalog(providers ...Provider) (*Catalog, error) {
	c := &Catalog{providers: make(map[string]Provider)}
	for _, p := range providers {
		for _, level := range p.Levels() {
			if !core.IsLevelKey(level) {
				return nil, &cascade.ConfigurationError{Level: level, Reason: "malformed level key"}
			}
			if _, ok := c.providers[level]; ok {
				return nil, &cascade.ConfigurationError{Level: level, Reason: "served by more than one provider"}
			}
			c.providers[level] = p
		}
	}
	return c, nil
}

// Levels returns every level served, sorted.
func (c *Catalog) Levels() []string {
	levels := make([]string, 0, len(c.providers))
	for level := range c.providers {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	return levels
}

func (c *Catalog) Fetcher(level string) (cascade.FetchFunc, bool) {
	p, ok := c.providers[level]
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, parent string) ([]cascade.Option, error) {
		return p.Options(ctx, level, parent)
	}, true
}

// Options returns the options of `level` under `parent`. `ordering` is a comma separated
// list of fields, eg. "-purchased_at,id"; unknown fields are ignored.
func (c *Catalog) Options(ctx context.Context, level, parent, ordering string) ([]cascade.Option, error) {
	p, ok := c.providers[level]
	if !ok {
		return nil, errors.Wrapf(cascade.ErrUnknownLevel, "%q", level)
	}
	ords := core.ParseOrderings(ordering, p.OrderingFields(level)...)
	options, err := p.Options(ctx, level, core.CleanString(parent), ords...)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s options", level)
	}
	return options, nil
}
