// Package strategy holds the built-in strategy catalog and the preference
// based recommender.
package strategy

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Profile is what the recommender matches preferences against
type Profile struct {
	Styles  []string `yaml:"styles"`
	Cryptos []string `yaml:"cryptos"`
}

type entry struct {
	core.Strategy `yaml:",inline"`
	Profile       Profile `yaml:"profile"`
}

// Catalog is an immutable, id-ordered list of strategies
type Catalog struct {
	entries []entry
	byID    map[int]entry
}

// DefaultIDs are shown when no recommendation is available
var DefaultIDs = []int{1, 2, 3}

// Load parses the embedded catalog
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// MustLoad is Load for package initialisation paths
func MustLoad() *Catalog {
	catalog, err := Load()
	if err != nil {
		panic(err)
	}
	return catalog
}

// Parse reads a catalog from YAML
func Parse(content []byte) (*Catalog, error) {
	var entries []entry
	if err := yaml.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse strategy catalog: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	byID := make(map[int]entry, len(entries))
	for _, e := range entries {
		if _, ok := byID[e.ID]; ok {
			return nil, fmt.Errorf("duplicated strategy id %d", e.ID)
		}
		byID[e.ID] = e
	}

	return &Catalog{entries: entries, byID: byID}, nil
}

func (c *Catalog) All() []core.Strategy {
	return lo.Map(c.entries, func(e entry, _ int) core.Strategy { return e.Strategy })
}

func (c *Catalog) ByID(id int) (core.Strategy, error) {
	e, ok := c.byID[id]
	if !ok {
		return core.Strategy{}, fmt.Errorf("strategy %d: %w", id, core.ErrNotFound)
	}
	return e.Strategy, nil
}

// ByIDs resolves ids in order, skipping unknown ones
func (c *Catalog) ByIDs(ids []int) []core.Strategy {
	strategies := make([]core.Strategy, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.byID[id]; ok {
			strategies = append(strategies, e.Strategy)
		}
	}
	return strategies
}

// Default returns the strategies shown without preferences
func (c *Catalog) Default() []core.Strategy {
	return c.ByIDs(DefaultIDs)
}
