package constellation

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/astralis-game/server/internal/grid"
)

// Catalog is the full set of constellations cards are drawn from.
type Catalog struct {
	entries []Constellation
	keys    []string
}

// NewCatalog builds a catalog from the given constellations.
func NewCatalog(entries []Constellation) *Catalog {
	c := &Catalog{entries: entries}
	c.keys = make([]string, len(entries))
	for i, e := range entries {
		c.keys[i] = e.Key()
	}
	return c
}

// Size returns the number of constellations in the catalog.
func (c *Catalog) Size() int { return len(c.entries) }

// Keys returns all constellation keys in catalog order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Contains reports whether the key identifies a catalog constellation.
func (c *Catalog) Contains(key string) bool {
	for _, k := range c.keys {
		if k == key {
			return true
		}
	}
	return false
}

// Draw returns n distinct constellation keys picked at random.
// Partial Fisher-Yates over an index copy, mirroring the deal shuffle.
func (c *Catalog) Draw(rng *rand.Rand, n int) []string {
	if n > len(c.keys) {
		n = len(c.keys)
	}
	idx := make([]int, len(c.keys))
	for i := range idx {
		idx[i] = i
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out = append(out, c.keys[idx[i]])
	}
	return out
}

// catalogFile is the YAML shape of an on-disk catalog.
type catalogFile struct {
	Constellations []struct {
		Name        string   `yaml:"name"`
		Value       int      `yaml:"value"`
		Coordinates [][2]int `yaml:"coordinates"` // [row, col] pairs
	} `yaml:"constellations"`
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(file.Constellations) == 0 {
		return nil, fmt.Errorf("catalog %s: no constellations", path)
	}
	entries := make([]Constellation, 0, len(file.Constellations))
	for _, e := range file.Constellations {
		if len(e.Coordinates) == 0 {
			return nil, fmt.Errorf("catalog %s: constellation %q has no coordinates", path, e.Name)
		}
		coords := make([]grid.Coord, len(e.Coordinates))
		for i, pair := range e.Coordinates {
			coords[i] = grid.Coord{Row: pair[0], Col: pair[1]}
		}
		entries = append(entries, New(coords, e.Value))
	}
	return NewCatalog(entries), nil
}

// DefaultCatalog returns the built-in constellation set used when no catalog
// file is configured. Values scale with cell count.
func DefaultCatalog() *Catalog {
	shapes := []struct {
		coords []grid.Coord
		value  int
	}{
		// Single star.
		{[]grid.Coord{{Row: 0, Col: 0}}, 0},
		// Domino pair, both orientations collapse under transform anyway.
		{[]grid.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}}, 1},
		// Three in a line.
		{[]grid.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 2, Col: 0}}, 1},
		// Small L.
		{[]grid.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 1, Col: 1}}, 1},
		// Anti-diagonal pair.
		{[]grid.Coord{{Row: 1, Col: 0}, {Row: 0, Col: 1}}, 1},
		// Square block.
		{[]grid.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 1}}, 2},
		// Tee.
		{[]grid.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}, {Row: 1, Col: 1}}, 2},
		// Long L.
		{[]grid.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 2, Col: 0}, {Row: 2, Col: 1}}, 2},
		// Zigzag.
		{[]grid.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 1}, {Row: 1, Col: 2}}, 2},
		// Four in a line.
		{[]grid.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 2, Col: 0}, {Row: 3, Col: 0}}, 2},
		// Plus.
		{[]grid.Coord{{Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 1}, {Row: 1, Col: 2}, {Row: 2, Col: 1}}, 3},
		// W pentomino.
		{[]grid.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 1, Col: 1}, {Row: 2, Col: 1}, {Row: 2, Col: 2}}, 3},
	}
	entries := make([]Constellation, len(shapes))
	for i, s := range shapes {
		entries[i] = New(s.coords, s.value)
	}
	return NewCatalog(entries)
}
