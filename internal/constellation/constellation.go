// Package constellation defines the unit shapes ("cards") players place on
// the board, their canonical string encoding, and the catalog they are
// drawn from.
package constellation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/astralis-game/server/internal/grid"
)

// Constellation is a rigid multi-cell unit shape with a point value.
// Coordinates are stored in canonical form: normalised to the origin and
// sorted row-major.
type Constellation struct {
	Coordinates []grid.Coord
	Value       int
}

// New canonicalizes the given coordinates into a Constellation.
func New(coords []grid.Coord, value int) Constellation {
	canon := grid.Normalise(coords)
	sortCoords(canon)
	return Constellation{Coordinates: canon, Value: value}
}

func sortCoords(coords []grid.Coord) {
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Row != coords[j].Row {
			return coords[i].Row < coords[j].Row
		}
		return coords[i].Col < coords[j].Col
	})
}

// Key returns the persisted identity of the constellation:
// one "r{row}c{col}" segment per canonical coordinate, suffixed "v{value}".
func (c Constellation) Key() string {
	var b strings.Builder
	for _, coord := range c.Coordinates {
		b.WriteString("r")
		b.WriteString(strconv.Itoa(coord.Row))
		b.WriteString("c")
		b.WriteString(strconv.Itoa(coord.Col))
		b.WriteString("_")
	}
	b.WriteString("v")
	b.WriteString(strconv.Itoa(c.Value))
	return b.String()
}

// Encode is the functional form of Key.
func Encode(coords []grid.Coord, value int) string {
	return New(coords, value).Key()
}

// Decode parses a constellation key back into coordinates and value.
// It is the exact inverse of Encode for any valid constellation.
func Decode(key string) (Constellation, error) {
	segments := strings.Split(key, "_")
	if len(segments) < 2 {
		return Constellation{}, fmt.Errorf("constellation key %q: too few segments", key)
	}

	valueSeg := segments[len(segments)-1]
	if !strings.HasPrefix(valueSeg, "v") {
		return Constellation{}, fmt.Errorf("constellation key %q: missing value segment", key)
	}
	value, err := strconv.Atoi(valueSeg[1:])
	if err != nil {
		return Constellation{}, fmt.Errorf("constellation key %q: bad value segment: %w", key, err)
	}

	coords := make([]grid.Coord, 0, len(segments)-1)
	for _, seg := range segments[:len(segments)-1] {
		if !strings.HasPrefix(seg, "r") {
			return Constellation{}, fmt.Errorf("constellation key %q: bad segment %q", key, seg)
		}
		cIdx := strings.Index(seg, "c")
		if cIdx < 2 {
			return Constellation{}, fmt.Errorf("constellation key %q: bad segment %q", key, seg)
		}
		row, err := strconv.Atoi(seg[1:cIdx])
		if err != nil {
			return Constellation{}, fmt.Errorf("constellation key %q: bad row in %q: %w", key, seg, err)
		}
		col, err := strconv.Atoi(seg[cIdx+1:])
		if err != nil {
			return Constellation{}, fmt.Errorf("constellation key %q: bad col in %q: %w", key, seg, err)
		}
		coords = append(coords, grid.Coord{Row: row, Col: col})
	}

	return Constellation{Coordinates: coords, Value: value}, nil
}
