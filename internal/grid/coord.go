// Package grid implements the integer offset algebra the placement and
// scoring engines are built on.
//
// The package is deliberately dependency-free so the rule engines stay pure
// and trivially testable.
package grid

import (
	"math"
	"strconv"
)

// Coord is a 2D integer offset or absolute board position.
// Row grows downward, Col grows to the right.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Add returns the elementwise sum of two coordinates.
func (c Coord) Add(o Coord) Coord {
	return Coord{Row: c.Row + o.Row, Col: c.Col + o.Col}
}

// Key returns the canonical lookup key "{row}_{col}" used for tile maps.
func (c Coord) Key() string {
	return strconv.Itoa(c.Row) + "_" + strconv.Itoa(c.Col)
}

// RotateClockwise rotates a coordinate 90° clockwise around the origin.
func RotateClockwise(c Coord) Coord {
	return Coord{Row: c.Col, Col: -c.Row}
}

// MirrorAlongXAxis mirrors a coordinate along the x axis.
func MirrorAlongXAxis(c Coord) Coord {
	return Coord{Row: c.Row, Col: -c.Col}
}

// Transformation describes the rigid-body orientation applied to a shape
// before translation: N clockwise quarter turns, then an optional mirror.
type Transformation struct {
	RotatedClockwise int  `json:"rotatedClockwise"` // 0..3
	Mirrored         bool `json:"mirrored"`
}

// Transform applies the transformation to every coordinate.
// Rotations are applied first, then the mirror.
func Transform(coords []Coord, t Transformation) []Coord {
	out := make([]Coord, len(coords))
	for i, c := range coords {
		for r := 0; r < t.RotatedClockwise%4; r++ {
			c = RotateClockwise(c)
		}
		if t.Mirrored {
			c = MirrorAlongXAxis(c)
		}
		out[i] = c
	}
	return out
}

// TranslateTo shifts every offset by the target coordinate.
func TranslateTo(target Coord, coords []Coord) []Coord {
	out := make([]Coord, len(coords))
	for i, c := range coords {
		out[i] = c.Add(target)
	}
	return out
}

// Normalise shifts the coordinates so the minimum row and column are both 0.
// This is the canonical form used by the constellation codec.
func Normalise(coords []Coord) []Coord {
	if len(coords) == 0 {
		return nil
	}
	minRow, minCol := coords[0].Row, coords[0].Col
	for _, c := range coords[1:] {
		if c.Row < minRow {
			minRow = c.Row
		}
		if c.Col < minCol {
			minCol = c.Col
		}
	}
	return TranslateTo(Coord{Row: -minRow, Col: -minCol}, coords)
}

// OrthogonalNeighbours returns the 4 orthogonally adjacent coordinates.
func OrthogonalNeighbours(c Coord) []Coord {
	return []Coord{
		{Row: c.Row - 1, Col: c.Col},
		{Row: c.Row + 1, Col: c.Col},
		{Row: c.Row, Col: c.Col - 1},
		{Row: c.Row, Col: c.Col + 1},
	}
}

// DiagonalNeighbours returns the 4 diagonally adjacent coordinates.
func DiagonalNeighbours(c Coord) []Coord {
	return []Coord{
		{Row: c.Row - 1, Col: c.Col - 1},
		{Row: c.Row - 1, Col: c.Col + 1},
		{Row: c.Row + 1, Col: c.Col - 1},
		{Row: c.Row + 1, Col: c.Col + 1},
	}
}

// SquareMatrix returns every offset in [-r,r]², row-major.
func SquareMatrix(r int) []Coord {
	if r < 0 {
		return nil
	}
	side := 2*r + 1
	out := make([]Coord, 0, side*side)
	for row := -r; row <= r; row++ {
		for col := -r; col <= r; col++ {
			out = append(out, Coord{Row: row, Col: col})
		}
	}
	return out
}

// Circle returns the discrete disc of radius r: the subset of SquareMatrix(r)
// whose euclidean distance from the origin is at most r+0.5. The half-cell
// slack keeps the cardinal cells at exactly radius r inside the disc.
func Circle(r int) []Coord {
	square := SquareMatrix(r)
	out := make([]Coord, 0, len(square))
	limit := float64(r) + 0.5
	for _, c := range square {
		if math.Sqrt(float64(c.Row*c.Row+c.Col*c.Col)) <= limit {
			out = append(out, c)
		}
	}
	return out
}
