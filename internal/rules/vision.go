package rules

import (
	"fmt"

	"github.com/astralis-game/server/internal/grid"
	"github.com/astralis-game/server/internal/models"
)

// VisionRadius is the fixed radius of the disc revealed around a placed unit.
const VisionRadius = 3

// RevealAround flips every still-hidden tile inside the vision disc of each
// placed coordinate to visible and returns the flipped tiles.
//
// Visibility is monotonic: tiles are only ever flipped false→true, never
// re-fogged. Placed coordinates must map to tiles; an off-map placement
// coordinate is a placement error.
func RevealAround(placed []grid.Coord, tiles map[string]*models.Tile) ([]*models.Tile, *models.GameError) {
	disc := grid.Circle(VisionRadius)
	var revealed []*models.Tile
	for _, c := range placed {
		if _, ok := tiles[c.Key()]; !ok {
			return nil, models.Validation(models.ErrTileNotFound,
				fmt.Sprintf("placed coordinate %s has no tile", c.Key()))
		}
		for _, offset := range disc {
			tile, ok := tiles[c.Add(offset).Key()]
			if !ok || tile.Visible {
				continue
			}
			tile.Visible = true
			revealed = append(revealed, tile)
		}
	}
	return revealed, nil
}
