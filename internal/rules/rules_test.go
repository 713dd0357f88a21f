package rules

import (
	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/grid"
	"github.com/astralis-game/server/internal/models"
)

// newBoard builds a rows×cols tile lookup with all tiles hidden.
func newBoard(rows, cols int) map[string]*models.Tile {
	tiles := make(map[string]*models.Tile, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			t := &models.Tile{ID: uuid.New(), Row: r, Col: c}
			tiles[t.Key()] = t
		}
	}
	return tiles
}

func revealAll(tiles map[string]*models.Tile) {
	for _, t := range tiles {
		t.Visible = true
	}
}

func placeUnit(tiles map[string]*models.Tile, c grid.Coord, owner uuid.UUID) {
	id := owner
	tiles[c.Key()].Unit = &models.Unit{ID: uuid.New(), OwnerID: &id, Type: models.UnitTypeUnit}
}

func placeMainBuilding(tiles map[string]*models.Tile, c grid.Coord) {
	tiles[c.Key()].Unit = &models.Unit{ID: uuid.New(), Type: models.UnitTypeMainBuilding}
}

func setTerrain(tiles map[string]*models.Tile, c grid.Coord, terrain models.Terrain) {
	t := terrain
	tiles[c.Key()].Terrain = &t
}

func startedMatch(active uuid.UUID) *models.Match {
	return &models.Match{
		ID:             uuid.New(),
		Status:         models.MatchStarted,
		Turn:           1,
		ActivePlayerID: active,
	}
}

func boardMap(rows, cols int) *models.GameMap {
	return &models.GameMap{ID: uuid.New(), RowCount: rows, ColCount: cols}
}
