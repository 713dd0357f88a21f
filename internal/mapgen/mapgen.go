// Package mapgen generates match boards: an odd-sized square grid with
// ratio-driven terrain, the neutral main building at the center, and the
// starting vision disc already revealed.
package mapgen

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/grid"
	"github.com/astralis-game/server/internal/models"
	"github.com/astralis-game/server/internal/rules"
)

// DefaultTerrainRatios is used when settings carry none.
var DefaultTerrainRatios = map[models.Terrain]float64{
	models.TerrainWater:    0.08,
	models.TerrainMountain: 0.06,
}

// Generate builds the board for a match. Terrain is rolled per tile from the
// configured ratios, never on the center. The main building sits at the
// center and its vision disc starts revealed, so both players see the shared
// starting area before their first move.
func Generate(matchID uuid.UUID, settings *models.GameSettings, rng *rand.Rand) (*models.GameMap, map[string]*models.Tile, error) {
	size := settings.MapSize
	if size < 3 || size%2 == 0 {
		return nil, nil, fmt.Errorf("map size must be odd and at least 3, got %d", size)
	}
	ratios := settings.TerrainRatios
	if len(ratios) == 0 {
		ratios = DefaultTerrainRatios
	}

	gameMap := &models.GameMap{
		ID:       uuid.New(),
		MatchID:  matchID,
		RowCount: size,
		ColCount: size,
	}
	center := grid.Coord{Row: size / 2, Col: size / 2}

	tiles := make(map[string]*models.Tile, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			t := &models.Tile{
				ID:    uuid.New(),
				MapID: gameMap.ID,
				Row:   row,
				Col:   col,
			}
			c := t.Coord()
			if c != center {
				if terrain, ok := rollTerrain(rng, ratios); ok {
					t.Terrain = &terrain
				}
			}
			tiles[t.Key()] = t
		}
	}

	tiles[center.Key()].Unit = &models.Unit{
		ID:   uuid.New(),
		Type: models.UnitTypeMainBuilding,
	}
	for _, offset := range grid.Circle(rules.VisionRadius) {
		if t, ok := tiles[center.Add(offset).Key()]; ok {
			t.Visible = true
		}
	}

	return gameMap, tiles, nil
}

// rollTerrain draws at most one terrain type, checking ratios in a fixed
// order so generation is reproducible for a given seed.
func rollTerrain(rng *rand.Rand, ratios map[models.Terrain]float64) (models.Terrain, bool) {
	for _, terrain := range []models.Terrain{models.TerrainWater, models.TerrainMountain} {
		ratio, ok := ratios[terrain]
		if !ok || ratio <= 0 {
			continue
		}
		if rng.Float64() < ratio {
			return terrain, true
		}
	}
	return "", false
}
