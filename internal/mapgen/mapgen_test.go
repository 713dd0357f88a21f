package mapgen

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/grid"
	"github.com/astralis-game/server/internal/models"
	"github.com/astralis-game/server/internal/rules"
)

func testSettings(size int) *models.GameSettings {
	return &models.GameSettings{
		MapSize:       size,
		TerrainRatios: DefaultTerrainRatios,
	}
}

func TestGenerateBoardShape(t *testing.T) {
	gameMap, tiles, err := Generate(uuid.New(), testSettings(11), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gameMap.RowCount != 11 || gameMap.ColCount != 11 {
		t.Fatalf("map %dx%d, want 11x11", gameMap.RowCount, gameMap.ColCount)
	}
	if len(tiles) != 121 {
		t.Fatalf("tile count = %d, want 121", len(tiles))
	}
	for _, tile := range tiles {
		if tile.MapID != gameMap.ID {
			t.Fatalf("tile %s not linked to map", tile.Key())
		}
	}
}

func TestGenerateCenterMainBuilding(t *testing.T) {
	_, tiles, err := Generate(uuid.New(), testSettings(11), rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	center := tiles[(grid.Coord{Row: 5, Col: 5}).Key()]
	if center.Unit == nil || !center.Unit.IsMainBuilding() {
		t.Fatal("center has no main building")
	}
	if center.Unit.OwnerID != nil {
		t.Fatal("main building must be ownerless")
	}
	if center.Terrain != nil {
		t.Fatal("center must not carry terrain")
	}
}

func TestGenerateStartingVision(t *testing.T) {
	_, tiles, err := Generate(uuid.New(), testSettings(11), rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	center := grid.Coord{Row: 5, Col: 5}
	visible := 0
	for _, tile := range tiles {
		if tile.Visible {
			visible++
		}
	}
	if want := len(grid.Circle(rules.VisionRadius)); visible != want {
		t.Fatalf("visible tiles = %d, want %d", visible, want)
	}
	if tiles[center.Add(grid.Coord{Row: 0, Col: rules.VisionRadius}).Key()].Visible == false {
		t.Fatal("disc edge not revealed")
	}
	if tiles[(grid.Coord{Row: 0, Col: 0}).Key()].Visible {
		t.Fatal("corner revealed at start")
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	settings := testSettings(9)
	_, a, err := Generate(uuid.New(), settings, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, b, err := Generate(uuid.New(), settings, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for key, tileA := range a {
		tileB := b[key]
		switch {
		case tileA.Terrain == nil && tileB.Terrain != nil,
			tileA.Terrain != nil && tileB.Terrain == nil:
			t.Fatalf("terrain differs at %s for equal seeds", key)
		case tileA.Terrain != nil && *tileA.Terrain != *tileB.Terrain:
			t.Fatalf("terrain differs at %s for equal seeds", key)
		}
	}
}

func TestGenerateRejectsEvenAndTinySizes(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	if _, _, err := Generate(uuid.New(), testSettings(10), rng); err == nil {
		t.Fatal("even size accepted")
	}
	if _, _, err := Generate(uuid.New(), testSettings(1), rng); err == nil {
		t.Fatal("size 1 accepted")
	}
}
