// Package models holds the persistent data model of a match: the rows the
// database layer reads and writes, and the shared value types crossing
// package boundaries.
package models

import (
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/grid"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchCreated  MatchStatus = "CREATED"
	MatchStarted  MatchStatus = "STARTED"
	MatchFinished MatchStatus = "FINISHED"
)

// Match is the authoritative per-match row.
type Match struct {
	ID             uuid.UUID   `json:"id"`
	Status         MatchStatus `json:"status"`
	Turn           int         `json:"turn"`
	ActivePlayerID uuid.UUID   `json:"activePlayerId"` // participant id; Nil until started
	OpenCards      []string    `json:"openCards"`      // exactly 3 constellation keys while started
	TurnEndsAt     time.Time   `json:"turnEndsAt"`
	WinnerID       *uuid.UUID  `json:"winnerId,omitempty"` // nil while running, and for a draw
	CreatedByID    uuid.UUID   `json:"createdById"`        // user id of the creator
	FinishedAt     *time.Time  `json:"finishedAt,omitempty"`
}

// Participant is one player's membership in a match. At most 2 per match.
type Participant struct {
	ID           uuid.UUID `json:"id"`
	MatchID      uuid.UUID `json:"matchId"`
	UserID       uuid.UUID `json:"userId"`
	PlayerNumber int       `json:"playerNumber"` // 0 or 1
	Score        int       `json:"score"`
	BonusPoints  int       `json:"bonusPoints"`

	// Transport state, not persisted.
	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`
}

// GameMap describes the board dimensions. Row and column counts are odd.
type GameMap struct {
	ID       uuid.UUID `json:"id"`
	MatchID  uuid.UUID `json:"matchId"`
	RowCount int       `json:"rowCount"`
	ColCount int       `json:"colCount"`
}

// Terrain is an impassable tile feature.
type Terrain string

const (
	TerrainWater    Terrain = "WATER"
	TerrainMountain Terrain = "MOUNTAIN"
)

// UnitType distinguishes player units from the neutral main building.
type UnitType string

const (
	UnitTypeUnit         UnitType = "UNIT"
	UnitTypeMainBuilding UnitType = "MAIN_BUILDING"
)

// Unit occupies a tile. OwnerID is nil for the neutral main building, which
// counts as an ally for both players' adjacency checks.
type Unit struct {
	ID      uuid.UUID  `json:"id"`
	OwnerID *uuid.UUID `json:"ownerId,omitempty"` // participant id; nil => main building
	Type    UnitType   `json:"type"`
}

// IsMainBuilding reports whether the unit is the neutral main building.
func (u *Unit) IsMainBuilding() bool {
	return u != nil && u.Type == UnitTypeMainBuilding
}

// Tile is one board cell. Visibility only ever transitions false→true.
type Tile struct {
	ID      uuid.UUID `json:"id"`
	MapID   uuid.UUID `json:"mapId"`
	Row     int       `json:"row"`
	Col     int       `json:"col"`
	Terrain *Terrain  `json:"terrain,omitempty"`
	Visible bool      `json:"visible"`
	Unit    *Unit     `json:"unit,omitempty"`
}

// Coord returns the tile's board coordinate.
func (t *Tile) Coord() grid.Coord {
	return grid.Coord{Row: t.Row, Col: t.Col}
}

// Key returns the tile's lookup key.
func (t *Tile) Key() string {
	return t.Coord().Key()
}

// GameSettings carries the per-match configuration.
type GameSettings struct {
	ID            uuid.UUID           `json:"id"`
	MatchID       uuid.UUID           `json:"matchId"`
	MapSize       int                 `json:"mapSize"` // odd; rows == cols == MapSize
	MaxTurns      int                 `json:"maxTurns"`
	TurnTimeMS    int                 `json:"turnTime"` // milliseconds
	ScoringRules  []string            `json:"scoringRules"`
	TerrainRatios map[Terrain]float64 `json:"terrainRatios"`
}

// TurnDuration returns the configured turn time.
func (s *GameSettings) TurnDuration() time.Duration {
	return time.Duration(s.TurnTimeMS) * time.Millisecond
}

// SpecialType identifies a paid move modifier.
type SpecialType string

// ExpandBuildRadius widens the ally-adjacency placement radius from 1 to 2
// for the move it is bought on.
const SpecialExpandBuildRadius SpecialType = "EXPAND_BUILD_RADIUS"

// SpecialCost returns the bonus-point cost of a special, or -1 if unknown.
func SpecialCost(t SpecialType) int {
	switch t {
	case SpecialExpandBuildRadius:
		return 3
	default:
		return -1
	}
}

// TotalSpecialsCost sums the cost of the given specials.
// The second return is false if any special is unknown.
func TotalSpecialsCost(specials []SpecialType) (int, bool) {
	total := 0
	for _, s := range specials {
		cost := SpecialCost(s)
		if cost < 0 {
			return 0, false
		}
		total += cost
	}
	return total, true
}

// MatchLog is one audit row describing a resolved operation.
type MatchLog struct {
	ID        uuid.UUID      `json:"id"`
	MatchID   uuid.UUID      `json:"matchId"`
	ActorID   uuid.UUID      `json:"actorId"` // Nil for system entries
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
