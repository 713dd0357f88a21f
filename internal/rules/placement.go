// Package rules implements the placement-rule and scoring-rule engines,
// the variant cadence bundle, vision reveal, and win determination.
//
// Rule sets are immutable values: specials derive a new set per evaluation
// instead of mutating shared state, and evaluation order is the slice order.
package rules

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/constellation"
	"github.com/astralis-game/server/internal/grid"
	"github.com/astralis-game/server/internal/models"
)

// PlacementRuleType names a placement predicate.
type PlacementRuleType string

const (
	RuleInBounds       PlacementRuleType = "IN_BOUNDS"
	RuleNoTerrain      PlacementRuleType = "NO_TERRAIN"
	RuleNoUnit         PlacementRuleType = "NO_UNIT"
	RuleAdjacentToAlly PlacementRuleType = "ADJACENT_TO_ALLY"
)

// PlacementPredicate evaluates one rule over a candidate placement.
type PlacementPredicate func(coords []grid.Coord, m *models.GameMap, tiles map[string]*models.Tile, playerID uuid.UUID) bool

// PlacementRule pairs a rule name with its predicate.
type PlacementRule struct {
	Type  PlacementRuleType
	Check PlacementPredicate
}

// RuleSet is an ordered list of placement rules combined by logical AND.
// The order is load-bearing: violations are reported for the first failing
// rule in slice order.
type RuleSet []PlacementRule

// DefaultRuleSet returns the standard placement rules with ally radius 1.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		{Type: RuleInBounds, Check: inBounds},
		{Type: RuleNoTerrain, Check: noTerrain},
		{Type: RuleNoUnit, Check: noUnit},
		{Type: RuleAdjacentToAlly, Check: adjacentToAlly(1)},
	}
}

// ForSpecials derives the rule set to use for one evaluation.
// ExpandBuildRadius swaps the ally-adjacency rule for the radius-2 variant;
// the receiver is never modified.
func (rs RuleSet) ForSpecials(specials []models.SpecialType) RuleSet {
	expand := false
	for _, s := range specials {
		if s == models.SpecialExpandBuildRadius {
			expand = true
		}
	}
	if !expand {
		return rs
	}
	out := make(RuleSet, len(rs))
	copy(out, rs)
	for i, r := range out {
		if r.Type == RuleAdjacentToAlly {
			out[i] = PlacementRule{Type: RuleAdjacentToAlly, Check: adjacentToAlly(2)}
		}
	}
	return out
}

// FirstViolation evaluates the rules in order, skipping any listed in
// ignored, and returns the first failing rule's type.
func (rs RuleSet) FirstViolation(coords []grid.Coord, m *models.GameMap, tiles map[string]*models.Tile, playerID uuid.UUID, ignored []PlacementRuleType) (PlacementRuleType, bool) {
	skip := make(map[PlacementRuleType]bool, len(ignored))
	for _, t := range ignored {
		skip[t] = true
	}
	for _, rule := range rs {
		if skip[rule.Type] {
			continue
		}
		if !rule.Check(coords, m, tiles, playerID) {
			return rule.Type, true
		}
	}
	return "", false
}

func inBounds(coords []grid.Coord, m *models.GameMap, _ map[string]*models.Tile, _ uuid.UUID) bool {
	for _, c := range coords {
		if c.Row < 0 || c.Row >= m.RowCount || c.Col < 0 || c.Col >= m.ColCount {
			return false
		}
	}
	return true
}

func noTerrain(coords []grid.Coord, _ *models.GameMap, tiles map[string]*models.Tile, _ uuid.UUID) bool {
	for _, c := range coords {
		if t, ok := tiles[c.Key()]; ok && t.Terrain != nil {
			return false
		}
	}
	return true
}

func noUnit(coords []grid.Coord, _ *models.GameMap, tiles map[string]*models.Tile, _ uuid.UUID) bool {
	for _, c := range coords {
		if t, ok := tiles[c.Key()]; ok && t.Unit != nil {
			return false
		}
	}
	return true
}

// adjacentToAlly builds the ally-adjacency predicate for the given radius of
// orthogonal hops. A tile is an ally when it holds a unit owned by the
// placing player or the neutral main building.
func adjacentToAlly(radius int) PlacementPredicate {
	offsets := make([]grid.Coord, 0)
	for _, off := range grid.SquareMatrix(radius) {
		manhattan := abs(off.Row) + abs(off.Col)
		if manhattan > 0 && manhattan <= radius {
			offsets = append(offsets, off)
		}
	}
	return func(coords []grid.Coord, _ *models.GameMap, tiles map[string]*models.Tile, playerID uuid.UUID) bool {
		for _, c := range coords {
			for _, off := range offsets {
				t, ok := tiles[c.Add(off).Key()]
				if !ok || t.Unit == nil {
					continue
				}
				if t.Unit.IsMainBuilding() {
					return true
				}
				if t.Unit.OwnerID != nil && *t.Unit.OwnerID == playerID {
					return true
				}
			}
		}
		return false
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PlacementRequest is a candidate move: a constellation in a given
// orientation targeted at a board coordinate.
type PlacementRequest struct {
	Target         grid.Coord
	Constellation  constellation.Constellation
	Transformation grid.Transformation
	IgnoredRules   []PlacementRuleType
	Specials       []models.SpecialType
}

// CheckPlacement validates a candidate placement.
//
// Preconditions (match loaded and started, caller is the active player,
// tiles loaded, target tile exists) short-circuit before any rule runs.
// On success the translated board coordinates are returned; on the first
// unmet precondition or rule a GameError is returned instead.
func CheckPlacement(match *models.Match, gameMap *models.GameMap, tiles map[string]*models.Tile, placingPlayerID uuid.UUID, req PlacementRequest, rs RuleSet) ([]grid.Coord, *models.GameError) {
	switch {
	case match == nil:
		return nil, models.NotFound(models.ErrMatchNotFound, "match does not exist")
	case gameMap == nil:
		return nil, models.NotFound(models.ErrMapNotFound, "map does not exist")
	case match.Status != models.MatchStarted:
		return nil, models.Validation(models.ErrMatchNotStarted, "match is not in progress")
	case match.ActivePlayerID != placingPlayerID:
		return nil, models.Validation(models.ErrNotYourTurn, "it is not your turn")
	case len(tiles) == 0:
		return nil, models.NotFound(models.ErrTilesNotFound, "tiles are not loaded")
	}
	if _, ok := tiles[req.Target.Key()]; !ok {
		return nil, models.Validation(models.ErrTileNotFound, fmt.Sprintf("no tile at %s", req.Target.Key()))
	}

	oriented := grid.Transform(req.Constellation.Coordinates, req.Transformation)
	candidates := grid.TranslateTo(req.Target, oriented)

	active := rs.ForSpecials(req.Specials)
	if violated, bad := active.FirstViolation(candidates, gameMap, tiles, placingPlayerID, req.IgnoredRules); bad {
		return nil, models.Validation(models.ErrPlacementRuleViolated,
			fmt.Sprintf("placement violates rule %s", violated))
	}
	return candidates, nil
}
