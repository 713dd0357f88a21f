package rules

import (
	"sort"

	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/grid"
	"github.com/astralis-game/server/internal/models"
)

// ScoringRuleType names an independent scoring rule.
type ScoringRuleType string

const (
	ScoreWater     ScoringRuleType = "TERRAIN_WATER"
	ScoreMountain  ScoringRuleType = "TERRAIN_MOUNTAIN"
	ScoreHoles     ScoringRuleType = "HOLES"
	ScoreDiagonals ScoringRuleType = "DIAGONALS"
)

// minDiagonalRun is the minimum contiguous anti-diagonal run that scores.
// Runs of length 2 earn nothing; runs longer than 3 still earn exactly one
// point.
const minDiagonalRun = 3

// RuleEvaluation is the outcome of one scoring rule for one player.
// Each fulfillment lists the coordinates of one scoring occurrence.
type RuleEvaluation struct {
	PlayerID     uuid.UUID         `json:"playerId"`
	Rule         ScoringRuleType   `json:"rule"`
	Points       int               `json:"points"`
	Fulfillments [][]grid.Coord    `json:"fulfillments"`
}

// ScoringRule evaluates board state into points for one player.
type ScoringRule struct {
	Type     ScoringRuleType
	Evaluate func(playerID uuid.UUID, tiles map[string]*models.Tile) RuleEvaluation
}

// DefaultScoringRules returns all built-in scoring rules in catalog order.
func DefaultScoringRules() []ScoringRule {
	return []ScoringRule{
		TerrainRule(ScoreWater, models.TerrainWater, false),
		TerrainRule(ScoreMountain, models.TerrainMountain, true),
		HoleRule(),
		DiagonalRule(),
	}
}

// ScoringRuleByName resolves a configured rule name to its implementation.
func ScoringRuleByName(name string) (ScoringRule, bool) {
	for _, r := range DefaultScoringRules() {
		if string(r.Type) == name {
			return r, true
		}
	}
	return ScoringRule{}, false
}

func ownedBy(t *models.Tile, playerID uuid.UUID) bool {
	return t != nil && t.Unit != nil && t.Unit.OwnerID != nil && *t.Unit.OwnerID == playerID
}

func alliedTo(t *models.Tile, playerID uuid.UUID) bool {
	if t == nil || t.Unit == nil {
		return false
	}
	return t.Unit.IsMainBuilding() || ownedBy(t, playerID)
}

// sortedTiles returns the map's tiles ordered row-major so evaluation is
// deterministic regardless of map iteration order.
func sortedTiles(tiles map[string]*models.Tile) []*models.Tile {
	out := make([]*models.Tile, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// TerrainRule scores ±1 for every visible tile of the given terrain with at
// least one orthogonal neighbour owned by the player. Each qualifying tile
// is its own fulfillment.
func TerrainRule(typ ScoringRuleType, terrain models.Terrain, penalty bool) ScoringRule {
	perTile := 1
	if penalty {
		perTile = -1
	}
	return ScoringRule{
		Type: typ,
		Evaluate: func(playerID uuid.UUID, tiles map[string]*models.Tile) RuleEvaluation {
			eval := RuleEvaluation{PlayerID: playerID, Rule: typ}
			for _, t := range sortedTiles(tiles) {
				if !t.Visible || t.Terrain == nil || *t.Terrain != terrain {
					continue
				}
				for _, n := range grid.OrthogonalNeighbours(t.Coord()) {
					if ownedBy(tiles[n.Key()], playerID) {
						eval.Points += perTile
						eval.Fulfillments = append(eval.Fulfillments, []grid.Coord{t.Coord()})
						break
					}
				}
			}
			return eval
		},
	}
}

// HoleRule scores +1 for every visible, unit-free, terrain-free tile whose
// existing orthogonal neighbours are all terrain or allied to the player,
// with at least one neighbour owned by the player outright.
func HoleRule() ScoringRule {
	return ScoringRule{
		Type: ScoreHoles,
		Evaluate: func(playerID uuid.UUID, tiles map[string]*models.Tile) RuleEvaluation {
			eval := RuleEvaluation{PlayerID: playerID, Rule: ScoreHoles}
			for _, t := range sortedTiles(tiles) {
				if !t.Visible || t.Unit != nil || t.Terrain != nil {
					continue
				}
				enclosed := true
				ownNeighbour := false
				for _, n := range grid.OrthogonalNeighbours(t.Coord()) {
					nt, ok := tiles[n.Key()]
					if !ok {
						continue // map border acts as enclosure
					}
					if nt.Terrain == nil && !alliedTo(nt, playerID) {
						enclosed = false
						break
					}
					if ownedBy(nt, playerID) {
						ownNeighbour = true
					}
				}
				if enclosed && ownNeighbour {
					eval.Points++
					eval.Fulfillments = append(eval.Fulfillments, []grid.Coord{t.Coord()})
				}
			}
			return eval
		},
	}
}

// Anti-diagonal step vectors. The main diagonal never counts.
var diagonalSteps = [2]grid.Coord{{Row: 1, Col: -1}, {Row: -1, Col: 1}}

// DiagonalRule scores +1 per contiguous anti-diagonal run of at least three
// player-owned tiles. A run is one fulfillment no matter how far past three
// it extends.
func DiagonalRule() ScoringRule {
	return ScoringRule{
		Type: ScoreDiagonals,
		Evaluate: func(playerID uuid.UUID, tiles map[string]*models.Tile) RuleEvaluation {
			eval := RuleEvaluation{PlayerID: playerID, Rule: ScoreDiagonals}
			visited := make(map[string]bool)
			for _, t := range sortedTiles(tiles) {
				if visited[t.Key()] || !ownedBy(t, playerID) {
					continue
				}
				run := []grid.Coord{t.Coord()}
				visited[t.Key()] = true
				for _, step := range diagonalSteps {
					for c := t.Coord().Add(step); ; c = c.Add(step) {
						nt, ok := tiles[c.Key()]
						if !ok || !ownedBy(nt, playerID) {
							break
						}
						visited[c.Key()] = true
						run = append(run, c)
					}
				}
				if len(run) >= minDiagonalRun {
					sort.Slice(run, func(i, j int) bool { return run[i].Row < run[j].Row })
					eval.Points++
					eval.Fulfillments = append(eval.Fulfillments, run)
				}
			}
			return eval
		},
	}
}

// EvaluateRules runs every active rule for every player and resolves each
// rule across players: the strict highest scorer on a rule gains one match
// point; a rule where all players tie awards nothing.
//
// The returned evaluations are grouped rule-major (all players for rule 0,
// then rule 1, ...).
func EvaluateRules(active []ScoringRule, playerIDs []uuid.UUID, tiles map[string]*models.Tile) ([]RuleEvaluation, map[uuid.UUID]int) {
	evaluations := make([]RuleEvaluation, 0, len(active)*len(playerIDs))
	points := make(map[uuid.UUID]int, len(playerIDs))
	for _, id := range playerIDs {
		points[id] = 0
	}

	for _, rule := range active {
		perPlayer := make([]RuleEvaluation, len(playerIDs))
		for i, id := range playerIDs {
			perPlayer[i] = rule.Evaluate(id, tiles)
		}
		evaluations = append(evaluations, perPlayer...)

		if winner, ok := strictTop(perPlayer); ok {
			points[winner]++
		}
	}
	return evaluations, points
}

// strictTop returns the sole player with the strictly highest rule score.
// When every player scores the same the rule has no winner.
func strictTop(evals []RuleEvaluation) (uuid.UUID, bool) {
	if len(evals) == 0 {
		return uuid.Nil, false
	}
	allEqual := true
	best := 0
	for i, e := range evals {
		if e.Points != evals[0].Points {
			allEqual = false
		}
		if e.Points > evals[best].Points {
			best = i
		}
	}
	if allEqual {
		return uuid.Nil, false
	}
	for i, e := range evals {
		if i != best && e.Points == evals[best].Points {
			return uuid.Nil, false
		}
	}
	return evals[best].PlayerID, true
}
