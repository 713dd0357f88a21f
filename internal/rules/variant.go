package rules

import (
	"math/rand"

	"github.com/astralis-game/server/internal/constellation"
	"github.com/astralis-game/server/internal/models"
)

// OpenCardCount is how many constellations are face-up at any time.
const OpenCardCount = 3

// Variant bundles the active scoring-rule subset, the placement rule set,
// and the cadence functions deciding when to evaluate rules, swap the
// active player, and redraw the open cards.
type Variant struct {
	Name           string
	ScoringRules   []ScoringRule
	PlacementRules RuleSet

	// Cadence functions take the turn number being resolved.
	ShouldEvaluateRules      func(turn int) bool
	ShouldChangeActivePlayer func(turn int) bool
	ShouldChangeCards        func(turn int) bool

	// ChangedCards draws the next open card set from the catalog.
	ChangedCards func(rng *rand.Rand) []string
}

// StandardVariant is the default game mode: all scoring rules, default
// placement rules, rule evaluation every sixth turn, player swap after
// odd turns, card redraw after even turns.
func StandardVariant(catalog *constellation.Catalog) Variant {
	return Variant{
		Name:           "standard",
		ScoringRules:   DefaultScoringRules(),
		PlacementRules: DefaultRuleSet(),
		ShouldEvaluateRules: func(turn int) bool {
			return turn%6 == 0
		},
		ShouldChangeActivePlayer: func(turn int) bool {
			return turn%2 != 0
		},
		ShouldChangeCards: func(turn int) bool {
			return turn%2 == 0
		},
		ChangedCards: func(rng *rand.Rand) []string {
			return catalog.Draw(rng, OpenCardCount)
		},
	}
}

// VariantForSettings builds a variant restricted to the scoring rules named
// in the settings. Unknown names are skipped; an empty selection falls back
// to the full default set.
func VariantForSettings(catalog *constellation.Catalog, settings *models.GameSettings) Variant {
	v := StandardVariant(catalog)
	if settings == nil || len(settings.ScoringRules) == 0 {
		return v
	}
	active := make([]ScoringRule, 0, len(settings.ScoringRules))
	for _, name := range settings.ScoringRules {
		if rule, ok := ScoringRuleByName(name); ok {
			active = append(active, rule)
		}
	}
	if len(active) > 0 {
		v.ScoringRules = active
	}
	return v
}
