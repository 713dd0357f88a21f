package match

import (
	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/models"
	"github.com/astralis-game/server/internal/rules"
)

// MatchEventType represents the type of a match-related event broadcast via
// WebSockets.
type MatchEventType string

// Constants defining the various MatchEvent types used for WebSocket
// communication.
const (
	EventPlayerJoined    MatchEventType = "player_joined"     // Public: a player joined the lobby.
	EventPlayerKicked    MatchEventType = "player_kicked"     // Public: the creator removed a player.
	EventMatchStarted    MatchEventType = "match_started"     // Public: match moved to STARTED.
	EventPlayerMoved     MatchEventType = "player_moved"      // Public: a placement resolved, includes updated state.
	EventTurnTimeout     MatchEventType = "turn_timeout"      // Public: the active player forfeited the turn.
	EventRulesEvaluated  MatchEventType = "rules_evaluated"   // Public: scoring ran, includes per-rule evaluations.
	EventMatchEnd        MatchEventType = "match_end"         // Public: match finished, includes winner (or none).
	EventPrivateVision   MatchEventType = "private_vision"    // Private: tiles newly revealed to one player.
	EventPlayerConnected MatchEventType = "player_connected"  // Public: transport (re)connected a player.
	EventPlayerDropped   MatchEventType = "player_dropped"    // Public: transport lost a player.
)

// EventPlayer identifies a participant within a MatchEvent payload.
type EventPlayer struct {
	ID           uuid.UUID `json:"id"`
	PlayerNumber int       `json:"playerNumber"`
	Score        int       `json:"score"`
	BonusPoints  int       `json:"bonusPoints"`
}

// MatchEvent is the standard structure for broadcasting match state changes
// and actions.
type MatchEvent struct {
	Type   MatchEventType `json:"type"`
	Player *EventPlayer   `json:"player,omitempty"` // The participant initiating or targeted by the event.

	Match   *models.Match          `json:"match,omitempty"`
	Tiles   []*models.Tile         `json:"tiles,omitempty"`
	Players []*models.Participant  `json:"players,omitempty"`
	Rules   []rules.RuleEvaluation `json:"rules,omitempty"`

	Payload map[string]any `json:"payload,omitempty"` // Additional arbitrary data.
}

func eventPlayer(p *models.Participant) *EventPlayer {
	if p == nil {
		return nil
	}
	return &EventPlayer{
		ID:           p.ID,
		PlayerNumber: p.PlayerNumber,
		Score:        p.Score,
		BonusPoints:  p.BonusPoints,
	}
}
