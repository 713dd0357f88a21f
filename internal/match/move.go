package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/database"
	"github.com/astralis-game/server/internal/models"
	"github.com/astralis-game/server/internal/rules"
)

// MoveRequest is one attempted placement by the active player.
type MoveRequest struct {
	ParticipantID uuid.UUID
	Placement     rules.PlacementRequest
}

// MoveResult is the state delta a resolved turn produces, returned to the
// transport layer for broadcast.
type MoveResult struct {
	UpdatedMatch   *models.Match         `json:"updatedMatch"`
	UpdatedTiles   []*models.Tile        `json:"updatedTiles"`
	UpdatedPlayers []*models.Participant `json:"updatedPlayers"`
	TimedOut       bool                  `json:"timedOut"`
}

// MakeMove validates and resolves one placement: placement rules, vision
// reveal, bonus-point spend, cadence-driven scoring, win check, and turn
// advance, persisted atomically against the turn the move was resolved for.
func (m *Match) MakeMove(req MoveRequest) (*MoveResult, *models.GameError) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.sync(ctx)

	if gameErr := m.moveLoadedPreconditions(); gameErr != nil {
		return nil, gameErr
	}
	mover := m.participantByID(req.ParticipantID)
	if mover == nil {
		return nil, models.NotFound(models.ErrParticipantNotFound, "participant is not in this match")
	}

	// Affordability before anything mutates: the card's value lands first,
	// then the specials are paid, and the balance must stay non-negative.
	cost, known := models.TotalSpecialsCost(req.Placement.Specials)
	if !known {
		return nil, models.Validation(models.ErrUnknownSpecial, "unknown special requested")
	}
	bonusAfter := mover.BonusPoints + req.Placement.Constellation.Value - cost
	if bonusAfter < 0 {
		return nil, models.Validation(models.ErrBonusPointsNotEnough, "not enough bonus points for the requested specials")
	}

	placed, gameErr := rules.CheckPlacement(m.State, m.GameMap, m.Tiles, req.ParticipantID, req.Placement, m.Variant.PlacementRules)
	if gameErr != nil {
		return nil, gameErr
	}
	// Ignore lists can skip IN_BOUNDS, so every placed coordinate still has
	// to land on a real tile before anything mutates.
	for _, c := range placed {
		if _, ok := m.Tiles[c.Key()]; !ok {
			return nil, models.Validation(models.ErrTileNotFound, fmt.Sprintf("no tile at %s", c.Key()))
		}
	}

	// The move is committed from here on. The pending forfeiture loses.
	m.cancelTurnTimer()

	changed := make(map[string]*models.Tile, len(placed))
	for _, c := range placed {
		tile := m.Tiles[c.Key()]
		tile.Unit = &models.Unit{
			ID:      uuid.New(),
			OwnerID: &mover.ID,
			Type:    models.UnitTypeUnit,
		}
		changed[tile.Key()] = tile
	}

	revealed, gameErr := rules.RevealAround(placed, m.Tiles)
	if gameErr != nil {
		return nil, gameErr
	}
	for _, tile := range revealed {
		changed[tile.Key()] = tile
	}

	mover.BonusPoints = bonusAfter

	result, gameErr := m.resolveTurn(mover.UserID, tileList(changed), false)
	if gameErr != nil {
		return nil, gameErr
	}

	m.fireEvent(MatchEvent{
		Type:    EventPlayerMoved,
		Player:  eventPlayer(mover),
		Match:   result.UpdatedMatch,
		Tiles:   result.UpdatedTiles,
		Players: result.UpdatedPlayers,
	})
	return result, nil
}

// turnTimerRanOut resolves the current turn as a forfeiture: no placement,
// but scoring cadence, win check, and advance run exactly as for a move.
// Assumes lock is held by caller.
func (m *Match) turnTimerRanOut() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.sync(ctx)

	if m.State.Status != models.MatchStarted {
		return
	}
	forfeiter := m.participantByID(m.State.ActivePlayerID)

	result, gameErr := m.resolveTurn(uuid.Nil, nil, true)
	if gameErr != nil {
		// Errors during forfeiture are terminal to this callback only.
		m.log.WithField("code", gameErr.Code).Error("turn forfeiture failed")
		return
	}

	m.fireEvent(MatchEvent{
		Type:    EventTurnTimeout,
		Player:  eventPlayer(forfeiter),
		Match:   result.UpdatedMatch,
		Players: result.UpdatedPlayers,
	})
}

// resolveTurn runs the shared back half of a turn: cadence-driven scoring,
// win determination, turn advance, card redraw, player swap, atomic persist,
// finish-or-rearm, and the audit entry. Assumes lock is held by caller.
func (m *Match) resolveTurn(actorUserID uuid.UUID, changedTiles []*models.Tile, timedOut bool) (*MoveResult, *models.GameError) {
	resolvedTurn := m.State.Turn

	if m.Variant.ShouldEvaluateRules(resolvedTurn) {
		ids := make([]uuid.UUID, len(m.Participants))
		for i, p := range m.Participants {
			ids[i] = p.ID
		}
		evaluations, points := rules.EvaluateRules(m.Variant.ScoringRules, ids, m.Tiles)
		for _, p := range m.Participants {
			p.Score += points[p.ID]
		}
		m.fireEvent(MatchEvent{Type: EventRulesEvaluated, Rules: evaluations, Players: m.Participants})
	}

	winner := rules.DetermineWinner(m.State, m.Settings, m.Participants)
	finished := winner != nil || resolvedTurn >= m.Settings.MaxTurns

	m.State.Turn = resolvedTurn + 1
	switch {
	case finished:
		m.finish(winner)
	default:
		if m.Variant.ShouldChangeActivePlayer(resolvedTurn) {
			next := m.otherParticipant(m.State.ActivePlayerID)
			if next == nil {
				return nil, models.Invariant(models.ErrNoActivePlayer, "no next active player resolvable")
			}
			m.State.ActivePlayerID = next.ID
		}
		if m.Variant.ShouldChangeCards(resolvedTurn) {
			m.State.OpenCards = m.Variant.ChangedCards(m.rng)
		}
		m.State.TurnEndsAt = time.Now().Add(m.Settings.TurnDuration())
		m.setNewTurnTimer()
	}

	if gameErr := m.persistTurn(resolvedTurn, changedTiles); gameErr != nil {
		return nil, gameErr
	}

	action := "move"
	if timedOut {
		action = "turn_timeout"
	}
	m.logAction(actorUserID, action, map[string]any{
		"turn":     resolvedTurn,
		"finished": finished,
	})

	return &MoveResult{
		UpdatedMatch:   m.State,
		UpdatedTiles:   changedTiles,
		UpdatedPlayers: m.Participants,
		TimedOut:       timedOut,
	}, nil
}

// persistTurn commits the resolved turn in one transaction, guarded by the
// turn number it resolved. A stale guard means the in-memory state and the
// store diverged, which the per-match lock is supposed to make impossible.
// Assumes lock is held by caller.
func (m *Match) persistTurn(resolvedTurn int, changedTiles []*models.Tile) *models.GameError {
	if database.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := database.CommitMove(ctx, resolvedTurn, m.State, changedTiles, m.Participants)
	if errors.Is(err, database.ErrStaleTurn) {
		return models.Invariant(models.ErrInternal, "turn advanced concurrently, move not persisted")
	}
	if err != nil {
		m.log.WithError(err).Error("turn persistence failed")
		return models.Invariant(models.ErrInternal, "failed persisting the turn")
	}
	return nil
}

// finish moves the match to FINISHED. Winner is nil for a draw. Assumes lock
// is held by caller.
func (m *Match) finish(winner *models.Participant) {
	m.cancelTurnTimer()
	now := time.Now()
	m.State.Status = models.MatchFinished
	m.State.FinishedAt = &now
	m.State.ActivePlayerID = uuid.Nil

	winnerID := uuid.Nil
	if winner != nil {
		winnerID = winner.ID
		m.State.WinnerID = &winner.ID
	}

	scores := make(map[uuid.UUID]int, len(m.Participants))
	for _, p := range m.Participants {
		scores[p.ID] = p.Score
	}

	m.fireEvent(MatchEvent{
		Type:    EventMatchEnd,
		Match:   m.State,
		Players: m.Participants,
	})
	if m.OnMatchEnd != nil {
		go m.OnMatchEnd(m.State.ID, winnerID, scores)
	}
}

// moveLoadedPreconditions checks that everything a move needs is in memory.
// Assumes lock is held by caller.
func (m *Match) moveLoadedPreconditions() *models.GameError {
	switch {
	case m.GameMap == nil:
		return models.NotFound(models.ErrMapNotFound, "map is not loaded")
	case len(m.Tiles) == 0:
		return models.NotFound(models.ErrTilesNotFound, "tiles are not loaded")
	case m.Settings == nil:
		return models.NotFound(models.ErrGameSettingsNotFound, "game settings are not loaded")
	case m.State.Status == models.MatchStarted && m.State.ActivePlayerID == uuid.Nil:
		return models.Invariant(models.ErrActivePlayerNotSet, "started match has no active player")
	}
	return nil
}

// Assumes lock is held by caller.
func (m *Match) otherParticipant(participantID uuid.UUID) *models.Participant {
	for _, p := range m.Participants {
		if p.ID != participantID {
			return p
		}
	}
	return nil
}
