// Package match implements the per-match state machine: the sole in-memory
// mutator of one match's authoritative state, serializing joins, starts,
// moves, kicks, and turn timeouts behind a per-match mutex.
package match

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/astralis-game/server/internal/cache"
	"github.com/astralis-game/server/internal/constellation"
	"github.com/astralis-game/server/internal/database"
	"github.com/astralis-game/server/internal/mapgen"
	"github.com/astralis-game/server/internal/models"
	"github.com/astralis-game/server/internal/rules"
)

// MaxParticipants is the number of players a match holds once full.
const MaxParticipants = 2

// OnMatchEndFunc is executed when a match finishes. Winner is uuid.Nil for a
// draw. Scores are keyed by participant id.
type OnMatchEndFunc func(matchID uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int)

// Match owns the live state of one match. All exported methods lock Mu;
// unexported helpers assume the lock is held by the caller.
type Match struct {
	State        *models.Match
	Settings     *models.GameSettings
	GameMap      *models.GameMap
	Participants []*models.Participant
	Tiles        map[string]*models.Tile

	Catalog *constellation.Catalog
	Variant rules.Variant

	turnTimer   *time.Timer
	actionIndex int
	rng         *rand.Rand

	Mu  sync.Mutex
	log *logrus.Entry

	// Communication callbacks, set by the transport layer.
	BroadcastFn         func(ev MatchEvent)
	BroadcastToPlayerFn func(participantID uuid.UUID, ev MatchEvent)
	OnMatchEnd          OnMatchEndFunc
}

// New creates a match in the CREATED state. The creator still has to Join to
// obtain a participant seat.
func New(createdBy uuid.UUID, settings *models.GameSettings, catalog *constellation.Catalog) *Match {
	id := uuid.New()
	settings.MatchID = id
	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}
	m := &Match{
		State: &models.Match{
			ID:          id,
			Status:      models.MatchCreated,
			CreatedByID: createdBy,
		},
		Settings: settings,
		Catalog:  catalog,
		Variant:  rules.VariantForSettings(catalog, settings),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      logrus.WithField("match", id),
	}
	if database.DB != nil {
		stateSnap := snapshotMatch(m.State)
		settingsSnap := snapshotSettings(settings)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.InsertMatch(ctx, stateSnap); err != nil {
				m.log.WithError(err).Error("failed persisting new match")
				return
			}
			if err := database.InsertGameSettings(ctx, settingsSnap); err != nil {
				m.log.WithError(err).Error("failed persisting game settings")
			}
		}()
	}
	return m
}

// Join seats a user in the match.
func (m *Match) Join(userID uuid.UUID) (*models.Participant, *models.GameError) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.State.Status != models.MatchCreated {
		return nil, models.Validation(models.ErrMatchAlreadyStarted, "match has already started")
	}
	for _, p := range m.Participants {
		if p.UserID == userID {
			return nil, models.Validation(models.ErrCannotJoinTwice, "user already joined this match")
		}
	}
	if len(m.Participants) >= MaxParticipants {
		return nil, models.Validation(models.ErrMatchFull, "match already has two players")
	}

	p := &models.Participant{
		ID:           uuid.New(),
		MatchID:      m.State.ID,
		UserID:       userID,
		PlayerNumber: len(m.Participants),
	}
	m.Participants = append(m.Participants, p)
	joinSnap := snapshotParticipant(p)
	m.persistAsync(func(ctx context.Context) error { return database.InsertParticipant(ctx, joinSnap) })

	m.logAction(userID, "join", map[string]any{"participantId": p.ID})
	m.fireEvent(MatchEvent{Type: EventPlayerJoined, Player: eventPlayer(p)})
	return p, nil
}

// Kick removes a seated player before the match starts. Only the creator may
// kick.
func (m *Match) Kick(requesterUserID, participantID uuid.UUID) *models.GameError {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.State.Status != models.MatchCreated {
		return models.Validation(models.ErrCannotKickAfterStart, "cannot kick after the match started")
	}
	if requesterUserID != m.State.CreatedByID {
		return models.Validation(models.ErrNotMatchCreator, "only the creator can kick")
	}

	for i, p := range m.Participants {
		if p.ID != participantID {
			continue
		}
		m.Participants = append(m.Participants[:i], m.Participants[i+1:]...)
		for j, rest := range m.Participants {
			rest.PlayerNumber = j
		}
		kicked := p
		m.persistAsync(func(ctx context.Context) error { return database.DeleteParticipant(ctx, kicked.ID) })
		m.logAction(requesterUserID, "kick", map[string]any{"participantId": participantID})
		m.fireEvent(MatchEvent{Type: EventPlayerKicked, Player: eventPlayer(kicked)})
		return nil
	}
	return models.NotFound(models.ErrParticipantNotFound, "participant is not in this match")
}

// Start transitions the match to STARTED: generates the board, deals the
// open cards, hands the first turn to the creator, and arms the turn timer.
func (m *Match) Start(requesterUserID uuid.UUID) *models.GameError {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.State.Status == models.MatchStarted {
		return models.Validation(models.ErrMatchAlreadyStarted, "match has already started")
	}
	if requesterUserID != m.State.CreatedByID {
		return models.Validation(models.ErrCannotStartMatch, "only the creator can start the match")
	}
	if len(m.Participants) == 0 {
		return models.Validation(models.ErrNoPlayers, "match has no players")
	}
	if len(m.Participants) != MaxParticipants {
		return models.Validation(models.ErrMatchNotFull, "match needs two players to start")
	}
	if m.Settings == nil {
		return models.NotFound(models.ErrGameSettingsNotFound, "game settings are missing")
	}
	if m.Settings.MapSize%2 == 0 || m.Settings.MapSize < 3 {
		return models.Validation(models.ErrInvalidMapSize, "map size must be odd")
	}

	creator := m.participantByUser(requesterUserID)
	if creator == nil {
		return models.Validation(models.ErrCannotStartMatch, "creator has not joined the match")
	}

	gameMap, tiles, err := mapgen.Generate(m.State.ID, m.Settings, m.rng)
	if err != nil {
		return models.Validation(models.ErrInvalidMapSize, err.Error())
	}
	m.GameMap = gameMap
	m.Tiles = tiles

	m.State.Status = models.MatchStarted
	m.State.Turn = 1
	m.State.ActivePlayerID = creator.ID
	m.State.OpenCards = m.Variant.ChangedCards(m.rng)
	m.State.TurnEndsAt = time.Now().Add(m.Settings.TurnDuration())

	// Persistence runs off-lock; hand it detached copies, never the live
	// objects the next move will mutate.
	mapSnap := *gameMap
	tileSnap := snapshotTiles(tiles)
	stateSnap := snapshotMatch(m.State)
	m.persistAsync(func(ctx context.Context) error {
		if err := database.InsertMap(ctx, &mapSnap); err != nil {
			return err
		}
		if err := database.InsertTiles(ctx, tileSnap); err != nil {
			return err
		}
		return database.UpdateMatch(ctx, stateSnap)
	})

	m.setNewTurnTimer()
	m.logAction(requesterUserID, "start", map[string]any{"mapId": gameMap.ID})
	m.fireEvent(MatchEvent{
		Type:    EventMatchStarted,
		Match:   m.State,
		Players: m.Participants,
		Tiles:   visibleTiles(tiles),
	})
	return nil
}

// HandleConnect marks a participant's transport as live and resyncs them.
func (m *Match) HandleConnect(participantID uuid.UUID, conn *websocket.Conn) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	p := m.participantByID(participantID)
	if p == nil {
		return
	}
	p.Connected = true
	p.Conn = conn
	m.fireEvent(MatchEvent{Type: EventPlayerConnected, Player: eventPlayer(p)})
	m.fireEventToPlayer(p.ID, MatchEvent{
		Type:    EventPrivateVision,
		Match:   m.State,
		Players: m.Participants,
		Tiles:   visibleTiles(m.Tiles),
	})
}

// HandleDisconnect marks a participant's transport as gone. The match keeps
// running; an absent active player simply forfeits turns by timeout.
func (m *Match) HandleDisconnect(participantID uuid.UUID) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	p := m.participantByID(participantID)
	if p == nil {
		return
	}
	p.Connected = false
	p.Conn = nil
	m.fireEvent(MatchEvent{Type: EventPlayerDropped, Player: eventPlayer(p)})
}

// Sync refreshes the in-memory state from persistence. Mitigates staleness
// after reconnects; mutual exclusion still comes from Mu, never from here.
// Assumes lock is held by caller.
func (m *Match) sync(ctx context.Context) {
	if database.DB == nil {
		return
	}
	stored, err := database.GetMatch(ctx, m.State.ID)
	if err != nil {
		m.log.WithError(err).Warn("sync: match re-read failed")
		return
	}
	if stored.Turn > m.State.Turn {
		m.log.WithFields(logrus.Fields{"memory": m.State.Turn, "stored": stored.Turn}).
			Warn("sync: stored turn ahead of memory, adopting stored state")
		m.State = stored
	}
}

// --------------------------------------------------------------------------
// Timers
// --------------------------------------------------------------------------

// setNewTurnTimer arms the forfeiture timer for the current turn. The
// callback captures the turn it was armed for and re-checks it (and
// finishedAt) under the lock, so a timer that lost the race to a live move
// is a no-op. Assumes lock is held by caller.
func (m *Match) setNewTurnTimer() {
	if m.turnTimer != nil {
		m.turnTimer.Stop()
		m.turnTimer = nil
	}
	if m.State.Status != models.MatchStarted {
		return
	}
	wait := time.Until(m.State.TurnEndsAt)
	if wait < 0 {
		wait = 0
	}

	armedTurn := m.State.Turn
	m.turnTimer = time.AfterFunc(wait, func() {
		m.Mu.Lock()
		defer m.Mu.Unlock()

		if m.State.FinishedAt != nil || m.State.Status != models.MatchStarted || m.State.Turn != armedTurn {
			return
		}
		m.log.WithField("turn", armedTurn).Info("turn timer ran out, forfeiting")
		m.turnTimerRanOut()
	})
}

// cancelTurnTimer stops the pending forfeiture. Assumes lock is held by
// caller.
func (m *Match) cancelTurnTimer() {
	if m.turnTimer != nil {
		m.turnTimer.Stop()
		m.turnTimer = nil
	}
}

// --------------------------------------------------------------------------
// Lookups and plumbing
// --------------------------------------------------------------------------

// Assumes lock is held by caller.
func (m *Match) participantByID(id uuid.UUID) *models.Participant {
	for _, p := range m.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Assumes lock is held by caller.
func (m *Match) participantByUser(userID uuid.UUID) *models.Participant {
	for _, p := range m.Participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Assumes lock is held by caller.
func (m *Match) fireEvent(ev MatchEvent) {
	if m.BroadcastFn != nil {
		m.BroadcastFn(ev)
	}
}

// Assumes lock is held by caller.
func (m *Match) fireEventToPlayer(participantID uuid.UUID, ev MatchEvent) {
	if m.BroadcastToPlayerFn != nil {
		m.BroadcastToPlayerFn(participantID, ev)
	}
}

// logAction publishes an audit record to Redis and the match log table,
// off the critical path. Assumes lock is held by caller.
func (m *Match) logAction(actorID uuid.UUID, actionType string, payload map[string]any) {
	m.actionIndex++
	if payload == nil {
		payload = make(map[string]any)
	}
	rec := cache.MatchActionRecord{
		MatchID:       m.State.ID,
		ActionIndex:   m.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	row := &models.MatchLog{
		ID:      uuid.New(),
		MatchID: m.State.ID,
		ActorID: actorID,
		Action:  actionType,
		Payload: payload,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cache.Rdb != nil {
			if err := cache.PublishMatchAction(ctx, rec); err != nil {
				m.log.WithError(err).WithField("action", rec.ActionType).Error("failed publishing action to redis")
			}
		}
		if database.DB != nil {
			if err := database.InsertMatchLog(ctx, row); err != nil {
				m.log.WithError(err).WithField("action", row.Action).Error("failed persisting match log")
			}
		}
	}()
}

// persistAsync runs a write off the critical path when a database is
// configured. Assumes lock is held by caller.
func (m *Match) persistAsync(write func(ctx context.Context) error) {
	if database.DB == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := write(ctx); err != nil {
			m.log.WithError(err).Error("async persistence write failed")
		}
	}()
}

// --------------------------------------------------------------------------
// Snapshots for off-lock persistence
// --------------------------------------------------------------------------

// snapshotMatch copies the match row so a persistence goroutine never reads
// fields a later locked operation mutates.
func snapshotMatch(s *models.Match) *models.Match {
	c := *s
	c.OpenCards = append([]string(nil), s.OpenCards...)
	return &c
}

func snapshotParticipant(p *models.Participant) *models.Participant {
	c := *p
	c.Conn = nil
	return &c
}

func snapshotSettings(s *models.GameSettings) *models.GameSettings {
	c := *s
	c.ScoringRules = append([]string(nil), s.ScoringRules...)
	if s.TerrainRatios != nil {
		c.TerrainRatios = make(map[models.Terrain]float64, len(s.TerrainRatios))
		for k, v := range s.TerrainRatios {
			c.TerrainRatios[k] = v
		}
	}
	return &c
}

func snapshotTiles(tiles map[string]*models.Tile) []*models.Tile {
	out := make([]*models.Tile, 0, len(tiles))
	for _, t := range tiles {
		c := *t
		if t.Unit != nil {
			u := *t.Unit
			c.Unit = &u
		}
		out = append(out, &c)
	}
	return out
}

func tileList(tiles map[string]*models.Tile) []*models.Tile {
	out := make([]*models.Tile, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, t)
	}
	return out
}

func visibleTiles(tiles map[string]*models.Tile) []*models.Tile {
	var out []*models.Tile
	for _, t := range tiles {
		if t.Visible {
			out = append(out, t)
		}
	}
	return out
}
