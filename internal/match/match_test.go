package match

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralis-game/server/internal/constellation"
	"github.com/astralis-game/server/internal/models"
)

// mockBroadcaster captures match events for test assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []MatchEvent
	playerEvents map[uuid.UUID][]MatchEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[uuid.UUID][]MatchEvent)}
}

func (mb *mockBroadcaster) broadcastFn(ev MatchEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(participantID uuid.UUID, ev MatchEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[participantID] = append(mb.playerEvents[participantID], ev)
}

func (mb *mockBroadcaster) findEventByType(eventType MatchEventType) *MatchEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == eventType {
			return &mb.allEvents[i]
		}
	}
	return nil
}

// testSettings builds deterministic settings: no terrain, long turns.
func testSettings() *models.GameSettings {
	return &models.GameSettings{
		MapSize:    11,
		MaxTurns:   30,
		TurnTimeMS: 60000,
		TerrainRatios: map[models.Terrain]float64{
			models.TerrainWater:    0,
			models.TerrainMountain: 0,
		},
	}
}

// setupMatch creates a match with two seated users, not yet started.
func setupMatch(t *testing.T, settings *models.GameSettings) (*Match, *models.Participant, *models.Participant, *mockBroadcaster) {
	t.Helper()
	creator := uuid.New()
	m := New(creator, settings, constellation.DefaultCatalog())
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	p0, gameErr := m.Join(creator)
	require.Nil(t, gameErr)
	p1, gameErr := m.Join(uuid.New())
	require.Nil(t, gameErr)
	return m, p0, p1, mb
}

func TestJoinLifecycle(t *testing.T) {
	creator := uuid.New()
	m := New(creator, testSettings(), constellation.DefaultCatalog())

	p0, gameErr := m.Join(creator)
	require.Nil(t, gameErr)
	assert.Equal(t, 0, p0.PlayerNumber)

	_, gameErr = m.Join(creator)
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrCannotJoinTwice, gameErr.Code)

	p1, gameErr := m.Join(uuid.New())
	require.Nil(t, gameErr)
	assert.Equal(t, 1, p1.PlayerNumber)

	_, gameErr = m.Join(uuid.New())
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrMatchFull, gameErr.Code)
}

func TestJoinAfterStartRejected(t *testing.T) {
	m, _, _, _ := setupMatch(t, testSettings())
	require.Nil(t, m.Start(m.State.CreatedByID))

	_, gameErr := m.Join(uuid.New())
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrMatchAlreadyStarted, gameErr.Code)
}

func TestKick(t *testing.T) {
	m, _, p1, mb := setupMatch(t, testSettings())

	gameErr := m.Kick(p1.UserID, p1.ID)
	require.NotNil(t, gameErr, "non-creator must not kick")
	assert.Equal(t, models.ErrNotMatchCreator, gameErr.Code)

	gameErr = m.Kick(m.State.CreatedByID, uuid.New())
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrParticipantNotFound, gameErr.Code)

	gameErr = m.Kick(m.State.CreatedByID, p1.ID)
	require.Nil(t, gameErr)
	assert.Len(t, m.Participants, 1)
	assert.NotNil(t, mb.findEventByType(EventPlayerKicked))
}

func TestKickAfterStartRejected(t *testing.T) {
	m, _, p1, _ := setupMatch(t, testSettings())
	require.Nil(t, m.Start(m.State.CreatedByID))

	gameErr := m.Kick(m.State.CreatedByID, p1.ID)
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrCannotKickAfterStart, gameErr.Code)
}

func TestStartValidation(t *testing.T) {
	creator := uuid.New()
	m := New(creator, testSettings(), constellation.DefaultCatalog())

	gameErr := m.Start(creator)
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrNoPlayers, gameErr.Code, "empty match cannot start")

	_, gameErr = m.Join(creator)
	require.Nil(t, gameErr)

	gameErr = m.Start(uuid.New())
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrCannotStartMatch, gameErr.Code, "only the creator starts")

	gameErr = m.Start(creator)
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrMatchNotFull, gameErr.Code, "needs two players")

	_, gameErr = m.Join(uuid.New())
	require.Nil(t, gameErr)
	m.Settings.MapSize = 10
	gameErr = m.Start(creator)
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrInvalidMapSize, gameErr.Code)
}

func TestStart(t *testing.T) {
	m, p0, _, mb := setupMatch(t, testSettings())
	require.Nil(t, m.Start(m.State.CreatedByID))

	assert.Equal(t, models.MatchStarted, m.State.Status)
	assert.Equal(t, 1, m.State.Turn)
	assert.Equal(t, p0.ID, m.State.ActivePlayerID, "creator's participant moves first")
	assert.Len(t, m.State.OpenCards, 3)
	assert.False(t, m.State.TurnEndsAt.IsZero())
	assert.Len(t, m.Tiles, 121)

	ev := mb.findEventByType(EventMatchStarted)
	require.NotNil(t, ev)
	assert.NotEmpty(t, ev.Tiles, "start broadcast carries the revealed disc")

	gameErr := m.Start(m.State.CreatedByID)
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrMatchAlreadyStarted, gameErr.Code)
}

func TestHandleConnectSendsPrivateSync(t *testing.T) {
	m, p0, _, mb := setupMatch(t, testSettings())
	require.Nil(t, m.Start(m.State.CreatedByID))

	m.HandleConnect(p0.ID, nil)
	assert.True(t, p0.Connected)

	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[p0.ID]
	require.NotEmpty(t, events)
	assert.Equal(t, EventPrivateVision, events[len(events)-1].Type)
}
