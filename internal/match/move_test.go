package match

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralis-game/server/internal/constellation"
	"github.com/astralis-game/server/internal/grid"
	"github.com/astralis-game/server/internal/models"
	"github.com/astralis-game/server/internal/rules"
)

// singleCell is the simplest placeable card.
func singleCell(value int) constellation.Constellation {
	return constellation.New([]grid.Coord{{Row: 0, Col: 0}}, value)
}

// moveAt builds a single-cell move request for the given participant.
func moveAt(participantID uuid.UUID, target grid.Coord, value int) MoveRequest {
	return MoveRequest{
		ParticipantID: participantID,
		Placement: rules.PlacementRequest{
			Target:        target,
			Constellation: singleCell(value),
		},
	}
}

func startedTestMatch(t *testing.T, settings *models.GameSettings) (*Match, *models.Participant, *models.Participant, *mockBroadcaster) {
	t.Helper()
	m, p0, p1, mb := setupMatch(t, settings)
	require.Nil(t, m.Start(m.State.CreatedByID))
	return m, p0, p1, mb
}

func TestMakeMove(t *testing.T) {
	m, p0, p1, mb := startedTestMatch(t, testSettings())

	// Next to the main building at the board center.
	target := grid.Coord{Row: 5, Col: 6}
	result, gameErr := m.MakeMove(moveAt(p0.ID, target, 1))
	require.Nil(t, gameErr)

	placed := m.Tiles[target.Key()]
	require.NotNil(t, placed.Unit)
	require.NotNil(t, placed.Unit.OwnerID)
	assert.Equal(t, p0.ID, *placed.Unit.OwnerID)

	assert.Equal(t, 2, m.State.Turn)
	assert.Equal(t, p1.ID, m.State.ActivePlayerID, "player swaps after an odd turn")
	assert.Equal(t, 1, p0.BonusPoints, "card value lands as bonus points")
	assert.NotEmpty(t, result.UpdatedTiles)
	assert.NotNil(t, mb.findEventByType(EventPlayerMoved))
}

func TestMakeMoveRevealsVision(t *testing.T) {
	m, p0, _, _ := startedTestMatch(t, testSettings())

	target := grid.Coord{Row: 5, Col: 6}
	result, gameErr := m.MakeMove(moveAt(p0.ID, target, 0))
	require.Nil(t, gameErr)

	// (5,9) is outside the starting disc but inside the new unit's vision.
	assert.True(t, m.Tiles[(grid.Coord{Row: 5, Col: 9}).Key()].Visible)
	revealed := false
	for _, tile := range result.UpdatedTiles {
		if tile.Row == 5 && tile.Col == 9 {
			revealed = true
		}
	}
	assert.True(t, revealed, "newly visible tiles are part of the result")
}

// TestMakeMoveIgnoredBoundsOffMap: skipping IN_BOUNDS must not let a
// constellation hanging off the board edge mutate anything — the missing
// tile is rejected before units are placed or the timer is touched.
func TestMakeMoveIgnoredBoundsOffMap(t *testing.T) {
	m, p0, _, _ := startedTestMatch(t, testSettings())

	card := constellation.New([]grid.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 2, Col: 0}}, 1)
	req := MoveRequest{
		ParticipantID: p0.ID,
		Placement: rules.PlacementRequest{
			Target:        grid.Coord{Row: 10, Col: 5},
			Constellation: card,
			IgnoredRules:  []rules.PlacementRuleType{rules.RuleInBounds, rules.RuleAdjacentToAlly},
		},
	}

	_, gameErr := m.MakeMove(req)
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrTileNotFound, gameErr.Code)

	assert.Equal(t, 1, m.State.Turn, "rejected move must not advance the turn")
	assert.Equal(t, p0.ID, m.State.ActivePlayerID)
	assert.Nil(t, m.Tiles[(grid.Coord{Row: 10, Col: 5}).Key()].Unit, "no partial placement")
	assert.Zero(t, p0.BonusPoints)
}

// TestPersistenceSnapshotsAreDetached: the copies handed to persistence
// goroutines must not observe later locked mutations.
func TestPersistenceSnapshotsAreDetached(t *testing.T) {
	m, p0, _, _ := startedTestMatch(t, testSettings())

	m.Mu.Lock()
	stateSnap := snapshotMatch(m.State)
	tileSnap := snapshotTiles(m.Tiles)
	playerSnap := snapshotParticipant(p0)
	m.Mu.Unlock()

	target := grid.Coord{Row: 5, Col: 6}
	_, gameErr := m.MakeMove(moveAt(p0.ID, target, 1))
	require.Nil(t, gameErr)

	assert.Equal(t, 1, stateSnap.Turn, "snapshot must keep the pre-move turn")
	assert.Zero(t, playerSnap.BonusPoints)
	for _, tile := range tileSnap {
		if tile.Row == target.Row && tile.Col == target.Col {
			assert.Nil(t, tile.Unit, "snapshot tile must not see the placed unit")
		}
	}
}

func TestMakeMoveNotYourTurn(t *testing.T) {
	m, _, p1, _ := startedTestMatch(t, testSettings())

	_, gameErr := m.MakeMove(moveAt(p1.ID, grid.Coord{Row: 5, Col: 6}, 1))
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrNotYourTurn, gameErr.Code)
	assert.Equal(t, 1, m.State.Turn, "rejected move must not mutate")
	assert.Nil(t, m.Tiles[(grid.Coord{Row: 5, Col: 6}).Key()].Unit)
}

func TestMakeMoveUnknownSpecial(t *testing.T) {
	m, p0, _, _ := startedTestMatch(t, testSettings())

	req := moveAt(p0.ID, grid.Coord{Row: 5, Col: 6}, 1)
	req.Placement.Specials = []models.SpecialType{"TELEPORT"}
	_, gameErr := m.MakeMove(req)
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrUnknownSpecial, gameErr.Code)
}

func TestMakeMoveSpecialAffordability(t *testing.T) {
	m, p0, _, _ := startedTestMatch(t, testSettings())

	// Two hops from the main building: only legal with the expanded radius.
	target := grid.Coord{Row: 5, Col: 7}
	req := moveAt(p0.ID, target, 0)
	req.Placement.Specials = []models.SpecialType{models.SpecialExpandBuildRadius}

	_, gameErr := m.MakeMove(req)
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrBonusPointsNotEnough, gameErr.Code)

	m.Mu.Lock()
	p0.BonusPoints = 3
	m.Mu.Unlock()

	_, gameErr = m.MakeMove(req)
	require.Nil(t, gameErr)
	assert.Equal(t, 0, p0.BonusPoints, "special cost is deducted")
	require.NotNil(t, m.Tiles[target.Key()].Unit)
}

func TestMakeMoveCardRedrawCadence(t *testing.T) {
	m, p0, p1, _ := startedTestMatch(t, testSettings())

	require.Nil(t, errOf(m.MakeMove(moveAt(p0.ID, grid.Coord{Row: 5, Col: 6}, 0))))
	assert.Equal(t, p1.ID, m.State.ActivePlayerID)

	// Turn 2 is even: cards redraw, the active player keeps the turn.
	require.Nil(t, errOf(m.MakeMove(moveAt(p1.ID, grid.Coord{Row: 4, Col: 5}, 0))))
	assert.Equal(t, 3, m.State.Turn)
	assert.Equal(t, p1.ID, m.State.ActivePlayerID, "no swap after an even turn")
	assert.Len(t, m.State.OpenCards, 3)
}

func TestMakeMoveScoringCadence(t *testing.T) {
	m, p0, _, mb := startedTestMatch(t, testSettings())

	m.Mu.Lock()
	m.State.Turn = 6
	// An existing anti-diagonal run for the mover.
	for i := 0; i < 3; i++ {
		tile := m.Tiles[(grid.Coord{Row: 3 - i, Col: 5 + i}).Key()]
		tile.Visible = true
		tile.Unit = &models.Unit{ID: uuid.New(), OwnerID: &p0.ID, Type: models.UnitTypeUnit}
	}
	m.Mu.Unlock()

	_, gameErr := m.MakeMove(moveAt(p0.ID, grid.Coord{Row: 5, Col: 6}, 0))
	require.Nil(t, gameErr)

	assert.Equal(t, 1, p0.Score, "strict diagonal leader gains a match point")
	assert.NotNil(t, mb.findEventByType(EventRulesEvaluated))
}

func TestMakeMoveScoreLimitFinishes(t *testing.T) {
	m, p0, _, mb := startedTestMatch(t, testSettings())

	ended := make(chan uuid.UUID, 1)
	m.OnMatchEnd = func(_ uuid.UUID, winner uuid.UUID, _ map[uuid.UUID]int) { ended <- winner }

	m.Mu.Lock()
	p0.Score = 5
	m.Mu.Unlock()

	_, gameErr := m.MakeMove(moveAt(p0.ID, grid.Coord{Row: 5, Col: 6}, 0))
	require.Nil(t, gameErr)

	assert.Equal(t, models.MatchFinished, m.State.Status)
	require.NotNil(t, m.State.WinnerID)
	assert.Equal(t, p0.ID, *m.State.WinnerID)
	assert.NotNil(t, m.State.FinishedAt)
	assert.NotNil(t, mb.findEventByType(EventMatchEnd))

	select {
	case winner := <-ended:
		assert.Equal(t, p0.ID, winner)
	case <-time.After(time.Second):
		t.Fatal("match end callback not invoked")
	}

	// The finished match accepts no further moves.
	_, gameErr = m.MakeMove(moveAt(p0.ID, grid.Coord{Row: 6, Col: 5}, 0))
	require.NotNil(t, gameErr)
	assert.Equal(t, models.ErrMatchNotStarted, gameErr.Code)
}

func TestMakeMoveLastTurnDraw(t *testing.T) {
	settings := testSettings()
	settings.MaxTurns = 1
	m, p0, _, _ := startedTestMatch(t, settings)

	_, gameErr := m.MakeMove(moveAt(p0.ID, grid.Coord{Row: 5, Col: 6}, 0))
	require.Nil(t, gameErr)

	assert.Equal(t, models.MatchFinished, m.State.Status)
	assert.Nil(t, m.State.WinnerID, "equal scores on the last turn are a draw")
}

func TestTurnTimeoutForfeitsTurn(t *testing.T) {
	settings := testSettings()
	settings.TurnTimeMS = 80
	m, p0, p1, mb := startedTestMatch(t, settings)

	assert.Eventually(t, func() bool {
		m.Mu.Lock()
		defer m.Mu.Unlock()
		return m.State.Turn == 2
	}, 2*time.Second, 10*time.Millisecond, "forfeiture must advance the turn")

	m.Mu.Lock()
	active := m.State.ActivePlayerID
	m.Mu.Unlock()
	assert.Equal(t, p1.ID, active, "turn 1 is odd, the player swaps")
	assert.NotEqual(t, p0.ID, active)
	assert.NotNil(t, mb.findEventByType(EventTurnTimeout))
}

func TestTimerAfterFinishIsNoOp(t *testing.T) {
	settings := testSettings()
	settings.TurnTimeMS = 80
	settings.MaxTurns = 1
	m, _, _, _ := startedTestMatch(t, settings)

	assert.Eventually(t, func() bool {
		m.Mu.Lock()
		defer m.Mu.Unlock()
		return m.State.Status == models.MatchFinished
	}, 2*time.Second, 10*time.Millisecond)

	m.Mu.Lock()
	turn := m.State.Turn
	m.Mu.Unlock()
	time.Sleep(200 * time.Millisecond)

	m.Mu.Lock()
	defer m.Mu.Unlock()
	assert.Equal(t, turn, m.State.Turn, "no timer may advance a finished match")
}

func errOf(_ *MoveResult, gameErr *models.GameError) *models.GameError {
	return gameErr
}
