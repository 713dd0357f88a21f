package rules

import (
	"testing"

	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/models"
)

func twoPlayers(scoreA, scoreB int) []*models.Participant {
	return []*models.Participant{
		{ID: uuid.New(), UserID: uuid.New(), PlayerNumber: 0, Score: scoreA},
		{ID: uuid.New(), UserID: uuid.New(), PlayerNumber: 1, Score: scoreB},
	}
}

func TestDetermineWinnerScoreLimit(t *testing.T) {
	players := twoPlayers(5, 3)
	match := &models.Match{Turn: 10}
	settings := &models.GameSettings{MaxTurns: 30}

	winner := DetermineWinner(match, settings, players)
	if winner == nil || winner.Score != 5 {
		t.Fatalf("winner = %v, want player with score 5", winner)
	}
}

func TestDetermineWinnerBelowLimitMidMatch(t *testing.T) {
	players := twoPlayers(4, 2)
	match := &models.Match{Turn: 10}
	settings := &models.GameSettings{MaxTurns: 30}

	if winner := DetermineWinner(match, settings, players); winner != nil {
		t.Fatalf("winner = %v, want nil mid-match below limit", winner)
	}
}

func TestDetermineWinnerAtMaxTurns(t *testing.T) {
	players := twoPlayers(4, 2)
	match := &models.Match{Turn: 30}
	settings := &models.GameSettings{MaxTurns: 30}

	winner := DetermineWinner(match, settings, players)
	if winner == nil || winner.Score != 4 {
		t.Fatalf("winner = %v, want leader at max turns", winner)
	}
}

// TestDetermineWinnerDrawAtMaxTurns: equal scores on the final turn resolve
// to no winner.
func TestDetermineWinnerDrawAtMaxTurns(t *testing.T) {
	players := twoPlayers(3, 3)
	match := &models.Match{Turn: 30}
	settings := &models.GameSettings{MaxTurns: 30}

	if winner := DetermineWinner(match, settings, players); winner != nil {
		t.Fatalf("winner = %v, want nil on a draw", winner)
	}
}

func TestLeadingPlayerTie(t *testing.T) {
	if leader := LeadingPlayer(twoPlayers(2, 2)); leader != nil {
		t.Fatalf("leader = %v, want nil on tie", leader)
	}
	if leader := LeadingPlayer(nil); leader != nil {
		t.Fatalf("leader = %v, want nil without players", leader)
	}
	leader := LeadingPlayer(twoPlayers(1, 4))
	if leader == nil || leader.Score != 4 {
		t.Fatalf("leader = %v, want player with score 4", leader)
	}
}
