package rules

import (
	"github.com/astralis-game/server/internal/models"
)

// ScoreLimit is the match-point threshold that ends a match early.
const ScoreLimit = 5

// LeadingPlayer returns the participant with the strictly highest score, or
// nil when no strict leader exists (all tied, or the top score is shared).
func LeadingPlayer(players []*models.Participant) *models.Participant {
	if len(players) == 0 {
		return nil
	}
	leader := players[0]
	tiedAtTop := false
	for _, p := range players[1:] {
		switch {
		case p.Score > leader.Score:
			leader = p
			tiedAtTop = false
		case p.Score == leader.Score:
			tiedAtTop = true
		}
	}
	if tiedAtTop {
		return nil
	}
	return leader
}

// DetermineWinner resolves the match outcome after a turn:
// the leader wins once they reach the score limit, or — leader or not by
// limit — once the turn count reaches the configured maximum. A nil result
// on the last turn is a draw.
func DetermineWinner(match *models.Match, settings *models.GameSettings, players []*models.Participant) *models.Participant {
	leader := LeadingPlayer(players)
	if leader == nil {
		return nil
	}
	if leader.Score >= ScoreLimit {
		return leader
	}
	if settings != nil && match.Turn >= settings.MaxTurns {
		return leader
	}
	return nil
}
