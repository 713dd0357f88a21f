package models

import "fmt"

// ErrorCode identifies a business-rule violation or missing entity.
type ErrorCode string

const (
	// Join / start / kick.
	ErrCannotJoinTwice      ErrorCode = "CANNOT_JOIN_TWICE"
	ErrMatchFull            ErrorCode = "MATCH_FULL"
	ErrMatchAlreadyStarted  ErrorCode = "MATCH_ALREADY_STARTED"
	ErrCannotStartMatch     ErrorCode = "CANNOT_START_MATCH"
	ErrNoPlayers            ErrorCode = "NO_PLAYERS"
	ErrMatchNotFull         ErrorCode = "MATCH_NOT_FULL"
	ErrInvalidMapSize       ErrorCode = "INVALID_MAP_SIZE"
	ErrCannotKickAfterStart ErrorCode = "CANNOT_KICK_AFTER_START"
	ErrNotMatchCreator      ErrorCode = "NOT_MATCH_CREATOR"

	// Missing entities.
	ErrMatchNotFound        ErrorCode = "MATCH_NOT_FOUND"
	ErrMapNotFound          ErrorCode = "MAP_NOT_FOUND"
	ErrTilesNotFound        ErrorCode = "TILES_NOT_FOUND"
	ErrGameSettingsNotFound ErrorCode = "GAME_SETTINGS_NOT_FOUND"
	ErrParticipantNotFound  ErrorCode = "PARTICIPANT_NOT_FOUND"

	// Moves.
	ErrActivePlayerNotSet    ErrorCode = "ACTIVE_PLAYER_NOT_SET"
	ErrMatchNotStarted       ErrorCode = "MATCH_NOT_STARTED"
	ErrNotYourTurn           ErrorCode = "NOT_YOUR_TURN"
	ErrTileNotFound          ErrorCode = "TILE_NOT_FOUND"
	ErrBonusPointsNotEnough  ErrorCode = "BONUS_POINTS_NOT_ENOUGH"
	ErrUnknownSpecial        ErrorCode = "UNKNOWN_SPECIAL"
	ErrPlacementRuleViolated ErrorCode = "PLACEMENT_RULE_VIOLATED"

	// Invariant violations — logic bugs, not user input.
	ErrNoActivePlayer ErrorCode = "NO_ACTIVE_PLAYER_RESOLVABLE"
	ErrInternal       ErrorCode = "INTERNAL"
)

// GameError is the structured payload for an expected business-rule
// violation. It is returned as a value and serialized to clients as
// {error: {code, statusCode, message}}; it never crosses the operation
// boundary as a panic.
type GameError struct {
	Code       ErrorCode `json:"code"`
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
}

// Error implements the error interface.
func (e *GameError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// NewGameError builds a GameError with the given HTTP-style status code.
func NewGameError(code ErrorCode, statusCode int, message string) *GameError {
	return &GameError{Code: code, StatusCode: statusCode, Message: message}
}

// Validation builds a 400-class GameError.
func Validation(code ErrorCode, message string) *GameError {
	return NewGameError(code, 400, message)
}

// NotFound builds a 404-class GameError.
func NotFound(code ErrorCode, message string) *GameError {
	return NewGameError(code, 404, message)
}

// Invariant builds a 500-class GameError for states that indicate a logic
// bug rather than bad input.
func Invariant(code ErrorCode, message string) *GameError {
	return NewGameError(code, 500, message)
}
