package engine

import "errors"

// Setup and identity errors
var (
	ErrDuplicatePlayerID = errors.New("duplicate player id")
	ErrNoPlayers         = errors.New("at least one player is required")
	ErrUnknownPlayer     = errors.New("unknown player")
)

// Turn and phase violations
var (
	ErrWrongAction  = errors.New("action not allowed in current state")
	ErrAlreadyActed = errors.New("player already acted this phase")
	ErrNotYourTurn  = errors.New("not this player's turn")
	ErrRaceFinished = errors.New("race is finished")
)

// Resource errors
var (
	ErrOutOfCards     = errors.New("deck and discard are empty")
	ErrNoHeatForShift = errors.New("no heat in engine to shift two gears")
	ErrNoHeatToBoost  = errors.New("no heat in engine to boost")
)

// Validation errors
var (
	ErrIllegalShift          = errors.New("illegal gear shift")
	ErrWrongCardCount        = errors.New("card count does not match gear")
	ErrInvalidIndex          = errors.New("invalid card index")
	ErrCannotDiscardHeat     = errors.New("heat cards cannot be discarded")
	ErrCannotDiscardStress   = errors.New("stress cards cannot be discarded")
	ErrReactionUnavailable   = errors.New("reaction not available")
	ErrSlipstreamUnavailable = errors.New("slipstream not available")
	ErrInvalidAction         = errors.New("invalid action")
)

// Additional setup errors
var (
	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrTooManyPlayers  = errors.New("too many players")
)
