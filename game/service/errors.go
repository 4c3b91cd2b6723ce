package service

import (
	"errors"
	"fmt"
)

var (
	ErrRaceNotStarted     = errors.New("race has not started")
	ErrRaceAlreadyStarted = errors.New("race already started")
	ErrSessionFull        = errors.New("session is full")
	ErrInvalidLaps        = errors.New("invalid lap count")
)

// ReplayError reports a recorded action the engine rejected while restoring a session
type ReplayError struct {
	Index    int
	PlayerID string
	Err      error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay action %d by %s: %v", e.Index, e.PlayerID, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }
