package service

import (
	"fmt"
	"time"

	"github.com/wricardo/heat-race/game/engine"
)

// Session status values
const (
	StatusLobby    = "lobby"
	StatusRacing   = "racing"
	StatusFinished = "finished"
)

// SessionInfo provides information about a game session. GameState is the
// spectator view: every hand is hidden.
type SessionInfo struct {
	ID             string              `json:"id"`
	MapID          string              `json:"map_id"`
	MapName        string              `json:"map_name"`
	Laps           int                 `json:"laps"`
	Status         string              `json:"status"`
	Players        []engine.PlayerInfo `json:"players"`
	Winner         string              `json:"winner,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	GameState      *engine.GameState   `json:"game_state,omitempty"`
}

// JoinResult is returned when a player joins a lobby
type JoinResult struct {
	PlayerID string       `json:"player_id"`
	Session  *SessionInfo `json:"session"`
}

// ActionResult contains the outcome of a dispatched action, seen by the acting player
type ActionResult struct {
	Success   bool              `json:"success"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// ActionRequest is the wire form of an engine action. Only the fields for
// Type are read.
type ActionRequest struct {
	Type           engine.ActionType  `json:"type"`
	Gear           int                `json:"gear,omitempty"`
	CardIndices    []int              `json:"card_indices,omitempty"`
	AcceptMove     bool               `json:"accept_move,omitempty"`
	AcceptCooldown bool               `json:"accept_cooldown,omitempty"`
	Reaction       engine.ReactChoice `json:"reaction,omitempty"`
	Use            bool               `json:"use,omitempty"`
}

// ToAction converts the request into an engine action
func (r ActionRequest) ToAction() (engine.Action, error) {
	switch r.Type {
	case engine.ActionPlan:
		return engine.PlanAction{Gear: r.Gear, CardIndices: r.CardIndices}, nil
	case engine.ActionMove:
		return engine.MoveAction{}, nil
	case engine.ActionAdrenaline:
		return engine.AdrenalineAction{AcceptMove: r.AcceptMove, AcceptCooldown: r.AcceptCooldown}, nil
	case engine.ActionReact:
		return engine.ReactAction{Choice: r.Reaction}, nil
	case engine.ActionSlipstream:
		return engine.SlipstreamAction{Use: r.Use}, nil
	case engine.ActionDiscard:
		return engine.DiscardAction{CardIndices: r.CardIndices}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", engine.ErrInvalidAction, r.Type)
	}
}

// Event types
const (
	EventSessionCreated = "session_created"
	EventPlayerJoined   = "player_joined"
	EventRaceStarted    = "race_started"
	EventActionApplied  = "action_applied"
	EventRaceFinished   = "race_finished"
	EventSessionDeleted = "session_deleted"
)

// GameEvent represents something that happened in a session
type GameEvent struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	PlayerID  string         `json:"player_id,omitempty"`
	Action    *ActionRequest `json:"action,omitempty"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

// MapInfo provides information about a map configuration
type MapInfo struct {
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Length      int    `json:"length"`
	Laps        int    `json:"laps"`
	Corners     int    `json:"corners"`
	DeckSize    int    `json:"deck_size"`
	Engine      int    `json:"engine"`
}

// NewMapInfo summarizes config under id
func NewMapInfo(id string, config *engine.MapConfig) *MapInfo {
	return &MapInfo{
		ConfigID:    id,
		Name:        config.Name,
		Description: config.Description,
		Length:      config.Length,
		Laps:        config.Laps,
		Corners:     len(config.Corners),
		DeckSize:    len(config.Deck),
		Engine:      config.Engine,
	}
}
