package service

import (
	"context"

	"github.com/wricardo/heat-race/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, mapName string, laps int) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Lobby
	JoinSession(ctx context.Context, sessionID, playerID, displayName string) (*JoinResult, error)
	StartSession(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Game Operations
	Dispatch(ctx context.Context, sessionID, playerID string, req ActionRequest) (*ActionResult, error)

	// Game State
	GetState(ctx context.Context, sessionID, viewerID string) (*engine.GameState, error)

	// Maps
	ListMaps(ctx context.Context) ([]*MapInfo, error)
	LoadMap(ctx context.Context, mapName string) (*engine.MapConfig, error)
	SaveMap(ctx context.Context, mapName string, config *engine.MapConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, mapID string, config *engine.MapConfig, laps int) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles map configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.MapConfig, error)
	ListConfigs() ([]*MapInfo, error)
	GetDefault() *engine.MapConfig
	DefaultID() string
	SaveConfig(name string, config *engine.MapConfig) error
}

// EventPublisher receives session events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event GameEvent) error
}
