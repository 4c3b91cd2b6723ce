package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wricardo/heat-race/game/engine"
	"github.com/wricardo/heat-race/log"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	publisher EventPublisher
	seed      func() int64
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithEventPublisher publishes session events to p
func WithEventPublisher(p EventPublisher) Option {
	return func(s *gameServiceImpl) { s.publisher = p }
}

// WithSeedSource sets where race shuffle seeds come from
func WithSeedSource(fn func() int64) Option {
	return func(s *gameServiceImpl) { s.seed = fn }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a lobby on the given map. An empty name uses the default map
// and laps <= 0 uses the map's lap count.
func (s *gameServiceImpl) CreateSession(ctx context.Context, mapName string, laps int) (*SessionInfo, error) {
	if laps > engine.MaxLaps {
		return nil, fmt.Errorf("%w: %d, at most %d", ErrInvalidLaps, laps, engine.MaxLaps)
	}

	mapID := strings.TrimSpace(mapName)
	var config *engine.MapConfig
	if mapID == "" {
		mapID = s.configs.DefaultID()
		config = s.configs.GetDefault()
	} else {
		var err error
		config, err = s.configs.LoadConfig(mapID)
		if err != nil {
			if maps, listErr := s.configs.ListConfigs(); listErr == nil && len(maps) > 0 {
				ids := lo.Map(maps, func(m *MapInfo, _ int) string { return m.ConfigID })
				return nil, fmt.Errorf("%w. Available maps: %v", err, ids)
			}
			return nil, fmt.Errorf("failed to load map %s: %w", mapID, err)
		}
	}

	if laps <= 0 {
		laps = config.Laps
	}
	if laps <= 0 {
		laps = engine.DefaultLaps
	}

	// Let session manager generate a 4-character ID
	sess, err := s.sessions.Create("", mapID, config, laps)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Logger.Info("session created", zap.String("session", sess.ID), zap.String("map", mapID), zap.Int("laps", laps))
	s.publish(ctx, GameEvent{Type: EventSessionCreated, SessionID: sess.ID, Message: fmt.Sprintf("%s, %d laps", config.Name, laps)})

	return sess.Info(), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sess.ID)
	return sess.Info(), nil
}

// ListSessions returns all active sessions, newest first
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := lo.Map(sessions, func(sess *Session, _ int) *SessionInfo { return sess.Info() })
	sortSessions(result)
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	log.Logger.Info("session deleted", zap.String("session", sessionID))
	s.publish(ctx, GameEvent{Type: EventSessionDeleted, SessionID: sessionID})
	return nil
}

// JoinSession adds a player to a lobby. An empty playerID gets a generated id.
func (s *gameServiceImpl) JoinSession(ctx context.Context, sessionID, playerID, displayName string) (*JoinResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		playerID = uuid.NewString()
	}
	if displayName == "" {
		displayName = playerID
	}

	if err := sess.Join(engine.PlayerInfo{ID: playerID, DisplayName: displayName}); err != nil {
		return nil, err
	}
	s.save(sess.ID)

	log.Logger.Info("player joined", zap.String("session", sess.ID), zap.String("player", playerID))
	s.publish(ctx, GameEvent{Type: EventPlayerJoined, SessionID: sess.ID, PlayerID: playerID, Message: displayName + " joined"})

	return &JoinResult{PlayerID: playerID, Session: sess.Info()}, nil
}

// StartSession deals the cards and opens the first planning phase
func (s *gameServiceImpl) StartSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	if err := sess.Start(s.seed()); err != nil {
		return nil, err
	}
	s.save(sess.ID)

	info := sess.Info()
	log.Logger.Info("race started", zap.String("session", sess.ID), zap.Int("players", len(info.Players)))
	s.publish(ctx, GameEvent{Type: EventRaceStarted, SessionID: sess.ID, Message: fmt.Sprintf("%d players on %s", len(info.Players), info.MapName)})

	return info, nil
}

// Dispatch applies one action for playerID and returns that player's view
func (s *gameServiceImpl) Dispatch(ctx context.Context, sessionID, playerID string, req ActionRequest) (*ActionResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	state, err := sess.Apply(playerID, req)
	if err != nil {
		log.Logger.Debug("action rejected",
			zap.String("session", sess.ID),
			zap.String("player", playerID),
			zap.String("action", string(req.Type)),
			zap.Error(err))
		return nil, err
	}
	s.save(sess.ID)

	events := []GameEvent{{
		Type:      EventActionApplied,
		SessionID: sess.ID,
		PlayerID:  playerID,
		Action:    &req,
		Message:   fmt.Sprintf("%s: %s", playerID, req.Type),
		Timestamp: time.Now(),
	}}
	if state.Phase == engine.PhaseFinished && len(state.FinishOrder) > 0 {
		events = append(events, GameEvent{
			Type:      EventRaceFinished,
			SessionID: sess.ID,
			PlayerID:  state.FinishOrder[0],
			Message:   fmt.Sprintf("%s wins. Finish order: %s", state.FinishOrder[0], strings.Join(state.FinishOrder, ", ")),
			Timestamp: time.Now(),
		})
		log.Logger.Info("race finished", zap.String("session", sess.ID), zap.Strings("finish_order", state.FinishOrder))
	}
	for _, e := range events {
		s.publish(ctx, e)
	}

	return &ActionResult{
		Success:   true,
		GameState: state,
		Message:   describeState(state),
		Events:    events,
	}, nil
}

// GetState returns the race as seen by viewerID
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID, viewerID string) (*engine.GameState, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sess.ID)
	return sess.StateFor(viewerID)
}

// ListMaps returns all available maps
func (s *gameServiceImpl) ListMaps(ctx context.Context) ([]*MapInfo, error) {
	return s.configs.ListConfigs()
}

// LoadMap loads a specific map
func (s *gameServiceImpl) LoadMap(ctx context.Context, mapName string) (*engine.MapConfig, error) {
	return s.configs.LoadConfig(mapName)
}

// SaveMap validates and stores a map
func (s *gameServiceImpl) SaveMap(ctx context.Context, mapName string, config *engine.MapConfig) error {
	return s.configs.SaveConfig(mapName, config)
}

func (s *gameServiceImpl) save(id string) {
	if err := s.sessions.Save(id); err != nil {
		log.Logger.Warn("failed to persist session", zap.String("session", id), zap.Error(err))
	}
}

func (s *gameServiceImpl) publish(ctx context.Context, event GameEvent) {
	if s.publisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Logger.Warn("failed to publish event",
			zap.String("session", event.SessionID),
			zap.String("event", event.Type),
			zap.Error(err))
	}
}

// describeState is a one-line summary of what the race waits for
func describeState(state *engine.GameState) string {
	switch {
	case state.Phase == engine.PhaseFinished:
		return "Race finished"
	case state.Phase == engine.PhasePlanning:
		return fmt.Sprintf("Turn %d: waiting for plans from %s", state.Turn, strings.Join(state.PendingPlayers, ", "))
	default:
		return fmt.Sprintf("Turn %d: waiting for %s to %s", state.Turn, state.CurrentPlayer, state.CurrentState)
	}
}

// sortSessions orders newest first, then by id
func sortSessions(sessions []*SessionInfo) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
