package service

import (
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/wricardo/heat-race/game/engine"
)

// ActionRecord is one accepted action in a session's log
type ActionRecord struct {
	PlayerID string        `json:"player_id"`
	Action   ActionRequest `json:"action"`
}

// SessionRecord is everything needed to rebuild a session. The engine is
// deterministic for a given seed, so the game is restored by replaying Actions.
type SessionRecord struct {
	ID             string              `json:"id"`
	MapID          string              `json:"map_id"`
	Laps           int                 `json:"laps"`
	Seed           int64               `json:"seed"`
	Started        bool                `json:"started"`
	Players        []engine.PlayerInfo `json:"players"`
	Actions        []ActionRecord      `json:"actions"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
}

// Session represents one race and its lobby. The engine game is created on
// start. All access goes through the session lock so each game has a single caller.
type Session struct {
	ID        string
	MapID     string
	Config    *engine.MapConfig
	Laps      int
	CreatedAt time.Time

	mu             sync.Mutex
	lastAccessedAt time.Time
	seed           int64
	players        []engine.PlayerInfo
	game           *engine.Game
	actions        []ActionRecord
}

// NewSession creates a session in the lobby
func NewSession(id, mapID string, config *engine.MapConfig, laps int) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		MapID:          mapID,
		Config:         config,
		Laps:           laps,
		CreatedAt:      now,
		lastAccessedAt: now,
	}
}

// Join adds a player to the lobby
func (s *Session) Join(info engine.PlayerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game != nil {
		return ErrRaceAlreadyStarted
	}
	if info.ID == "" {
		return engine.ErrInvalidPlayerID
	}
	if lo.ContainsBy(s.players, func(p engine.PlayerInfo) bool { return p.ID == info.ID }) {
		return engine.ErrDuplicatePlayerID
	}
	if len(s.players) >= engine.MaxPlayers {
		return ErrSessionFull
	}
	s.players = append(s.players, info)
	return nil
}

// Start creates the game with a shuffle seeded by seed
func (s *Session) Start(seed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game != nil {
		return ErrRaceAlreadyStarted
	}
	return s.start(seed)
}

func (s *Session) start(seed int64) error {
	g, err := engine.NewGame(s.players, s.Config,
		engine.WithLaps(s.Laps),
		engine.WithShuffle(engine.RandomShuffle(rand.New(rand.NewSource(seed)))),
	)
	if err != nil {
		return err
	}
	s.game = g
	s.seed = seed
	return nil
}

// Apply dispatches req for playerID, records it on success and returns the player's view
func (s *Session) Apply(playerID string, req ActionRequest) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return nil, ErrRaceNotStarted
	}
	action, err := req.ToAction()
	if err != nil {
		return nil, err
	}
	if err := s.game.Dispatch(playerID, action); err != nil {
		return nil, err
	}
	s.actions = append(s.actions, ActionRecord{PlayerID: playerID, Action: req})
	return s.game.StateFor(playerID), nil
}

// StateFor returns the view of viewerID. An empty viewer gets the spectator view.
func (s *Session) StateFor(viewerID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return nil, ErrRaceNotStarted
	}
	return s.game.StateFor(viewerID), nil
}

// Status returns lobby, racing or finished
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

func (s *Session) status() string {
	if s.game == nil {
		return StatusLobby
	}
	if _, done := s.game.Winner(); done {
		return StatusFinished
	}
	return StatusRacing
}

// Players returns the joined players in join order
func (s *Session) Players() []engine.PlayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.players)
}

// Touch records an access
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessedAt = time.Now()
}

// LastAccessedAt returns the time of the last access
func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}

// Info summarizes the session with the spectator view of the race
func (s *Session) Info() *SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := &SessionInfo{
		ID:             s.ID,
		MapID:          s.MapID,
		MapName:        s.Config.Name,
		Laps:           s.Laps,
		Status:         s.status(),
		Players:        slices.Clone(s.players),
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.lastAccessedAt,
	}
	if s.game != nil {
		info.GameState = s.game.StateFor("")
		info.Winner, _ = s.game.Winner()
	}
	return info
}

// Record captures the session for persistence
func (s *Session) Record() SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionRecord{
		ID:             s.ID,
		MapID:          s.MapID,
		Laps:           s.Laps,
		Seed:           s.seed,
		Started:        s.game != nil,
		Players:        slices.Clone(s.players),
		Actions:        slices.Clone(s.actions),
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.lastAccessedAt,
	}
}

// RestoreSession rebuilds a session from its record by replaying every action
func RestoreSession(rec SessionRecord, config *engine.MapConfig) (*Session, error) {
	s := NewSession(rec.ID, rec.MapID, config, rec.Laps)
	s.CreatedAt = rec.CreatedAt
	s.lastAccessedAt = rec.LastAccessedAt
	s.players = slices.Clone(rec.Players)

	if !rec.Started {
		return s, nil
	}
	if err := s.start(rec.Seed); err != nil {
		return nil, err
	}
	for i, r := range rec.Actions {
		action, err := r.Action.ToAction()
		if err != nil {
			return nil, err
		}
		if err := s.game.Dispatch(r.PlayerID, action); err != nil {
			return nil, &ReplayError{Index: i, PlayerID: r.PlayerID, Err: err}
		}
		s.actions = append(s.actions, r)
	}
	return s, nil
}
