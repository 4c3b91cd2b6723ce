package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wricardo/heat-race/game/config"
	"github.com/wricardo/heat-race/game/engine"
	"github.com/wricardo/heat-race/game/service"
	"github.com/wricardo/heat-race/game/session"
	"github.com/wricardo/heat-race/log"
	"github.com/wricardo/heat-race/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Lobby
	api.HandleFunc("/sessions/{id}/join", s.handleJoin).Methods("POST")
	api.HandleFunc("/sessions/{id}/start", s.handleStart).Methods("POST")

	// Race
	api.HandleFunc("/sessions/{id}/actions", s.handleAction).Methods("POST")
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")

	// Maps
	api.HandleFunc("/maps", s.handleListMaps).Methods("GET")
	api.HandleFunc("/maps", s.handleSaveMap).Methods("POST")
	api.HandleFunc("/maps/{name}", s.handleGetMap).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError picks the status code for an error from the game service
func respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Logger.Error("request failed", zap.Error(err))
	}
	respondError(w, status, err.Error())
}

var (
	notFoundErrors = []error{
		session.ErrSessionNotFound,
		config.ErrConfigNotFound,
		engine.ErrUnknownPlayer,
	}
	conflictErrors = []error{
		service.ErrRaceNotStarted,
		service.ErrRaceAlreadyStarted,
		service.ErrSessionFull,
		session.ErrSessionAlreadyExists,
		engine.ErrDuplicatePlayerID,
		engine.ErrTooManyPlayers,
		engine.ErrWrongAction,
		engine.ErrAlreadyActed,
		engine.ErrNotYourTurn,
		engine.ErrRaceFinished,
	}
	badRequestErrors = []error{
		service.ErrInvalidLaps,
		session.ErrInvalidSessionID,
		config.ErrInvalidConfig,
		engine.ErrNoPlayers,
		engine.ErrInvalidPlayerID,
		engine.ErrOutOfCards,
		engine.ErrNoHeatForShift,
		engine.ErrNoHeatToBoost,
		engine.ErrIllegalShift,
		engine.ErrWrongCardCount,
		engine.ErrInvalidIndex,
		engine.ErrCannotDiscardHeat,
		engine.ErrCannotDiscardStress,
		engine.ErrReactionUnavailable,
		engine.ErrSlipstreamUnavailable,
		engine.ErrInvalidAction,
	}
)

func statusFor(err error) int {
	is := func(target error) bool { return errors.Is(err, target) }
	switch {
	case lo.ContainsBy(notFoundErrors, is):
		return http.StatusNotFound
	case lo.ContainsBy(conflictErrors, is):
		return http.StatusConflict
	case lo.ContainsBy(badRequestErrors, is):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Map  string `json:"map,omitempty"`
		Laps int    `json:"laps,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.Map, req.Laps)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	if status := query.Get("status"); status != "" {
		sessions = lo.Filter(sessions, func(info *service.SessionInfo, _ int) bool {
			return info.Status == status
		})
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Lobby Handlers

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID    string `json:"player_id,omitempty"`
		DisplayName string `json:"display_name,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.JoinSession(r.Context(), mux.Vars(r)["id"], req.PlayerID, req.DisplayName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.StartSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Race Handlers

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		PlayerID string `json:"player_id"`
		service.ActionRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	result, err := s.service.Dispatch(r.Context(), sessionID, req.PlayerID, req.ActionRequest)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Logger.Debug("action applied",
		zap.String("session", sessionID),
		zap.String("player", req.PlayerID),
		zap.String("action", string(req.Type)))

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("player"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// Map Handlers

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := s.service.ListMaps(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, maps)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	m, err := s.service.LoadMap(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// handleSaveMap stores a map under ?id=, or under its lowercased name
func (s *Server) handleSaveMap(w http.ResponseWriter, r *http.Request) {
	var m engine.MapConfig
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(m.Name)), " ", "-")
	}
	if id == "" {
		respondError(w, http.StatusBadRequest, "Map name is required")
		return
	}

	if err := s.service.SaveMap(r.Context(), id, &m); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Logger.Info("map saved", zap.String("map", id))
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Map saved successfully",
		"config_id": id,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not available", http.StatusNotFound)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	playerID := r.URL.Query().Get("player")
	if playerID != "" && !lo.ContainsBy(info.Players, func(p engine.PlayerInfo) bool { return p.ID == playerID }) {
		http.Error(w, "Unknown player", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, info.ID, playerID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
