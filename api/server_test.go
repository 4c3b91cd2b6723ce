package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/heat-race/game/config"
	"github.com/wricardo/heat-race/game/engine"
	"github.com/wricardo/heat-race/game/service"
	"github.com/wricardo/heat-race/game/session"
	"github.com/wricardo/heat-race/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateSessionFunc func(ctx context.Context, mapName string, laps int) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	JoinSessionFunc  func(ctx context.Context, sessionID, playerID, displayName string) (*service.JoinResult, error)
	StartSessionFunc func(ctx context.Context, sessionID string) (*service.SessionInfo, error)

	DispatchFunc func(ctx context.Context, sessionID, playerID string, req service.ActionRequest) (*service.ActionResult, error)
	GetStateFunc func(ctx context.Context, sessionID, viewerID string) (*engine.GameState, error)

	ListMapsFunc func(ctx context.Context) ([]*service.MapInfo, error)
	LoadMapFunc  func(ctx context.Context, mapName string) (*engine.MapConfig, error)
	SaveMapFunc  func(ctx context.Context, mapName string, config *engine.MapConfig) error
}

func (m *MockGameService) CreateSession(ctx context.Context, mapName string, laps int) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, mapName, laps)
	}
	return &service.SessionInfo{ID: "ab12", MapID: mapName, Laps: laps, Status: service.StatusLobby, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, MapID: "test", Status: service.StatusLobby}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) JoinSession(ctx context.Context, sessionID, playerID, displayName string) (*service.JoinResult, error) {
	if m.JoinSessionFunc != nil {
		return m.JoinSessionFunc(ctx, sessionID, playerID, displayName)
	}
	return &service.JoinResult{PlayerID: playerID}, nil
}

func (m *MockGameService) StartSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.StartSessionFunc != nil {
		return m.StartSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, Status: service.StatusRacing}, nil
}

func (m *MockGameService) Dispatch(ctx context.Context, sessionID, playerID string, req service.ActionRequest) (*service.ActionResult, error) {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, sessionID, playerID, req)
	}
	return &service.ActionResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) GetState(ctx context.Context, sessionID, viewerID string) (*engine.GameState, error) {
	if m.GetStateFunc != nil {
		return m.GetStateFunc(ctx, sessionID, viewerID)
	}
	return &engine.GameState{Viewer: viewerID}, nil
}

func (m *MockGameService) ListMaps(ctx context.Context) ([]*service.MapInfo, error) {
	if m.ListMapsFunc != nil {
		return m.ListMapsFunc(ctx)
	}
	return []*service.MapInfo{}, nil
}

func (m *MockGameService) LoadMap(ctx context.Context, mapName string) (*engine.MapConfig, error) {
	if m.LoadMapFunc != nil {
		return m.LoadMapFunc(ctx, mapName)
	}
	return engine.TestMap(), nil
}

func (m *MockGameService) SaveMap(ctx context.Context, mapName string, config *engine.MapConfig) error {
	if m.SaveMapFunc != nil {
		return m.SaveMapFunc(ctx, mapName, config)
	}
	return nil
}

// Test helpers

func setupTestServer(mockService *MockGameService) *Server {
	return NewServer(mockService, websocket.NewHub())
}

func makeRequest(method, path string, body interface{}) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response: %v\nBody: %s", err, w.Body.String())
	}
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("session not found: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("%w. Available maps: [test]", config.ErrConfigNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: p9", engine.ErrUnknownPlayer), http.StatusNotFound},
		{engine.ErrNotYourTurn, http.StatusConflict},
		{engine.ErrWrongAction, http.StatusConflict},
		{engine.ErrAlreadyActed, http.StatusConflict},
		{engine.ErrRaceFinished, http.StatusConflict},
		{service.ErrRaceAlreadyStarted, http.StatusConflict},
		{service.ErrRaceNotStarted, http.StatusConflict},
		{service.ErrSessionFull, http.StatusConflict},
		{engine.ErrDuplicatePlayerID, http.StatusConflict},
		{fmt.Errorf("%w: gear 5", engine.ErrIllegalShift), http.StatusBadRequest},
		{engine.ErrWrongCardCount, http.StatusBadRequest},
		{engine.ErrInvalidIndex, http.StatusBadRequest},
		{engine.ErrCannotDiscardHeat, http.StatusBadRequest},
		{engine.ErrNoHeatToBoost, http.StatusBadRequest},
		{engine.ErrInvalidAction, http.StatusBadRequest},
		{service.ErrInvalidLaps, http.StatusBadRequest},
		{fmt.Errorf("%w: length 3", config.ErrInvalidConfig), http.StatusBadRequest},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "Create session with default map",
			requestBody:    nil,
			expectedStatus: http.StatusCreated,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, mapName string, laps int) (*service.SessionInfo, error) {
					if mapName != "" || laps != 0 {
						t.Errorf("Expected empty map and zero laps, got %q/%d", mapName, laps)
					}
					return &service.SessionInfo{ID: "ab12", MapID: "usa", Laps: 2}, nil
				}
			},
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" || resp.MapID != "usa" {
					t.Errorf("Unexpected session %+v", resp)
				}
			},
		},
		{
			name:           "Create session with map and laps",
			requestBody:    map[string]interface{}{"map": "italy", "laps": 3},
			expectedStatus: http.StatusCreated,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, mapName string, laps int) (*service.SessionInfo, error) {
					if mapName != "italy" || laps != 3 {
						t.Errorf("Expected italy/3, got %q/%d", mapName, laps)
					}
					return &service.SessionInfo{ID: "cd34", MapID: mapName, Laps: laps}, nil
				}
			},
		},
		{
			name:           "Unknown map",
			requestBody:    map[string]interface{}{"map": "mars"},
			expectedStatus: http.StatusNotFound,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, mapName string, laps int) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("%w: mars", config.ErrConfigNotFound)
				}
			},
		},
		{
			name:           "Too many laps",
			requestBody:    map[string]interface{}{"laps": 11},
			expectedStatus: http.StatusBadRequest,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, mapName string, laps int) (*service.SessionInfo, error) {
					return nil, service.ErrInvalidLaps
				}
			},
		},
		{
			name:           "Malformed body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Handle service error",
			expectedStatus: http.StatusInternalServerError,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, mapName string, laps int) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "aa11", Status: service.StatusRacing},
				{ID: "bb22", Status: service.StatusLobby},
				{ID: "cc33", Status: service.StatusRacing},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal int
	}{
		{"all", "", []string{"aa11", "bb22", "cc33"}, 3},
		{"by status", "?status=racing", []string{"aa11", "cc33"}, 3},
		{"limited", "?limit=1", []string{"aa11"}, 3},
		{"bad limit ignored", "?limit=x", []string{"aa11", "bb22", "cc33"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.wantTotal || resp.Count != len(tt.wantIDs) {
				t.Errorf("count/total = %d/%d, want %d/%d", resp.Count, resp.Total, len(tt.wantIDs), tt.wantTotal)
			}
			for i, id := range tt.wantIDs {
				if i >= len(resp.Sessions) || resp.Sessions[i].ID != id {
					t.Errorf("session %d: want %s", i, id)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "ab12" {
				return session.ErrSessionNotFound
			}
			return nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/api/sessions/ab12", http.StatusOK},
		{"GET", "/api/sessions/zz99", http.StatusNotFound},
		{"DELETE", "/api/sessions/ab12", http.StatusOK},
		{"DELETE", "/api/sessions/zz99", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(server, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestJoinSession(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		joinErr        error
		expectedStatus int
		wantPlayer     string
	}{
		{"Join with id", map[string]string{"player_id": "ann", "display_name": "Ann"}, nil, http.StatusCreated, "ann"},
		{"Join without body", nil, nil, http.StatusCreated, ""},
		{"Duplicate player", map[string]string{"player_id": "ann"}, engine.ErrDuplicatePlayerID, http.StatusConflict, ""},
		{"Race started", map[string]string{"player_id": "bob"}, service.ErrRaceAlreadyStarted, http.StatusConflict, ""},
		{"Session full", map[string]string{"player_id": "bob"}, service.ErrSessionFull, http.StatusConflict, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				JoinSessionFunc: func(ctx context.Context, sessionID, playerID, displayName string) (*service.JoinResult, error) {
					if tt.joinErr != nil {
						return nil, tt.joinErr
					}
					if sessionID != "ab12" {
						t.Errorf("Expected session ab12, got %s", sessionID)
					}
					return &service.JoinResult{PlayerID: playerID}, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions/ab12/join", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.joinErr == nil {
				var resp service.JoinResult
				parseResponse(t, w, &resp)
				if resp.PlayerID != tt.wantPlayer {
					t.Errorf("Expected player %q, got %q", tt.wantPlayer, resp.PlayerID)
				}
			}
		})
	}
}

func TestStartSession(t *testing.T) {
	tests := []struct {
		name     string
		startErr error
		want     int
	}{
		{"Start lobby", nil, http.StatusOK},
		{"Already started", service.ErrRaceAlreadyStarted, http.StatusConflict},
		{"No players", fmt.Errorf("cannot start: %w", engine.ErrNoPlayers), http.StatusBadRequest},
		{"Missing session", session.ErrSessionNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				StartSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					if tt.startErr != nil {
						return nil, tt.startErr
					}
					return &service.SessionInfo{ID: sessionID, Status: service.StatusRacing}, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions/ab12/start", nil))
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAction(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		dispatchErr    error
		expectedStatus int
	}{
		{
			name:           "Plan",
			body:           map[string]interface{}{"player_id": "ann", "type": "plan", "gear": 2, "card_indices": []int{0, 3}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing player",
			body:           map[string]interface{}{"type": "move"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid body",
			body:           "plan",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Not your turn",
			body:           map[string]interface{}{"player_id": "bob", "type": "move"},
			dispatchErr:    engine.ErrNotYourTurn,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Illegal shift",
			body:           map[string]interface{}{"player_id": "ann", "type": "plan", "gear": 4},
			dispatchErr:    fmt.Errorf("%w: 1 to 4", engine.ErrIllegalShift),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Unknown player",
			body:           map[string]interface{}{"player_id": "zed", "type": "move"},
			dispatchErr:    engine.ErrUnknownPlayer,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				DispatchFunc: func(ctx context.Context, sessionID, playerID string, req service.ActionRequest) (*service.ActionResult, error) {
					if tt.dispatchErr != nil {
						return nil, tt.dispatchErr
					}
					if req.Type != engine.ActionPlan || req.Gear != 2 || len(req.CardIndices) != 2 {
						t.Errorf("Action not decoded: %+v", req)
					}
					return &service.ActionResult{Success: true, GameState: &engine.GameState{Viewer: playerID}}, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions/ab12/actions", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code == http.StatusOK {
				var resp service.ActionResult
				parseResponse(t, w, &resp)
				if !resp.Success || resp.GameState.Viewer != "ann" {
					t.Errorf("Unexpected result %+v", resp)
				}
			}
		})
	}
}

func TestGetState(t *testing.T) {
	var gotViewer string
	mockService := &MockGameService{
		GetStateFunc: func(ctx context.Context, sessionID, viewerID string) (*engine.GameState, error) {
			if sessionID == "lobby" {
				return nil, service.ErrRaceNotStarted
			}
			gotViewer = viewerID
			return &engine.GameState{Viewer: viewerID, Turn: 3}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/sessions/ab12/state?player=ann", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if gotViewer != "ann" {
		t.Errorf("Expected viewer ann, got %q", gotViewer)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/ab12/state", nil))
	if w.Code != http.StatusOK || gotViewer != "" {
		t.Errorf("Spectator view: status %d viewer %q", w.Code, gotViewer)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/lobby/state", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for a lobby, got %d", w.Code)
	}
}

func TestMaps(t *testing.T) {
	var saved string
	mockService := &MockGameService{
		ListMapsFunc: func(ctx context.Context) ([]*service.MapInfo, error) {
			return []*service.MapInfo{service.NewMapInfo("test", engine.TestMap())}, nil
		},
		LoadMapFunc: func(ctx context.Context, mapName string) (*engine.MapConfig, error) {
			if mapName != "test" {
				return nil, config.ErrConfigNotFound
			}
			return engine.TestMap(), nil
		},
		SaveMapFunc: func(ctx context.Context, mapName string, m *engine.MapConfig) error {
			if err := engine.ValidateMapConfig(m); err != nil {
				return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
			}
			saved = mapName
			return nil
		},
	}
	server := setupTestServer(mockService)

	t.Run("list", func(t *testing.T) {
		w := serve(server, makeRequest("GET", "/api/maps", nil))
		var maps []service.MapInfo
		parseResponse(t, w, &maps)
		if len(maps) != 1 || maps[0].ConfigID != "test" {
			t.Errorf("Unexpected maps %+v", maps)
		}
	})

	t.Run("get strips .json", func(t *testing.T) {
		w := serve(server, makeRequest("GET", "/api/maps/test.json", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		var m engine.MapConfig
		parseResponse(t, w, &m)
		if m.Length != engine.TestMap().Length {
			t.Errorf("Unexpected map %+v", m)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		w := serve(server, makeRequest("GET", "/api/maps/mars", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("save uses name as id", func(t *testing.T) {
		m := engine.TestMap()
		m.Name = "Monza Short"
		w := serve(server, makeRequest("POST", "/api/maps", m))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if saved != "monza-short" {
			t.Errorf("Expected id monza-short, got %q", saved)
		}
	})

	t.Run("save with explicit id", func(t *testing.T) {
		w := serve(server, makeRequest("POST", "/api/maps?id=oval", engine.TestMap()))
		if w.Code != http.StatusCreated || saved != "oval" {
			t.Errorf("status %d saved %q", w.Code, saved)
		}
	})

	t.Run("save invalid", func(t *testing.T) {
		m := engine.TestMap()
		m.Length = 3
		w := serve(server, makeRequest("POST", "/api/maps", m))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	w := serve(setupTestServer(&MockGameService{}), makeRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		expectedStatus int
	}{
		{"Missing session parameter", "", http.StatusBadRequest},
		{"Invalid session", "?session=zz99", http.StatusNotFound},
		{"Unknown player", "?session=ab12&player=zed", http.StatusNotFound},
		{"Valid player", "?session=ab12&player=ann", http.StatusSwitchingProtocols},
		{"Spectator", "?session=ab12", http.StatusSwitchingProtocols},
	}

	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, session.ErrSessionNotFound
			}
			return &service.SessionInfo{
				ID:      sessionID,
				Players: []engine.PlayerInfo{{ID: "ann", DisplayName: "Ann"}},
			}, nil
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)

			if tt.expectedStatus == http.StatusSwitchingProtocols {
				req.Header.Set("Upgrade", "websocket")
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
				req.Header.Set("Sec-WebSocket-Version", "13")
			}

			server.handleWebSocket(w, req)

			// httptest.ResponseRecorder can't be hijacked, so a 500 means the upgrade was attempted
			if tt.expectedStatus == http.StatusSwitchingProtocols && w.Code == http.StatusInternalServerError {
				return
			}
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
