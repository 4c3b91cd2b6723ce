package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/heat-race/game/engine"
	"github.com/wricardo/heat-race/game/service"
	"github.com/wricardo/heat-race/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Time allowed for one state lookup while fanning out.
	stateTimeout = 5 * time.Second
)

// Message types sent to clients
const (
	MessageState = "state"
	MessageEvent = "event"
	MessageError = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Backend is the part of the game service the hub needs
type Backend interface {
	GetState(ctx context.Context, sessionID, viewerID string) (*engine.GameState, error)
	Dispatch(ctx context.Context, sessionID, playerID string, req service.ActionRequest) (*service.ActionResult, error)
}

// Message is sent from the hub to a client. GameState is always the
// receiving player's own view.
type Message struct {
	Type      string             `json:"type"`
	SessionID string             `json:"session_id"`
	GameState *engine.GameState  `json:"game_state,omitempty"`
	Event     *service.GameEvent `json:"event,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// InboundMessage is sent by a client. Only "action" is understood.
type InboundMessage struct {
	Type   string                 `json:"type"`
	Action *service.ActionRequest `json:"action,omitempty"`
}

// Client represents a WebSocket client watching one session as one player.
// An empty playerID is a spectator.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	playerID  string
}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and pushes each of them its own
// view of the session after every event.
type Hub struct {
	backend Backend

	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Session events to fan out
	events chan service.GameEvent

	// Messages for a single client
	direct chan directMessage

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		events:     make(chan service.GameEvent, 256),
		direct:     make(chan directMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetBackend sets the service used to build views and apply inbound actions.
// It must be called before Run.
func (h *Hub) SetBackend(b Backend) {
	h.backend = b
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)
			h.sendState(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.events:
			h.fanOut(event)

		case msg := <-h.direct:
			if h.sessions[msg.client.sessionID][msg.client] {
				h.deliver(msg.client, msg.data)
			}
		}
	}
}

// Publish implements service.EventPublisher. Every connected client of the
// session receives the event followed by its refreshed view.
func (h *Hub) Publish(ctx context.Context, event service.GameEvent) error {
	select {
	case h.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("websocket hub event queue is full")
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID, playerID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
		playerID:  playerID,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Logger.Debug("client registered",
		zap.String("session", client.sessionID),
		zap.String("player", client.playerID),
		zap.Int("clients", len(h.sessions[client.sessionID])))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			log.Logger.Debug("client unregistered",
				zap.String("session", client.sessionID),
				zap.String("player", client.playerID),
				zap.Int("clients", len(clients)))
		}
	}
}

// fanOut sends the event and a fresh per-client view to every client of the session
func (h *Hub) fanOut(event service.GameEvent) {
	clients := h.sessions[event.SessionID]
	if len(clients) == 0 {
		return
	}

	eventData, err := json.Marshal(&Message{Type: MessageEvent, SessionID: event.SessionID, Event: &event})
	if err != nil {
		log.Logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	for client := range clients {
		h.deliver(client, eventData)
		if event.Type != service.EventSessionDeleted {
			h.sendState(client)
		}
	}
}

// sendState pushes the client's own view. Sessions still in the lobby have no state yet.
func (h *Hub) sendState(client *Client) {
	if h.backend == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()

	state, err := h.backend.GetState(ctx, client.sessionID, client.playerID)
	if err != nil {
		if !errors.Is(err, service.ErrRaceNotStarted) {
			log.Logger.Debug("no state for client", zap.String("session", client.sessionID), zap.Error(err))
		}
		return
	}

	data, err := json.Marshal(&Message{Type: MessageState, SessionID: client.sessionID, GameState: state})
	if err != nil {
		log.Logger.Error("failed to marshal state", zap.Error(err))
		return
	}
	h.deliver(client, data)
}

// deliver queues data for the client, dropping clients that can't keep up
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.unregisterClient(client)
	}
}

// sendError relays an error to this client only
func (c *Client) sendError(err error) {
	data, _ := json.Marshal(&Message{Type: MessageError, SessionID: c.sessionID, Error: err.Error()})
	c.hub.direct <- directMessage{client: c, data: data}
}

// handleMessage applies an inbound action. Success is announced through the
// service's events, failures go back to this client.
func (c *Client) handleMessage(raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError(errors.New("invalid message: " + err.Error()))
		return
	}
	if msg.Type != "action" || msg.Action == nil {
		c.sendError(errors.New("unsupported message type: " + msg.Type))
		return
	}
	if c.playerID == "" {
		c.sendError(errors.New("spectators cannot submit actions"))
		return
	}
	if c.hub.backend == nil {
		c.sendError(errors.New("actions are not accepted on this connection"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()
	if _, err := c.hub.backend.Dispatch(ctx, c.sessionID, c.playerID, *msg.Action); err != nil {
		c.sendError(err)
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Logger.Debug("websocket closed", zap.String("session", c.sessionID), zap.Error(err))
			}
			break
		}
		c.handleMessage(data)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
// Each message is written as its own frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
