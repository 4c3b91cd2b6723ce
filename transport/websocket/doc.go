// Package websocket pushes live race state to connected clients.
//
// A central Hub owns every connection. Clients connect with a session id and,
// optionally, a player id; a client without a player id is a spectator.
//
// The Hub implements service.EventPublisher. When the game service publishes
// an event, every client of that session receives the event and then its own
// view of the race, built with GetState for that client's player id. Other
// players' hands therefore never reach a client.
//
// Message Protocol:
//
// Outgoing messages:
//
//	{"type": "state", "session_id": "ab12", "game_state": {...}}
//	{"type": "event", "session_id": "ab12", "event": {"type": "action_applied", ...}}
//	{"type": "error", "session_id": "ab12", "error": "not your turn"}
//
// Incoming messages carry one action in the same shape as the REST API:
//
//	{"type": "action", "action": {"type": "plan", "gear": 2, "card_indices": [0, 3]}}
//
// A rejected action is reported to the sending client only. An accepted action
// produces an action_applied event that refreshes everyone.
//
// Usage:
//
//	hub := websocket.NewHub()
//	svc := service.NewGameService(sessions, configs, service.WithEventPublisher(hub))
//	hub.SetBackend(svc)
//	go hub.Run(ctx)
//
//	hub.ServeWS(w, r, sessionID, playerID)
//
// Concurrency:
//
// Connection bookkeeping happens only on the Run goroutine. Each client has a
// read pump and a write pump; clients that can't keep up are dropped.
package websocket
