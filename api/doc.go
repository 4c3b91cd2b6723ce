// Package api provides the HTTP REST API for heat races.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a lobby ({"map": "usa", "laps": 2}, both optional)
//   - GET /api/sessions - List sessions (?status=lobby|racing|finished, ?limit=N)
//   - GET /api/sessions/{id} - Session summary with the spectator view
//   - DELETE /api/sessions/{id} - Delete a session
//
// Lobby:
//   - POST /api/sessions/{id}/join - Join ({"player_id": "ann", "display_name": "Ann"})
//   - POST /api/sessions/{id}/start - Deal cards and open turn 1
//
// Race:
//   - POST /api/sessions/{id}/actions - Submit one action for a player
//   - GET /api/sessions/{id}/state?player=ann - The race as seen by a player
//
// Maps:
//   - GET /api/maps - List maps
//   - GET /api/maps/{name} - Get one map
//   - POST /api/maps - Validate and store a map (?id= overrides the id)
//
// Live updates:
//   - GET /ws?session={id}&player={id} - WebSocket, see package websocket
//
// Actions are posted as the player id plus the action fields:
//
//	{"player_id": "ann", "type": "plan", "gear": 2, "card_indices": [0, 4]}
//	{"player_id": "ann", "type": "adrenaline", "accept_move": true, "accept_cooldown": false}
//	{"player_id": "ann", "type": "react", "reaction": "boost"}
//	{"player_id": "ann", "type": "slipstream", "use": true}
//	{"player_id": "ann", "type": "discard", "card_indices": [1]}
//	{"player_id": "ann", "type": "move"}
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown sessions, maps and
// players are 404. Actions out of turn or phase are 409. Illegal actions and
// invalid maps are 400.
package api
