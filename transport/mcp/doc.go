// Package mcp exposes heat races to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API, and the JSON answer is rendered as text an agent can read.
//
// MCP Tools:
//   - list_maps: Tracks with length, laps and corners
//   - create_session: New lobby on a map
//   - join_session: Join a lobby, returns the player id to act with
//   - start_session: Deal cards and open turn 1
//   - list_sessions: All races, optionally filtered by status
//   - get_session: One race with its spectator view
//   - game_state: The race as one player sees it, with hand indices and valid actions
//   - submit_action: plan, move, adrenaline, react, slipstream or discard
//   - game_instructions: The rules
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
