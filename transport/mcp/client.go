package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"

	"github.com/wricardo/heat-race/game/engine"
	"github.com/wricardo/heat-race/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Heat Race",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Heat Race - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Race your car around the track and cross the finish line first. Speed comes
from the cards you play; going too fast through corners costs heat, and
running out of heat spins you out.

AVAILABLE TOOLS:
- list_maps: List tracks
- create_session: Create a race lobby
- join_session: Join a lobby as a player
- start_session: Deal cards and start the race
- list_sessions / get_session: Inspect races
- game_state: Your view of the race, including your hand and valid actions
- submit_action: Plan, move, react, slipstream, discard - requires intent explanation
- game_instructions: Full rules

NOTE: The 'intent' parameter on submit_action serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_maps",
		Description: "List the available tracks",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListMaps)

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new race lobby on a track",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map": stringProp("Map id from list_maps (optional, defaults to the server's default map)"),
				"laps": map[string]interface{}{
					"type":        "integer",
					"description": "Number of laps, 1-10 (optional, defaults to the map's laps)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_session",
		Description: "Join a race lobby. Remember the returned player_id; every action needs it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":   stringProp("Session ID"),
				"player_id":    stringProp("Player ID to use (optional, generated when empty)"),
				"display_name": stringProp("Name shown to other players (optional)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleJoinSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_session",
		Description: "Start the race. No one can join afterwards.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleStartSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all races",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{service.StatusLobby, service.StatusRacing, service.StatusFinished},
					"description": "Only list races in this status (optional)",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific race",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID to retrieve"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Race
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the race as seen by a player: positions, your hand with card indices, and what you may do now",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"player_id":  stringProp("Your player ID (optional, omit for a spectator view)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_action",
		Description: "Submit one action for your player. Check valid actions in game_state first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"player_id":  stringProp("Your player ID"),
				"type": map[string]interface{}{
					"type": "string",
					"enum": []string{
						string(engine.ActionPlan), string(engine.ActionMove), string(engine.ActionAdrenaline),
						string(engine.ActionReact), string(engine.ActionSlipstream), string(engine.ActionDiscard),
					},
					"description": "Action type",
				},
				"gear": map[string]interface{}{
					"type":        "integer",
					"description": "plan: gear 1-4 for this turn",
				},
				"card_indices": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": "plan: hand indices to play (exactly gear cards). discard: hand indices to discard",
				},
				"accept_move": map[string]interface{}{
					"type":        "boolean",
					"description": "adrenaline: take +1 move",
				},
				"accept_cooldown": map[string]interface{}{
					"type":        "boolean",
					"description": "adrenaline: take +1 cooldown",
				},
				"reaction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{string(engine.ChoiceSkip), string(engine.ChoiceCooldown), string(engine.ChoiceBoost)},
					"description": "react: which reaction to use",
				},
				"use": map[string]interface{}{
					"type":        "boolean",
					"description": "slipstream: move 2 extra cells",
				},
				"intent": stringProp("Brief explanation of the intent behind this action (serves as a rubber duck to help explain your reasoning)"),
			},
			Required: []string{"session_id", "player_id", "type"},
		},
	}, c.handleSubmitAction)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete race rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Argument helpers. JSON numbers arrive as float64.

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func argString(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func argBool(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func argInt(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func argInts(args map[string]interface{}, key string) ([]int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an array of integers", key)
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		f, ok := item.(float64)
		if !ok || f != float64(int(f)) {
			return nil, fmt.Errorf("%s must be an array of integers", key)
		}
		out = append(out, int(f))
	}
	return out, nil
}

func sessionPath(sessionID string, parts ...string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + strings.Join(parts, "")
}

// Tool handlers

func (c *Client) handleListMaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var maps []service.MapInfo
	if err := c.apiCall(ctx, "GET", "/api/maps", nil, &maps); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Maps (%d):\n\n", len(maps)))
	for _, m := range maps {
		result.WriteString(fmt.Sprintf("- %s: %s (length %d, %d laps, %d corners, %d engine heat)\n",
			m.ConfigID, m.Name, m.Length, m.Laps, m.Corners, m.Engine))
		if m.Description != "" {
			result.WriteString("  " + m.Description + "\n")
		}
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if m := argString(args, "map"); m != "" {
		body["map"] = m
	}
	if laps := argInt(args, "laps"); laps != 0 {
		body["laps"] = laps
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nMap: %s (%s)\nLaps: %d\nNext: join_session, then start_session\n",
		session.ID, session.MapName, session.MapID, session.Laps)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleJoinSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := argString(args, "session_id")

	body := map[string]string{
		"player_id":    argString(args, "player_id"),
		"display_name": argString(args, "display_name"),
	}

	var joined service.JoinResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/join"), body, &joined); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	players := 0
	if joined.Session != nil {
		players = len(joined.Session.Players)
	}
	result := fmt.Sprintf("Joined session %s as player_id: %s\nPlayers in lobby: %d\n", sessionID, joined.PlayerID, players)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := argString(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/start"), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Race started!\n\n" + formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/sessions"
	if status := argString(arguments(request), "status"); status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Sessions (%d):\n\n", response.Count))
	for _, s := range response.Sessions {
		result.WriteString(fmt.Sprintf("- %s [%s] %s, %d laps, %d players, created %s\n",
			s.ID, s.Status, s.MapID, s.Laps, len(s.Players), s.CreatedAt.Format("15:04:05")))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := argString(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path := sessionPath(argString(args, "session_id"), "/state")
	if player := argString(args, "player_id"); player != "" {
		path += "?player=" + url.QueryEscape(player)
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSubmitAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := argString(args, "session_id")

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = argString(args, "intent")

	indices, err := argInts(args, "card_indices")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := struct {
		PlayerID string `json:"player_id"`
		service.ActionRequest
	}{
		PlayerID: argString(args, "player_id"),
		ActionRequest: service.ActionRequest{
			Type:           engine.ActionType(argString(args, "type")),
			Gear:           argInt(args, "gear"),
			CardIndices:    indices,
			AcceptMove:     argBool(args, "accept_move"),
			AcceptCooldown: argBool(args, "accept_cooldown"),
			Reaction:       engine.ReactChoice(argString(args, "reaction")),
			Use:            argBool(args, "use"),
		},
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/actions"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Heat Race - Complete Instructions

GAME OBJECTIVE:
Complete the required laps before everyone else. When the first car crosses
the line, the turn is played out and the finish order is decided by final
position.

YOUR CARDS:
• Hand: always refilled to 7 cards at the end of your turn
• Speed cards (s1..s4) and upgrade cards (u0, u5): move you their value
• Heat: clogs your hand, can't be discarded; cool it back into your engine
• Stress: can't be discarded; when played it is replaced by the next moving
  card drawn from your deck
• Engine: your pool of heat. Paying heat moves a card from the engine to your discard

TURN STRUCTURE:
1. PLAN (everyone, simultaneously): submit_action type=plan with gear and card_indices
   • Gear 1-4; you play exactly as many cards as your gear
   • Shifting by 1 is free, by 2 costs 1 heat, by more is illegal
2. RESOLUTION (one player at a time, leader first):
   • move: acknowledge your staged movement
   • adrenaline (only the last car, or last two with 5+ players):
     accept_move for +1 cell, accept_cooldown for +1 cooldown
   • react (repeat until skip or nothing is left):
     - cooldown: return a heat card from your hand to your engine
       (gear 1 gives 3 cooldowns, gear 2 gives 1)
     - boost: pay 1 heat, draw until a speed card and move its value
     - skip: done reacting
   • slipstream: if a car is in your cell or the cell ahead, use=true moves 2 more
   • discard: optionally discard speed/upgrade cards from hand (heat and stress stay)

CORNERS:
• Each corner has a speed limit. Your speed this turn is the total of your played
  cards plus adrenaline and boosts (not slipstream)
• Passing a corner above its limit costs the difference in heat
• If you can't pay, you SPIN OUT: back to the cell before the corner, gear 1,
  and 1 stress card (2 if you were in gear 3 or 4) added to your hand

TRAFFIC:
• At most two cars share a cell. The first car in takes the raceline.
  A car that can't fit moves back to the nearest cell with room.

STRATEGY:
• Check game_state before every action; it lists your valid actions
• High gear is fast but risky before corners; plan your heat budget
• Use cooldowns in low gear to recover heat for later boosts
• Hand indices shift after every plan and discard, always re-read your hand`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	names := lo.Map(session.Players, func(p engine.PlayerInfo, _ int) string {
		if p.DisplayName != "" && p.DisplayName != p.ID {
			return fmt.Sprintf("%s (%s)", p.DisplayName, p.ID)
		}
		return p.ID
	})

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Session: %s\nMap: %s (%s)\nLaps: %d\nStatus: %s\nPlayers: %s\nCreated: %s\n",
		session.ID, session.MapName, session.MapID, session.Laps, session.Status,
		strings.Join(names, ", "), session.CreatedAt.Format("2006-01-02 15:04:05")))
	if session.Winner != "" {
		result.WriteString("Winner: " + session.Winner + "\n")
	}
	if session.GameState != nil {
		result.WriteString("\n" + formatGameState(session.GameState))
	}
	return result.String()
}

func formatCards(cards []engine.Card) string {
	return strings.Join(lo.Map(cards, func(c engine.Card, _ int) string { return c.String() }), " ")
}

func formatKinds(kinds []engine.CardKind) string {
	return strings.Join(lo.Map(kinds, func(k engine.CardKind, _ int) string { return string(k) }), " ")
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	result.WriteString(fmt.Sprintf("Map: %s | Laps: %d | Turn: %d | Phase: %s", state.Map, state.Laps, state.Turn, state.Phase))
	if state.Phase == engine.PhaseResolution {
		result.WriteString(fmt.Sprintf(" | %s to %s", state.CurrentPlayer, state.CurrentState))
	}
	if len(state.PendingPlayers) > 0 {
		result.WriteString(" | Waiting for: " + strings.Join(state.PendingPlayers, ", "))
	}
	result.WriteString("\n")

	corners := lo.Map(state.Track.Corners, func(c engine.Corner, _ int) string {
		return fmt.Sprintf("%d(limit %d)", c.Position, c.Limit)
	})
	result.WriteString(fmt.Sprintf("Track: %d cells per lap, finish at %d | Corners: %s\n\n",
		state.Track.Length, state.Track.Length*state.Laps, strings.Join(corners, ", ")))

	for _, p := range state.Players {
		lane := "outside"
		if p.OnRaceline {
			lane = "raceline"
		}
		result.WriteString(fmt.Sprintf("%s: cell %d (%s), lap %d, gear %d, engine %d, deck %d",
			p.ID, p.Position, lane, p.Lap, p.Gear, p.EngineSize, p.DeckSize))
		if p.HasAdrenaline {
			result.WriteString(", adrenaline")
		}
		if p.Finished {
			result.WriteString(", FINISHED")
		}
		result.WriteString("\n")

		if len(p.Hand) > 0 {
			indexed := make([]string, len(p.Hand))
			for i, c := range p.Hand {
				indexed[i] = fmt.Sprintf("[%d]%s", i, c)
			}
			result.WriteString("  Hand: " + strings.Join(indexed, " ") + "\n")
		} else if len(p.HiddenHand) > 0 {
			result.WriteString("  Hand: " + formatKinds(p.HiddenHand) + "\n")
		}
		if len(p.Played) > 0 {
			result.WriteString(fmt.Sprintf("  Played: %s (speed %d)\n", formatCards(p.Played), p.CardSpeed))
		} else if len(p.HiddenPlayed) > 0 {
			result.WriteString("  Played: " + formatKinds(p.HiddenPlayed) + "\n")
		}
		if len(p.Reactions) > 0 {
			reactions := lo.Map(p.Reactions, func(r engine.ReactChoice, _ int) string { return string(r) })
			result.WriteString(fmt.Sprintf("  Reactions: %s (cooldowns left %d)\n", strings.Join(reactions, ", "), p.AvailableCooldowns))
		}
	}

	if len(state.FinishOrder) > 0 {
		result.WriteString("\nFinish order: " + strings.Join(state.FinishOrder, ", ") + "\n")
	}
	if state.Phase == engine.PhaseFinished && len(state.FinishOrder) > 0 {
		result.WriteString(fmt.Sprintf("\nRACE OVER - %s wins!\n", state.FinishOrder[0]))
	}

	if state.Viewer != "" {
		if len(state.ValidActions) == 0 {
			result.WriteString(fmt.Sprintf("\n%s: nothing to do right now\n", state.Viewer))
		} else {
			actions := lo.Map(state.ValidActions, func(a engine.ActionType, _ int) string { return string(a) })
			result.WriteString(fmt.Sprintf("\n%s may submit: %s\n", state.Viewer, strings.Join(actions, ", ")))
		}
	}

	return result.String()
}

func formatActionResult(result *service.ActionResult) string {
	var out strings.Builder
	if result.Message != "" {
		out.WriteString(result.Message + "\n")
	}
	for _, e := range result.Events {
		if e.Type == service.EventRaceFinished {
			out.WriteString(e.Message + "\n")
		}
	}
	out.WriteString("\n" + formatGameState(result.GameState))
	return out.String()
}
