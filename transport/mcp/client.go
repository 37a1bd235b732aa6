package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"

	"github.com/wricardo/parques/game/engine"
	"github.com/wricardo/parques/game/service"
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
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Parqués",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Parqués - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Bring all four of your tokens from jail, around the 68-square track and
up your 8-square home lane to the goal.

TURN LOOP:
1. roll_dice
2. use_die once per die value (pick a token each time)
3. end_turn if a die cannot be used; doubles let the same player roll again

AVAILABLE TOOLS:
- create_session, get_session, list_sessions, list_configs
- game_state: board, tokens, pending dice and bonus banks
- roll_dice, use_die, spend_bonus, end_turn
- move_token: apply steps to any token directly (analysis and setup)
- reset_game, move_history
- game_instructions: full rules`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional ruleset selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Ruleset id from list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "roll_dice",
		Description: "Roll both dice for the active player. The result lists which tokens each value can move.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleRollDice)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "use_die",
		Description: "Spend one pending die value on one of the active player's tokens",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"token":      intProp("Token id 0-3 of the active player"),
				"value":      intProp("A pending die value"),
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why this move (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "token", "value"},
		},
	}, c.handleUseDie)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "spend_bonus",
		Description: "Move a token with banked bonus steps (earned by entering the home lane or reaching the goal)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"player":     intProp("Player seat 0-3 (must be the active player)"),
				"token":      intProp("Token id 0-3"),
				"amount":     intProp("Steps to spend, at most the banked total"),
			},
			Required: []string{"session_id", "player", "token", "amount"},
		},
	}, c.handleSpendBonus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_token",
		Description: "Apply a number of steps to any token, ignoring dice and turn order. Meant for setting up positions and analysis.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"player":     intProp("Player seat 0-3"),
				"token":      intProp("Token id 0-3"),
				"steps":      intProp("Steps to move"),
			},
			Required: []string{"session_id", "player", "token", "steps"},
		},
	}, c.handleMoveToken)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_turn",
		Description: "End the active player's turn, discarding unused dice",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleEndTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to initial state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get action history for a session, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"page":       intProp("Page number"),
				"limit":      intProp("Items per page"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available rulesets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
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

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// intArg reads an integer argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}

func requireInts(args map[string]interface{}, keys ...string) (map[string]int, error) {
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		v, ok := intArg(args, k)
		if !ok {
			return nil, fmt.Errorf("%s must be an integer", k)
		}
		out[k] = v
	}
	return out, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.Message != "" {
		result += session.Message + "\n"
	}
	result += "\n" + formatGameState(session.GameState)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		turn := ""
		if s.GameState != nil && len(s.GameState.Players) > s.GameState.ActiveSeat {
			turn = fmt.Sprintf(", Turn: %s", s.GameState.Players[s.GameState.ActiveSeat].Name)
		}
		result += fmt.Sprintf("- %s (Config: %s, Created: %s%s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), turn)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleRollDice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "/roll")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.RollResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRollResult(&result)), nil
}

func (c *Client) handleUseDie(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, err := sessionPath(args, "/use-die")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ints, err := requireInts(args, "token", "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, ints, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleSpendBonus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, err := sessionPath(args, "/bonus")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ints, err := requireInts(args, "player", "token", "amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, ints, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleMoveToken(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, err := sessionPath(args, "/move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ints, err := requireInts(args, "player", "token", "steps")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, ints, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleEndTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "/end-turn")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.TurnResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result.Message + "\n\n" + formatGameState(result.GameState)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	suffix := "/history"
	if len(params) > 0 {
		suffix += "?" + params.Encode()
	}

	path, err := sessionPath(args, suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Rulesets:\n\n"
	for _, cfg := range configs {
		bonusRule := ""
		if cfg.RequireBonusBeforeRoll {
			bonusRule = ", bonus must be spent before rolling"
		}
		result += fmt.Sprintf("• %s (id: %s)\n  %s\n  Players: %s%s\n\n",
			cfg.Name, cfg.ConfigID, cfg.Description, strings.Join(cfg.Players, ", "), bonusRule)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Parqués - Complete Instructions

BOARD:
• 68-square circular track, squares shown 1-68
• Each player has a start square (1, 18, 35, 52); start squares are safe
• Each player has a home entry square (68, 17, 34, 51) and an 8-square
  home lane; the last lane square is the goal

TOKENS:
• 4 tokens per player, all starting in jail
• A square holds at most 2 tokens; 2 tokens of one player on a square
  form a blockade that nobody can pass

TURN:
• roll_dice rolls two dice; spend each value with use_die on any token
• A die that cannot be used is kept until end_turn discards it
• Once both values are used the turn passes automatically
• Doubles: the same player rolls again after the turn ends
• Third doubles in a row: the last moved token goes back to jail and the
  turn ends (call end_turn)

MOVES:
• Leaving jail needs an exact 5 and a free start square
• On the track a token cannot pass a blockade and must land exactly on
  its home entry square to go into the home lane (+10 bonus steps)
• Landing alone on an opponent outside a safe square captures it: the
  opponent goes to jail and you move 20 more squares. If those 20 are
  blocked the capture still counts but your token stays put
• In the home lane the count must be exact; reaching the goal gives
  +10 bonus steps

BONUS:
• Banked bonus steps are spent with spend_bonus on any of your tokens

WINNING:
• A player finishes when all 4 tokens reach the goal; play continues for
  the remaining players`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil || len(state.Players) == 0 {
		return "No game state available"
	}

	var b strings.Builder
	active := state.Players[state.ActiveSeat]
	fmt.Fprintf(&b, "Turn %d | Active: %s (seat %d) | Phase: %s",
		state.TurnNumber, active.Name, active.ID, state.Phase)
	if len(state.PendingDice) > 0 {
		fmt.Fprintf(&b, " | Pending dice: %v", state.PendingDice)
	}
	b.WriteString("\n\n")

	for i := range state.Players {
		p := &state.Players[i]
		names := lo.Map(p.Tokens, func(t engine.Token, _ int) string { return engine.TokenName(p, &t) })
		marker := " "
		if p.ID == state.ActiveSeat {
			marker = "▶"
		}
		fmt.Fprintf(&b, "%s %s (%s) bonus=%d doubles=%d\n   %s\n",
			marker, p.Name, p.Color, p.BonusBank, p.DoublesStreak, strings.Join(names, ", "))
	}

	if occupied := formatOccupied(state); occupied != "" {
		b.WriteString("\nOccupied squares:\n")
		b.WriteString(occupied)
	}

	if len(state.FinishedOrder) > 0 {
		finished := lo.Map(state.FinishedOrder, func(id int, _ int) string { return state.Players[id].Name })
		fmt.Fprintf(&b, "\nFinished: %s\n", strings.Join(finished, ", "))
	}

	return b.String()
}

// formatOccupied lists track squares with tokens, marking blockades
func formatOccupied(state *engine.GameState) string {
	var squares []int
	for sq, occ := range state.Board.Squares {
		if len(occ) > 0 {
			squares = append(squares, sq)
		}
	}
	sort.Ints(squares)

	var b strings.Builder
	for _, sq := range squares {
		occ := state.Board.Squares[sq]
		owners := lo.Map(occ, func(r engine.TokenRef, _ int) string {
			return fmt.Sprintf("%s%d", state.Players[r.Player].Name, r.Token)
		})
		tag := ""
		if state.Board.IsBlockade(sq) {
			tag = " [blockade]"
		}
		if engine.IsSafeSquare(sq) {
			tag += " [safe]"
		}
		fmt.Fprintf(&b, "  %2d: %s%s\n", sq+1, strings.Join(owners, ", "), tag)
	}
	return b.String()
}

func formatRollResult(result *service.RollResult) string {
	var b strings.Builder
	b.WriteString(result.Message + "\n")
	if result.Penalty != nil {
		b.WriteString("Turn is over: call end_turn.\n")
	}

	values := lo.Keys(result.LegalMoves)
	sort.Ints(values)
	for _, v := range values {
		tokens := result.LegalMoves[v]
		if len(tokens) == 0 {
			fmt.Fprintf(&b, "Die %d: no legal moves\n", v)
			continue
		}
		fmt.Fprintf(&b, "Die %d: tokens %v\n", v, tokens)
	}

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	response := ""
	if result.Success {
		response = "✓ " + result.Message + "\n"
	} else {
		response = "✗ " + result.Message + "\n"
	}

	if len(result.Events) > 1 {
		response += "Events:\n"
		for _, event := range result.Events[1:] {
			response += fmt.Sprintf("- %s: %s\n", event.Type, event.Message)
		}
	}

	if !result.TurnEnded && len(result.PendingDice) > 0 {
		response += fmt.Sprintf("Still to use: %v\n", result.PendingDice)
	}

	response += "\n" + formatGameState(result.GameState)
	return response
}

func formatHistory(history *service.HistoryResponse) string {
	result := fmt.Sprintf("Action History (Page %d/%d), Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalEntries)

	for _, e := range history.Entries {
		line := fmt.Sprintf("%d. seat %d %s", e.Number, e.Player, e.Action)
		if e.Token != nil {
			line += fmt.Sprintf(" token=%d", *e.Token)
		}
		if len(e.Dice) > 0 {
			line += fmt.Sprintf(" dice=%v", e.Dice)
		}
		if e.Steps > 0 {
			line += fmt.Sprintf(" steps=%d", e.Steps)
		}
		if e.Outcome != nil {
			if e.Outcome.IsRejected() {
				line += fmt.Sprintf(" ✗ %s", e.Outcome.Reason)
			} else {
				line += fmt.Sprintf(" ✓ %s %s→%s", e.Outcome.Kind, e.Outcome.From, e.Outcome.To)
			}
		}
		result += line + "\n"
	}

	return result
}
