// Package mcp exposes the Parqués REST API as Model Context Protocol tools.
//
// Client holds no game state. Every tool call is forwarded to the HTTP
// server with apiCall and the JSON reply is rendered as plain text that an
// agent can read: whose turn it is, pending dice, each token's location,
// occupied squares and blockades.
//
// Tools:
//   - create_session, get_session, list_sessions, list_configs
//   - game_state, roll_dice, use_die, spend_bonus, end_turn
//   - move_token applies steps outside turn order
//   - reset_game, move_history, game_instructions
//
// Serve the returned server over stdio:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
