// Package websocket pushes live game state to renderers.
//
// A renderer connects to /ws?session=<id> and receives a JSON Message
// every time the game in that session changes:
//
//	{"session_id": "k3x9", "event": "state_update", "game_state": {...}, "data": [...events]}
//
// The socket is one-way; moves are made over REST or MCP. Hub.Run owns
// registration and stops, closing every client, when its context ends.
// Clients that cannot keep up are dropped rather than slowing the game.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	hub.BroadcastToSession(sessionID, state, events)
package websocket
