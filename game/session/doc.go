// Package session keeps running games in memory.
//
// Manager implements service.SessionManager. Each session owns its own
// engine.GameEngine, so games never share state. IDs are short lowercase
// nanoid strings (4 characters) and lookups ignore case, which keeps them
// easy to type into a URL or an MCP tool call.
//
// Usage:
//
//	manager := session.NewManager()
//	sess, err := manager.Create("", engine.DefaultGameConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	same, _ := manager.Get(strings.ToUpper(sess.ID))
//
// Sessions are not persisted. Idle ones are dropped by
// CleanupExpiredSessions, which the server runs periodically.
package session
