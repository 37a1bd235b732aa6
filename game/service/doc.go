// Package service sits between the transports (HTTP, WebSocket, MCP) and
// the rule engine.
//
// GameService owns session lookup, ruleset loading and the rendering of
// move outcomes into player-facing messages and events. Every call that
// touches an engine holds the service lock, so a game is always advanced
// one action at a time no matter how many transports drive it.
//
// Usage:
//
//	sessions := session.NewManager()
//	configs := config.NewManager("configs")
//	svc := service.NewGameService(sessions, configs)
//
//	info, err := svc.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//	roll, _ := svc.RollDice(ctx, info.ID)
//	token := 0
//	res, _ := svc.UseDie(ctx, info.ID, &token, roll.Die1)
//	fmt.Println(res.Message)
//
// Illegal moves are not errors: they come back as a MoveResult whose
// Outcome is rejected, with a rendered explanation in Message. Errors are
// reserved for misuse, such as rolling twice or naming an unknown session
// (ErrSessionNotFound).
package service
