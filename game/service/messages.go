package service

import (
	"fmt"
	"time"

	"github.com/wricardo/parques/game/engine"
)

// messages resolves templates for a ruleset, falling back to the defaults
// for configs that were built in code without them
func messages(cfg *engine.GameConfig) engine.Messages {
	if cfg == nil {
		return engine.DefaultMessages()
	}
	m := cfg.Messages
	if m.Captured == "" {
		c := *cfg
		if err := engine.ApplyDefaults(&c); err == nil {
			m = c.Messages
		}
	}
	return m
}

func tokenName(gs *engine.GameState, ref engine.TokenRef) string {
	tok := gs.Token(ref)
	if tok == nil {
		return fmt.Sprintf("token %d/%d", ref.Player, ref.Token)
	}
	return engine.TokenName(&gs.Players[ref.Player], tok)
}

// renderOutcome turns a move outcome into a player-facing sentence. Squares
// are shown 1-based.
func renderOutcome(cfg *engine.GameConfig, gs *engine.GameState, out engine.Outcome) string {
	m := messages(cfg)
	name := tokenName(gs, out.Token)
	player := &gs.Players[out.Token.Player]

	switch out.Kind {
	case engine.Exited:
		return fmt.Sprintf(m.Exited, name, out.To.Index+1)
	case engine.Advanced:
		if out.To.Kind == engine.Home {
			return fmt.Sprintf(m.HomeAdvanced, name, out.To.Index+1)
		}
		return fmt.Sprintf(m.Advanced, name, out.From.Index+1, out.To.Index+1)
	case engine.Entered:
		return fmt.Sprintf(m.Entered, name, out.BonusAwarded)
	case engine.Finished:
		return fmt.Sprintf(m.Finished, name, out.BonusAwarded)
	case engine.Captured:
		return fmt.Sprintf(m.Captured, name, tokenName(gs, *out.Displaced), out.To.Index+1)
	}

	switch out.Reason {
	case engine.ReasonNeedsFive:
		return fmt.Sprintf(m.NeedsFive, name)
	case engine.ReasonExitBlocked:
		return fmt.Sprintf(m.ExitBlocked, player.Name)
	case engine.ReasonPathBlocked:
		return fmt.Sprintf(m.PathBlocked, name, derefOr(out.BlockedSquare, -1)+1)
	case engine.ReasonOvershootHomeEntry:
		return fmt.Sprintf(m.OvershootHomeEntry, name, engine.DistanceToHomeEntry(out.From.Index, player.HomeEntrySquare))
	case engine.ReasonHomeOvershoot:
		return fmt.Sprintf(m.HomeOvershoot, name, engine.HomeTerminal-out.From.Index)
	case engine.ReasonBonusBlocked:
		victim := ""
		if out.Displaced != nil {
			victim = tokenName(gs, *out.Displaced)
		}
		return fmt.Sprintf(m.BonusBlocked, name, victim, derefOr(out.CaptureSquare, -1)+1)
	case engine.ReasonDestinationFull:
		return fmt.Sprintf(m.DestinationFull, name, engine.Wrap(out.From.Index+out.Steps)+1)
	default:
		return fmt.Sprintf(m.InvalidSteps, name, out.Steps)
	}
}

func derefOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func outcomeEventType(out engine.Outcome) string {
	switch out.Kind {
	case engine.Exited:
		return EventExit
	case engine.Advanced:
		return EventAdvance
	case engine.Entered:
		return EventEnterHome
	case engine.Captured:
		return EventCapture
	case engine.Finished:
		return EventFinish
	default:
		return EventRejected
	}
}

// moveEvents builds the events that follow a move, comparing the state
// before and after it
func moveEvents(cfg *engine.GameConfig, gs *engine.GameState, out engine.Outcome, prevTurn, prevFinished int) []GameEvent {
	now := time.Now()
	events := []GameEvent{{
		Type:      outcomeEventType(out),
		Message:   renderOutcome(cfg, gs, out),
		Player:    out.Token.Player,
		Timestamp: now,
	}}
	if out.Partial {
		events = append(events, GameEvent{
			Type:      EventCapture,
			Message:   fmt.Sprintf("%s sent to jail", tokenName(gs, *out.Displaced)),
			Player:    out.Token.Player,
			Timestamp: now,
		})
	}

	m := messages(cfg)
	for _, p := range gs.FinishedOrder[prevFinished:] {
		events = append(events, GameEvent{
			Type:      EventPlayerFinished,
			Message:   fmt.Sprintf(m.PlayerFinished, gs.Players[p].Name),
			Player:    p,
			Timestamp: now,
		})
	}
	if gs.TurnNumber != prevTurn {
		events = append(events, turnEndEvent(cfg, gs, out.Token.Player))
	}
	return events
}

func turnEndEvent(cfg *engine.GameConfig, gs *engine.GameState, prevSeat int) GameEvent {
	m := messages(cfg)
	active := gs.ActivePlayer()
	msg := fmt.Sprintf(m.TurnPassed, active.Name)
	if active.ID == prevSeat {
		msg = fmt.Sprintf(m.RollAgain, active.Name)
	}
	return GameEvent{Type: EventTurnEnd, Message: msg, Player: active.ID, Timestamp: time.Now()}
}
