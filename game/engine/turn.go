package engine

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// Turn-level misuse errors. Illegal moves are never errors; they come
// back as Rejected outcomes.
var (
	ErrDicePending        = errors.New("dice already rolled; spend them or end the turn")
	ErrNoDicePending      = errors.New("no dice pending; roll first")
	ErrDieNotPending      = errors.New("die value is not pending")
	ErrNoTokenSelected    = errors.New("no token selected")
	ErrNotPlayersTurn     = errors.New("not this player's turn")
	ErrInvalidToken       = errors.New("invalid token id")
	ErrInvalidPlayer      = errors.New("invalid player id")
	ErrInvalidBonusAmount = errors.New("bonus amount must be between 1 and the banked total")
	ErrPenaltyPending     = errors.New("three doubles penalty applied; end the turn")
	ErrBonusMustBeSpent   = errors.New("banked bonus must be spent before rolling")
	ErrInvalidDice        = errors.New("dice values must be between 1 and 6")
)

// RollResult is the outcome of a roll. Penalty is set when the roll
// completed a third consecutive double and its values were discarded.
type RollResult struct {
	Die1    int            `json:"die1"`
	Die2    int            `json:"die2"`
	Doubles bool           `json:"doubles"`
	Streak  int            `json:"streak"`
	Penalty *PenaltyNotice `json:"penalty,omitempty"`
}

// ActivePlayer returns the seat whose turn it is
func (gs *GameState) ActivePlayer() *Player {
	return &gs.Players[gs.ActiveSeat]
}

// Roll draws two dice for the active player
func (gs *GameState) Roll(dice Dice) (*RollResult, error) {
	switch gs.Phase {
	case PhaseDiceRolled:
		return nil, ErrDicePending
	case PhasePenalized:
		return nil, ErrPenaltyPending
	}
	player := gs.ActivePlayer()
	// A finished player's bank can never be spent.
	if gs.RequireBonusBeforeRoll && player.BonusBank > 0 && !gs.IsPlayerFinished(player.ID) {
		return nil, ErrBonusMustBeSpent
	}

	d1, d2 := dice.Roll()
	if d1 < 1 || d1 > DieFaces || d2 < 1 || d2 > DieFaces {
		return nil, fmt.Errorf("%w: got %d and %d", ErrInvalidDice, d1, d2)
	}

	result := &RollResult{Die1: d1, Die2: d2, Doubles: d1 == d2}
	gs.LastRoll = []int{d1, d2}
	gs.LastRollDoubles = result.Doubles
	gs.Penalty = nil
	if result.Doubles {
		player.DoublesStreak++
	} else {
		player.DoublesStreak = 0
	}
	result.Streak = player.DoublesStreak

	if player.DoublesStreak == DoublesPenaltyAt {
		notice := gs.applyDoublesPenalty(player)
		result.Penalty = notice
		gs.Penalty = notice
		gs.PendingDice = []int{}
		gs.LastRollDoubles = false
		gs.Selected = nil
		gs.Phase = PhasePenalized
		return result, nil
	}

	gs.PendingDice = []int{d1, d2}
	gs.Phase = PhaseDiceRolled
	return result, nil
}

// penaltyTarget picks last moved, then selected, then the first token
// out of jail, then token 0.
func (gs *GameState) penaltyTarget(player *Player) (int, PenaltySource) {
	if player.LastMovedToken != nil {
		return *player.LastMovedToken, PenaltyLastMoved
	}
	if gs.Selected != nil {
		return *gs.Selected, PenaltySelected
	}
	if tok, ok := lo.Find(player.Tokens, func(t Token) bool { return t.Location.Kind != Jail }); ok {
		return tok.ID, PenaltyFirstActive
	}
	return 0, PenaltyFallback
}

func (gs *GameState) applyDoublesPenalty(player *Player) *PenaltyNotice {
	id, source := gs.penaltyTarget(player)
	tok := &player.Tokens[id]
	ref := TokenRef{Player: player.ID, Token: id}
	notice := &PenaltyNotice{Token: ref, From: tok.Location, Source: source}

	if tok.Location.Kind == Track {
		gs.Board.remove(tok.Location.Index, ref)
	}
	tok.Location = InJail()
	player.DoublesStreak = 0
	player.LastMovedToken = &id
	// A token pulled out of the goal reopens the player's race.
	if !gs.IsPlayerFinished(player.ID) {
		gs.FinishedOrder = lo.Without(gs.FinishedOrder, player.ID)
	}
	return notice
}

// SelectToken marks one of the active player's tokens for the next die
func (gs *GameState) SelectToken(tokenID int) error {
	if tokenID < 0 || tokenID >= TokensPerPlayer {
		return fmt.Errorf("%w: %d", ErrInvalidToken, tokenID)
	}
	gs.Selected = &tokenID
	return nil
}

// UseDie spends a pending die value on the selected token. The value is
// consumed only when the move was applied; an empty pending list ends
// the turn.
func (gs *GameState) UseDie(value int) (Outcome, error) {
	if gs.Phase != PhaseDiceRolled {
		return Outcome{}, ErrNoDicePending
	}
	if gs.Selected == nil {
		return Outcome{}, ErrNoTokenSelected
	}
	idx := lo.IndexOf(gs.PendingDice, value)
	if idx < 0 {
		return Outcome{}, fmt.Errorf("%w: %d not in %v", ErrDieNotPending, value, gs.PendingDice)
	}

	ref := TokenRef{Player: gs.ActiveSeat, Token: *gs.Selected}
	out := gs.applyMove(ref, value)
	if !out.Applied() {
		return out, nil
	}

	gs.PendingDice = append(gs.PendingDice[:idx], gs.PendingDice[idx+1:]...)
	gs.Selected = nil
	if len(gs.PendingDice) == 0 {
		gs.EndTurn()
	}
	return out, nil
}

// SpendBonus moves a token by part of the player's banked bonus
func (gs *GameState) SpendBonus(playerID, tokenID, amount int) (Outcome, error) {
	if err := gs.checkRef(playerID, tokenID); err != nil {
		return Outcome{}, err
	}
	if playerID != gs.ActiveSeat {
		return Outcome{}, ErrNotPlayersTurn
	}
	if gs.Phase == PhasePenalized {
		return Outcome{}, ErrPenaltyPending
	}
	player := &gs.Players[playerID]
	if amount < 1 || amount > player.BonusBank {
		return Outcome{}, fmt.Errorf("%w: %d of %d", ErrInvalidBonusAmount, amount, player.BonusBank)
	}

	out := gs.applyMove(TokenRef{Player: playerID, Token: tokenID}, amount)
	if out.Applied() {
		player.BonusBank -= amount
		gs.Selected = nil
	}
	return out, nil
}

// EndTurn clears pending dice and selection. A doubles roll keeps the
// seat; otherwise play passes to the next seat.
func (gs *GameState) EndTurn() {
	gs.PendingDice = []int{}
	gs.Selected = nil
	gs.Penalty = nil
	if gs.LastRollDoubles {
		gs.LastRollDoubles = false
	} else {
		gs.ActivePlayer().DoublesStreak = 0
		gs.ActiveSeat = (gs.ActiveSeat + 1) % PlayerCount
	}
	gs.Phase = PhaseAwaitingRoll
	gs.TurnNumber++
}

// applyMove resolves a move and records the bookkeeping that belongs to
// the turn rather than the resolver.
func (gs *GameState) applyMove(ref TokenRef, steps int) Outcome {
	out := gs.ResolveMove(ref, steps)
	if !out.Applied() {
		return out
	}
	id := ref.Token
	gs.Players[ref.Player].LastMovedToken = &id
	if out.Kind == Finished && gs.IsPlayerFinished(ref.Player) && !lo.Contains(gs.FinishedOrder, ref.Player) {
		gs.FinishedOrder = append(gs.FinishedOrder, ref.Player)
	}
	return out
}

func (gs *GameState) checkRef(playerID, tokenID int) error {
	if playerID < 0 || playerID >= len(gs.Players) {
		return fmt.Errorf("%w: %d", ErrInvalidPlayer, playerID)
	}
	if tokenID < 0 || tokenID >= len(gs.Players[playerID].Tokens) {
		return fmt.Errorf("%w: %d", ErrInvalidToken, tokenID)
	}
	return nil
}
