package engine

// OutcomeKind classifies the result of resolving a move
type OutcomeKind string

const (
	Exited   OutcomeKind = "exited"
	Captured OutcomeKind = "captured"
	Entered  OutcomeKind = "entered"
	Advanced OutcomeKind = "advanced"
	Finished OutcomeKind = "finished"
	Rejected OutcomeKind = "rejected"
)

// RejectReason explains a Rejected outcome
type RejectReason string

const (
	ReasonNeedsFive          RejectReason = "needs-five"
	ReasonExitBlocked        RejectReason = "exit-blocked"
	ReasonPathBlocked        RejectReason = "path-blocked"
	ReasonOvershootHomeEntry RejectReason = "overshoot-home-entry"
	ReasonBonusBlocked       RejectReason = "bonus-blocked"
	ReasonHomeOvershoot      RejectReason = "home-overshoot"
	ReasonDestinationFull    RejectReason = "destination-full"
	ReasonInvalidSteps       RejectReason = "invalid-steps"
)

// Outcome is the structured result of a single move.
//
// For Captured, CaptureSquare is where the opponent was taken and To is
// the square reached after the bonus leg. A bonus-blocked rejection has
// Partial set: the capture stands and the token stays on CaptureSquare.
type Outcome struct {
	Kind          OutcomeKind  `json:"kind"`
	Reason        RejectReason `json:"reason,omitempty"`
	Token         TokenRef     `json:"token"`
	Steps         int          `json:"steps"`
	From          Location     `json:"from"`
	To            Location     `json:"to"`
	Displaced     *TokenRef    `json:"displaced,omitempty"`
	CaptureSquare *int         `json:"capture_square,omitempty"`
	BlockedSquare *int         `json:"blocked_square,omitempty"`
	BonusAwarded  int          `json:"bonus_awarded,omitempty"`
	Partial       bool         `json:"partial,omitempty"`
}

// IsRejected reports whether the move was refused
func (o Outcome) IsRejected() bool {
	return o.Kind == Rejected
}

// Applied reports whether the move changed the game state
func (o Outcome) Applied() bool {
	return o.Kind != Rejected || o.Partial
}

// Token returns a pointer to the referenced token, or nil for a bad reference
func (gs *GameState) Token(ref TokenRef) *Token {
	if ref.Player < 0 || ref.Player >= len(gs.Players) {
		return nil
	}
	p := &gs.Players[ref.Player]
	if ref.Token < 0 || ref.Token >= len(p.Tokens) {
		return nil
	}
	return &p.Tokens[ref.Token]
}

// DistanceToHomeEntry is the forward track distance from square to the
// player's home entry square
func DistanceToHomeEntry(square, homeEntry int) int {
	if homeEntry >= square {
		return homeEntry - square
	}
	return (TrackLength - square) + homeEntry
}

// ResolveMove applies steps to the referenced token and reports what
// happened. Rejections leave the state untouched except for a
// bonus-blocked capture, whose first leg stands.
func (gs *GameState) ResolveMove(ref TokenRef, steps int) Outcome {
	tok := gs.Token(ref)
	out := Outcome{Token: ref, Steps: steps}
	if tok == nil {
		return reject(out, ReasonInvalidSteps)
	}
	out.From = tok.Location
	out.To = tok.Location
	if steps < 1 {
		return reject(out, ReasonInvalidSteps)
	}

	switch tok.Location.Kind {
	case Jail:
		return gs.exitJail(tok, ref, steps, out)
	case Track:
		return gs.moveOnTrack(tok, ref, steps, out)
	case Home:
		return gs.moveInHome(tok, steps, out)
	default:
		return reject(out, ReasonInvalidSteps)
	}
}

func (gs *GameState) exitJail(tok *Token, ref TokenRef, steps int, out Outcome) Outcome {
	if steps != ExitRoll {
		return reject(out, ReasonNeedsFive)
	}
	start := gs.Players[ref.Player].StartSquare
	if !gs.Board.CanPlace(start) {
		return reject(out, ReasonExitBlocked)
	}
	gs.Board.place(start, ref)
	tok.Location = OnTrack(start)
	out.Kind = Exited
	out.To = tok.Location
	return out
}

func (gs *GameState) moveOnTrack(tok *Token, ref TokenRef, steps int, out Outcome) Outcome {
	player := &gs.Players[ref.Player]
	pos := tok.Location.Index
	d := DistanceToHomeEntry(pos, player.HomeEntrySquare)

	if steps > d {
		return reject(out, ReasonOvershootHomeEntry)
	}
	if clear, blocked := gs.Board.PathClear(pos, steps); !clear {
		out.BlockedSquare = &blocked
		return reject(out, ReasonPathBlocked)
	}

	if steps == d {
		gs.Board.remove(pos, ref)
		tok.Location = InHome(0)
		player.BonusBank += HomeBonus
		out.Kind = Entered
		out.To = tok.Location
		out.BonusAwarded = HomeBonus
		return out
	}

	dest := Wrap(pos + steps)
	occ := gs.Board.Squares[dest]
	if len(occ) == 1 && occ[0].Player != ref.Player && !IsSafeSquare(dest) {
		return gs.capture(tok, ref, pos, dest, out)
	}
	if !gs.Board.CanPlace(dest) {
		return reject(out, ReasonDestinationFull)
	}

	gs.Board.remove(pos, ref)
	gs.Board.place(dest, ref)
	tok.Location = OnTrack(dest)
	out.Kind = Advanced
	out.To = tok.Location
	return out
}

func (gs *GameState) capture(tok *Token, ref TokenRef, pos, dest int, out Outcome) Outcome {
	victim := gs.Board.Squares[dest][0]
	gs.Board.remove(dest, victim)
	gs.Token(victim).Location = InJail()

	gs.Board.remove(pos, ref)
	gs.Board.place(dest, ref)
	tok.Location = OnTrack(dest)

	captureSquare := dest
	out.Displaced = &victim
	out.CaptureSquare = &captureSquare
	out.To = tok.Location

	bonusDest := Wrap(dest + CaptureBonusLeg)
	clear, blocked := gs.Board.PathClear(dest, CaptureBonusLeg)
	if !clear || !gs.Board.CanPlace(bonusDest) {
		if !clear {
			out.BlockedSquare = &blocked
		} else {
			out.BlockedSquare = &bonusDest
		}
		out.Partial = true
		return reject(out, ReasonBonusBlocked)
	}

	gs.Board.remove(dest, ref)
	gs.Board.place(bonusDest, ref)
	tok.Location = OnTrack(bonusDest)
	out.Kind = Captured
	out.To = tok.Location
	return out
}

func (gs *GameState) moveInHome(tok *Token, steps int, out Outcome) Outcome {
	next := tok.Location.Index + steps
	if next >= HomeLaneLength {
		return reject(out, ReasonHomeOvershoot)
	}
	tok.Location = InHome(next)
	out.To = tok.Location
	if next == HomeTerminal {
		gs.Players[tok.Owner].BonusBank += HomeBonus
		out.Kind = Finished
		out.BonusAwarded = HomeBonus
		return out
	}
	out.Kind = Advanced
	return out
}

func reject(out Outcome, reason RejectReason) Outcome {
	out.Kind = Rejected
	out.Reason = reason
	return out
}

// IsPlayerFinished reports whether all of the player's tokens are at Home(7)
func (gs *GameState) IsPlayerFinished(playerID int) bool {
	if playerID < 0 || playerID >= len(gs.Players) {
		return false
	}
	for _, t := range gs.Players[playerID].Tokens {
		if t.Location.Kind != Home || t.Location.Index != HomeTerminal {
			return false
		}
	}
	return true
}
