package engine

import (
	"fmt"

	"github.com/samber/lo"
)

// TokenName renders a token the way players read it, e.g. "Rojo0(track 5)".
// Track squares are shown 1-based.
func TokenName(p *Player, t *Token) string {
	switch t.Location.Kind {
	case Track:
		return fmt.Sprintf("%s%d(track %d)", p.Name, t.ID, t.Location.Index+1)
	case Home:
		return fmt.Sprintf("%s%d(home %d)", p.Name, t.ID, t.Location.Index+1)
	default:
		return fmt.Sprintf("%s%d(jail)", p.Name, t.ID)
	}
}

// CountByKind returns how many of a player's tokens are in each location kind
func CountByKind(p *Player) map[LocationKind]int {
	return lo.CountValuesBy(p.Tokens, func(t Token) LocationKind { return t.Location.Kind })
}

// TokensOnBoard counts the player's occupancy entries on the track
func (gs *GameState) TokensOnBoard(playerID int) int {
	return lo.SumBy(gs.Board.Squares, func(occ []TokenRef) int {
		return lo.CountBy(occ, func(r TokenRef) bool { return r.Player == playerID })
	})
}

// CheckInvariants verifies the board and token tables agree. It is used
// by tests and the analyzer to catch corrupted states.
func (gs *GameState) CheckInvariants() error {
	for sq, occ := range gs.Board.Squares {
		if len(occ) > MaxOccupants {
			return fmt.Errorf("square %d holds %d tokens", sq, len(occ))
		}
		for _, ref := range occ {
			tok := gs.Token(ref)
			if tok == nil {
				return fmt.Errorf("square %d references unknown token %+v", sq, ref)
			}
			if tok.Location != OnTrack(sq) {
				return fmt.Errorf("token %+v on square %d has location %s", ref, sq, tok.Location)
			}
		}
	}
	for i := range gs.Players {
		p := &gs.Players[i]
		counts := CountByKind(p)
		if counts[Track] != gs.TokensOnBoard(i) {
			return fmt.Errorf("player %d has %d track tokens but %d on the board", i, counts[Track], gs.TokensOnBoard(i))
		}
		if counts[Jail]+counts[Track]+counts[Home] != TokensPerPlayer {
			return fmt.Errorf("player %d accounts for %v", i, counts)
		}
		for _, t := range p.Tokens {
			if t.Location.Kind == Home && (t.Location.Index < 0 || t.Location.Index > HomeTerminal) {
				return fmt.Errorf("token %d of player %d at invalid home index %d", t.ID, i, t.Location.Index)
			}
		}
		if listed := lo.Contains(gs.FinishedOrder, i); listed != gs.IsPlayerFinished(i) {
			return fmt.Errorf("player %d finished=%t but listed=%t in finished order", i, gs.IsPlayerFinished(i), listed)
		}
	}
	return nil
}
