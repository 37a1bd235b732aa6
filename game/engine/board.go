package engine

import "github.com/samber/lo"

// Board tracks occupancy of the outer track. Each square holds its
// occupants in arrival order.
type Board struct {
	Squares [][]TokenRef `json:"squares"`
}

// NewBoard returns an empty track
func NewBoard() Board {
	squares := make([][]TokenRef, TrackLength)
	for i := range squares {
		squares[i] = []TokenRef{}
	}
	return Board{Squares: squares}
}

// Wrap normalizes any integer onto the circular track
func Wrap(square int) int {
	square %= TrackLength
	if square < 0 {
		square += TrackLength
	}
	return square
}

// IsSafeSquare reports whether captures are forbidden on the square
func IsSafeSquare(square int) bool {
	return lo.Contains(StartSquares[:], Wrap(square))
}

// OccupantsAt returns a copy of the occupants of square in arrival order
func (b *Board) OccupantsAt(square int) []TokenRef {
	occ := b.Squares[Wrap(square)]
	out := make([]TokenRef, len(occ))
	copy(out, occ)
	return out
}

// Count returns how many tokens stand on square
func (b *Board) Count(square int) int {
	return len(b.Squares[Wrap(square)])
}

// CanPlace reports whether another token fits on square
func (b *Board) CanPlace(square int) bool {
	return b.Count(square) < MaxOccupants
}

// IsBlockade is true iff the square holds exactly two tokens of one owner
func (b *Board) IsBlockade(square int) bool {
	occ := b.Squares[Wrap(square)]
	return len(occ) == MaxOccupants && occ[0].Player == occ[1].Player
}

// PathClear walks the squares strictly between from and from+steps.
// It returns false and the first blockade found, or true and -1.
func (b *Board) PathClear(from, steps int) (bool, int) {
	for i := 1; i < steps; i++ {
		sq := Wrap(from + i)
		if b.IsBlockade(sq) {
			return false, sq
		}
	}
	return true, -1
}

// Total returns the number of tokens on the track
func (b *Board) Total() int {
	return lo.SumBy(b.Squares, func(occ []TokenRef) int { return len(occ) })
}

func (b *Board) place(square int, ref TokenRef) {
	sq := Wrap(square)
	b.Squares[sq] = append(b.Squares[sq], ref)
}

func (b *Board) remove(square int, ref TokenRef) bool {
	sq := Wrap(square)
	idx := lo.IndexOf(b.Squares[sq], ref)
	if idx < 0 {
		return false
	}
	b.Squares[sq] = append(b.Squares[sq][:idx], b.Squares[sq][idx+1:]...)
	return true
}
