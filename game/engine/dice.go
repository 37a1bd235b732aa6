package engine

import (
	"math/rand/v2"
	"sync"
)

// Dice produces the two values of a roll
type Dice interface {
	Roll() (int, int)
}

// RandomDice rolls two fair six-sided dice
type RandomDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDice returns dice seeded from the runtime source, or from seed
// when it is non-zero
func NewRandomDice(seed uint64) *RandomDice {
	d := &RandomDice{}
	if seed != 0 {
		d.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return d
}

func (d *RandomDice) Roll() (int, int) {
	if d.rng == nil {
		return rand.IntN(DieFaces) + 1, rand.IntN(DieFaces) + 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(DieFaces) + 1, d.rng.IntN(DieFaces) + 1
}

// FixedDice replays a scripted sequence of rolls and then repeats the last one
type FixedDice struct {
	mu    sync.Mutex
	rolls [][2]int
	next  int
}

// NewFixedDice returns dice that yield the given pairs in order
func NewFixedDice(rolls ...[2]int) *FixedDice {
	return &FixedDice{rolls: rolls}
}

func (d *FixedDice) Roll() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rolls) == 0 {
		return 1, 2
	}
	i := d.next
	if i >= len(d.rolls) {
		i = len(d.rolls) - 1
	} else {
		d.next++
	}
	return d.rolls[i][0], d.rolls[i][1]
}

// Push appends more scripted rolls
func (d *FixedDice) Push(rolls ...[2]int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolls = append(d.rolls, rolls...)
}
