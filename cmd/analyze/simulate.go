package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"

	"github.com/wricardo/parques/game/engine"
)

// SimOptions controls a batch of random games
type SimOptions struct {
	Games    int
	Workers  int
	MaxTurns int
	// Seed makes a batch reproducible; zero picks a random one
	Seed uint64
}

// GameResult is the outcome of one simulated game
type GameResult struct {
	Seed       uint64
	Winner     int // -1 when MaxTurns was reached first
	Turns      int
	Captures   int
	Penalties  int
	Rejections int
	BonusSpent int
}

// SimSummary aggregates a batch
type SimSummary struct {
	Games     int
	Completed int
	Stalled   int
	Wins      []int
	AvgTurns  float64
	MinTurns  int
	MaxTurns  int
	Captures  int
	Penalties int
}

// player picks moves uniformly at random among the legal ones
type player struct {
	rng *rand.Rand
	res *GameResult
}

func (p *player) record(out engine.Outcome) {
	if out.IsRejected() && !out.Partial {
		p.res.Rejections++
		return
	}
	if out.Displaced != nil {
		p.res.Captures++
	}
}

// spendBonus tries the largest usable amount on a random token until the
// bank is empty or nothing fits.
func (p *player) spendBonus(gs *engine.GameState) {
	active := gs.ActivePlayer()
	for active.BonusBank > 0 && !gs.IsPlayerFinished(active.ID) {
		spent := false
		for amount := active.BonusBank; amount >= 1 && !spent; amount-- {
			for _, id := range p.rng.Perm(engine.TokensPerPlayer) {
				out, err := gs.SpendBonus(active.ID, id, amount)
				if err != nil {
					continue
				}
				p.record(out)
				if out.Applied() {
					p.res.BonusSpent += amount
					spent = true
					break
				}
			}
		}
		if !spent {
			return
		}
	}
}

// playDice spends pending dice until none are usable, then ends the turn
// if UseDie has not already done so.
func (p *player) playDice(gs *engine.GameState) error {
	for gs.Phase == engine.PhaseDiceRolled {
		moved := false
		values := lo.Uniq(gs.PendingDice)
		p.rng.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })

		for _, value := range values {
			for _, id := range p.rng.Perm(engine.TokensPerPlayer) {
				if err := gs.SelectToken(id); err != nil {
					return err
				}
				out, err := gs.UseDie(value)
				if err != nil {
					return err
				}
				p.record(out)
				if out.Applied() {
					moved = true
					break
				}
			}
			if moved {
				break
			}
		}

		if !moved {
			gs.EndTurn()
		}
	}
	return nil
}

// playGame runs one random game until the first player finishes or
// maxTurns turns have passed. It works on the bare state so no history
// is kept.
func playGame(cfg *engine.GameConfig, seed uint64, maxTurns int) (GameResult, error) {
	res := GameResult{Seed: seed, Winner: -1}
	gs := engine.InitGameStateFromConfig(cfg)
	dice := engine.NewRandomDice(seed)
	p := &player{rng: rand.New(rand.NewPCG(seed, ^seed)), res: &res}

	for gs.TurnNumber < maxTurns && len(gs.FinishedOrder) == 0 {
		p.spendBonus(gs)

		roll, err := gs.Roll(dice)
		switch {
		case errors.Is(err, engine.ErrBonusMustBeSpent):
			gs.EndTurn()
			continue
		case err != nil:
			return res, fmt.Errorf("turn %d: %w", gs.TurnNumber, err)
		}

		if roll.Penalty != nil {
			res.Penalties++
			gs.EndTurn()
			continue
		}

		if err := p.playDice(gs); err != nil {
			return res, fmt.Errorf("turn %d: %w", gs.TurnNumber, err)
		}
		if err := gs.CheckInvariants(); err != nil {
			return res, fmt.Errorf("turn %d: %w", gs.TurnNumber, err)
		}
	}

	res.Turns = gs.TurnNumber
	if len(gs.FinishedOrder) > 0 {
		res.Winner = gs.FinishedOrder[0]
	}
	return res, nil
}

// simulate plays opts.Games games on a worker pool. onDone is called after
// each game and may be nil.
func simulate(cfg *engine.GameConfig, opts SimOptions, onDone func()) ([]GameResult, error) {
	if opts.Games < 1 {
		return nil, fmt.Errorf("games must be positive, got %d", opts.Games)
	}
	base := opts.Seed
	if base == 0 {
		base = rand.Uint64()
	}

	pool, err := ants.NewPool(max(opts.Workers, 1), ants.WithExpiryDuration(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	defer pool.Release()

	results := make([]GameResult, opts.Games)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := 0; i < opts.Games; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			r, err := playGame(cfg, base+uint64(i)+1, opts.MaxTurns)
			results[i] = r
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("game seed %d: %w", r.Seed, err)
				}
				mu.Unlock()
			}
			if onDone != nil {
				onDone()
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit game %d: %w", i, err)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func summarize(results []GameResult) SimSummary {
	s := SimSummary{Games: len(results), Wins: make([]int, engine.PlayerCount)}

	completed := lo.Filter(results, func(r GameResult, _ int) bool { return r.Winner >= 0 })
	s.Completed = len(completed)
	s.Stalled = s.Games - s.Completed
	s.Captures = lo.SumBy(results, func(r GameResult) int { return r.Captures })
	s.Penalties = lo.SumBy(results, func(r GameResult) int { return r.Penalties })

	for _, r := range completed {
		s.Wins[r.Winner]++
	}
	if len(completed) > 0 {
		turns := lo.Map(completed, func(r GameResult, _ int) int { return r.Turns })
		s.AvgTurns = float64(lo.Sum(turns)) / float64(len(turns))
		s.MinTurns = lo.Min(turns)
		s.MaxTurns = lo.Max(turns)
	}
	return s
}

func printSummary(w io.Writer, cfg *engine.GameConfig, s SimSummary, au aurora.Aurora) {
	fmt.Fprintf(w, "\n=== Simulation: %s (%d games) ===\n", au.Bold(cfg.Name), s.Games)
	fmt.Fprintf(w, "Completed: %d  Stalled: %d\n", s.Completed, s.Stalled)
	if s.Completed > 0 {
		fmt.Fprintf(w, "Turns to first finisher: avg %.1f  min %d  max %d\n", s.AvgTurns, s.MinTurns, s.MaxTurns)
	}
	if s.Games > 0 {
		fmt.Fprintf(w, "Captures per game: %.2f  Penalties per game: %.2f\n",
			float64(s.Captures)/float64(s.Games), float64(s.Penalties)/float64(s.Games))
	}

	for seat, wins := range s.Wins {
		share := 0.0
		if s.Completed > 0 {
			share = 100 * float64(wins) / float64(s.Completed)
		}
		fmt.Fprintf(w, "  %-9s %4d wins  %5.1f%%\n", cfg.Players[seat].Name, wins, share)
	}

	if s.Stalled > 0 {
		fmt.Fprintln(w, au.Yellow(fmt.Sprintf("⚠ %d games hit the turn limit", s.Stalled)))
	}
}
