package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/samber/lo"

	"github.com/wricardo/parques/game/engine"
)

// SeatReport describes one player's route around the board
type SeatReport struct {
	Name      string
	Color     string
	Start     int
	HomeEntry int
	// TrackSteps is the walk from the start square to the home lane
	TrackSteps int
	// StepsToGoal adds the home lane to TrackSteps
	StepsToGoal int
	// SafeOnRoute lists the other start squares the route passes over
	SafeOnRoute []int
}

// RulesetReport summarizes a ruleset
type RulesetReport struct {
	Name                   string
	Description            string
	RequireBonusBeforeRoll bool
	Seats                  []SeatReport
	SafeSquares            []int
	Welcome                string
}

func analyzeRuleset(cfg *engine.GameConfig) RulesetReport {
	report := RulesetReport{
		Name:                   cfg.Name,
		Description:            cfg.Description,
		RequireBonusBeforeRoll: cfg.RequireBonusBeforeRoll,
		SafeSquares:            engine.StartSquares[:],
		Welcome:                cfg.Messages.Welcome,
	}

	for _, p := range cfg.Players {
		steps := engine.DistanceToHomeEntry(p.StartSquare, p.HomeEntrySquare)
		route := lo.Map(lo.Range(steps), func(i int, _ int) int { return engine.Wrap(p.StartSquare + i + 1) })
		report.Seats = append(report.Seats, SeatReport{
			Name:        p.Name,
			Color:       p.Color,
			Start:       p.StartSquare,
			HomeEntry:   p.HomeEntrySquare,
			TrackSteps:  steps,
			StepsToGoal: steps + engine.HomeTerminal,
			SafeOnRoute: lo.Filter(route, func(sq int, _ int) bool { return engine.IsSafeSquare(sq) }),
		})
	}
	return report
}

// display squares are 1-based
func squareList(squares []int) string {
	return strings.Join(lo.Map(squares, func(sq int, _ int) string { return fmt.Sprint(sq + 1) }), ", ")
}

func printReport(w io.Writer, r RulesetReport, au aurora.Aurora) {
	fmt.Fprintf(w, "\n=== %s ===\n", au.Bold(r.Name))
	fmt.Fprintf(w, "%s\n", r.Description)
	fmt.Fprintf(w, "Safe squares: %s\n", squareList(r.SafeSquares))
	fmt.Fprintf(w, "Welcome: %q\n", r.Welcome)
	if r.RequireBonusBeforeRoll {
		fmt.Fprintln(w, au.Yellow("Bonus steps must be spent before rolling"))
	}

	for _, s := range r.Seats {
		fmt.Fprintf(w, "  %-9s %-7s start %2d  entry %2d  track %d  to goal %d  safe on route: %s\n",
			s.Name, s.Color, s.Start+1, s.HomeEntry+1, s.TrackSteps, s.StepsToGoal, squareList(s.SafeOnRoute))
	}

	lengths := lo.Uniq(lo.Map(r.Seats, func(s SeatReport, _ int) int { return s.StepsToGoal }))
	if len(lengths) == 1 {
		fmt.Fprintln(w, au.Green("✓ All seats walk the same distance"))
	} else {
		fmt.Fprintln(w, au.Red("✗ Seats walk different distances"))
	}
}
