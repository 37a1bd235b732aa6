// Command analyze reports on Parqués rulesets and plays headless random
// games to show how a ruleset behaves in practice.
//
//	analyze report                      # every ruleset in configs/
//	analyze report original             # one ruleset
//	analyze simulate -games 500 classic # random games on a worker pool
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/logrusorgru/aurora"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/parques/game/config"
	"github.com/wricardo/parques/game/engine"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Inspect Parqués rulesets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing rulesets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// The config manager logs at info; keep the report readable.
			log.SetLevel(log.WarnLevel)
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:      "report",
				Usage:     "Describe seats, routes and safe squares",
				ArgsUsage: "[ruleset...]",
				Action:    runReport,
			},
			{
				Name:      "simulate",
				Usage:     "Play random games and report win shares",
				ArgsUsage: "[ruleset]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "games", Value: 200, Usage: "Number of games"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent games (0 = one per CPU)"},
					&cli.IntFlag{Name: "max-turns", Value: 5000, Usage: "Give up on a game after this many turns"},
					&cli.Uint64Flag{Name: "seed", Usage: "Base seed for reproducible runs (0 = random)"},
					&cli.BoolFlag{Name: "quiet", Usage: "Hide the progress bar"},
				},
				Action: runSimulate,
			},
		},
	}
}

func colors(cmd *cli.Command) aurora.Aurora {
	return aurora.NewAurora(!cmd.Bool("no-color"))
}

// loadRulesets resolves names through the config manager; no names means all
func loadRulesets(dir string, names []string) ([]*engine.GameConfig, error) {
	manager, err := config.NewManager(dir)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
	}
	if len(names) == 0 {
		return []*engine.GameConfig{manager.GetDefault()}, nil
	}

	var rulesets []*engine.GameConfig
	for _, name := range names {
		cfg, err := manager.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		rulesets = append(rulesets, cfg)
	}
	return rulesets, nil
}

func runReport(ctx context.Context, cmd *cli.Command) error {
	rulesets, err := loadRulesets(cmd.String("config-dir"), cmd.Args().Slice())
	if err != nil {
		return err
	}
	au := colors(cmd)
	for _, cfg := range rulesets {
		printReport(cmd.Root().Writer, analyzeRuleset(cfg), au)
	}
	return nil
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	var names []string
	if cmd.Args().Present() {
		names = []string{cmd.Args().First()}
	}
	rulesets, err := loadRulesets(cmd.String("config-dir"), names)
	if err != nil {
		return err
	}
	cfg := rulesets[0]

	opts := SimOptions{
		Games:    int(cmd.Int("games")),
		Workers:  int(cmd.Int("workers")),
		MaxTurns: int(cmd.Int("max-turns")),
		Seed:     cmd.Uint64("seed"),
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	au := colors(cmd)
	var onDone func()
	if !cmd.Bool("quiet") {
		bar := newBar(opts.Games, "Simulating "+cfg.Name, au)
		defer bar.Finish()
		onDone = func() { bar.Add(1) }
	}

	results, err := simulate(cfg, opts, onDone)
	if err != nil {
		return err
	}
	printSummary(cmd.Root().Writer, cfg, summarize(results), au)
	return nil
}

func newBar(total int, description string, au aurora.Aurora) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        au.Yellow("█").String(),
			SaucerHead:    au.Yellow("█").String(),
			SaucerPadding: " ",
			BarStart:      "|",
			BarEnd:        "|",
		}),
	)
}
