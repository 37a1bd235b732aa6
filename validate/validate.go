// Command validate checks Parqués ruleset files (*.json, *.yaml, *.yml) in a
// directory and reports every problem it finds, not just the first one:
//   - parse errors and unknown keys
//   - player count, names, colors and the fixed start/home entry squares
//   - message templates whose format verbs don't match what the server renders
//
// Missing players or messages are reported as notes since the server fills
// them from the classic ruleset. Exits non-zero if any file is invalid.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/parques/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Errors make the file invalid; Notes are informational.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) note(format string, args ...interface{}) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

var knownKeys = []string{"name", "description", "players", "require_bonus_before_roll", "messages"}

// unmarshal decodes by extension into dst
func unmarshal(data []byte, path string, dst interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, dst)
	default:
		return json.Unmarshal(data, dst)
	}
}

// validateConfig loads and validates a single ruleset file
func validateConfig(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var raw map[string]interface{}
	if err := unmarshal(data, path, &raw); err != nil {
		result.fail("Invalid syntax: %v", err)
		return result
	}
	var config engine.GameConfig
	if err := unmarshal(data, path, &config); err != nil {
		result.fail("Invalid ruleset: %v", err)
		return result
	}

	unknown := lo.Without(lo.Keys(raw), knownKeys...)
	sort.Strings(unknown)
	for _, key := range unknown {
		result.note("Unknown key %q is ignored", key)
	}

	if config.Name == "" {
		result.fail("name is required")
	}
	if config.Description == "" {
		result.fail("description is required")
	}

	validatePlayers(&config, &result)
	validateMessages(&config, &result)

	// The server applies the same defaults and rules on load.
	if result.Valid {
		if err := engine.ApplyDefaults(&config); err != nil {
			result.fail("%v", err)
		} else if err := engine.ValidateGameConfig(&config); err != nil {
			result.fail("%v", err)
		}
	}

	if result.Valid {
		result.note("Name: %s", config.Name)
		result.note("Players: %s", strings.Join(lo.Map(config.Players, func(p engine.PlayerConfig, _ int) string {
			return fmt.Sprintf("%s (%s)", p.Name, p.Color)
		}), ", "))
		if config.RequireBonusBeforeRoll {
			result.note("Bonus steps must be spent before rolling")
		}
	}

	return result
}

func validatePlayers(config *engine.GameConfig, result *ValidationResult) {
	if len(config.Players) == 0 {
		result.note("No players listed; the classic seats are used")
		return
	}
	if len(config.Players) != engine.PlayerCount {
		result.fail("Exactly %d players are required, got %d", engine.PlayerCount, len(config.Players))
		return
	}

	seen := map[string]int{}
	for i, p := range config.Players {
		if p.Name == "" {
			result.fail("players[%d]: name is required", i)
		} else if prev, dup := seen[strings.ToLower(p.Name)]; dup {
			result.fail("players[%d]: name %q already used by players[%d]", i, p.Name, prev)
		} else {
			seen[strings.ToLower(p.Name)] = i
		}
		if p.Color == "" {
			result.fail("players[%d]: color is required", i)
		}
		if p.StartSquare != engine.StartSquares[i] {
			result.fail("players[%d]: start_square must be %d, got %d", i, engine.StartSquares[i], p.StartSquare)
		}
		if p.HomeEntrySquare != engine.HomeEntrySquares[i] {
			result.fail("players[%d]: home_entry_square must be %d, got %d", i, engine.HomeEntrySquares[i], p.HomeEntrySquare)
		}
	}
}

func validateMessages(config *engine.GameConfig, result *ValidationResult) {
	missing := lo.CountBy(engine.MessageProblems(config.Messages), func(p string) bool {
		return strings.HasSuffix(p, " is required")
	})
	if missing > 0 {
		result.note("%d message templates not set; defaults are used", missing)
	}

	// Absent templates are filled in first so only the file's own can fail.
	filled := *config
	if err := engine.ApplyDefaults(&filled); err != nil {
		result.fail("%v", err)
		return
	}
	for _, p := range engine.MessageProblems(filled.Messages) {
		result.fail("%s", p)
	}
}

// validateDir validates every ruleset file in dir, sorted by name
func validateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && lo.Contains([]string{".json", ".yaml", ".yml"}, ext) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	return lo.Map(files, func(f string, _ int) ValidationResult { return validateConfig(f) }), nil
}

// report prints results and returns whether all of them were valid
func report(results []ValidationResult, au aurora.Aurora) bool {
	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), au.Bold(result.File))

		if result.Valid {
			fmt.Println(au.Green("VALID"))
		} else {
			fmt.Println(au.Red("INVALID"))
			allValid = false
			for _, e := range result.Errors {
				fmt.Println("  " + au.Red("✗ "+e).String())
			}
		}
		for _, n := range result.Notes {
			fmt.Println("  " + au.Cyan("• "+n).String())
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Println(au.Yellow("No ruleset files found"))
	case allValid:
		fmt.Println(au.Green("All rulesets are valid!"))
	default:
		fmt.Println(au.Red("Some rulesets have errors"))
	}
	return allValid
}

func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Validate Parqués ruleset files",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := "configs"
			if cmd.Args().Present() {
				dir = cmd.Args().First()
			}

			results, err := validateDir(dir)
			if err != nil {
				return fmt.Errorf("reading %s: %w", dir, err)
			}
			if !report(results, aurora.NewAurora(!cmd.Bool("no-color"))) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
