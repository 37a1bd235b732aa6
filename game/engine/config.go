package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultPlayers returns the four classic seats
func DefaultPlayers() []PlayerConfig {
	return []PlayerConfig{
		{Name: "Rojo", Color: "red", StartSquare: StartSquares[0], HomeEntrySquare: HomeEntrySquares[0]},
		{Name: "Azul", Color: "blue", StartSquare: StartSquares[1], HomeEntrySquare: HomeEntrySquares[1]},
		{Name: "Verde", Color: "green", StartSquare: StartSquares[2], HomeEntrySquare: HomeEntrySquares[2]},
		{Name: "Amarillo", Color: "yellow", StartSquare: StartSquares[3], HomeEntrySquare: HomeEntrySquares[3]},
	}
}

// DefaultMessages returns the built-in English message templates
func DefaultMessages() Messages {
	return Messages{
		Welcome:            "Welcome to Parqués! Roll a 5 to bring a token out of jail.",
		Rolled:             "%s rolled %d and %d.",
		Exited:             "%s leaves jail onto square %d.",
		Advanced:           "%s moves from square %d to %d.",
		HomeAdvanced:       "%s advances to home lane square %d.",
		Entered:            "%s enters the home lane. +%d bonus steps.",
		Finished:           "%s reaches the goal! +%d bonus steps.",
		Captured:           "%s captures %s and moves 20 extra squares to square %d.",
		NeedsFive:          "%s needs a 5 to leave jail.",
		ExitBlocked:        "%s's start square is blocked.",
		PathBlocked:        "%s is stopped by a blockade on square %d.",
		OvershootHomeEntry: "%s needs an exact count to enter the home lane (%d squares away).",
		HomeOvershoot:      "%s needs an exact count in the home lane (%d squares left).",
		BonusBlocked:       "%s captures %s on square %d but the bonus move is blocked.",
		DestinationFull:    "%s cannot move: square %d is full.",
		InvalidSteps:       "%s cannot move %d steps.",
		Penalty:            "Three doubles in a row: %s goes back to jail.",
		TurnPassed:         "Turn passes to %s.",
		RollAgain:          "Doubles! %s rolls again.",
		PlayerFinished:     "%s has brought every token home!",
	}
}

// DefaultGameConfig returns the classic four-player ruleset
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:        "Classic",
		Description: "Four players, 68-square track, exact-count home entry",
		Players:     DefaultPlayers(),
		Messages:    DefaultMessages(),
	}
}

type messageSpec struct {
	key   string
	value string
	verbs int
}

func messageSpecs(m Messages) []messageSpec {
	return []messageSpec{
		{"welcome", m.Welcome, 0},
		{"rolled", m.Rolled, 3},
		{"exited", m.Exited, 2},
		{"advanced", m.Advanced, 3},
		{"home_advanced", m.HomeAdvanced, 2},
		{"entered", m.Entered, 2},
		{"finished", m.Finished, 2},
		{"captured", m.Captured, 3},
		{"needs_five", m.NeedsFive, 1},
		{"exit_blocked", m.ExitBlocked, 1},
		{"path_blocked", m.PathBlocked, 2},
		{"overshoot_home_entry", m.OvershootHomeEntry, 2},
		{"home_overshoot", m.HomeOvershoot, 2},
		{"bonus_blocked", m.BonusBlocked, 3},
		{"destination_full", m.DestinationFull, 2},
		{"invalid_steps", m.InvalidSteps, 2},
		{"penalty", m.Penalty, 1},
		{"turn_passed", m.TurnPassed, 1},
		{"roll_again", m.RollAgain, 1},
		{"player_finished", m.PlayerFinished, 1},
	}
}

// countVerbs counts fmt verbs, ignoring literal %%
func countVerbs(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

// ApplyDefaults fills missing players and message templates from the
// classic ruleset. Fields already set are kept.
func ApplyDefaults(config *GameConfig) error {
	defaults := GameConfig{
		Players:  DefaultPlayers(),
		Messages: DefaultMessages(),
	}
	if err := mergo.Merge(config, defaults); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	return nil
}

// ValidateGameConfig checks the ruleset against the fixed board geometry
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if len(config.Players) != PlayerCount {
		return fmt.Errorf("config validation: exactly %d players are required, got %d", PlayerCount, len(config.Players))
	}
	names := make(map[string]bool, PlayerCount)
	for i, p := range config.Players {
		if p.Name == "" {
			return fmt.Errorf("config validation: players[%d].name is required", i)
		}
		if p.Color == "" {
			return fmt.Errorf("config validation: players[%d].color is required", i)
		}
		key := strings.ToLower(p.Name)
		if names[key] {
			return fmt.Errorf("config validation: duplicate player name %q", p.Name)
		}
		names[key] = true
		if p.StartSquare != StartSquares[i] {
			return fmt.Errorf("config validation: players[%d].start_square must be %d, got %d", i, StartSquares[i], p.StartSquare)
		}
		if p.HomeEntrySquare != HomeEntrySquares[i] {
			return fmt.Errorf("config validation: players[%d].home_entry_square must be %d, got %d", i, HomeEntrySquares[i], p.HomeEntrySquare)
		}
	}

	if problems := MessageProblems(config.Messages); len(problems) > 0 {
		return fmt.Errorf("config validation: %s", problems[0])
	}

	return nil
}

// MessageProblems lists every empty template and every template whose verb
// count differs from the arguments it is rendered with
func MessageProblems(m Messages) []string {
	var problems []string
	for _, spec := range messageSpecs(m) {
		if spec.value == "" {
			problems = append(problems, fmt.Sprintf("messages.%s is required", spec.key))
			continue
		}
		if got := countVerbs(spec.value); got != spec.verbs {
			problems = append(problems, fmt.Sprintf("messages.%s must contain %d format verbs, got %d", spec.key, spec.verbs, got))
		}
	}
	return problems
}

// DecodeGameConfig parses a ruleset, choosing YAML or JSON by file extension,
// fills defaults and validates it
func DecodeGameConfig(data []byte, filename string) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	}

	if err := ApplyDefaults(&config); err != nil {
		return nil, err
	}
	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadGameConfig loads a ruleset file. Paths under configs/ are redirected
// to CONFIG_DIR when it is set.
func LoadGameConfig(filename string) (*GameConfig, error) {
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	return DecodeGameConfig(data, configPath)
}

// InitGameStateFromConfig creates a fresh game with every token in jail
func InitGameStateFromConfig(config *GameConfig) *GameState {
	if config == nil {
		config = DefaultGameConfig()
	}

	players := make([]Player, PlayerCount)
	for i := range players {
		pc := PlayerConfig{Name: DefaultPlayers()[i].Name, Color: DefaultPlayers()[i].Color}
		if i < len(config.Players) {
			pc = config.Players[i]
		}
		tokens := make([]Token, TokensPerPlayer)
		for t := range tokens {
			tokens[t] = Token{ID: t, Owner: i, Location: InJail()}
		}
		players[i] = Player{
			ID:              i,
			Name:            pc.Name,
			Color:           pc.Color,
			StartSquare:     StartSquares[i],
			HomeEntrySquare: HomeEntrySquares[i],
			Tokens:          tokens,
		}
	}

	return &GameState{
		Players:                players,
		Board:                  NewBoard(),
		ActiveSeat:             0,
		Phase:                  PhaseAwaitingRoll,
		PendingDice:            []int{},
		FinishedOrder:          []int{},
		ConfigName:             config.Name,
		RequireBonusBeforeRoll: config.RequireBonusBeforeRoll,
		History:                []HistoryEntry{},
	}
}
