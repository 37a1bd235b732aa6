package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/samber/lo"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Snapshot() (*GameState, error)
	Reset() *GameState

	// Turn operations
	Roll(dice Dice) (*RollResult, error)
	SelectToken(tokenID int) error
	UseDie(value int) (Outcome, error)
	PlayDie(tokenID, value int) (Outcome, error)
	ResolveMove(playerID, tokenID, steps int) (Outcome, error)
	SpendBonus(playerID, tokenID, amount int) (Outcome, error)
	EndTurn() *GameState

	// Queries
	IsPlayerFinished(playerID int) bool
	FinishedPlayers() []int
	LegalMoves(value int) []int

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetHistory() []HistoryEntry
	GetLastEntry() *HistoryEntry
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state  *GameState
	config *GameConfig
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
	}, nil
}

// NewEngineWithDefaults creates a new game engine with the classic ruleset
func NewEngineWithDefaults() *GameEngine {
	config := DefaultGameConfig()
	return &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
	}
}

// GetState returns the live game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState replaces the game state
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if len(state.Players) != PlayerCount || len(state.Board.Squares) != TrackLength {
		return fmt.Errorf("state has %d players and %d squares", len(state.Players), len(state.Board.Squares))
	}
	e.state = state
	return nil
}

// Snapshot returns a deep copy of the state that callers may read freely
func (e *GameEngine) Snapshot() (*GameState, error) {
	return e.state.Clone()
}

// Clone deep-copies the state
func (gs *GameState) Clone() (*GameState, error) {
	var out GameState
	if err := copier.CopyWithOption(&out, gs, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copy state: %w", err)
	}
	return &out, nil
}

// Reset starts a new game with the same ruleset; history is kept
func (e *GameEngine) Reset() *GameState {
	prevHistory := e.state.History
	prevTotal := e.state.TotalActions

	e.state = InitGameStateFromConfig(e.config)
	e.state.History = prevHistory
	e.state.TotalActions = prevTotal

	return e.state
}

// Roll rolls for the active player and records the roll
func (e *GameEngine) Roll(dice Dice) (*RollResult, error) {
	seat := e.state.ActiveSeat
	res, err := e.state.Roll(dice)
	if err != nil {
		return nil, err
	}
	e.record(HistoryEntry{Action: ActionRoll, Player: seat, Dice: []int{res.Die1, res.Die2}})
	if res.Penalty != nil {
		id := res.Penalty.Token.Token
		e.record(HistoryEntry{Action: ActionPenalty, Player: seat, Token: &id})
	}
	return res, nil
}

// SelectToken selects one of the active player's tokens
func (e *GameEngine) SelectToken(tokenID int) error {
	if err := e.state.SelectToken(tokenID); err != nil {
		return err
	}
	e.record(HistoryEntry{Action: ActionSelect, Player: e.state.ActiveSeat, Token: &tokenID})
	return nil
}

// UseDie spends a pending die on the selected token
func (e *GameEngine) UseDie(value int) (Outcome, error) {
	seat := e.state.ActiveSeat
	var token *int
	if e.state.Selected != nil {
		id := *e.state.Selected
		token = &id
	}
	out, err := e.state.UseDie(value)
	if err != nil {
		return out, err
	}
	e.record(HistoryEntry{Action: ActionDie, Player: seat, Token: token, Steps: value, Outcome: &out})
	return out, nil
}

// PlayDie selects a token and spends a die on it
func (e *GameEngine) PlayDie(tokenID, value int) (Outcome, error) {
	if err := e.SelectToken(tokenID); err != nil {
		return Outcome{}, err
	}
	return e.UseDie(value)
}

// ResolveMove applies steps to any token without consulting the dice.
// Invalid ids are the only errors.
func (e *GameEngine) ResolveMove(playerID, tokenID, steps int) (Outcome, error) {
	if err := e.state.checkRef(playerID, tokenID); err != nil {
		return Outcome{}, err
	}
	out := e.state.applyMove(TokenRef{Player: playerID, Token: tokenID}, steps)
	e.record(HistoryEntry{Action: ActionMove, Player: playerID, Token: &tokenID, Steps: steps, Outcome: &out})
	return out, nil
}

// SpendBonus moves a token with banked bonus steps
func (e *GameEngine) SpendBonus(playerID, tokenID, amount int) (Outcome, error) {
	out, err := e.state.SpendBonus(playerID, tokenID, amount)
	if err != nil {
		return out, err
	}
	e.record(HistoryEntry{Action: ActionBonus, Player: playerID, Token: &tokenID, Steps: amount, Outcome: &out})
	return out, nil
}

// EndTurn ends the active player's turn
func (e *GameEngine) EndTurn() *GameState {
	seat := e.state.ActiveSeat
	e.state.EndTurn()
	e.record(HistoryEntry{Action: ActionEndTurn, Player: seat})
	return e.state
}

// IsPlayerFinished reports whether every token of the player is at the goal
func (e *GameEngine) IsPlayerFinished(playerID int) bool {
	return e.state.IsPlayerFinished(playerID)
}

// FinishedPlayers lists finished players in the order they finished
func (e *GameEngine) FinishedPlayers() []int {
	return append([]int(nil), e.state.FinishedOrder...)
}

// LegalMoves returns the active player's token ids that value would move.
// Each candidate is tried on a copy of the state.
func (e *GameEngine) LegalMoves(value int) []int {
	seat := e.state.ActiveSeat
	return lo.Filter(lo.Range(TokensPerPlayer), func(id int, _ int) bool {
		trial, err := e.state.Clone()
		if err != nil {
			return false
		}
		return trial.ResolveMove(TokenRef{Player: seat, Token: id}, value).Applied()
	})
}

// GetConfig returns the current ruleset
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig switches to a new ruleset and restarts the game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config
	e.state = InitGameStateFromConfig(config)
	return nil
}

// GetHistory returns the complete action history
func (e *GameEngine) GetHistory() []HistoryEntry {
	return e.state.History
}

// GetLastEntry returns the most recent history entry, or nil
func (e *GameEngine) GetLastEntry() *HistoryEntry {
	if len(e.state.History) == 0 {
		return nil
	}
	return &e.state.History[len(e.state.History)-1]
}

func (e *GameEngine) record(entry HistoryEntry) {
	e.state.TotalActions++
	entry.ID = uuid.NewString()
	entry.Number = e.state.TotalActions
	entry.Timestamp = time.Now().Unix()
	e.state.History = append(e.state.History, entry)
}
