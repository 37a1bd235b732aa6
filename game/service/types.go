package service

import (
	"time"

	"github.com/wricardo/parques/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
	Message        string             `json:"message,omitempty"`
}

// RollResult contains the result of a roll
type RollResult struct {
	Player      int                   `json:"player"`
	PlayerName  string                `json:"player_name"`
	Die1        int                   `json:"die1"`
	Die2        int                   `json:"die2"`
	Doubles     bool                  `json:"doubles"`
	Streak      int                   `json:"streak"`
	Penalty     *engine.PenaltyNotice `json:"penalty,omitempty"`
	PendingDice []int                 `json:"pending_dice"`
	GameState   *engine.GameState     `json:"game_state"`
	Message     string                `json:"message"`
	Events      []GameEvent           `json:"events,omitempty"`

	// LegalMoves maps each pending value to the tokens it can move
	LegalMoves map[int][]int `json:"legal_moves,omitempty"`
}

// MoveResult contains the result of a single move
type MoveResult struct {
	Success     bool              `json:"success"`
	Outcome     engine.Outcome    `json:"outcome"`
	TurnEnded   bool              `json:"turn_ended"`
	ActiveSeat  int               `json:"active_seat"`
	PendingDice []int             `json:"pending_dice"`
	GameState   *engine.GameState `json:"game_state"`
	Message     string            `json:"message"`
	Events      []GameEvent       `json:"events,omitempty"`
	LegalMoves  map[int][]int     `json:"legal_moves,omitempty"`
}

// TurnResult contains the result of a selection or end of turn
type TurnResult struct {
	ActiveSeat int               `json:"active_seat"`
	PlayerName string            `json:"player_name"`
	RollAgain  bool              `json:"roll_again"`
	Selected   *int              `json:"selected_token,omitempty"`
	GameState  *engine.GameState `json:"game_state"`
	Message    string            `json:"message"`
	Events     []GameEvent       `json:"events,omitempty"`
}

// FinishedInfo answers whether a player has brought every token home
type FinishedInfo struct {
	Player          int    `json:"player"`
	PlayerName      string `json:"player_name"`
	Finished        bool   `json:"finished"`
	FinishedPlayers []int  `json:"finished_players"`
}

// Event types
const (
	EventRoll           = "roll"
	EventPenalty        = "penalty"
	EventSelect         = "select"
	EventExit           = "exit"
	EventAdvance        = "advance"
	EventEnterHome      = "enter_home"
	EventCapture        = "capture"
	EventFinish         = "finish"
	EventRejected       = "rejected"
	EventTurnEnd        = "turn_end"
	EventPlayerFinished = "player_finished"
	EventReset          = "reset"
)

// GameEvent represents an event that occurred during play
type GameEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Player    int       `json:"player"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryOptions configures history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Entries      []engine.HistoryEntry `json:"entries"`
	TotalEntries int                   `json:"total_entries"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
	TotalPages   int                   `json:"total_pages"`
	HasNext      bool                  `json:"has_next"`
	HasPrevious  bool                  `json:"has_previous"`
}

// ConfigInfo provides information about a ruleset
type ConfigInfo struct {
	Filename               string   `json:"filename"`
	ConfigID               string   `json:"config_id"` // The identifier to use for session creation
	Name                   string   `json:"name"`      // Display name
	Description            string   `json:"description"`
	Players                []string `json:"players"`
	RequireBonusBeforeRoll bool     `json:"require_bonus_before_roll"`
}
