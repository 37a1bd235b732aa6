package engine

import "fmt"

// Board geometry and rule constants
const (
	TrackLength      = 68
	HomeLaneLength   = 8
	HomeTerminal     = HomeLaneLength - 1
	PlayerCount      = 4
	TokensPerPlayer  = 4
	MaxOccupants     = 2
	ExitRoll         = 5
	CaptureBonusLeg  = 20
	HomeBonus        = 10
	DoublesPenaltyAt = 3
	DieFaces         = 6
)

// StartSquares are the jail exits of each seat; they double as safe squares.
var StartSquares = [PlayerCount]int{0, 17, 34, 51}

// HomeEntrySquares are the track squares from which each seat reaches Home(0).
var HomeEntrySquares = [PlayerCount]int{67, 16, 33, 50}

// LocationKind tags where a token currently is
type LocationKind string

const (
	Jail  LocationKind = "jail"
	Track LocationKind = "track"
	Home  LocationKind = "home"
)

// Location is a tagged variant: Index is the track square for Track,
// the lane index for Home, and unused for Jail.
type Location struct {
	Kind  LocationKind `json:"kind"`
	Index int          `json:"index"`
}

// InJail returns the jail location
func InJail() Location { return Location{Kind: Jail} }

// OnTrack returns a track location for the given square
func OnTrack(square int) Location { return Location{Kind: Track, Index: square} }

// InHome returns a home lane location for the given index
func InHome(index int) Location { return Location{Kind: Home, Index: index} }

func (l Location) String() string {
	switch l.Kind {
	case Jail:
		return "jail"
	case Track:
		return fmt.Sprintf("track %d", l.Index)
	case Home:
		return fmt.Sprintf("home %d", l.Index)
	default:
		return string(l.Kind)
	}
}

// TokenRef identifies a token by owner seat and token id
type TokenRef struct {
	Player int `json:"player"`
	Token  int `json:"token"`
}

// Token is one of a player's four pieces
type Token struct {
	ID       int      `json:"id"`
	Owner    int      `json:"owner"`
	Location Location `json:"location"`
}

// Player holds a seat's tokens and per-player turn counters
type Player struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Color           string  `json:"color"`
	StartSquare     int     `json:"start_square"`
	HomeEntrySquare int     `json:"home_entry_square"`
	DoublesStreak   int     `json:"doubles_streak"`
	BonusBank       int     `json:"bonus_bank"`
	LastMovedToken  *int    `json:"last_moved_token,omitempty"`
	Tokens          []Token `json:"tokens"`
}

// TurnPhase is the turn controller state
type TurnPhase string

const (
	PhaseAwaitingRoll TurnPhase = "awaiting_roll"
	PhaseDiceRolled   TurnPhase = "dice_rolled"
	// PhasePenalized follows a third consecutive double. Rolling, dice and
	// bonus spending are refused until EndTurn passes the seat.
	PhasePenalized TurnPhase = "penalized"
)

// PenaltySource records which fallback chose the penalty target
type PenaltySource string

const (
	PenaltyLastMoved   PenaltySource = "last_moved"
	PenaltySelected    PenaltySource = "selected"
	PenaltyFirstActive PenaltySource = "first_active"
	PenaltyFallback    PenaltySource = "fallback"
)

// PenaltyNotice describes a three-doubles penalty
type PenaltyNotice struct {
	Token  TokenRef      `json:"token"`
	From   Location      `json:"from"`
	Source PenaltySource `json:"source"`
}

// GameConfig represents a ruleset loaded from JSON or YAML
type GameConfig struct {
	Name                   string         `json:"name" yaml:"name"`
	Description            string         `json:"description" yaml:"description"`
	Players                []PlayerConfig `json:"players" yaml:"players"`
	RequireBonusBeforeRoll bool           `json:"require_bonus_before_roll" yaml:"require_bonus_before_roll"`
	Messages               Messages       `json:"messages" yaml:"messages"`
}

// PlayerConfig describes one seat
type PlayerConfig struct {
	Name            string `json:"name" yaml:"name"`
	Color           string `json:"color" yaml:"color"`
	StartSquare     int    `json:"start_square" yaml:"start_square"`
	HomeEntrySquare int    `json:"home_entry_square" yaml:"home_entry_square"`
}

// Messages are fmt templates rendered by the service layer. Token names
// are passed as %s and squares or amounts as %d.
type Messages struct {
	Welcome            string `json:"welcome" yaml:"welcome"`
	Rolled             string `json:"rolled" yaml:"rolled"`
	Exited             string `json:"exited" yaml:"exited"`
	Advanced           string `json:"advanced" yaml:"advanced"`
	HomeAdvanced       string `json:"home_advanced" yaml:"home_advanced"`
	Entered            string `json:"entered" yaml:"entered"`
	Finished           string `json:"finished" yaml:"finished"`
	Captured           string `json:"captured" yaml:"captured"`
	NeedsFive          string `json:"needs_five" yaml:"needs_five"`
	ExitBlocked        string `json:"exit_blocked" yaml:"exit_blocked"`
	PathBlocked        string `json:"path_blocked" yaml:"path_blocked"`
	OvershootHomeEntry string `json:"overshoot_home_entry" yaml:"overshoot_home_entry"`
	HomeOvershoot      string `json:"home_overshoot" yaml:"home_overshoot"`
	BonusBlocked       string `json:"bonus_blocked" yaml:"bonus_blocked"`
	DestinationFull    string `json:"destination_full" yaml:"destination_full"`
	InvalidSteps       string `json:"invalid_steps" yaml:"invalid_steps"`
	Penalty            string `json:"penalty" yaml:"penalty"`
	TurnPassed         string `json:"turn_passed" yaml:"turn_passed"`
	RollAgain          string `json:"roll_again" yaml:"roll_again"`
	PlayerFinished     string `json:"player_finished" yaml:"player_finished"`
}

// GameState is the single mutable aggregate for one game
type GameState struct {
	Players         []Player       `json:"players"`
	Board           Board          `json:"board"`
	ActiveSeat      int            `json:"active_seat"`
	Phase           TurnPhase      `json:"phase"`
	PendingDice     []int          `json:"pending_dice"`
	LastRoll        []int          `json:"last_roll,omitempty"`
	LastRollDoubles bool           `json:"last_roll_doubles"`
	Selected        *int           `json:"selected_token,omitempty"`
	Penalty         *PenaltyNotice `json:"penalty,omitempty"`
	FinishedOrder   []int          `json:"finished_players"`
	TurnNumber      int            `json:"turn_number"`
	ConfigName      string         `json:"config_name"`

	RequireBonusBeforeRoll bool `json:"require_bonus_before_roll"`

	// History is cumulative and survives Reset.
	History      []HistoryEntry `json:"history"`
	TotalActions int            `json:"total_actions"`
}

// HistoryEntry records a single engine action
type HistoryEntry struct {
	ID        string   `json:"id"`
	Number    int      `json:"number"`
	Action    string   `json:"action"`
	Player    int      `json:"player"`
	Token     *int     `json:"token,omitempty"`
	Dice      []int    `json:"dice,omitempty"`
	Steps     int      `json:"steps,omitempty"`
	Outcome   *Outcome `json:"outcome,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// History action names
const (
	ActionRoll    = "roll"
	ActionPenalty = "penalty"
	ActionSelect  = "select"
	ActionDie     = "use_die"
	ActionMove    = "move"
	ActionBonus   = "bonus"
	ActionEndTurn = "end_turn"
)
