package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/parques/game/engine"
)

// ErrSessionNotFound is returned, wrapped, for unknown session ids
var ErrSessionNotFound = errors.New("session not found")

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Turn Operations
	RollDice(ctx context.Context, sessionID string) (*RollResult, error)
	SelectToken(ctx context.Context, sessionID string, tokenID int) (*TurnResult, error)
	UseDie(ctx context.Context, sessionID string, tokenID *int, value int) (*MoveResult, error)
	ResolveMove(ctx context.Context, sessionID string, playerID, tokenID, steps int) (*MoveResult, error)
	SpendBonus(ctx context.Context, sessionID string, playerID, tokenID, amount int) (*MoveResult, error)
	EndTurn(ctx context.Context, sessionID string) (*TurnResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	IsPlayerFinished(ctx context.Context, sessionID string, playerID int) (*FinishedInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) (time.Time, error)
}

// ConfigManager handles ruleset loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
