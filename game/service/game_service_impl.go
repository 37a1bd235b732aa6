package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/parques/game/engine"
)

var tracer = otel.Tracer("github.com/wricardo/parques/game/service")

// gameServiceImpl implements the GameService interface. A single mutex
// serializes every engine call, so each game stays strictly sequential.
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	dice     engine.Dice
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithDice replaces the random dice, mainly for tests and replays
func WithDice(d engine.Dice) Option {
	return func(s *gameServiceImpl) { s.dice = d }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		dice:     engine.NewRandomDice(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func startSpan(ctx context.Context, op, sessionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "GameService."+op, trace.WithAttributes(attribute.String("session.id", sessionID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		if cfg, ok := lo.Find(availableConfigs, func(c *ConfigInfo) bool { return c.Name == configName }); ok {
			return cfg.ConfigID
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, _, err := s.touchSession(sessionID)
	return sess, err
}

// touchSession looks a session up and stamps it as accessed. The stamp is
// returned because readers under the shared lock must not read it from sess.
func (s *gameServiceImpl) touchSession(sessionID string) (*Session, time.Time, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	accessed, err := s.sessions.UpdateLastAccessed(sessionID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return sess, accessed, nil
}

// snapshot returns a copy of the state safe to serialize after the lock is released
func snapshot(sess *Session) *engine.GameState {
	state, err := sess.Engine.Snapshot()
	if err != nil {
		log.WithError(err).WithField("session", sess.ID).Warn("state snapshot failed")
		return sess.Engine.GetState()
	}
	return state
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string, accessed time.Time) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: accessed,
		GameState:      snapshot(sess),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (info *SessionInfo, err error) {
	_, span := startSpan(ctx, "CreateSession", "")
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	var cfg *engine.GameConfig
	if configName != "" {
		cfg, err = s.configs.LoadConfig(configName)
		if err != nil {
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					ids := lo.Map(availableConfigs, func(c *ConfigInfo, _ int) string { return c.ConfigID })
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, ids, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		cfg = s.configs.GetDefault()
	}

	sess, err := s.sessions.Create("", cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	configID := configName
	if configID == "" {
		configID = s.getConfigID(cfg.Name)
	}

	log.WithFields(log.Fields{"session": sess.ID, "config": configID}).Info("session created")

	info = s.sessionInfo(sess, configID, sess.CreatedAt)
	info.Message = messages(cfg).Welcome
	return info, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, accessed, err := s.touchSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, s.getConfigID(sess.Config.Name), accessed), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// List hands out copies, so their timestamps are safe to read here.
	return lo.Map(s.sessions.List(), func(sess *Session, _ int) *SessionInfo {
		return s.sessionInfo(sess, s.getConfigID(sess.Config.Name), sess.LastAccessedAt)
	}), nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	log.WithField("session", sessionID).Info("session deleted")
	return nil
}

// legalMoves maps each distinct pending value to the tokens it can move
func legalMoves(eng *engine.GameEngine) map[int][]int {
	state := eng.GetState()
	if state.Phase != engine.PhaseDiceRolled {
		return nil
	}
	out := make(map[int][]int)
	for _, v := range lo.Uniq(state.PendingDice) {
		out[v] = eng.LegalMoves(v)
	}
	return out
}

// RollDice rolls for the active player
func (s *gameServiceImpl) RollDice(ctx context.Context, sessionID string) (result *RollResult, err error) {
	_, span := startSpan(ctx, "RollDice", sessionID)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	seat := sess.Engine.GetState().ActiveSeat
	player := sess.Engine.GetState().Players[seat]
	roll, err := sess.Engine.Roll(s.dice)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("die1", roll.Die1), attribute.Int("die2", roll.Die2))

	m := messages(sess.Config)
	now := time.Now()
	result = &RollResult{
		Player:     seat,
		PlayerName: player.Name,
		Die1:       roll.Die1,
		Die2:       roll.Die2,
		Doubles:    roll.Doubles,
		Streak:     roll.Streak,
		Penalty:    roll.Penalty,
		Message:    fmt.Sprintf(m.Rolled, player.Name, roll.Die1, roll.Die2),
		Events: []GameEvent{{
			Type:      EventRoll,
			Message:   fmt.Sprintf(m.Rolled, player.Name, roll.Die1, roll.Die2),
			Player:    seat,
			Timestamp: now,
		}},
	}

	if roll.Penalty != nil {
		msg := fmt.Sprintf(m.Penalty, tokenName(sess.Engine.GetState(), roll.Penalty.Token))
		result.Message = msg
		result.Events = append(result.Events, GameEvent{Type: EventPenalty, Message: msg, Player: seat, Timestamp: now})
	}

	state := snapshot(sess)
	result.GameState = state
	result.PendingDice = state.PendingDice
	result.LegalMoves = legalMoves(sess.Engine)

	log.WithFields(log.Fields{
		"session": sessionID,
		"player":  seat,
		"dice":    []int{roll.Die1, roll.Die2},
		"penalty": roll.Penalty != nil,
	}).Debug("dice rolled")

	return result, nil
}

// SelectToken selects one of the active player's tokens
func (s *gameServiceImpl) SelectToken(ctx context.Context, sessionID string, tokenID int) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.SelectToken(tokenID); err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	active := state.ActivePlayer()
	msg := fmt.Sprintf("Selected %s", engine.TokenName(active, &active.Tokens[tokenID]))
	return &TurnResult{
		ActiveSeat: active.ID,
		PlayerName: active.Name,
		Selected:   &tokenID,
		GameState:  snapshot(sess),
		Message:    msg,
		Events:     []GameEvent{{Type: EventSelect, Message: msg, Player: active.ID, Timestamp: time.Now()}},
	}, nil
}

// moveResult assembles a MoveResult after a move has been applied
func (s *gameServiceImpl) moveResult(sess *Session, out engine.Outcome, prevTurn, prevFinished int) *MoveResult {
	state := sess.Engine.GetState()
	events := moveEvents(sess.Config, state, out, prevTurn, prevFinished)
	snap := snapshot(sess)
	return &MoveResult{
		Success:     !out.IsRejected(),
		Outcome:     out,
		TurnEnded:   state.TurnNumber != prevTurn,
		ActiveSeat:  state.ActiveSeat,
		PendingDice: snap.PendingDice,
		GameState:   snap,
		Message:     events[0].Message,
		Events:      events,
		LegalMoves:  legalMoves(sess.Engine),
	}
}

func logMove(sessionID, op string, out engine.Outcome) {
	log.WithFields(log.Fields{
		"session": sessionID,
		"op":      op,
		"player":  out.Token.Player,
		"token":   out.Token.Token,
		"steps":   out.Steps,
		"kind":    out.Kind,
		"reason":  out.Reason,
	}).Debug("move resolved")
}

// UseDie spends a pending die value. When tokenID is set the token is
// selected first.
func (s *gameServiceImpl) UseDie(ctx context.Context, sessionID string, tokenID *int, value int) (result *MoveResult, err error) {
	_, span := startSpan(ctx, "UseDie", sessionID)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("value", value))

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	prevTurn, prevFinished := state.TurnNumber, len(state.FinishedOrder)

	var out engine.Outcome
	if tokenID != nil {
		out, err = sess.Engine.PlayDie(*tokenID, value)
	} else {
		out, err = sess.Engine.UseDie(value)
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", string(out.Kind)))
	logMove(sessionID, "use_die", out)

	return s.moveResult(sess, out, prevTurn, prevFinished), nil
}

// ResolveMove applies steps to any token, bypassing the dice
func (s *gameServiceImpl) ResolveMove(ctx context.Context, sessionID string, playerID, tokenID, steps int) (result *MoveResult, err error) {
	_, span := startSpan(ctx, "ResolveMove", sessionID)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	prevTurn, prevFinished := state.TurnNumber, len(state.FinishedOrder)

	out, err := sess.Engine.ResolveMove(playerID, tokenID, steps)
	if err != nil {
		return nil, err
	}
	logMove(sessionID, "move", out)

	return s.moveResult(sess, out, prevTurn, prevFinished), nil
}

// SpendBonus moves a token with banked bonus steps
func (s *gameServiceImpl) SpendBonus(ctx context.Context, sessionID string, playerID, tokenID, amount int) (result *MoveResult, err error) {
	_, span := startSpan(ctx, "SpendBonus", sessionID)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("amount", amount))

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	prevTurn, prevFinished := state.TurnNumber, len(state.FinishedOrder)

	out, err := sess.Engine.SpendBonus(playerID, tokenID, amount)
	if err != nil {
		return nil, err
	}
	logMove(sessionID, "bonus", out)

	return s.moveResult(sess, out, prevTurn, prevFinished), nil
}

// EndTurn ends the active player's turn
func (s *gameServiceImpl) EndTurn(ctx context.Context, sessionID string) (result *TurnResult, err error) {
	_, span := startSpan(ctx, "EndTurn", sessionID)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	prevSeat := sess.Engine.GetState().ActiveSeat
	state := sess.Engine.EndTurn()
	event := turnEndEvent(sess.Config, state, prevSeat)
	active := state.ActivePlayer()

	log.WithFields(log.Fields{"session": sessionID, "from": prevSeat, "to": active.ID}).Debug("turn ended")

	return &TurnResult{
		ActiveSeat: active.ID,
		PlayerName: active.Name,
		RollAgain:  active.ID == prevSeat,
		GameState:  snapshot(sess),
		Message:    event.Message,
		Events:     []GameEvent{event},
	}, nil
}

// Reset restarts the game in a session, keeping its history
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.Reset()
	log.WithField("session", sessionID).Info("game reset")
	return snapshot(sess), nil
}

// GetGameState returns a copy of the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

// GetHistory returns paginated action history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetHistory()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	entries := []engine.HistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			for i := total - 1 - start; i >= total-end; i-- {
				entries = append(entries, history[i])
			}
		} else {
			entries = append(entries, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Entries:      entries,
		TotalEntries: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// IsPlayerFinished reports whether a player has brought every token home
func (s *gameServiceImpl) IsPlayerFinished(ctx context.Context, sessionID string, playerID int) (*FinishedInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if playerID < 0 || playerID >= engine.PlayerCount {
		return nil, fmt.Errorf("%w: %d", engine.ErrInvalidPlayer, playerID)
	}

	state := sess.Engine.GetState()
	return &FinishedInfo{
		Player:          playerID,
		PlayerName:      state.Players[playerID].Name,
		Finished:        sess.Engine.IsPlayerFinished(playerID),
		FinishedPlayers: sess.Engine.FinishedPlayers(),
	}, nil
}

// ListConfigs returns available rulesets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific ruleset
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a ruleset to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}
