package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/parques/game/engine"
	"github.com/wricardo/parques/game/service"
	"github.com/wricardo/parques/game/session"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id string, config *engine.GameConfig) (*service.Session, error) {
	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}

	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id string, config *engine.GameConfig) (*service.Session, error) {
	if session, exists := m.sessions[id]; exists {
		return session, nil
	}
	return m.Create(id, config)
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) (time.Time, error) {
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return session.LastAccessedAt, nil
	}
	return time.Time{}, errors.New("session not found")
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.GameConfig
	saved   map[string]*engine.GameConfig
}

func NewMockConfigManager() *MockConfigManager {
	defaultConfig := engine.DefaultGameConfig()
	defaultConfig.Name = "test"
	defaultConfig.Description = "Test configuration"

	bonusFirst := engine.DefaultGameConfig()
	bonusFirst.Name = "bonus-first"
	bonusFirst.Description = "Bonus must be spent before rolling"
	bonusFirst.RequireBonusBeforeRoll = true

	return &MockConfigManager{
		configs: map[string]*engine.GameConfig{
			"test":        defaultConfig,
			"default":     defaultConfig,
			"bonus-first": bonusFirst,
		},
		saved: make(map[string]*engine.GameConfig),
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.GameConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, errors.New("configuration not found")
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	result := make([]*service.ConfigInfo, 0, len(m.configs))
	for name, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			Filename:    name + ".json",
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.GameConfig {
	return m.configs["default"]
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.GameConfig) error {
	if err := engine.ValidateGameConfig(config); err != nil {
		return err
	}
	m.saved[name] = config
	m.configs[name] = config
	return nil
}

func newTestService(t *testing.T, rolls ...[2]int) (service.GameService, string) {
	t.Helper()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager(),
		service.WithDice(engine.NewFixedDice(rolls...)))
	info, err := svc.CreateSession(context.Background(), "test")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return svc, info.ID
}

func intPtr(v int) *int { return &v }

func hasEvent(events []service.GameEvent, typ string) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())

	tests := []struct {
		name       string
		configName string
		wantErr    bool
	}{
		{"create with default config", "", false},
		{"create with specific config", "test", false},
		{"create with invalid config", "nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.CreateSession(ctx, tt.configName)
			if (err != nil) != tt.wantErr {
				t.Errorf("CreateSession() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if !strings.Contains(err.Error(), "Available configs") {
					t.Errorf("Expected available configs in error, got %v", err)
				}
				return
			}
			if session == nil || session.GameState == nil {
				t.Fatal("CreateSession() returned nil session or state")
			}
			if session.Message == "" {
				t.Error("Expected welcome message")
			}
			if session.GameState.Phase != engine.PhaseAwaitingRoll {
				t.Errorf("Expected awaiting roll, got %s", session.GameState.Phase)
			}
		})
	}
}

func TestGameService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	info, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if info.ConfigName != "test" && info.ConfigName != "default" {
		t.Errorf("Unexpected config id %q", info.ConfigName)
	}

	list, err := svc.ListSessions(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("Expected one session, got %d (%v)", len(list), err)
	}

	if err := svc.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	_, err = svc.GetSession(ctx, id)
	if !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.DeleteSession(ctx, id); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

// Readers share the service lock while each touch stamps the session, so
// this is meant to run under -race.
func TestGameService_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(session.NewManager(), NewMockConfigManager(),
		service.WithDice(engine.NewFixedDice([2]int{1, 2})))

	created, err := svc.CreateSession(ctx, "test")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	id := created.ID

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				info, err := svc.GetSession(ctx, id)
				if err != nil {
					errs <- err
					return
				}
				if info.LastAccessedAt.Before(created.CreatedAt) {
					errs <- fmt.Errorf("last access %v before creation %v", info.LastAccessedAt, created.CreatedAt)
					return
				}
				if _, err := svc.ListSessions(ctx); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			// Turn-order errors are expected; only the interleaving matters.
			svc.RollDice(ctx, id)
			svc.EndTurn(ctx, id)
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent read failed: %v", err)
	}

	info, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if info.LastAccessedAt.Before(created.LastAccessedAt) {
		t.Errorf("Expected last access to move forward, got %v", info.LastAccessedAt)
	}
}

func TestGameService_RollDice(t *testing.T) {
	ctx := context.Background()

	t.Run("roll stores pending dice and legal moves", func(t *testing.T) {
		svc, id := newTestService(t, [2]int{5, 3})
		res, err := svc.RollDice(ctx, id)
		if err != nil {
			t.Fatalf("RollDice failed: %v", err)
		}
		if res.Die1 != 5 || res.Die2 != 3 || res.Doubles {
			t.Errorf("Unexpected roll %+v", res)
		}
		if len(res.PendingDice) != 2 {
			t.Errorf("Expected two pending dice, got %v", res.PendingDice)
		}
		if got := res.LegalMoves[5]; len(got) != engine.TokensPerPlayer {
			t.Errorf("Expected all tokens able to exit on 5, got %v", got)
		}
		if got := res.LegalMoves[3]; len(got) != 0 {
			t.Errorf("Expected no legal moves for 3, got %v", got)
		}
		if !strings.Contains(res.Message, "Rojo") {
			t.Errorf("Expected player name in message, got %q", res.Message)
		}
		if !hasEvent(res.Events, service.EventRoll) {
			t.Error("Expected roll event")
		}
	})

	t.Run("second roll is refused", func(t *testing.T) {
		svc, id := newTestService(t, [2]int{1, 2})
		if _, err := svc.RollDice(ctx, id); err != nil {
			t.Fatalf("RollDice failed: %v", err)
		}
		if _, err := svc.RollDice(ctx, id); !errors.Is(err, engine.ErrDicePending) {
			t.Errorf("Expected ErrDicePending, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		svc, _ := newTestService(t)
		if _, err := svc.RollDice(ctx, "nope"); !errors.Is(err, service.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("third double reports the penalty", func(t *testing.T) {
		svc, id := newTestService(t, [2]int{5, 5}, [2]int{5, 5}, [2]int{5, 5})
		for i := 0; i < 2; i++ {
			if _, err := svc.RollDice(ctx, id); err != nil {
				t.Fatalf("RollDice %d failed: %v", i, err)
			}
			if _, err := svc.EndTurn(ctx, id); err != nil {
				t.Fatalf("EndTurn failed: %v", err)
			}
		}
		res, err := svc.RollDice(ctx, id)
		if err != nil {
			t.Fatalf("RollDice failed: %v", err)
		}
		if res.Penalty == nil {
			t.Fatal("Expected penalty on third double")
		}
		if !hasEvent(res.Events, service.EventPenalty) {
			t.Error("Expected penalty event")
		}
		if res.GameState.Phase != engine.PhasePenalized {
			t.Errorf("Expected penalized phase, got %s", res.GameState.Phase)
		}
		turn, err := svc.EndTurn(ctx, id)
		if err != nil {
			t.Fatalf("EndTurn failed: %v", err)
		}
		if turn.ActiveSeat != 1 || turn.RollAgain {
			t.Errorf("Expected turn to pass to seat 1, got %+v", turn)
		}
	})
}

func TestGameService_UseDie(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t, [2]int{5, 3})
	if _, err := svc.RollDice(ctx, id); err != nil {
		t.Fatalf("RollDice failed: %v", err)
	}

	t.Run("no selection", func(t *testing.T) {
		if _, err := svc.UseDie(ctx, id, nil, 5); !errors.Is(err, engine.ErrNoTokenSelected) {
			t.Errorf("Expected ErrNoTokenSelected, got %v", err)
		}
	})

	t.Run("rejected move is a result, not an error", func(t *testing.T) {
		res, err := svc.UseDie(ctx, id, intPtr(0), 3)
		if err != nil {
			t.Fatalf("UseDie failed: %v", err)
		}
		if res.Success || res.Outcome.Reason != engine.ReasonNeedsFive {
			t.Errorf("Expected needs-five rejection, got %+v", res.Outcome)
		}
		if !strings.Contains(res.Message, "5") {
			t.Errorf("Expected rendered rejection, got %q", res.Message)
		}
		if !hasEvent(res.Events, service.EventRejected) {
			t.Error("Expected rejected event")
		}
	})

	t.Run("exit then advance ends the turn", func(t *testing.T) {
		res, err := svc.UseDie(ctx, id, intPtr(0), 5)
		if err != nil {
			t.Fatalf("UseDie failed: %v", err)
		}
		if res.Outcome.Kind != engine.Exited || res.TurnEnded {
			t.Errorf("Expected exit without turn end, got %+v", res)
		}
		if res.Message != "Rojo0(track 1) leaves jail onto square 1." {
			t.Errorf("Unexpected message %q", res.Message)
		}

		res, err = svc.UseDie(ctx, id, intPtr(0), 3)
		if err != nil {
			t.Fatalf("UseDie failed: %v", err)
		}
		if res.Outcome.Kind != engine.Advanced || !res.TurnEnded || res.ActiveSeat != 1 {
			t.Errorf("Expected advance and turn to seat 1, got %+v", res)
		}
		if !hasEvent(res.Events, service.EventTurnEnd) {
			t.Error("Expected turn_end event")
		}
	})
}

func TestGameService_ResolveMoveCapture(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	// Rojo token to square 21 via exit then 21 steps
	steps := []struct{ player, token, steps int }{
		{0, 0, 5},
		{0, 0, 21},
		{1, 0, 5},
		{1, 0, 3},
	}
	for _, s := range steps {
		if _, err := svc.ResolveMove(ctx, id, s.player, s.token, s.steps); err != nil {
			t.Fatalf("ResolveMove failed: %v", err)
		}
	}

	res, err := svc.ResolveMove(ctx, id, 1, 0, 1)
	if err != nil {
		t.Fatalf("ResolveMove failed: %v", err)
	}
	if res.Outcome.Kind != engine.Captured {
		t.Fatalf("Expected capture, got %+v", res.Outcome)
	}
	if res.Outcome.To != engine.OnTrack(41) {
		t.Errorf("Expected bonus leg to square 41, got %v", res.Outcome.To)
	}
	if !hasEvent(res.Events, service.EventCapture) {
		t.Error("Expected capture event")
	}
	if !strings.Contains(res.Message, "Rojo0(jail)") {
		t.Errorf("Expected victim in message, got %q", res.Message)
	}

	if _, err := svc.ResolveMove(ctx, id, 9, 0, 1); !errors.Is(err, engine.ErrInvalidPlayer) {
		t.Errorf("Expected ErrInvalidPlayer, got %v", err)
	}
}

func TestGameService_SpendBonus(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	// Rojo: exit, walk to 65, enter home lane for 10 bonus steps
	for _, steps := range []int{5, 65, 2} {
		if _, err := svc.ResolveMove(ctx, id, 0, 0, steps); err != nil {
			t.Fatalf("ResolveMove failed: %v", err)
		}
	}
	state, _ := svc.GetGameState(ctx, id)
	if state.Players[0].BonusBank != 10 {
		t.Fatalf("Expected 10 bonus steps, got %d", state.Players[0].BonusBank)
	}

	if _, err := svc.SpendBonus(ctx, id, 0, 0, 11); !errors.Is(err, engine.ErrInvalidBonusAmount) {
		t.Errorf("Expected ErrInvalidBonusAmount, got %v", err)
	}

	res, err := svc.SpendBonus(ctx, id, 0, 0, 7)
	if err != nil {
		t.Fatalf("SpendBonus failed: %v", err)
	}
	if res.Outcome.Kind != engine.Finished {
		t.Errorf("Expected finish from Home(0) with 7 steps, got %+v", res.Outcome)
	}
	if res.GameState.Players[0].BonusBank != 13 {
		t.Errorf("Expected bank 10-7+10=13, got %d", res.GameState.Players[0].BonusBank)
	}
}

func TestGameService_RequireBonusBeforeRoll(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager(),
		service.WithDice(engine.NewFixedDice([2]int{1, 2})))
	info, err := svc.CreateSession(ctx, "bonus-first")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	for _, steps := range []int{5, 65, 2} {
		if _, err := svc.ResolveMove(ctx, info.ID, 0, 0, steps); err != nil {
			t.Fatalf("ResolveMove failed: %v", err)
		}
	}

	if _, err := svc.RollDice(ctx, info.ID); !errors.Is(err, engine.ErrBonusMustBeSpent) {
		t.Errorf("Expected ErrBonusMustBeSpent, got %v", err)
	}
	if _, err := svc.SpendBonus(ctx, info.ID, 0, 0, 7); err != nil {
		t.Fatalf("SpendBonus failed: %v", err)
	}
	// Finishing banked another 10
	if _, err := svc.RollDice(ctx, info.ID); !errors.Is(err, engine.ErrBonusMustBeSpent) {
		t.Errorf("Expected ErrBonusMustBeSpent after finishing, got %v", err)
	}
}

func TestGameService_IsPlayerFinished(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	for token := 0; token < engine.TokensPerPlayer; token++ {
		for _, steps := range []int{5, 65, 2, 7} {
			res, err := svc.ResolveMove(ctx, id, 0, token, steps)
			if err != nil {
				t.Fatalf("ResolveMove failed: %v", err)
			}
			if res.Outcome.IsRejected() {
				t.Fatalf("Token %d rejected at %d steps: %s", token, steps, res.Outcome.Reason)
			}
			if token == engine.TokensPerPlayer-1 && steps == 7 && !hasEvent(res.Events, service.EventPlayerFinished) {
				t.Error("Expected player_finished event")
			}
		}
	}

	info, err := svc.IsPlayerFinished(ctx, id, 0)
	if err != nil {
		t.Fatalf("IsPlayerFinished failed: %v", err)
	}
	if !info.Finished || len(info.FinishedPlayers) != 1 || info.FinishedPlayers[0] != 0 {
		t.Errorf("Unexpected finished info %+v", info)
	}

	if _, err := svc.IsPlayerFinished(ctx, id, 4); !errors.Is(err, engine.ErrInvalidPlayer) {
		t.Errorf("Expected ErrInvalidPlayer, got %v", err)
	}
}

func TestGameService_GetHistory(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t, [2]int{1, 2})

	for i := 0; i < 5; i++ {
		if _, err := svc.RollDice(ctx, id); err != nil {
			t.Fatalf("RollDice failed: %v", err)
		}
		if _, err := svc.EndTurn(ctx, id); err != nil {
			t.Fatalf("EndTurn failed: %v", err)
		}
	}

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantLen   int
		wantFirst int
		wantNext  bool
	}{
		{"defaults newest first", service.HistoryOptions{}, 10, 10, false},
		{"ascending page", service.HistoryOptions{Page: 1, Limit: 4, Order: "asc"}, 4, 1, true},
		{"descending second page", service.HistoryOptions{Page: 2, Limit: 4, Order: "desc"}, 4, 6, true},
		{"last partial page", service.HistoryOptions{Page: 3, Limit: 4, Order: "asc"}, 2, 9, false},
		{"past the end", service.HistoryOptions{Page: 9, Limit: 4}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetHistory(ctx, id, tt.opts)
			if err != nil {
				t.Fatalf("GetHistory failed: %v", err)
			}
			if resp.TotalEntries != 10 {
				t.Errorf("Expected 10 total entries, got %d", resp.TotalEntries)
			}
			if len(resp.Entries) != tt.wantLen {
				t.Fatalf("Expected %d entries, got %d", tt.wantLen, len(resp.Entries))
			}
			if tt.wantLen > 0 && resp.Entries[0].Number != tt.wantFirst {
				t.Errorf("Expected first entry #%d, got #%d", tt.wantFirst, resp.Entries[0].Number)
			}
			if resp.HasNext != tt.wantNext {
				t.Errorf("Expected HasNext %v, got %v", tt.wantNext, resp.HasNext)
			}
		})
	}
}

func TestGameService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)
	if _, err := svc.ResolveMove(ctx, id, 2, 1, 5); err != nil {
		t.Fatalf("ResolveMove failed: %v", err)
	}

	state, err := svc.Reset(ctx, id)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if state.Board.Total() != 0 {
		t.Errorf("Expected empty board after reset, got %d tokens", state.Board.Total())
	}
	if len(state.History) != 1 {
		t.Errorf("Expected history to survive reset, got %d entries", len(state.History))
	}
}

func TestGameService_StateIsACopy(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	state, err := svc.GetGameState(ctx, id)
	if err != nil {
		t.Fatalf("GetGameState failed: %v", err)
	}
	state.Players[0].BonusBank = 99

	again, _ := svc.GetGameState(ctx, id)
	if again.Players[0].BonusBank != 0 {
		t.Error("Mutating a returned state must not affect the session")
	}
}

func TestGameService_Configs(t *testing.T) {
	ctx := context.Background()
	configs := NewMockConfigManager()
	svc := service.NewGameService(NewMockSessionManager(), configs)

	list, err := svc.ListConfigs(ctx)
	if err != nil || len(list) != 3 {
		t.Fatalf("Expected 3 configs, got %d (%v)", len(list), err)
	}

	cfg := engine.DefaultGameConfig()
	cfg.Name = "custom"
	if err := svc.SaveConfig(ctx, "custom", cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := svc.LoadConfig(ctx, "custom")
	if err != nil || loaded.Name != "custom" {
		t.Errorf("Expected saved config back, got %v (%v)", loaded, err)
	}

	bad := engine.DefaultGameConfig()
	bad.Players = nil
	if err := svc.SaveConfig(ctx, "bad", bad); err == nil {
		t.Error("Expected invalid config to be refused")
	}
}
