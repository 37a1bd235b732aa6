package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/parques/game/engine"
)

func rules() *engine.GameConfig {
	cfg := engine.DefaultGameConfig()
	cfg.Name = "Mesa"
	cfg.Description = "session manager tests"
	return cfg
}

func TestManager_CreateAndLookup(t *testing.T) {
	m := NewManager()

	named, err := m.Create("Mesa-Uno", rules())
	require.NoError(t, err)
	assert.Equal(t, "Mesa-Uno", named.ID, "ID keeps its original case")
	assert.Equal(t, "Mesa", named.Config.Name)
	require.NotNil(t, named.Engine)
	assert.Equal(t, 0, named.Engine.GetState().ActiveSeat)
	assert.False(t, named.CreatedAt.IsZero())
	assert.Equal(t, named.CreatedAt, named.LastAccessedAt)

	for _, lookup := range []string{"Mesa-Uno", "mesa-uno", "MESA-UNO"} {
		got, err := m.Get(lookup)
		require.NoError(t, err, lookup)
		assert.Same(t, named, got, lookup)
	}

	_, err = m.Get("mesa-dos")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_CreateErrors(t *testing.T) {
	m := NewManager()
	_, err := m.Create("ocupada", rules())
	require.NoError(t, err)

	broken := rules()
	broken.Players = broken.Players[:2]

	tests := []struct {
		name    string
		id      string
		config  *engine.GameConfig
		wantErr error
	}{
		{"taken", "ocupada", rules(), ErrSessionAlreadyExists},
		{"taken in another case", "OCUPADA", rules(), ErrSessionAlreadyExists},
		{"leading space", " mesa", rules(), ErrInvalidSessionID},
		{"trailing newline", "mesa\n", rules(), ErrInvalidSessionID},
		{"invalid ruleset", "rota", broken, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := m.Create(tt.id, tt.config)
			require.Error(t, err)
			assert.Nil(t, s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	assert.Equal(t, 1, m.Count(), "failed creates leave nothing behind")
}

func TestManager_GeneratedIDs(t *testing.T) {
	m := NewManager()
	seen := map[string]struct{}{}

	for i := 0; i < 40; i++ {
		s, err := m.Create("", rules())
		require.NoError(t, err)
		require.Len(t, s.ID, idLength)
		assert.Empty(t, strings.Trim(s.ID, idAlphabet), "id %q uses the alphabet only", s.ID)

		_, dup := seen[s.ID]
		assert.False(t, dup, "id %q handed out twice", s.ID)
		seen[s.ID] = struct{}{}
	}
	assert.Equal(t, 40, m.Count())
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager()

	first, err := m.GetOrCreate("compartida", rules())
	require.NoError(t, err)

	other := rules()
	other.Name = "Otra"
	second, err := m.GetOrCreate("COMPARTIDA", other)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "Mesa", second.Config.Name, "existing session keeps its ruleset")

	_, err = m.GetOrCreate(" x", rules())
	assert.ErrorIs(t, err, ErrInvalidSessionID)
}

func TestManager_ListAndDelete(t *testing.T) {
	m := NewManager()
	assert.Empty(t, m.List())

	for _, id := range []string{"a1", "b2", "c3"} {
		_, err := m.Create(id, rules())
		require.NoError(t, err)
	}

	ids := make([]string, 0, 3)
	for _, s := range m.List() {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"a1", "b2", "c3"}, ids)

	// Listed sessions are copies sharing the stored engine.
	stored, err := m.Get("a1")
	require.NoError(t, err)
	for _, s := range m.List() {
		if s.ID != "a1" {
			continue
		}
		assert.NotSame(t, stored, s)
		assert.Same(t, stored.Engine, s.Engine)
		s.LastAccessedAt = time.Time{}
		assert.False(t, stored.LastAccessedAt.IsZero())
	}

	require.NoError(t, m.Delete("B2"))
	assert.ErrorIs(t, m.Delete("b2"), ErrSessionNotFound)
	_, err = m.Get("b2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 2, m.Count())

	_, err = m.Create("b2", rules())
	assert.NoError(t, err, "a deleted ID can be reused")
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager()

	fresh, err := m.Create("fresh", rules())
	require.NoError(t, err)
	stale, err := m.Create("stale", rules())
	require.NoError(t, err)
	touched, err := m.Create("touched", rules())
	require.NoError(t, err)

	stale.LastAccessedAt = time.Now().Add(-3 * time.Hour)
	touched.LastAccessedAt = time.Now().Add(-3 * time.Hour)
	before := touched.LastAccessedAt
	stamp, err := m.UpdateLastAccessed("TOUCHED")
	require.NoError(t, err)
	assert.True(t, stamp.After(before))
	assert.Equal(t, stamp, touched.LastAccessedAt)

	_, err = m.UpdateLastAccessed("ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 1, m.CleanupExpiredSessions(time.Hour))
	assert.Equal(t, 0, m.CleanupExpiredSessions(time.Hour), "second sweep finds nothing")

	_, err = m.Get("stale")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	for _, s := range []string{fresh.ID, touched.ID} {
		_, err := m.Get(s)
		assert.NoError(t, err, s)
	}
}

func TestManager_SessionsDoNotShareState(t *testing.T) {
	m := NewManager()
	left, err := m.Create("izquierda", rules())
	require.NoError(t, err)
	right, err := m.Create("derecha", rules())
	require.NoError(t, err)

	out, err := left.Engine.ResolveMove(0, 0, engine.ExitRoll)
	require.NoError(t, err)
	assert.Equal(t, engine.Exited, out.Kind)

	assert.Equal(t, 1, left.Engine.GetState().Board.Count(engine.StartSquares[0]))
	assert.Zero(t, right.Engine.GetState().Board.Total())
}

func TestManager_ConcurrentCreates(t *testing.T) {
	m := NewManager()

	const workers = 64
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ""
			if i%2 == 0 {
				// Pairs of workers race for the same name.
				id = fmt.Sprintf("mesa-%d", i/4)
			}
			if _, err := m.Create(id, rules()); err != nil && err != ErrSessionAlreadyExists {
				errs <- err
			}
			m.List()
			m.Count()
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	// 32 generated plus 16 distinct names
	assert.Equal(t, workers/2+workers/4, m.Count())
}
