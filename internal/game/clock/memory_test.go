package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
)

func newTestClock(t *testing.T, at time.Time) *Memory {
	t.Helper()
	c := NewMemory(60*time.Second, 5*time.Second)
	c.Now = func() time.Time { return at }
	require.NoError(t, c.Init(context.Background()))
	return c
}

func TestInitSeedsRoundOne(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	c := newTestClock(t, t0)

	roundID, drawAt, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), roundID)
	assert.Equal(t, t0.Add(60*time.Second), drawAt)

	// Init é idempotente
	require.NoError(t, c.Init(context.Background()))
	roundID, _, _ = c.Current(context.Background())
	assert.Equal(t, int64(1), roundID)
}

func TestBettingWindow(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	c := newTestClock(t, t0)
	ctx := context.Background()

	// bem antes do corte: aberta
	open, err := c.IsBettingOpen(ctx, 1)
	require.NoError(t, err)
	assert.True(t, open)

	// dentro da janela de corte (5s antes do sorteio): fechada
	c.Now = func() time.Time { return t0.Add(56 * time.Second) }
	open, err = c.IsBettingOpen(ctx, 1)
	require.NoError(t, err)
	assert.False(t, open)

	// rodada errada: fechada mesmo com tempo sobrando
	c.Now = func() time.Time { return t0 }
	open, err = c.IsBettingOpen(ctx, 2)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestStateDerivation(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	c := newTestClock(t, t0)
	ctx := context.Background()

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, st.State)
	assert.True(t, st.BettingOpen)

	c.Now = func() time.Time { return t0.Add(57 * time.Second) }
	st, _ = c.Status(ctx)
	assert.Equal(t, StateLocked, st.State)
	assert.False(t, st.BettingOpen)

	ok, err := c.TryLockDraw(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	st, _ = c.Status(ctx)
	assert.Equal(t, StateDrawing, st.State)
}

func TestAdvanceIsMonotonic(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	c := newTestClock(t, t0)
	ctx := context.Background()

	for want := int64(2); want <= 5; want++ {
		newID, drawAt, err := c.Advance(ctx, want-1)
		require.NoError(t, err)
		assert.Equal(t, want, newID, "id avança exatamente +1")
		assert.Equal(t, t0.Add(60*time.Second), drawAt)
	}
}

func TestAdvanceConflictIsInvariantViolation(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	c := newTestClock(t, t0)

	_, _, err := c.Advance(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, apperr.IsInvariant(err))
}

func TestDrawLockIsExclusive(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	c := newTestClock(t, t0)
	ctx := context.Background()

	ok, err := c.TryLockDraw(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.TryLockDraw(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "segundo holder nunca adquire o lock")

	require.NoError(t, c.UnlockDraw(ctx, 1))
	ok, _ = c.TryLockDraw(ctx, 2)
	assert.True(t, ok)

	// unlock de quem não é dono é no-op
	require.NoError(t, c.UnlockDraw(ctx, 99))
	ok, _ = c.TryLockDraw(ctx, 3)
	assert.False(t, ok)
}
