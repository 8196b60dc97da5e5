package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
)

// Memory implementa Clock em memória, pra testes e execução local de
// processo único. Mesmo contrato da versão Redis.
type Memory struct {
	mu       sync.Mutex
	roundID  int64
	drawAt   time.Time
	locked   bool
	lockedBy int64

	interval time.Duration
	cutoff   time.Duration
	Now      func() time.Time
}

func NewMemory(interval, cutoff time.Duration) *Memory {
	return &Memory{interval: interval, cutoff: cutoff, Now: time.Now}
}

func (c *Memory) Init(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roundID == 0 {
		c.roundID = 1
		c.drawAt = c.Now().Add(c.interval)
	}
	return nil
}

func (c *Memory) Current(context.Context) (int64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roundID == 0 {
		return 0, time.Time{}, apperr.Infrastructure("clock", fmt.Errorf("round state not initialized"))
	}
	return c.roundID, c.drawAt, nil
}

func (c *Memory) Status(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{RoundID: c.roundID, DrawAt: c.drawAt}
	switch {
	case c.locked:
		st.State = StateDrawing
	case c.Now().Before(c.drawAt.Add(-c.cutoff)):
		st.State = StateOpen
		st.BettingOpen = true
	default:
		st.State = StateLocked
	}
	return st, nil
}

func (c *Memory) IsBettingOpen(_ context.Context, roundID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if roundID != c.roundID {
		return false, nil
	}
	return c.Now().Before(c.drawAt.Add(-c.cutoff)), nil
}

func (c *Memory) Advance(_ context.Context, prevRoundID int64) (int64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roundID != prevRoundID {
		return 0, time.Time{}, apperr.Invariant("round_advance_conflict",
			fmt.Errorf("current=%d prev=%d", c.roundID, prevRoundID))
	}
	c.roundID = prevRoundID + 1
	c.drawAt = c.Now().Add(c.interval)
	return c.roundID, c.drawAt, nil
}

func (c *Memory) TryLockDraw(_ context.Context, roundID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked {
		return false, nil
	}
	c.locked = true
	c.lockedBy = roundID
	return true, nil
}

func (c *Memory) UnlockDraw(_ context.Context, roundID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked && c.lockedBy == roundID {
		c.locked = false
	}
	return nil
}
