package clock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
)

// Chaves do estado da rodada no Redis (mesmo papel que o jogo original dava
// a current_round_id / next_draw_time, mas com um dono único atrás da interface).
const (
	keyRoundID  = "keno:current_round_id"
	keyDrawAt   = "keno:next_draw_time"
	keyDrawLock = "keno:draw_lock"
)

// Redis implementa Clock sobre um Redis compartilhado.
type Redis struct {
	rdb      *redis.Client
	interval time.Duration
	cutoff   time.Duration
	lockTTL  time.Duration
	now      func() time.Time
}

func NewRedis(rdb *redis.Client, interval, cutoff time.Duration) *Redis {
	return &Redis{
		rdb:      rdb,
		interval: interval,
		cutoff:   cutoff,
		// TTL generoso: protege contra scheduler morto segurando o lock,
		// mas nunca expira no meio de um ciclo normal
		lockTTL: 2 * interval,
		now:     time.Now,
	}
}

func (c *Redis) Init(ctx context.Context) error {
	ok, err := c.rdb.SetNX(ctx, keyRoundID, 1, 0).Result()
	if err != nil {
		return apperr.Infrastructure("redis", err)
	}
	if ok {
		drawAt := c.now().Add(c.interval)
		if err := c.rdb.Set(ctx, keyDrawAt, drawAt.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
			return apperr.Infrastructure("redis", err)
		}
	}
	return nil
}

func (c *Redis) Current(ctx context.Context) (int64, time.Time, error) {
	vals, err := c.rdb.MGet(ctx, keyRoundID, keyDrawAt).Result()
	if err != nil {
		return 0, time.Time{}, apperr.Infrastructure("redis", err)
	}
	if vals[0] == nil || vals[1] == nil {
		return 0, time.Time{}, apperr.Infrastructure("redis", fmt.Errorf("round state not initialized"))
	}

	roundID, err := strconv.ParseInt(vals[0].(string), 10, 64)
	if err != nil {
		return 0, time.Time{}, apperr.Invariant("round_id_corrupt", err)
	}
	drawAt, err := time.Parse(time.RFC3339Nano, vals[1].(string))
	if err != nil {
		return 0, time.Time{}, apperr.Invariant("draw_time_corrupt", err)
	}
	return roundID, drawAt, nil
}

func (c *Redis) Status(ctx context.Context) (Status, error) {
	roundID, drawAt, err := c.Current(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{RoundID: roundID, DrawAt: drawAt}
	now := c.now()
	switch {
	case now.Before(drawAt.Add(-c.cutoff)):
		st.State = StateOpen
		st.BettingOpen = true
	default:
		st.State = StateLocked
	}

	// lock presente => o scheduler está sorteando/liquidando agora
	if locked, err := c.rdb.Exists(ctx, keyDrawLock).Result(); err == nil && locked > 0 {
		st.State = StateDrawing
	}
	return st, nil
}

func (c *Redis) IsBettingOpen(ctx context.Context, roundID int64) (bool, error) {
	current, drawAt, err := c.Current(ctx)
	if err != nil {
		return false, err
	}
	if roundID != current {
		return false, nil
	}
	return c.now().Before(drawAt.Add(-c.cutoff)), nil
}

func (c *Redis) Advance(ctx context.Context, prevRoundID int64) (int64, time.Time, error) {
	current, _, err := c.Current(ctx)
	if err != nil {
		return 0, time.Time{}, err
	}
	if current != prevRoundID {
		return 0, time.Time{}, apperr.Invariant("round_advance_conflict",
			fmt.Errorf("current=%d prev=%d", current, prevRoundID))
	}

	newID := prevRoundID + 1
	drawAt := c.now().Add(c.interval)

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, keyRoundID, newID, 0)
	pipe.Set(ctx, keyDrawAt, drawAt.UTC().Format(time.RFC3339Nano), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, apperr.Infrastructure("redis", err)
	}
	return newID, drawAt, nil
}

func (c *Redis) TryLockDraw(ctx context.Context, roundID int64) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, keyDrawLock, roundID, c.lockTTL).Result()
	if err != nil {
		return false, apperr.Infrastructure("redis", err)
	}
	return ok, nil
}

func (c *Redis) UnlockDraw(ctx context.Context, roundID int64) error {
	// só solta se o lock ainda for nosso (scheduler único por premissa,
	// mas um restart após expirar o TTL não pode derrubar o lock alheio)
	val, err := c.rdb.Get(ctx, keyDrawLock).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return apperr.Infrastructure("redis", err)
	}
	if val != strconv.FormatInt(roundID, 10) {
		return nil
	}
	if err := c.rdb.Del(ctx, keyDrawLock).Err(); err != nil {
		return apperr.Infrastructure("redis", err)
	}
	return nil
}
