package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/keno-platform-poc/internal/game/clock"
	"github.com/radieske/keno-platform-poc/internal/game/draw"
	gamerepo "github.com/radieske/keno-platform-poc/internal/game/repo"
	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
	"github.com/radieske/keno-platform-poc/pkg/contracts/events"
)

// Rounds é o recorte do repositório de rodadas que o scheduler usa.
type Rounds interface {
	InsertDraw(ctx context.Context, r gamerepo.Round) (*gamerepo.Round, error)
	Get(ctx context.Context, roundID int64) (*gamerepo.Round, error)
	MarkSettled(ctx context.Context, roundID int64) error
}

// Settler liquida uma rodada sorteada.
type Settler interface {
	SettleRound(ctx context.Context, round *gamerepo.Round) (settled int, failed int, err error)
}

// RoundNotifier anuncia o resultado do sorteio. Opcional; falha não bloqueia.
type RoundNotifier interface {
	PublishRoundDrawn(ctx context.Context, e events.RoundDrawn) error
}

// Params do loop: dimensões do sorteio e tempos de polling/backoff.
type Params struct {
	DomainSize int
	DrawCount  int

	Poll         time.Duration // intervalo base de polling
	ErrorBackoff time.Duration // espera após erro comum
	InfraBackoff time.Duration // espera após erro de infraestrutura (storage fora etc.)
}

// Scheduler é o único processo coordenador do ciclo da rodada: sorteio →
// liquidação → avanço do relógio, nessa ordem, sob o lock exclusivo de draw.
// Não há paralelismo entre ticks: o próximo só começa quando este termina.
type Scheduler struct {
	Log      *zap.Logger
	Clock    clock.Clock
	Rounds   Rounds
	Settler  Settler
	Notifier RoundNotifier
	Params   Params

	Now func() time.Time // injetável nos testes

	// callbacks de métricas
	OnDraw    func()
	OnAdvance func(newRoundID int64)
	OnError   func(stage string)
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run roda o loop até o contexto ser cancelado. Cancelamento é cooperativo
// e só acontece na fronteira do tick: um ciclo de sorteio/liquidação em
// andamento termina antes de sair, pra nunca deixar rodada meio liquidada.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Clock.Init(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait, err := s.Tick(context.WithoutCancel(ctx))
		if err != nil {
			if apperr.IsInvariant(err) {
				// invariante quebrada: parar e alertar, não insistir
				s.Log.Error("invariant violation, halting scheduler", zap.Error(err))
				return err
			}
			wait = s.backoffFor(err)
			s.Log.Error("tick failed, backing off",
				zap.Duration("backoff", wait), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Tick executa uma passada do loop e devolve quanto dormir até a próxima:
// o mínimo entre o intervalo de polling e o tempo que falta pro sorteio,
// pra nunca atrasar um draw por estar dormindo.
func (s *Scheduler) Tick(ctx context.Context) (time.Duration, error) {
	roundID, drawAt, err := s.Clock.Current(ctx)
	if err != nil {
		s.onError("clock")
		return 0, err
	}

	now := s.now()
	if now.Before(drawAt) {
		wait := drawAt.Sub(now)
		if wait > s.Params.Poll {
			wait = s.Params.Poll
		}
		return wait, nil
	}

	ok, err := s.Clock.TryLockDraw(ctx, roundID)
	if err != nil {
		s.onError("lock")
		return 0, err
	}
	if !ok {
		// outro ciclo ainda segurando o lock
		return s.Params.Poll, nil
	}
	defer func() {
		if err := s.Clock.UnlockDraw(ctx, roundID); err != nil {
			s.Log.Warn("draw unlock failed", zap.Error(err))
		}
	}()

	if err := s.runDrawCycle(ctx, roundID, drawAt); err != nil {
		return 0, err
	}
	return s.Params.Poll, nil
}

// runDrawCycle faz a sequência completa da rodada dentro do lock:
// persistir o sorteio (idempotente), liquidar, fechar a rodada e avançar
// o relógio. Qualquer falha deixa a rodada corrente como está; o retry do
// próximo tick reaproveita o sorteio já persistido e nunca o sobrescreve.
func (s *Scheduler) runDrawCycle(ctx context.Context, roundID int64, scheduledAt time.Time) error {
	round, err := s.Rounds.Get(ctx, roundID)
	if errors.Is(err, gamerepo.ErrNotFound) {
		numbers, derr := draw.Sample(s.Params.DomainSize, s.Params.DrawCount)
		if derr != nil {
			s.onError("draw")
			return derr
		}
		round, err = s.Rounds.InsertDraw(ctx, gamerepo.Round{
			RoundID:        roundID,
			ScheduledAt:    scheduledAt,
			DrawnAt:        s.now(),
			WinningNumbers: numbers,
		})
		if err != nil {
			s.onError("persist_draw")
			return err
		}
		if s.OnDraw != nil {
			s.OnDraw()
		}
		s.Log.Info("round drawn",
			zap.Int64("roundId", roundID),
			zap.Int64s("winningNumbers", round.WinningNumbers),
		)
	} else if err != nil {
		s.onError("load_round")
		return err
	} else {
		s.Log.Info("round already drawn, resuming settlement", zap.Int64("roundId", roundID))
	}

	settled, failed, err := s.Settler.SettleRound(ctx, round)
	if err != nil {
		s.onError("settle")
		return err
	}
	if failed > 0 {
		s.onError("settle")
		return apperr.Infrastructure("settlement_incomplete",
			fmt.Errorf("round %d: %d bets left unsettled", roundID, failed))
	}

	if err := s.Rounds.MarkSettled(ctx, roundID); err != nil {
		s.onError("close_round")
		return err
	}

	newRoundID, nextDrawAt, err := s.Clock.Advance(ctx, roundID)
	if err != nil {
		s.onError("advance")
		return err
	}
	if s.OnAdvance != nil {
		s.OnAdvance(newRoundID)
	}

	if s.Notifier != nil {
		ev := events.RoundDrawn{
			RoundID:        roundID,
			WinningNumbers: toInts(round.WinningNumbers),
			DrawnAt:        round.DrawnAt,
			NextRoundID:    newRoundID,
			NextDrawAt:     nextDrawAt,
		}
		if perr := s.Notifier.PublishRoundDrawn(ctx, ev); perr != nil {
			s.Log.Warn("round_drawn publish failed", zap.Error(perr))
		}
	}

	s.Log.Info("round closed",
		zap.Int64("roundId", roundID),
		zap.Int("settledBets", settled),
		zap.Int64("nextRoundId", newRoundID),
		zap.Time("nextDrawAt", nextDrawAt),
	)
	return nil
}

func (s *Scheduler) backoffFor(err error) time.Duration {
	if apperr.IsInfrastructure(err) {
		return s.Params.InfraBackoff
	}
	return s.Params.ErrorBackoff
}

func (s *Scheduler) onError(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}

func toInts(xs []int64) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = int(x)
	}
	return out
}
