package settle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	betrepo "github.com/radieske/keno-platform-poc/internal/bet/repo"
	"github.com/radieske/keno-platform-poc/internal/game/payout"
	gamerepo "github.com/radieske/keno-platform-poc/internal/game/repo"
	"github.com/radieske/keno-platform-poc/pkg/contracts/events"
)

// BetLedger é o recorte do repositório de apostas que o settlement usa.
type BetLedger interface {
	UnsettledForRound(ctx context.Context, roundID int64) ([]betrepo.Bet, error)
	Settle(ctx context.Context, betID string, roundID int64, matched int, multiplier float64, payoutCents int64) error
}

// Notifier avisa o apostador do resultado. Opcional; falha nunca bloqueia.
type Notifier interface {
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// Settler liquida uma rodada encerrada: cruza cada aposta não liquidada com
// os números sorteados, calcula o prêmio pela Policy e grava resultado +
// crédito de forma atômica por aposta (via BetLedger.Settle).
type Settler struct {
	Log         *zap.Logger
	Bets        BetLedger
	Policy      payout.Policy
	Notifier    Notifier
	Parallelism int // apostas liquidadas em paralelo (cada uma só toca a própria conta)

	// callbacks de métricas
	OnSettled func()
	OnPayout  func(cents int64)
	OnError   func()
}

// SettleRound processa todas as apostas pendentes da rodada. Apostas que
// falham ficam não liquidadas pra retry no próximo tick (o guard de
// already-settled no ledger garante que o retry nunca paga duas vezes).
// Retorna quantas liquidou e quantas falharam.
func (s *Settler) SettleRound(ctx context.Context, round *gamerepo.Round) (settled int, failed int, err error) {
	bets, err := s.Bets.UnsettledForRound(ctx, round.RoundID)
	if err != nil {
		return 0, 0, err
	}
	if len(bets) == 0 {
		s.Log.Info("no bets to settle", zap.Int64("roundId", round.RoundID))
		return 0, 0, nil
	}

	parallelism := s.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}

	var okCount, failCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, bet := range bets {
		bet := bet
		g.Go(func() error {
			if err := s.settleOne(gctx, round, &bet); err != nil {
				failCount.Add(1)
				if s.OnError != nil {
					s.OnError()
				}
				s.Log.Error("settle bet failed, will retry next tick",
					zap.String("betId", bet.ID),
					zap.Int64("roundId", round.RoundID),
					zap.Error(err),
				)
				// não derruba o grupo: as outras apostas continuam
				return nil
			}
			okCount.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(okCount.Load()), int(failCount.Load()), nil
}

func (s *Settler) settleOne(ctx context.Context, round *gamerepo.Round, bet *betrepo.Bet) error {
	matched := payout.MatchCount(bet.Picks, round.WinningNumbers)
	multiplier, payoutCents := s.Policy.Evaluate(matched, bet.StakeCents)

	err := s.Bets.Settle(ctx, bet.ID, round.RoundID, matched, multiplier, payoutCents)
	if errors.Is(err, betrepo.ErrAlreadySettled) {
		// retry de uma aposta que já foi: no-op, e sem notificação duplicada
		return nil
	}
	if err != nil {
		return err
	}

	if s.OnSettled != nil {
		s.OnSettled()
	}
	if payoutCents > 0 && s.OnPayout != nil {
		s.OnPayout(payoutCents)
	}

	if s.Notifier != nil {
		ev := events.BetSettled{
			BetID:        bet.ID,
			AccountID:    bet.AccountID,
			ExternalID:   bet.ExternalID,
			RoundID:      round.RoundID,
			StakeCents:   bet.StakeCents,
			MatchedCount: matched,
			Multiplier:   multiplier,
			PayoutCents:  payoutCents,
			Ts:           time.Now(),
		}
		if err := s.Notifier.PublishBetSettled(ctx, ev); err != nil {
			// notificação nunca desfaz liquidação commitada
			s.Log.Warn("bet_settled publish failed", zap.String("betId", bet.ID), zap.Error(err))
		}
	}
	return nil
}
