package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	betrepo "github.com/radieske/keno-platform-poc/internal/bet/repo"
	"github.com/radieske/keno-platform-poc/internal/game/clock"
	"github.com/radieske/keno-platform-poc/internal/game/notify"
	"github.com/radieske/keno-platform-poc/internal/game/payout"
	gamerepo "github.com/radieske/keno-platform-poc/internal/game/repo"
	"github.com/radieske/keno-platform-poc/internal/game/scheduler"
	"github.com/radieske/keno-platform-poc/internal/game/settle"
	"github.com/radieske/keno-platform-poc/internal/shared/cache"
	"github.com/radieske/keno-platform-poc/internal/shared/config"
	"github.com/radieske/keno-platform-poc/internal/shared/db"
	skafka "github.com/radieske/keno-platform-poc/internal/shared/kafka"
	"github.com/radieske/keno-platform-poc/internal/shared/logger"
	"github.com/radieske/keno-platform-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka producers: resultado do sorteio e liquidação por aposta
	roundWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundDrawn)
	defer roundWriter.Close()
	betWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer betWriter.Close()
	publisher := notify.NewKafkaPublisher(roundWriter, betWriter)

	// Métricas Prometheus do ciclo de rodada
	draws := prometheus.NewCounter(prometheus.CounterOpts{Name: "keno_rounds_drawn_total", Help: "sorteios executados"})
	advances := prometheus.NewCounter(prometheus.CounterOpts{Name: "keno_rounds_advanced_total", Help: "rodadas avançadas"})
	settledBets := prometheus.NewCounter(prometheus.CounterOpts{Name: "keno_bets_settled_total", Help: "apostas liquidadas"})
	payoutCents := prometheus.NewCounter(prometheus.CounterOpts{Name: "keno_payout_cents_total", Help: "centavos pagos em prêmios"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "keno_scheduler_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(draws, advances, settledBets, payoutCents, errorsBy)

	// Relógio da rodada (dono único do estado) e repositórios
	roundClock := clock.NewRedis(rdb, cfg.Game.Interval, cfg.Game.Cutoff)
	rounds := gamerepo.NewPostgres(pg)
	bets := betrepo.NewPostgres(pg, betrepo.Rules{
		DomainSize:  cfg.Game.DomainSize,
		MaxPicks:    cfg.Game.MaxPicks,
		MinBetCents: cfg.Game.MinBetCents,
	})

	settler := &settle.Settler{
		Log:  log,
		Bets: bets,
		Policy: payout.Policy{
			WinThreshold: cfg.Game.WinThreshold,
			WinFactor:    cfg.Game.WinFactor,
		},
		Notifier:  publisher,
		OnSettled: func() { settledBets.Inc() },
		OnPayout:  func(cents int64) { payoutCents.Add(float64(cents)) },
		OnError:   func() { errorsBy.WithLabelValues("settle_bet").Inc() },
	}

	sched := &scheduler.Scheduler{
		Log:      log,
		Clock:    roundClock,
		Rounds:   rounds,
		Settler:  settler,
		Notifier: publisher,
		Params: scheduler.Params{
			DomainSize:   cfg.Game.DomainSize,
			DrawCount:    cfg.Game.DrawCount,
			Poll:         cfg.Game.Poll,
			ErrorBackoff: 10 * time.Second,
			InfraBackoff: 30 * time.Second,
		},
		OnDraw:    func() { draws.Inc() },
		OnAdvance: func(int64) { advances.Inc() },
		OnError:   func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("addr", ":"+cfg.MetricsPort))

	// Shutdown gracioso: cancelamento só na fronteira do tick
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("game-scheduler started",
		zap.Duration("interval", cfg.Game.Interval),
		zap.Duration("cutoff", cfg.Game.Cutoff),
	)
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("scheduler stopped with error", zap.Error(err))
	}
	log.Info("game-scheduler stopped")
}
