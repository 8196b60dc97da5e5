package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	bhttp "github.com/radieske/keno-platform-poc/internal/bet/http"
	"github.com/radieske/keno-platform-poc/internal/bet/repo"
	"github.com/radieske/keno-platform-poc/internal/game/clock"
	"github.com/radieske/keno-platform-poc/internal/shared/cache"
	"github.com/radieske/keno-platform-poc/internal/shared/config"
	"github.com/radieske/keno-platform-poc/internal/shared/db"
	"github.com/radieske/keno-platform-poc/internal/shared/logger"
	"github.com/radieske/keno-platform-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (estado da rodada)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// deps
	repository := repo.NewPostgres(pg, repo.Rules{
		DomainSize:  cfg.Game.DomainSize,
		MaxPicks:    cfg.Game.MaxPicks,
		MinBetCents: cfg.Game.MinBetCents,
	})
	roundClock := clock.NewRedis(rdb, cfg.Game.Interval, cfg.Game.Cutoff)

	// HTTP público
	api := bhttp.NewServer(log, repository, roundClock)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("bet-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
