package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/keno-platform-poc/internal/shared/config"
	"github.com/radieske/keno-platform-poc/internal/shared/db"
	"github.com/radieske/keno-platform-poc/internal/shared/logger"
	"github.com/radieske/keno-platform-poc/internal/shared/metrics"
	whttp "github.com/radieske/keno-platform-poc/internal/wallet/http"
	"github.com/radieske/keno-platform-poc/internal/wallet/repo"
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

	// deps
	repository := repo.NewPostgres(pg)

	// HTTP público
	api := whttp.NewServer(log, repository, cfg.AdminExternalID)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("wallet-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
