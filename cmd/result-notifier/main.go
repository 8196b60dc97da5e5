package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/keno-platform-poc/internal/shared/config"
	skafka "github.com/radieske/keno-platform-poc/internal/shared/kafka"
	"github.com/radieske/keno-platform-poc/internal/shared/logger"
	"github.com/radieske/keno-platform-poc/internal/shared/metrics"
	ev "github.com/radieske/keno-platform-poc/pkg/contracts/events"
)

// result-notifier é o canal de notificação pós-liquidação: consome
// bet_settled e avisa o apostador. Falha aqui nunca afeta a liquidação
// já commitada — no máximo a mensagem vai pra DLQ.
func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Kafka consumer: eventos bet_settled
	reader := skafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetSettled, "result-notifier")
	defer reader.Close()

	var dlqWriter *skafka.Writer
	if cfg.TopicBetSettledDLQ != "" {
		dlqWriter = skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettledDLQ)
		defer dlqWriter.Close()
	}

	// Métricas
	notified := prometheus.NewCounter(prometheus.CounterOpts{Name: "keno_notifications_sent_total", Help: "notificações enviadas"})
	dlqd := prometheus.NewCounter(prometheus.CounterOpts{Name: "keno_notifications_dlq_total", Help: "mensagens enviadas pra DLQ"})
	prometheus.MustRegister(notified, dlqd)

	// Servidor HTTP para métricas Prometheus e healthcheck
	metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("result-notifier started", zap.String("consume", cfg.TopicBetSettled))

	// Loop principal: consome bet_settled e notifica o apostador
	for {
		key, value, err := skafka.ReadNext(ctx, reader)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("result-notifier stopped")
				return
			}
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var settled ev.BetSettled
		if jerr := json.Unmarshal(value, &settled); jerr != nil {
			log.Error("unmarshal bet_settled", zap.Error(jerr))
			if dlqWriter != nil {
				if derr := skafka.WriteJSON(ctx, dlqWriter, string(key), value); derr == nil {
					dlqd.Inc()
				}
			}
			continue
		}

		// Entrega da notificação. Aqui entraria o push pro canal do usuário
		// (bot, e-mail); o core só garante o conteúdo e a entrega ao tópico.
		log.Info("settlement notification",
			zap.String("userId", settled.ExternalID),
			zap.Int64("roundId", settled.RoundID),
			zap.Int("matched", settled.MatchedCount),
			zap.String("result", resultLine(&settled)),
		)
		notified.Inc()
	}
}

func resultLine(e *ev.BetSettled) string {
	if e.PayoutCents > 0 {
		return fmt.Sprintf("won %d cents (x%.1f)", e.PayoutCents, e.Multiplier)
	}
	return "no win"
}
