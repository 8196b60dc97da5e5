package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/keno-platform-poc/pkg/contracts/events"
)

// KafkaPublisher publica os resultados de sorteio/liquidação. É o canal de
// notificação do sistema: falha aqui é logada pelo caller e nunca desfaz
// uma liquidação já commitada.
type KafkaPublisher struct {
	RoundWriter *kafka.Writer
	BetWriter   *kafka.Writer
}

func NewKafkaPublisher(roundWriter, betWriter *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{RoundWriter: roundWriter, BetWriter: betWriter}
}

func (p *KafkaPublisher) PublishRoundDrawn(ctx context.Context, e events.RoundDrawn) error {
	b, _ := json.Marshal(e)
	return p.RoundWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.RoundID, 10)),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	b, _ := json.Marshal(e)
	return p.BetWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.BetID),
		Value: b,
		Time:  time.Now(),
	})
}
