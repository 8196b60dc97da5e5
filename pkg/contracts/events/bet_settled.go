package events

import "time"

// Evento emitido pelo settlement para cada aposta liquidada.
// O result-notifier consome este tópico para avisar o apostador.
type BetSettled struct {
	BetID        string    `json:"bet_id"`
	AccountID    string    `json:"account_id"`
	ExternalID   string    `json:"external_id"`
	RoundID      int64     `json:"round_id"`
	StakeCents   int64     `json:"stake_cents"`
	MatchedCount int       `json:"matched_count"`
	Multiplier   float64   `json:"multiplier"`
	PayoutCents  int64     `json:"payout_cents"`
	Ts           time.Time `json:"ts"`
}
