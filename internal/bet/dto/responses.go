package dto

import "time"

type BetReceipt struct {
	BetID      string    `json:"bet_id"`
	RoundID    int64     `json:"round_id"`
	StakeCents int64     `json:"stake_cents"`
	Picks      []int64   `json:"picks"`
	PlacedAt   time.Time `json:"placed_at"`
}

type BetStatusResponse struct {
	BetID        string  `json:"bet_id"`
	RoundID      int64   `json:"round_id"`
	StakeCents   int64   `json:"stake_cents"`
	Picks        []int64 `json:"picks"`
	IsSettled    bool    `json:"is_settled"`
	MatchedCount int     `json:"matched_count,omitempty"`
	Multiplier   float64 `json:"multiplier,omitempty"`
	PayoutCents  int64   `json:"payout_cents,omitempty"`
}

type RoundStatusResponse struct {
	RoundID     int64     `json:"round_id"`
	DrawAt      time.Time `json:"draw_at"`
	State       string    `json:"state"`
	BettingOpen bool      `json:"betting_open"`
}
