package dto

type PlaceBetRequest struct {
	UserID     string  `json:"userId"`
	RoundID    int64   `json:"round_id"`
	StakeCents int64   `json:"stake_cents"`
	Picks      []int64 `json:"picks"`
}
