package repo

import "time"

// Bet é o modelo persistido no Postgres. Picks fica numa coluna int[]
// (pq.Array); a serialização acontece só aqui na borda do storage.
type Bet struct {
	ID               string
	AccountID        string
	ExternalID       string // external_id da conta dona, via join
	RoundID          int64
	StakeCents       int64
	Picks            []int64
	MatchedCount     int
	PayoutMultiplier float64
	PayoutCents      int64
	IsSettled        bool
	CreatedAt        time.Time
}

// Rules são os limites de validação de uma aposta.
type Rules struct {
	DomainSize  int
	MaxPicks    int
	MinBetCents int64
}
