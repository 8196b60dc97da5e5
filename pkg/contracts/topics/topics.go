package topics

const (
	// Rodadas
	RoundDrawn = "round_drawn"

	// Liquidação de apostas
	BetSettled = "bet_settled"

	// DLQ
	BetSettledDLQ = "bet_settled_dlq"
)
