package payout

import "math"

// Policy é a tabela de pagamento configurável. A curva default
// (threshold 5, fator 2.0) veio do jogo original e não é garantidamente
// justa pra casa; por isso fica em config e não hardcoded.
type Policy struct {
	WinThreshold int     // acertos mínimos pra pagar alguma coisa
	WinFactor    float64 // multiplier = acertos * WinFactor
}

// Evaluate devolve o multiplicador e o prêmio em centavos para uma aposta
// com matched acertos. Abaixo do threshold paga zero.
func (p Policy) Evaluate(matched int, stakeCents int64) (multiplier float64, payoutCents int64) {
	if matched < p.WinThreshold {
		return 0, 0
	}
	multiplier = float64(matched) * p.WinFactor
	payoutCents = int64(math.Round(float64(stakeCents) * multiplier))
	return multiplier, payoutCents
}

// MatchCount conta |picks ∩ winning|.
func MatchCount(picks, winning []int64) int {
	set := make(map[int64]bool, len(winning))
	for _, n := range winning {
		set[n] = true
	}
	matched := 0
	for _, n := range picks {
		if set[n] {
			matched++
		}
	}
	return matched
}
