package draw

import (
	"crypto/rand"
	"math/big"
	"sort"

	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
)

var ErrInvalidParameters = apperr.Validation("invalid_draw_parameters")

// Sample sorteia drawCount números distintos em [1, domainSize], em ordem
// crescente. Usa crypto/rand: o resultado não pode ser previsível pelo
// apostador antes do sorteio. Função pura, não persiste nada.
func Sample(domainSize, drawCount int) ([]int64, error) {
	if domainSize <= 0 || drawCount <= 0 || drawCount > domainSize {
		return nil, ErrInvalidParameters
	}

	// Fisher-Yates parcial sobre o domínio inteiro
	pool := make([]int64, domainSize)
	for i := range pool {
		pool[i] = int64(i + 1)
	}
	for i := 0; i < drawCount; i++ {
		j, err := randInt(domainSize - i)
		if err != nil {
			return nil, apperr.Infrastructure("entropy", err)
		}
		pool[i], pool[i+j] = pool[i+j], pool[i]
	}

	out := make([]int64, drawCount)
	copy(out, pool[:drawCount])
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// randInt retorna um inteiro uniforme em [0, n)
func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
