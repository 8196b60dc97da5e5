package repo

import "time"

// Round é o registro de auditoria de um sorteio. Imutável depois do draw,
// exceto a flag is_settled. WinningNumbers fica numa coluna int[] (pq.Array).
type Round struct {
	RoundID        int64
	ScheduledAt    time.Time
	DrawnAt        time.Time
	WinningNumbers []int64
	IsSettled      bool
}
