package events

import "time"

// Evento publicado no tópico "round_drawn" logo após o sorteio ser persistido.
type RoundDrawn struct {
	RoundID        int64     `json:"round_id"`
	WinningNumbers []int     `json:"winning_numbers"`
	DrawnAt        time.Time `json:"drawn_at"`
	NextRoundID    int64     `json:"next_round_id"`
	NextDrawAt     time.Time `json:"next_draw_at"`
}
