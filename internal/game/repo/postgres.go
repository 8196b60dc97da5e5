package repo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
)

// Postgres implementa a persistência de rodadas
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var ErrNotFound = apperr.Validation("round_not_found")

func infra(err error) error {
	return apperr.Infrastructure("postgres", err)
}

// InsertDraw persiste o sorteio da rodada de forma idempotente: se a rodada
// já tem números gravados (retry após falha parcial), o insert não faz nada
// e o sorteio persistido vence — um draw nunca é sobrescrito.
func (p *Postgres) InsertDraw(ctx context.Context, r Round) (*Round, error) {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rounds(round_id, scheduled_at, drawn_at, winning_numbers, is_settled)
		VALUES($1,$2,$3,$4,false)
		ON CONFLICT (round_id) DO NOTHING`,
		r.RoundID, r.ScheduledAt, r.DrawnAt, pq.Array(r.WinningNumbers))
	if err != nil {
		return nil, infra(err)
	}
	return p.Get(ctx, r.RoundID)
}

// Get retorna a rodada persistida.
func (p *Postgres) Get(ctx context.Context, roundID int64) (*Round, error) {
	var r Round
	err := p.db.QueryRowContext(ctx, `
		SELECT round_id, scheduled_at, drawn_at, winning_numbers, is_settled
		FROM rounds WHERE round_id=$1`, roundID).
		Scan(&r.RoundID, &r.ScheduledAt, &r.DrawnAt, pq.Array(&r.WinningNumbers), &r.IsSettled)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, infra(err)
	}
	return &r, nil
}

// MarkSettled fecha a rodada depois que todas as apostas foram liquidadas.
func (p *Postgres) MarkSettled(ctx context.Context, roundID int64) error {
	if _, err := p.db.ExecContext(ctx,
		`UPDATE rounds SET is_settled=true WHERE round_id=$1`, roundID); err != nil {
		return infra(err)
	}
	return nil
}
