package repo

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
)

// Postgres implementa o ledger de apostas em banco
type Postgres struct {
	db    *sql.DB
	rules Rules
}

func NewPostgres(db *sql.DB, rules Rules) *Postgres {
	return &Postgres{db: db, rules: rules}
}

var (
	ErrInvalidPick       = apperr.Validation("invalid_pick")
	ErrInvalidStake      = apperr.Validation("invalid_stake")
	ErrInsufficientFunds = apperr.Validation("insufficient_funds")
	ErrAccountNotFound   = apperr.Validation("account_not_found")
	ErrNotFound          = apperr.Validation("bet_not_found")
	ErrAlreadySettled    = apperr.Validation("bet_already_settled")
)

func infra(err error) error {
	return apperr.Infrastructure("postgres", err)
}

// ValidatePlacement aplica as regras de aposta e devolve os picks ordenados.
func (p *Postgres) ValidatePlacement(stakeCents int64, picks []int64) ([]int64, error) {
	if stakeCents < p.rules.MinBetCents {
		return nil, ErrInvalidStake
	}
	if len(picks) < 1 || len(picks) > p.rules.MaxPicks {
		return nil, ErrInvalidPick
	}

	seen := make(map[int64]bool, len(picks))
	out := make([]int64, 0, len(picks))
	for _, n := range picks {
		if n < 1 || n > int64(p.rules.DomainSize) || seen[n] {
			return nil, ErrInvalidPick
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Place cria a aposta debitando o playground na MESMA transação de banco:
// lock da conta, checagem de saldo, débito, registro BET no ledger e insert
// da aposta. Duas apostas concorrentes da mesma conta nunca passam as duas
// pela checagem de saldo (lock pessimista serializa).
func (p *Postgres) Place(ctx context.Context, externalID string, roundID int64, stakeCents int64, picks []int64) (*Bet, error) {
	picks, err := p.ValidatePlacement(stakeCents, picks)
	if err != nil {
		return nil, err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, infra(err)
	}
	defer tx.Rollback()

	var accountID string
	var playground int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, playground_cents FROM accounts WHERE external_id=$1 FOR UPDATE`, externalID).
		Scan(&accountID, &playground)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, infra(err)
	}

	if playground < stakeCents {
		return nil, ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET playground_cents = playground_cents - $1 WHERE id=$2`,
		stakeCents, accountID); err != nil {
		return nil, infra(err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions(id, account_id, amount_cents, kind, status, metadata)
		VALUES($1,$2,$3,'BET','COMPLETED', json_build_object('round_id',$4::bigint,'picks_count',$5::int))`,
		uuid.NewString(), accountID, -stakeCents, roundID, len(picks)); err != nil {
		return nil, infra(err)
	}

	bet := &Bet{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		ExternalID: externalID,
		RoundID:    roundID,
		StakeCents: stakeCents,
		Picks:      picks,
	}
	if err = tx.QueryRowContext(ctx, `
		INSERT INTO bets(id, account_id, round_id, stake_cents, picks, is_settled)
		VALUES($1,$2,$3,$4,$5,false) RETURNING created_at`,
		bet.ID, accountID, roundID, stakeCents, pq.Array(picks)).Scan(&bet.CreatedAt); err != nil {
		return nil, infra(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, infra(err)
	}
	return bet, nil
}

// Get retorna uma aposta pelo id.
func (p *Postgres) Get(ctx context.Context, betID string) (*Bet, error) {
	var b Bet
	err := p.db.QueryRowContext(ctx, `
		SELECT b.id, b.account_id, a.external_id, b.round_id, b.stake_cents, b.picks,
		       COALESCE(b.matched_count,0), COALESCE(b.payout_multiplier,0), COALESCE(b.payout_cents,0),
		       b.is_settled, b.created_at
		FROM bets b JOIN accounts a ON a.id = b.account_id
		WHERE b.id=$1`, betID).
		Scan(&b.ID, &b.AccountID, &b.ExternalID, &b.RoundID, &b.StakeCents, pq.Array(&b.Picks),
			&b.MatchedCount, &b.PayoutMultiplier, &b.PayoutCents, &b.IsSettled, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, infra(err)
	}
	return &b, nil
}

// UnsettledForRound retorna as apostas ainda não liquidadas da rodada.
// Usado só pelo settlement.
func (p *Postgres) UnsettledForRound(ctx context.Context, roundID int64) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT b.id, b.account_id, a.external_id, b.round_id, b.stake_cents, b.picks, b.created_at
		FROM bets b JOIN accounts a ON a.id = b.account_id
		WHERE b.round_id=$1 AND b.is_settled=false
		ORDER BY b.created_at`, roundID)
	if err != nil {
		return nil, infra(err)
	}
	defer rows.Close()

	var bets []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.AccountID, &b.ExternalID, &b.RoundID, &b.StakeCents,
			pq.Array(&b.Picks), &b.CreatedAt); err != nil {
			return nil, infra(err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, infra(err)
	}
	return bets, nil
}

// Settle grava o resultado da aposta e, se houver prêmio, credita o playground
// e registra a transação WIN — tudo na MESMA transação de banco. O UPDATE
// condicional em is_settled=false garante que a aposta nunca é paga duas vezes.
func (p *Postgres) Settle(ctx context.Context, betID string, roundID int64, matched int, multiplier float64, payoutCents int64) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return infra(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE bets SET matched_count=$2, payout_multiplier=$3, payout_cents=$4, is_settled=true
		WHERE id=$1 AND is_settled=false`,
		betID, matched, multiplier, payoutCents)
	if err != nil {
		return infra(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return infra(err)
	}
	if n == 0 {
		// ou a aposta não existe, ou já foi liquidada
		var settled bool
		err := tx.QueryRowContext(ctx, `SELECT is_settled FROM bets WHERE id=$1`, betID).Scan(&settled)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return infra(err)
		}
		return ErrAlreadySettled
	}

	if payoutCents > 0 {
		var accountID string
		if err := tx.QueryRowContext(ctx, `SELECT account_id FROM bets WHERE id=$1`, betID).Scan(&accountID); err != nil {
			return infra(err)
		}
		if _, err := tx.ExecContext(ctx,
			`SELECT id FROM accounts WHERE id=$1 FOR UPDATE`, accountID); err != nil {
			return infra(err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET playground_cents = playground_cents + $1 WHERE id=$2`,
			payoutCents, accountID); err != nil {
			return infra(err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions(id, account_id, amount_cents, kind, status, metadata)
			VALUES($1,$2,$3,'WIN','COMPLETED', json_build_object('bet_id',$4::text,'round_id',$5::bigint))`,
			uuid.NewString(), accountID, payoutCents, betID, roundID); err != nil {
			return infra(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return infra(err)
	}
	return nil
}
