package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
)

// Postgres implementa o ledger de carteira em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = apperr.Validation("insufficient_funds")
	ErrInvalidAmount     = apperr.Validation("invalid_amount")
	ErrInvalidBalance    = apperr.Validation("invalid_balance")
	ErrNotFound          = apperr.Validation("not_found")
	ErrNotPending        = apperr.Validation("transaction_not_pending")
)

// balanceColumn traduz o nome lógico do saldo pra coluna da tabela accounts.
func balanceColumn(name string) (string, error) {
	switch name {
	case BalanceVault:
		return "vault_cents", nil
	case BalancePlayground:
		return "playground_cents", nil
	default:
		return "", ErrInvalidBalance
	}
}

func infra(err error) error {
	return apperr.Infrastructure("postgres", err)
}

func metaJSON(metadata map[string]any) string {
	if len(metadata) == 0 {
		return "{}"
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// GetOrCreateAccount retorna a conta do usuário, criando no primeiro contato.
// Usa transação para garantir atomicidade
func (p *Postgres) GetOrCreateAccount(ctx context.Context, externalID string, admin bool) (*Account, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, infra(err)
	}
	defer tx.Rollback()

	acc, err := scanAccount(tx.QueryRowContext(ctx, `
		SELECT id, external_id, vault_cents, playground_cents, is_admin, created_at
		FROM accounts WHERE external_id=$1`, externalID))
	if err == sql.ErrNoRows {
		acc = &Account{
			ID:         uuid.NewString(),
			ExternalID: externalID,
			IsAdmin:    admin,
		}
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO accounts(id, external_id, vault_cents, playground_cents, is_admin)
			VALUES($1,$2,0,0,$3) RETURNING created_at`,
			acc.ID, externalID, admin).Scan(&acc.CreatedAt); err != nil {
			return nil, infra(err)
		}
	} else if err != nil {
		return nil, infra(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, infra(err)
	}

	return acc, nil
}

// GetAccount retorna a conta pelo external_id, sem criar.
func (p *Postgres) GetAccount(ctx context.Context, externalID string) (*Account, error) {
	acc, err := scanAccount(p.db.QueryRowContext(ctx, `
		SELECT id, external_id, vault_cents, playground_cents, is_admin, created_at
		FROM accounts WHERE external_id=$1`, externalID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, infra(err)
	}
	return acc, nil
}

// Credit incrementa o saldo indicado e registra a transação COMPLETED no ledger.
// Lock pessimista na linha da conta: mutações da mesma conta são serializadas
func (p *Postgres) Credit(ctx context.Context, externalID, balance string, cents int64, kind string, metadata map[string]any) (newBalance int64, err error) {
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	col, err := balanceColumn(balance)
	if err != nil {
		return 0, err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, infra(err)
	}
	defer tx.Rollback()

	accountID, _, err := lockAccount(ctx, tx, externalID, col)
	if err != nil {
		return 0, err
	}

	if err = tx.QueryRowContext(ctx,
		`UPDATE accounts SET `+col+` = `+col+` + $1 WHERE id=$2 RETURNING `+col,
		cents, accountID).Scan(&newBalance); err != nil {
		return 0, infra(err)
	}

	if err = insertTransaction(ctx, tx, accountID, cents, kind, StatusCompleted, metaJSON(metadata)); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, infra(err)
	}
	return newBalance, nil
}

// Debit decrementa o saldo indicado, falhando sem mutação se não houver fundos.
func (p *Postgres) Debit(ctx context.Context, externalID, balance string, cents int64, kind string, metadata map[string]any) (newBalance int64, err error) {
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	col, err := balanceColumn(balance)
	if err != nil {
		return 0, err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, infra(err)
	}
	defer tx.Rollback()

	accountID, current, err := lockAccount(ctx, tx, externalID, col)
	if err != nil {
		return 0, err
	}
	if current < cents {
		return 0, ErrInsufficientFunds
	}

	if err = tx.QueryRowContext(ctx,
		`UPDATE accounts SET `+col+` = `+col+` - $1 WHERE id=$2 RETURNING `+col,
		cents, accountID).Scan(&newBalance); err != nil {
		return 0, infra(err)
	}

	if err = insertTransaction(ctx, tx, accountID, -cents, kind, StatusCompleted, metaJSON(metadata)); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, infra(err)
	}
	return newBalance, nil
}

// Transfer move fundos entre vault e playground da mesma conta, gravando o par
// TRANSFER_OUT/TRANSFER_IN na mesma transação de banco. A soma dos dois saldos
// não muda.
func (p *Postgres) Transfer(ctx context.Context, externalID string, cents int64, fromBalance, toBalance string) (*Account, error) {
	if cents <= 0 {
		return nil, ErrInvalidAmount
	}
	fromCol, err := balanceColumn(fromBalance)
	if err != nil {
		return nil, err
	}
	toCol, err := balanceColumn(toBalance)
	if err != nil {
		return nil, err
	}
	if fromCol == toCol {
		return nil, ErrInvalidBalance
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, infra(err)
	}
	defer tx.Rollback()

	accountID, current, err := lockAccount(ctx, tx, externalID, fromCol)
	if err != nil {
		return nil, err
	}
	if current < cents {
		return nil, ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET `+fromCol+` = `+fromCol+` - $1, `+toCol+` = `+toCol+` + $1 WHERE id=$2`,
		cents, accountID); err != nil {
		return nil, infra(err)
	}

	outMeta := metaJSON(map[string]any{"from": fromBalance, "to": toBalance})
	if err = insertTransaction(ctx, tx, accountID, -cents, KindTransferOut, StatusCompleted, outMeta); err != nil {
		return nil, err
	}
	if err = insertTransaction(ctx, tx, accountID, cents, KindTransferIn, StatusCompleted, outMeta); err != nil {
		return nil, err
	}

	acc, err := scanAccount(tx.QueryRowContext(ctx, `
		SELECT id, external_id, vault_cents, playground_cents, is_admin, created_at
		FROM accounts WHERE id=$1`, accountID))
	if err != nil {
		return nil, infra(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, infra(err)
	}
	return acc, nil
}

// RequestDeposit grava só a transação PENDING; o crédito acontece na aprovação.
func (p *Postgres) RequestDeposit(ctx context.Context, externalID string, cents int64, metadata map[string]any) (txID string, err error) {
	if cents <= 0 {
		return "", ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", infra(err)
	}
	defer tx.Rollback()

	accountID, _, err := lockAccount(ctx, tx, externalID, "vault_cents")
	if err != nil {
		return "", err
	}

	txID = uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions(id, account_id, amount_cents, kind, status, metadata)
		VALUES($1,$2,$3,$4,$5,$6)`,
		txID, accountID, cents, KindDeposit, StatusPending, metaJSON(metadata)); err != nil {
		return "", infra(err)
	}

	if err = tx.Commit(); err != nil {
		return "", infra(err)
	}
	return txID, nil
}

// RequestWithdraw reserva os fundos na hora: debita o vault e grava a transação
// PENDING na mesma transação de banco. A conclusão externa só muda o status,
// nunca mexe de novo no saldo.
func (p *Postgres) RequestWithdraw(ctx context.Context, externalID string, cents int64, metadata map[string]any) (txID string, err error) {
	if cents <= 0 {
		return "", ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", infra(err)
	}
	defer tx.Rollback()

	accountID, current, err := lockAccount(ctx, tx, externalID, "vault_cents")
	if err != nil {
		return "", err
	}
	if current < cents {
		return "", ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET vault_cents = vault_cents - $1 WHERE id=$2`,
		cents, accountID); err != nil {
		return "", infra(err)
	}

	txID = uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions(id, account_id, amount_cents, kind, status, metadata)
		VALUES($1,$2,$3,$4,$5,$6)`,
		txID, accountID, -cents, KindWithdraw, StatusPending, metaJSON(metadata)); err != nil {
		return "", infra(err)
	}

	if err = tx.Commit(); err != nil {
		return "", infra(err)
	}
	return txID, nil
}

// ApproveDeposit efetiva um DEPOSIT pendente: credita o vault e marca COMPLETED.
// Idempotente via checagem de status sob lock.
func (p *Postgres) ApproveDeposit(ctx context.Context, txID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return infra(err)
	}
	defer tx.Rollback()

	var accountID, kind, status string
	var cents int64
	err = tx.QueryRowContext(ctx, `
		SELECT account_id, amount_cents, kind, status
		FROM transactions WHERE id=$1 FOR UPDATE`, txID).
		Scan(&accountID, &cents, &kind, &status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return infra(err)
	}
	if kind != KindDeposit || status != StatusPending {
		return ErrNotPending
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET vault_cents = vault_cents + $1 WHERE id=$2`,
		cents, accountID); err != nil {
		return infra(err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE transactions SET status=$1 WHERE id=$2`,
		StatusCompleted, txID); err != nil {
		return infra(err)
	}

	if err = tx.Commit(); err != nil {
		return infra(err)
	}
	return nil
}

// CompleteWithdrawal marca um WITHDRAW pendente como COMPLETED.
// O débito já aconteceu no RequestWithdraw; aqui é só status.
func (p *Postgres) CompleteWithdrawal(ctx context.Context, txID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return infra(err)
	}
	defer tx.Rollback()

	var kind, status string
	err = tx.QueryRowContext(ctx,
		`SELECT kind, status FROM transactions WHERE id=$1 FOR UPDATE`, txID).
		Scan(&kind, &status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return infra(err)
	}
	if kind != KindWithdraw || status != StatusPending {
		return ErrNotPending
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE transactions SET status=$1 WHERE id=$2`,
		StatusCompleted, txID); err != nil {
		return infra(err)
	}

	if err = tx.Commit(); err != nil {
		return infra(err)
	}
	return nil
}

// lockAccount trava a linha da conta (FOR UPDATE) e retorna id + saldo da coluna pedida.
func lockAccount(ctx context.Context, tx *sql.Tx, externalID, col string) (accountID string, balance int64, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT id, `+col+` FROM accounts WHERE external_id=$1 FOR UPDATE`, externalID).
		Scan(&accountID, &balance)
	if err == sql.ErrNoRows {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, infra(err)
	}
	return accountID, balance, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, accountID string, cents int64, kind, status, metadata string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions(id, account_id, amount_cents, kind, status, metadata)
		VALUES($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), accountID, cents, kind, status, metadata); err != nil {
		return infra(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.ExternalID, &a.VaultCents, &a.PlaygroundCents, &a.IsAdmin, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
