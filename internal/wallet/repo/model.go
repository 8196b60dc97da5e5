package repo

import "time"

// Nomes dos dois saldos da conta.
// vault = reserva durável; playground = saldo em risco (apostas).
const (
	BalanceVault      = "vault"
	BalancePlayground = "playground"
)

// Tipos de transação do ledger.
const (
	KindDeposit     = "DEPOSIT"
	KindWithdraw    = "WITHDRAW"
	KindTransferOut = "TRANSFER_OUT"
	KindTransferIn  = "TRANSFER_IN"
	KindBet         = "BET"
	KindWin         = "WIN"
	KindFee         = "FEE"
)

// Status de transação. Só DEPOSIT/WITHDRAW passam por PENDING
// (aprovação externa); o resto nasce COMPLETED.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Account é o modelo persistido no Postgres.
type Account struct {
	ID              string
	ExternalID      string
	VaultCents      int64
	PlaygroundCents int64
	IsAdmin         bool
	CreatedAt       time.Time
}

// Transaction é o registro imutável de auditoria. AmountCents carrega sinal:
// créditos positivos, débitos negativos.
type Transaction struct {
	ID          string
	AccountID   string
	AmountCents int64
	Kind        string
	Status      string
	Metadata    string // JSON serializado só na borda do storage
	CreatedAt   time.Time
}
