package dto

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
}

type WithdrawRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
}

type TransferRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	From        string `json:"from"` // "vault" | "playground"
	To          string `json:"to"`
}

type AdminApproveRequest struct {
	AdminID       string `json:"adminId"`
	TransactionID string `json:"transaction_id"`
	Action        string `json:"action"` // "approve_deposit" | "complete_withdrawal"
}
