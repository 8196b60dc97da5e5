package dto

type WalletResponse struct {
	UserID          string `json:"userId"`
	AccountID       string `json:"accountId"`
	VaultCents      int64  `json:"vault_cents"`
	PlaygroundCents int64  `json:"playground_cents"`
}

type TransactionReceipt struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}
