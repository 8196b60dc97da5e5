package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
	"github.com/radieske/keno-platform-poc/internal/wallet/dto"
	"github.com/radieske/keno-platform-poc/internal/wallet/repo"
)

// Repo define a interface de operações de carteira usadas pelo handler HTTP
type Repo interface {
	GetOrCreateAccount(ctx context.Context, externalID string, admin bool) (*repo.Account, error)
	GetAccount(ctx context.Context, externalID string) (*repo.Account, error)
	Transfer(ctx context.Context, externalID string, cents int64, fromBalance, toBalance string) (*repo.Account, error)
	RequestDeposit(ctx context.Context, externalID string, cents int64, metadata map[string]any) (string, error)
	RequestWithdraw(ctx context.Context, externalID string, cents int64, metadata map[string]any) (string, error)
	ApproveDeposit(ctx context.Context, txID string) error
	CompleteWithdrawal(ctx context.Context, txID string) error
}

// Server expõe endpoints HTTP para operações de carteira (wallet)
type Server struct {
	log        *zap.Logger
	repo       Repo
	adminExtID string // external_id que nasce admin
}

// NewServer instancia o servidor HTTP de wallet
func NewServer(log *zap.Logger, r Repo, adminExternalID string) *Server {
	return &Server{log: log, repo: r, adminExtID: adminExternalID}
}

// Router retorna o mux HTTP com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wallet", s.getWallet)             // GET ?userId=...
	mux.HandleFunc("/wallet/deposit", s.deposit)       // POST
	mux.HandleFunc("/wallet/withdraw", s.withdraw)     // POST
	mux.HandleFunc("/wallet/transfer", s.transfer)     // POST
	mux.HandleFunc("/wallet/admin/approve", s.approve) // POST
	return mux
}

// getWallet retorna (ou cria) a conta e os dois saldos do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	acc, err := s.repo.GetOrCreateAccount(r.Context(), userID, userID == s.adminExtID && s.adminExtID != "")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, walletResponse(acc))
}

// deposit registra um pedido de depósito PENDING (crédito só na aprovação)
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if _, err := s.repo.GetOrCreateAccount(r.Context(), req.UserID, false); err != nil {
		s.writeErr(w, err)
		return
	}
	txID, err := s.repo.RequestDeposit(r.Context(), req.UserID, req.AmountCents, map[string]any{"method": "manual"})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, dto.TransactionReceipt{TransactionID: txID, Status: repo.StatusPending})
}

// withdraw reserva o valor do vault e registra o pedido PENDING
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	txID, err := s.repo.RequestWithdraw(r.Context(), req.UserID, req.AmountCents, map[string]any{"method": "manual"})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, dto.TransactionReceipt{TransactionID: txID, Status: repo.StatusPending})
}

// transfer move fundos entre vault e playground da mesma conta
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 || req.From == "" || req.To == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	acc, err := s.repo.Transfer(r.Context(), req.UserID, req.AmountCents, req.From, req.To)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, walletResponse(acc))
}

// approve efetiva depósitos pendentes / conclui saques pendentes (só admin)
func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.AdminID == "" || req.TransactionID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	admin, err := s.repo.GetAccount(r.Context(), req.AdminID)
	if err != nil || !admin.IsAdmin {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	switch req.Action {
	case "approve_deposit":
		err = s.repo.ApproveDeposit(r.Context(), req.TransactionID)
	case "complete_withdrawal":
		err = s.repo.CompleteWithdrawal(r.Context(), req.TransactionID)
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, dto.TransactionReceipt{TransactionID: req.TransactionID, Status: repo.StatusCompleted})
}

// writeErr mapeia o erro de domínio pro status HTTP
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrInsufficientFunds):
		http.Error(w, "insufficient funds", http.StatusConflict)
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrNotPending):
		http.Error(w, "transaction not pending", http.StatusConflict)
	case apperr.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("wallet op failed", zap.Error(err))
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
	}
}

func walletResponse(acc *repo.Account) dto.WalletResponse {
	return dto.WalletResponse{
		UserID:          acc.ExternalID,
		AccountID:       acc.ID,
		VaultCents:      acc.VaultCents,
		PlaygroundCents: acc.PlaygroundCents,
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
