package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/keno-platform-poc/internal/bet/dto"
	"github.com/radieske/keno-platform-poc/internal/bet/repo"
	"github.com/radieske/keno-platform-poc/internal/game/clock"
	"github.com/radieske/keno-platform-poc/internal/shared/apperr"
)

// Repo define as operações do ledger de apostas usadas pelo handler HTTP
type Repo interface {
	Place(ctx context.Context, externalID string, roundID int64, stakeCents int64, picks []int64) (*repo.Bet, error)
	Get(ctx context.Context, betID string) (*repo.Bet, error)
}

// Server expõe a API de apostas e o status da rodada corrente
type Server struct {
	log   *zap.Logger
	repo  Repo
	clock clock.Clock
}

func NewServer(log *zap.Logger, r Repo, c clock.Clock) *Server {
	return &Server{log: log, repo: r, clock: c}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.placeBet)          // POST
	mux.HandleFunc("/bets/", s.getBet)           // GET /bets/{id}
	mux.HandleFunc("/rounds/current", s.current) // GET
	return mux
}

// placeBet valida a janela de aposta e delega a criação atômica
// (débito + ledger + aposta) pro repositório
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.RoundID <= 0 || req.StakeCents <= 0 || len(req.Picks) == 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// 1) Janela de aposta: só a rodada corrente, antes do corte.
	// Nada é debitado se a janela já fechou.
	open, err := s.clock.IsBettingOpen(r.Context(), req.RoundID)
	if err != nil {
		s.log.Error("clock read failed", zap.Error(err))
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if !open {
		http.Error(w, "betting closed for this round", http.StatusConflict)
		return
	}

	// 2) Criação atômica: lock da conta, saldo, débito, ledger, aposta.
	bet, err := s.repo.Place(r.Context(), req.UserID, req.RoundID, req.StakeCents, req.Picks)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	writeJSON(w, dto.BetReceipt{
		BetID:      bet.ID,
		RoundID:    bet.RoundID,
		StakeCents: bet.StakeCents,
		Picks:      bet.Picks,
		PlacedAt:   bet.CreatedAt,
	})
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// path: /bets/{id}
	id := r.URL.Path[len("/bets/"):]
	if id == "" {
		http.Error(w, "betId required", http.StatusBadRequest)
		return
	}

	bet, err := s.repo.Get(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	writeJSON(w, dto.BetStatusResponse{
		BetID:        bet.ID,
		RoundID:      bet.RoundID,
		StakeCents:   bet.StakeCents,
		Picks:        bet.Picks,
		IsSettled:    bet.IsSettled,
		MatchedCount: bet.MatchedCount,
		Multiplier:   bet.PayoutMultiplier,
		PayoutCents:  bet.PayoutCents,
	})
}

// current responde a única pergunta que o caller externo precisa:
// qual a rodada, quando sorteia, dá pra apostar agora?
func (s *Server) current(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := s.clock.Status(r.Context())
	if err != nil {
		s.log.Error("clock status failed", zap.Error(err))
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, dto.RoundStatusResponse{
		RoundID:     st.RoundID,
		DrawAt:      st.DrawAt,
		State:       string(st.State),
		BettingOpen: st.BettingOpen,
	})
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrInsufficientFunds):
		http.Error(w, "insufficient funds", http.StatusConflict)
	case errors.Is(err, repo.ErrAccountNotFound), errors.Is(err, repo.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case apperr.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("bet op failed", zap.Error(err))
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
