package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/keno-platform-poc/internal/bet/dto"
	"github.com/radieske/keno-platform-poc/internal/bet/repo"
	"github.com/radieske/keno-platform-poc/internal/game/clock"
)

type fakeRepo struct {
	placed   *repo.Bet
	placeErr error
	got      *repo.Bet
	getErr   error
	calls    int
}

func (f *fakeRepo) Place(_ context.Context, externalID string, roundID, stakeCents int64, picks []int64) (*repo.Bet, error) {
	f.calls++
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	b := &repo.Bet{
		ID:         "bet-1",
		AccountID:  "acc-1",
		ExternalID: externalID,
		RoundID:    roundID,
		StakeCents: stakeCents,
		Picks:      picks,
		CreatedAt:  time.Now(),
	}
	f.placed = b
	return b, nil
}

func (f *fakeRepo) Get(context.Context, string) (*repo.Bet, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.got, nil
}

func newTestServer(t *testing.T, r *fakeRepo, at time.Time) (*Server, *clock.Memory) {
	t.Helper()
	c := clock.NewMemory(60*time.Second, 5*time.Second)
	c.Now = func() time.Time { return at }
	require.NoError(t, c.Init(context.Background()))
	return NewServer(zap.NewNop(), r, c), c
}

func placeBody(roundID int64) string {
	b, _ := json.Marshal(dto.PlaceBetRequest{
		UserID:     "user-1",
		RoundID:    roundID,
		StakeCents: 1000,
		Picks:      []int64{1, 2, 3},
	})
	return string(b)
}

func TestPlaceBetHappyPath(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	fr := &fakeRepo{}
	s, _ := newTestServer(t, fr, t0)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bets", strings.NewReader(placeBody(1))))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.BetReceipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bet-1", resp.BetID)
	assert.Equal(t, int64(1), resp.RoundID)
}

func TestPlaceBetRejectedWhenWindowClosed(t *testing.T) {
	// dentro do corte de 5s antes do sorteio: 409 sem tocar no repositório
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	fr := &fakeRepo{}
	s, c := newTestServer(t, fr, t0)
	c.Now = func() time.Time { return t0.Add(56 * time.Second) }

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bets", strings.NewReader(placeBody(1))))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, fr.calls, "nada debitado com a janela fechada")
}

func TestPlaceBetRejectedForStaleRound(t *testing.T) {
	// aposta carrega round_id antigo: 409 mesmo com tempo sobrando na rodada corrente
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	fr := &fakeRepo{}
	s, _ := newTestServer(t, fr, t0)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bets", strings.NewReader(placeBody(99))))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, fr.calls)
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	fr := &fakeRepo{placeErr: repo.ErrInsufficientFunds}
	s, _ := newTestServer(t, fr, t0)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bets", strings.NewReader(placeBody(1))))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPlaceBetInvalidPick(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	fr := &fakeRepo{placeErr: repo.ErrInvalidPick}
	s, _ := newTestServer(t, fr, t0)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bets", strings.NewReader(placeBody(1))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceBetBadPayload(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	fr := &fakeRepo{}
	s, _ := newTestServer(t, fr, t0)

	for _, body := range []string{"not json", `{"userId":"","round_id":1,"stake_cents":1000,"picks":[1]}`} {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bets", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Zero(t, fr.calls)
}

func TestGetBet(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	fr := &fakeRepo{got: &repo.Bet{
		ID: "bet-1", RoundID: 42, StakeCents: 1000, Picks: []int64{1, 2, 3},
		IsSettled: true, MatchedCount: 2, PayoutCents: 0,
	}}
	s, _ := newTestServer(t, fr, t0)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bets/bet-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.BetStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bet-1", resp.BetID)
	assert.True(t, resp.IsSettled)
}

func TestGetBetNotFound(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	fr := &fakeRepo{getErr: repo.ErrNotFound}
	s, _ := newTestServer(t, fr, t0)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bets/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCurrentRoundStatus(t *testing.T) {
	t0 := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	s, c := newTestServer(t, &fakeRepo{}, t0)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rounds/current", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.RoundStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.RoundID)
	assert.Equal(t, string(clock.StateOpen), resp.State)
	assert.True(t, resp.BettingOpen)

	// janela fechada vira LOCKED na mesma resposta
	c.Now = func() time.Time { return t0.Add(57 * time.Second) }
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rounds/current", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(clock.StateLocked), resp.State)
	assert.False(t, resp.BettingOpen)
}
