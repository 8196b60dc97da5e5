package clock

import (
	"context"
	"time"
)

// Estados da rodada corrente.
// OPEN aceita apostas; LOCKED é a janela de corte antes do sorteio;
// DRAWING significa que o scheduler segurou o lock de sorteio;
// CLOSED só existe logicamente: ao fechar, a próxima rodada já nasce OPEN.
type State string

const (
	StateOpen    State = "OPEN"
	StateLocked  State = "LOCKED"
	StateDrawing State = "DRAWING"
	StateClosed  State = "CLOSED"
)

type Status struct {
	RoundID     int64
	DrawAt      time.Time
	State       State
	BettingOpen bool
}

// Clock é o dono único do estado da rodada corrente (id + instante do próximo
// sorteio). Só o scheduler chama Advance; todo o resto lê por aqui.
// A implementação pode ser trocada (Redis, memória) sem tocar nos call sites.
type Clock interface {
	// Init semeia a rodada 1 se o estado ainda não existir. Idempotente.
	Init(ctx context.Context) error

	// Current retorna a rodada corrente e o instante agendado do sorteio.
	Current(ctx context.Context) (roundID int64, drawAt time.Time, err error)

	// Status deriva o estado da máquina a partir do relógio e do lock.
	Status(ctx context.Context) (Status, error)

	// IsBettingOpen é a única consulta que o caminho de aposta precisa:
	// true somente se roundID é a rodada corrente e ainda estamos antes
	// do corte (drawAt - cutoff).
	IsBettingOpen(ctx context.Context, roundID int64) (bool, error)

	// Advance fecha a rodada prev e abre a seguinte (prev+1, now+interval).
	// Falha com invariante quebrada se prev não for a rodada corrente.
	Advance(ctx context.Context, prevRoundID int64) (newRoundID int64, drawAt time.Time, err error)

	// TryLockDraw adquire o lock exclusivo de sorteio (um holder por vez).
	TryLockDraw(ctx context.Context, roundID int64) (bool, error)
	UnlockDraw(ctx context.Context, roundID int64) error
}
