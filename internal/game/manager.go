package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plumchat/sage-bot/internal/record"
)

// Manager holds at most one game per room. Operations on the same room are
// serialized for the whole read→engine-call→write span; different rooms never
// block each other.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry

	eng    Engine
	sink   record.Sink
	logger *zap.Logger
}

type entry struct {
	mu     sync.Mutex
	game   *Game
	closed bool
}

func NewManager(eng Engine, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		entries: make(map[string]*entry),
		eng:     eng,
		logger:  logger,
	}
}

// AttachSink wires a recorder for finished games. Recording is best-effort.
func (m *Manager) AttachSink(s record.Sink) {
	if m != nil {
		m.sink = s
	}
}

// Start creates a new game for the room. An existing game is never reset:
// starting while one is active fails with ErrAlreadyActive and leaves the
// board untouched.
func (m *Manager) Start(ctx context.Context, room string) (*Snapshot, error) {
	m.mu.Lock()
	if _, exists := m.entries[room]; exists {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	now := time.Now()
	g := &Game{
		ID:        uuid.NewString(),
		Room:      room,
		Board:     m.eng.NewBoard(),
		StartedAt: now,
		UpdatedAt: now,
	}
	e := &entry{game: g}
	m.entries[room] = e
	m.mu.Unlock()

	m.logger.Info("game_start", zap.String("game_id", g.ID), zap.String("room", room))
	return m.snapshot(g), nil
}

// Board returns the current view of the room's active game.
func (m *Manager) Board(ctx context.Context, room string) (*Snapshot, error) {
	e, err := m.lookup(room)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrNoActiveGame
	}
	return m.snapshot(e.game), nil
}

// SubmitMove parses and applies the move text. Algebraic notation is tried
// first, coordinate notation second; both failing surfaces one
// IllegalMoveError. A terminal move removes the session before the lock is
// released, so a terminal outcome and a surviving session are never both
// observable.
func (m *Manager) SubmitMove(ctx context.Context, room, moveText string) (*MoveOutcome, error) {
	e, err := m.lookup(room)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrNoActiveGame
	}
	g := e.game

	san, uci, err := m.eng.ApplyMove(g.Board, moveText, NotationSAN)
	if err != nil {
		if _, illegal := err.(*IllegalMoveError); !illegal {
			return nil, err
		}
		san, uci, err = m.eng.ApplyMove(g.Board, moveText, NotationUCI)
		if err != nil {
			return nil, err
		}
	}

	g.MovesSAN = append(g.MovesSAN, san)
	g.MovesUCI = append(g.MovesUCI, uci)
	g.UpdatedAt = time.Now()

	out := &MoveOutcome{
		BoardText: m.eng.Render(g.Board),
		Turn:      m.eng.Turn(g.Board),
		SAN:       san,
		UCI:       uci,
		Result:    Result{Outcome: OutcomeOngoing},
		MoveCount: len(g.MovesSAN),
	}
	if res, terminal := m.eng.Terminal(g.Board); terminal {
		out.Finished = true
		out.Result = res
		m.remove(room, e)
		m.record(ctx, g, res)
	}

	m.logger.Info("game_move",
		zap.String("game_id", g.ID),
		zap.String("room", room),
		zap.String("san", san),
		zap.String("uci", uci),
		zap.Bool("finished", out.Finished),
		zap.String("outcome", string(out.Result.Outcome)),
	)
	return out, nil
}

// Stop ends the room's game as a resignation by the side to move.
func (m *Manager) Stop(ctx context.Context, room string) (*Snapshot, error) {
	e, err := m.lookup(room)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrNoActiveGame
	}
	g := e.game

	res := Result{Outcome: OutcomeResigned, Winner: opponent(m.eng.Turn(g.Board))}
	g.UpdatedAt = time.Now()
	m.remove(room, e)
	m.record(ctx, g, res)

	m.logger.Info("game_stop",
		zap.String("game_id", g.ID),
		zap.String("room", room),
		zap.String("winner", string(res.Winner)),
	)
	return m.snapshot(g), nil
}

func (m *Manager) lookup(room string) (*entry, error) {
	m.mu.Lock()
	e := m.entries[room]
	m.mu.Unlock()
	if e == nil {
		return nil, ErrNoActiveGame
	}
	return e, nil
}

// remove is called with e.mu held.
func (m *Manager) remove(room string, e *entry) {
	e.closed = true
	m.mu.Lock()
	if m.entries[room] == e {
		delete(m.entries, room)
	}
	m.mu.Unlock()
}

func (m *Manager) record(ctx context.Context, g *Game, res Result) {
	if m.sink == nil {
		return
	}
	_ = m.sink.RecordResult(ctx, &record.Result{
		ID:        g.ID,
		Room:      g.Room,
		Outcome:   string(res.Outcome),
		Winner:    string(res.Winner),
		MoveCount: len(g.MovesSAN),
		MovesSAN:  append([]string(nil), g.MovesSAN...),
		StartedAt: g.StartedAt,
		EndedAt:   g.UpdatedAt,
	})
}

func (m *Manager) snapshot(g *Game) *Snapshot {
	return &Snapshot{
		ID:        g.ID,
		BoardText: m.eng.Render(g.Board),
		Turn:      m.eng.Turn(g.Board),
		MoveCount: len(g.MovesSAN),
	}
}

func opponent(c Color) Color {
	if c == White {
		return Black
	}
	return White
}
