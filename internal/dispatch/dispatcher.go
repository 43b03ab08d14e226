// Package dispatch is the top-level routing layer: it classifies every
// admitted event, drives the right session store, calls the external
// capability and hands the result to the chunker.
package dispatch

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/plumchat/sage-bot/internal/chunk"
	"github.com/plumchat/sage-bot/internal/dialog"
	"github.com/plumchat/sage-bot/internal/game"
	"github.com/plumchat/sage-bot/internal/gate"
	"github.com/plumchat/sage-bot/internal/irisfast"
	"github.com/plumchat/sage-bot/internal/msgcat"
	"github.com/plumchat/sage-bot/internal/record"
)

// Generator is the language-generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Dispatcher struct {
	handle string

	gate    *gate.Policy
	dialog  *dialog.Store
	games   *game.Manager
	gen     Generator
	out     chunk.Outbound
	chunker *chunk.Chunker
	cat     *msgcat.Catalog
	repo    record.Repository
	cache   *record.Cache

	userLocks *keyMutex
	logger    *zap.Logger
}

type Deps struct {
	Handle  string
	Gate    *gate.Policy
	Dialog  *dialog.Store
	Games   *game.Manager
	Gen     Generator
	Out     chunk.Outbound
	Chunker *chunk.Chunker
	Catalog *msgcat.Catalog
	Repo    record.Repository
	Cache   *record.Cache
	Logger  *zap.Logger
}

func New(d Deps) *Dispatcher {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handle:    d.Handle,
		gate:      d.Gate,
		dialog:    d.Dialog,
		games:     d.Games,
		gen:       d.Gen,
		out:       d.Out,
		chunker:   d.Chunker,
		cat:       d.Catalog,
		repo:      d.Repo,
		cache:     d.Cache,
		userLocks: newKeyMutex(),
		logger:    logger,
	}
}

// Handle processes one inbound event. It never panics outward and never
// returns an error: every fault is resolved into a log line and, where the
// sender should know, a reply.
func (d *Dispatcher) Handle(ctx context.Context, ev *irisfast.Message) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch_panic", zap.Any("panic", r), zap.String("room", ev.Room))
		}
	}()

	text, ok := d.gate.Admit(ev)
	if !ok {
		return
	}

	switch {
	case text == "" && ev.Photo != "":
		d.reply(ctx, ev.Room, d.cat.MustRender("chat.photo_unsupported", nil))
	case text == "":
		d.reply(ctx, ev.Room, d.cat.MustRender("chat.empty_input", nil))
	case strings.HasPrefix(text, "/"):
		d.handleCommand(ctx, ev, text)
	default:
		d.handleChat(ctx, ev, text)
	}
}

// handleChat runs the dialogue flow under the sender's session lock: the lock
// spans reading the context, the model call and the write-back, so two
// near-simultaneous messages from one user can never interleave their
// appends.
func (d *Dispatcher) handleChat(ctx context.Context, ev *irisfast.Message, text string) {
	unlock := d.userLocks.Lock(ev.SenderID)
	defer unlock()

	turns := d.dialog.Context(ev.SenderID)
	prompt := renderPrompt(turns, text)

	reply, err := d.gen.Generate(ctx, prompt)
	if err != nil {
		// Nothing was appended yet: the session stays exactly as it was
		// before this message.
		d.logger.Error("generate_failed",
			zap.String("user_id", ev.SenderID),
			zap.String("room", ev.Room),
			zap.String("input", text),
			zap.Error(err),
		)
		d.reply(ctx, ev.Room, d.cat.MustRender("chat.failure", nil))
		return
	}

	d.dialog.Append(ev.SenderID, dialog.RoleUser, text)
	d.dialog.Append(ev.SenderID, dialog.RoleAssistant, reply)

	d.logger.Info("chat_reply",
		zap.String("user_id", ev.SenderID),
		zap.String("room", ev.Room),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("reply_len", len(reply)),
	)
	d.deliver(ctx, ev.Room, reply)
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev *irisfast.Message, text string) {
	parts := strings.Fields(text)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/start":
		name := strings.TrimSpace(ev.Sender)
		if name == "" {
			name = "there"
		}
		d.reply(ctx, ev.Room, d.cat.MustRender("bot.greet", map[string]any{"Name": name, "Handle": d.handle}))
	case "/help":
		d.reply(ctx, ev.Room, d.cat.MustRender("bot.help", map[string]any{"Handle": d.handle}))
	case "/mode":
		d.reply(ctx, ev.Room, d.cat.MustRender("bot.mode", nil))
	case "/clear":
		d.handleClear(ctx, ev)
	case "/chess":
		d.handleStart(ctx, ev)
	case "/move":
		d.handleMove(ctx, ev, args)
	case "/board":
		d.handleBoard(ctx, ev)
	case "/resign", "/stop":
		d.handleResign(ctx, ev)
	case "/recent":
		d.handleRecent(ctx, ev, args)
	case "/stats":
		d.handleStats(ctx, ev)
	default:
		d.reply(ctx, ev.Room, d.cat.MustRender("bot.unknown", nil))
	}
}

func (d *Dispatcher) handleClear(ctx context.Context, ev *irisfast.Message) {
	unlock := d.userLocks.Lock(ev.SenderID)
	cleared := d.dialog.Clear(ev.SenderID)
	unlock()

	if cleared {
		d.reply(ctx, ev.Room, d.cat.MustRender("chat.cleared", nil))
		return
	}
	d.reply(ctx, ev.Room, d.cat.MustRender("chat.nothing_to_clear", nil))
}

func (d *Dispatcher) handleStart(ctx context.Context, ev *irisfast.Message) {
	snap, err := d.games.Start(ctx, ev.Room)
	if err != nil {
		if errors.Is(err, game.ErrAlreadyActive) {
			d.reply(ctx, ev.Room, d.cat.MustRender("game.already_active", nil))
			return
		}
		d.capabilityFailure(ctx, ev, "start", err)
		return
	}
	d.reply(ctx, ev.Room, d.cat.MustRender("game.started", map[string]any{
		"Board": snap.BoardText,
		"Turn":  sideLabel(snap.Turn),
	}))
}

func (d *Dispatcher) handleMove(ctx context.Context, ev *irisfast.Message, args []string) {
	if len(args) < 1 {
		d.reply(ctx, ev.Room, d.cat.MustRender("game.move_usage", nil))
		return
	}
	move := args[0]

	out, err := d.games.SubmitMove(ctx, ev.Room, move)
	if err != nil {
		var illegal *game.IllegalMoveError
		switch {
		case errors.Is(err, game.ErrNoActiveGame):
			d.reply(ctx, ev.Room, d.cat.MustRender("game.no_active", nil))
		case errors.As(err, &illegal):
			d.reply(ctx, ev.Room, d.cat.MustRender("game.illegal_move", map[string]any{"Move": illegal.Move}))
		default:
			d.capabilityFailure(ctx, ev, move, err)
		}
		return
	}

	data := map[string]any{
		"Board": out.BoardText,
		"SAN":   out.SAN,
		"Turn":  sideLabel(out.Turn),
	}
	if !out.Finished {
		d.reply(ctx, ev.Room, d.cat.MustRender("game.move", data))
		return
	}
	switch out.Result.Outcome {
	case game.OutcomeCheckmate:
		data["Winner"] = sideLabel(out.Result.Winner)
		d.reply(ctx, ev.Room, d.cat.MustRender("game.checkmate", data))
	case game.OutcomeStalemate:
		d.reply(ctx, ev.Room, d.cat.MustRender("game.stalemate", data))
	default:
		d.reply(ctx, ev.Room, d.cat.MustRender("game.draw", data))
	}
}

func (d *Dispatcher) handleBoard(ctx context.Context, ev *irisfast.Message) {
	snap, err := d.games.Board(ctx, ev.Room)
	if err != nil {
		d.reply(ctx, ev.Room, d.cat.MustRender("game.no_active", nil))
		return
	}
	d.reply(ctx, ev.Room, d.cat.MustRender("game.board", map[string]any{
		"Board":     snap.BoardText,
		"Turn":      sideLabel(snap.Turn),
		"MoveCount": snap.MoveCount,
	}))
}

func (d *Dispatcher) handleResign(ctx context.Context, ev *irisfast.Message) {
	snap, err := d.games.Stop(ctx, ev.Room)
	if err != nil {
		d.reply(ctx, ev.Room, d.cat.MustRender("game.no_active", nil))
		return
	}
	winner := game.White
	if snap.Turn == game.White {
		winner = game.Black
	}
	d.reply(ctx, ev.Room, d.cat.MustRender("game.resigned", map[string]any{
		"Loser":  sideLabel(snap.Turn),
		"Winner": sideLabel(winner),
	}))
}

func (d *Dispatcher) handleRecent(ctx context.Context, ev *irisfast.Message, args []string) {
	limit := 5
	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}

	var (
		results []*record.Result
		err     error
	)
	if d.cache != nil {
		results, err = d.cache.Recent(ctx, ev.Room, limit)
	}
	if (err != nil || len(results) == 0) && d.repo != nil {
		results, err = d.repo.RecentResults(ctx, ev.Room, limit)
	}
	if err != nil {
		d.capabilityFailure(ctx, ev, "recent", err)
		return
	}
	if len(results) == 0 {
		d.reply(ctx, ev.Room, d.cat.MustRender("recent.empty", nil))
		return
	}

	lines := []string{d.cat.MustRender("recent.header", nil)}
	for _, res := range results {
		lines = append(lines, d.cat.MustRender("recent.line", map[string]any{
			"When":    res.EndedAt.Format("01-02 15:04"),
			"Outcome": res.Outcome,
			"Winner":  titleCase(res.Winner),
			"Moves":   res.MoveCount,
		}))
	}
	d.reply(ctx, ev.Room, strings.Join(lines, "\n"))
}

func (d *Dispatcher) handleStats(ctx context.Context, ev *irisfast.Message) {
	if d.repo == nil {
		d.reply(ctx, ev.Room, d.cat.MustRender("stats.empty", nil))
		return
	}
	stats, err := d.repo.RoomStats(ctx, ev.Room)
	if err != nil {
		d.capabilityFailure(ctx, ev, "stats", err)
		return
	}
	if stats.Games == 0 {
		d.reply(ctx, ev.Room, d.cat.MustRender("stats.empty", nil))
		return
	}
	d.reply(ctx, ev.Room, d.cat.MustRender("stats.summary", map[string]any{
		"Games":        stats.Games,
		"Checkmates":   stats.Checkmates,
		"Stalemates":   stats.Stalemates,
		"Draws":        stats.Draws,
		"Resignations": stats.Resignations,
	}))
}

func (d *Dispatcher) capabilityFailure(ctx context.Context, ev *irisfast.Message, input string, err error) {
	d.logger.Error("capability_failed",
		zap.String("room", ev.Room),
		zap.String("user_id", ev.SenderID),
		zap.String("input", input),
		zap.Error(err),
	)
	d.reply(ctx, ev.Room, d.cat.MustRender("chat.failure", nil))
}

// reply sends a short catalog message; send errors are logged, never
// propagated.
func (d *Dispatcher) reply(ctx context.Context, room, text string) {
	if err := d.out.SendText(ctx, room, text); err != nil {
		d.logger.Error("reply_send_failed", zap.String("room", room), zap.Error(err))
	}
}

// deliver routes potentially oversized responses through the chunker.
func (d *Dispatcher) deliver(ctx context.Context, room, text string) {
	if err := d.chunker.Deliver(ctx, room, text); err != nil {
		d.logger.Error("deliver_failed", zap.String("room", room), zap.Error(err))
		d.reply(ctx, room, d.cat.MustRender("chat.failure", nil))
	}
}

// renderPrompt frames the remembered turns plus the new message the way the
// model expects them: one "<label>: <content>" line per turn, chronological.
// The model has no memory of its own; this blob is the whole conversation.
func renderPrompt(turns []dialog.Turn, next string) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(roleLabel(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	b.WriteString(roleLabel(dialog.RoleUser))
	b.WriteString(": ")
	b.WriteString(next)
	b.WriteByte('\n')
	return b.String()
}

func roleLabel(r dialog.Role) string {
	if r == dialog.RoleAssistant {
		return "AI"
	}
	return "User"
}

func sideLabel(c game.Color) string {
	if c == game.Black {
		return "Black"
	}
	return "White"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
