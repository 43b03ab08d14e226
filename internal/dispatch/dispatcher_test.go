package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plumchat/sage-bot/internal/chunk"
	"github.com/plumchat/sage-bot/internal/dialog"
	"github.com/plumchat/sage-bot/internal/game"
	"github.com/plumchat/sage-bot/internal/gate"
	"github.com/plumchat/sage-bot/internal/irisfast"
	"github.com/plumchat/sage-bot/internal/msgcat"
	"github.com/plumchat/sage-bot/internal/record"
)

type fakeOut struct {
	mu    sync.Mutex
	texts []string
	files []string
}

func (f *fakeOut) SendText(ctx context.Context, room, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeOut) SendFile(ctx context.Context, room string, data []byte, name, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, string(data))
	return nil
}

func (f *fakeOut) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.texts, "expected at least one outbound text")
	return f.texts[len(f.texts)-1]
}

func (f *fakeOut) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts) + len(f.files)
}

type fakeGen struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type harness struct {
	d      *Dispatcher
	out    *fakeOut
	gen    *fakeGen
	dialog *dialog.Store
	repo   record.Repository
	cat    *msgcat.Catalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := msgcat.New("")
	require.NoError(t, err)

	out := &fakeOut{}
	gen := &fakeGen{reply: "generated reply"}
	store := dialog.NewStore(dialog.DefaultLimit)
	repo := record.NewMemoryRepository()

	d := New(Deps{
		Handle:  "@sage",
		Gate:    gate.New("@sage", "bot-1"),
		Dialog:  store,
		Games:   game.NewManager(game.NewChessEngine(), nil),
		Gen:     gen,
		Out:     out,
		Chunker: chunk.New(out, chunk.DefaultLimit, "response.txt", ""),
		Catalog: cat,
		Repo:    repo,
	})
	return &harness{d: d, out: out, gen: gen, dialog: store, repo: repo, cat: cat}
}

func directMsg(text string) *irisfast.Message {
	return &irisfast.Message{
		Room:     "room-1",
		Sender:   "Ada",
		SenderID: "user-1",
		ChatType: irisfast.ChatDirect,
		Msg:      text,
	}
}

func TestChatAppendsUserAndAssistantTurns(t *testing.T) {
	h := newHarness(t)
	h.d.Handle(context.Background(), directMsg("hello"))

	require.Equal(t, "generated reply", h.out.lastText(t))

	turns := h.dialog.Context("user-1")
	require.Len(t, turns, 2)
	require.Equal(t, dialog.Turn{Role: dialog.RoleUser, Content: "hello"}, turns[0])
	require.Equal(t, dialog.Turn{Role: dialog.RoleAssistant, Content: "generated reply"}, turns[1])
}

func TestChatPromptCarriesHistory(t *testing.T) {
	h := newHarness(t)
	h.dialog.Append("user-1", dialog.RoleUser, "first question")
	h.dialog.Append("user-1", dialog.RoleAssistant, "first answer")

	h.d.Handle(context.Background(), directMsg("second question"))

	require.Len(t, h.gen.prompts, 1)
	require.Equal(t,
		"User: first question\nAI: first answer\nUser: second question\n",
		h.gen.prompts[0])
}

func TestChatGenerateFailureLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t)
	h.dialog.Append("user-1", dialog.RoleUser, "earlier")
	h.dialog.Append("user-1", dialog.RoleAssistant, "earlier answer")
	before := h.dialog.Context("user-1")

	h.gen.err = errors.New("upstream unavailable")
	h.d.Handle(context.Background(), directMsg("doomed message"))

	require.Equal(t, h.cat.MustRender("chat.failure", nil), h.out.lastText(t))
	require.Equal(t, before, h.dialog.Context("user-1"),
		"a failed generation must not leave a trace in the session")
}

func TestEmptyAndPhotoInputs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, directMsg("   "))
	require.Equal(t, h.cat.MustRender("chat.empty_input", nil), h.out.lastText(t))

	ev := directMsg("")
	ev.Photo = "base64-bytes"
	h.d.Handle(ctx, ev)
	require.Equal(t, h.cat.MustRender("chat.photo_unsupported", nil), h.out.lastText(t))

	require.Empty(t, h.dialog.Context("user-1"))
}

func TestGroupMessageWithoutMentionIsDropped(t *testing.T) {
	h := newHarness(t)
	ev := &irisfast.Message{
		Room:     "room-1",
		SenderID: "user-1",
		ChatType: irisfast.ChatGroup,
		Msg:      "just people talking",
	}
	h.d.Handle(context.Background(), ev)
	require.Zero(t, h.out.sendCount(), "unaddressed group traffic must be silent")
}

func TestClearCommand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, directMsg("/clear"))
	require.Equal(t, h.cat.MustRender("chat.nothing_to_clear", nil), h.out.lastText(t))

	h.dialog.Append("user-1", dialog.RoleUser, "remember me")
	h.d.Handle(ctx, directMsg("/clear"))
	require.Equal(t, h.cat.MustRender("chat.cleared", nil), h.out.lastText(t))
	require.Empty(t, h.dialog.Context("user-1"))
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	h.d.Handle(context.Background(), directMsg("/frobnicate"))
	require.Equal(t, h.cat.MustRender("bot.unknown", nil), h.out.lastText(t))
}

func TestChessCommandFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, directMsg("/move e4"))
	require.Equal(t, h.cat.MustRender("game.no_active", nil), h.out.lastText(t))

	h.d.Handle(ctx, directMsg("/chess"))
	require.Contains(t, h.out.lastText(t), "a b c d e f g h")

	h.d.Handle(ctx, directMsg("/chess"))
	require.Equal(t, h.cat.MustRender("game.already_active", nil), h.out.lastText(t))

	h.d.Handle(ctx, directMsg("/move"))
	require.Equal(t, h.cat.MustRender("game.move_usage", nil), h.out.lastText(t))

	h.d.Handle(ctx, directMsg("/move Qh7"))
	require.Contains(t, h.out.lastText(t), "Qh7")

	h.d.Handle(ctx, directMsg("/move e4"))
	require.Contains(t, h.out.lastText(t), "e4")

	h.d.Handle(ctx, directMsg("/board"))
	require.Contains(t, h.out.lastText(t), "a b c d e f g h")

	h.d.Handle(ctx, directMsg("/resign"))
	resigned := h.out.lastText(t)
	require.Contains(t, resigned, "Black")
	require.Contains(t, resigned, "White")

	h.d.Handle(ctx, directMsg("/board"))
	require.Equal(t, h.cat.MustRender("game.no_active", nil), h.out.lastText(t))
}

func TestCheckmateEndsAndRecordsGame(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// The manager needs a sink wired through the recorder for this path.
	games := game.NewManager(game.NewChessEngine(), nil)
	games.AttachSink(record.NewRecorder(h.repo, nil, nil))
	h.d.games = games

	h.d.Handle(ctx, directMsg("/chess"))
	for _, mv := range []string{"f3", "e5", "g4", "Qh4#"} {
		h.d.Handle(ctx, directMsg("/move "+mv))
	}
	require.Contains(t, h.out.lastText(t), "Black")

	h.d.Handle(ctx, directMsg("/move a3"))
	require.Equal(t, h.cat.MustRender("game.no_active", nil), h.out.lastText(t))

	stats, err := h.repo.RoomStats(ctx, "room-1")
	require.NoError(t, err)
	require.Equal(t, 1, stats.Games)
	require.Equal(t, 1, stats.Checkmates)
}

func TestRecentAndStatsCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.Handle(ctx, directMsg("/recent"))
	require.Equal(t, h.cat.MustRender("recent.empty", nil), h.out.lastText(t))
	h.d.Handle(ctx, directMsg("/stats"))
	require.Equal(t, h.cat.MustRender("stats.empty", nil), h.out.lastText(t))

	require.NoError(t, h.repo.InsertResult(ctx, &record.Result{
		ID: "g1", Room: "room-1", Outcome: "checkmate", Winner: "white", MoveCount: 4,
	}))

	h.d.Handle(ctx, directMsg("/recent"))
	require.Contains(t, h.out.lastText(t), "checkmate")

	h.d.Handle(ctx, directMsg("/stats"))
	require.Contains(t, h.out.lastText(t), "1")
}

func TestLongReplyIsChunked(t *testing.T) {
	h := newHarness(t)
	h.gen.reply = strings.Repeat("x", chunk.DefaultLimit*2+10)

	h.d.Handle(context.Background(), directMsg("write me an essay"))

	require.Len(t, h.out.texts, 3)
	require.Equal(t, h.gen.reply, strings.Join(h.out.texts, ""))
	require.Empty(t, h.out.files)
}
