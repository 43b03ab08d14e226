package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/plumchat/sage-bot/internal/chunk"
	appcfg "github.com/plumchat/sage-bot/internal/config"
	"github.com/plumchat/sage-bot/internal/dialog"
	"github.com/plumchat/sage-bot/internal/dispatch"
	"github.com/plumchat/sage-bot/internal/game"
	"github.com/plumchat/sage-bot/internal/gate"
	"github.com/plumchat/sage-bot/internal/genai"
	"github.com/plumchat/sage-bot/internal/irisfast"
	"github.com/plumchat/sage-bot/internal/msgcat"
	"github.com/plumchat/sage-bot/internal/obslog"
	"github.com/plumchat/sage-bot/internal/record"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}
	logger := obslog.L()

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		logger.Fatal("message catalog error", zap.Error(err))
	}

	client := irisfast.NewClient(cfg.IrisBaseURL)
	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", string(state)))
	})

	gen := genai.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)

	// Finished-game records: database when configured, in-memory otherwise;
	// the redis cache is optional on top.
	var repo record.Repository
	if cfg.DatabaseURL != "" {
		repo, err = record.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("record repository error", zap.Error(err))
		}
	} else {
		repo = record.NewMemoryRepository()
		logger.Warn("no DATABASE_URL configured, game records are in-memory only")
	}
	var cache *record.Cache
	if cfg.RedisURL != "" {
		cache, err = record.NewCache(cfg.RedisURL)
		if err != nil {
			logger.Fatal("record cache error", zap.Error(err))
		}
	}

	games := game.NewManager(game.NewChessEngine(), logger)
	games.AttachSink(record.NewRecorder(repo, cache, logger))

	dispatcher := dispatch.New(dispatch.Deps{
		Handle:  cfg.BotHandle,
		Gate:    gate.New(cfg.BotHandle, cfg.BotID),
		Dialog:  dialog.NewStore(cfg.HistoryLimit),
		Games:   games,
		Gen:     gen,
		Out:     client,
		Chunker: chunk.New(client, cfg.MessageLimit, "response.txt", cat.MustRender("chat.file_caption", nil)),
		Catalog: cat,
		Repo:    repo,
		Cache:   cache,
		Logger:  logger,
	})

	ws.OnMessage(func(msg *irisfast.Message) {
		if msg == nil {
			return
		}
		if len(cfg.AllowedRooms) > 0 && !roomAllowed(cfg.AllowedRooms, msg.Room) {
			return
		}
		// One goroutine per event; same-key serialization lives in the
		// stores, not in the WS loop.
		go dispatcher.Handle(context.Background(), msg)
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = ws.Connect(cctx)
	cancel()
	if err != nil {
		logger.Fatal("ws connect error", zap.Error(err))
	}
	logger.Info("sage-bot started", zap.String("model", cfg.GeminiModel), zap.String("handle", cfg.BotHandle))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = ws.Close(context.Background())
	_ = cache.Close()
}

func roomAllowed(allowed []string, room string) bool {
	for _, r := range allowed {
		if r == room {
			return true
		}
	}
	return false
}
