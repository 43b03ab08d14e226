package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string

	// BotHandle is the mention token that wakes the bot in group rooms,
	// e.g. "@sage". BotID is the gateway sender id of the bot itself, used
	// to detect replies to the bot's own messages.
	BotHandle string
	BotID     string

	GeminiBaseURL string
	GeminiAPIKey  string
	GeminiModel   string

	RedisURL    string
	DatabaseURL string

	HistoryLimit int
	MessageLimit int

	AllowedRooms []string

	MessageDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		GeminiBaseURL: "https://generativelanguage.googleapis.com",
		GeminiModel:   "gemini-2.5-flash",
		HistoryLimit:  10,
		MessageLimit:  4000,
	}

	cfg.IrisBaseURL = strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	cfg.IrisWSURL = strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	cfg.BotHandle = strings.TrimSpace(os.Getenv("BOT_HANDLE"))
	cfg.BotID = strings.TrimSpace(os.Getenv("BOT_ID"))

	if v := strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")); v != "" {
		cfg.GeminiBaseURL = v
	}
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); v != "" {
		cfg.GeminiModel = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGE_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MessageLimit = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ROOMS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedRooms = append(cfg.AllowedRooms, s)
			}
		}
	}

	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	if cfg.IrisBaseURL == "" {
		return nil, errors.New("IRIS_BASE_URL is required")
	}
	if cfg.IrisWSURL == "" {
		return nil, errors.New("IRIS_WS_URL is required")
	}
	if cfg.BotHandle == "" {
		return nil, errors.New("BOT_HANDLE is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}

	return cfg, nil
}
