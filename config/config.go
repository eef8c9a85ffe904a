package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// GameMode describes one kind of game the external engine can host and the
// endpoints the orchestrator uses to drive it. A tournament in this mode
// fields TeamCount teams of TeamSize players; every individual game is a
// contest between two of those teams, labelled with TeamNames on the wire.
type GameMode struct {
	Name        string
	ServiceName string
	TeamSize    int
	TeamCount   int
	TeamNames   [2]string
	Modifiers   []string

	NewGameURL   string
	AbortGameURL string
	// WebsocketURL is the base the engine listens on for the admin bridge;
	// the full URL is <WebsocketURL>/<gameID>/<adminID>/.
	WebsocketURL string
}

// PlayersPerGame is the roster size of a single two-team game in this mode.
func (m GameMode) PlayersPerGame() int {
	return m.TeamSize * 2
}

// RosterSize is the expected player count of a tournament room.
func (m GameMode) RosterSize() int {
	return m.TeamCount * m.TeamSize
}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	AIServiceURL string
	GameModes    map[string]GameMode

	TickInterval    time.Duration
	MatchCooldown   int
	ShutdownTimeout time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
	ArchiveEnabled    bool
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	engineBase := strings.TrimRight(envOrDefault("GAME_ENGINE_URL", "http://game-engine:8000"), "/")
	engineWS := strings.TrimRight(envOrDefault("GAME_ENGINE_WS_URL", "ws://game-engine:8000/ws"), "/")
	aiURL := envOrDefault("AI_SERVICE_URL", "http://ia:8000/api/ia/create_ia/")

	cooldown, err := intEnv("MATCH_COOLDOWN_SECONDS", 5)
	if err != nil {
		return nil, err
	}

	tickMs, err := intEnv("TICK_INTERVAL_MS", 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:     dbURL,
		JWTSecretKey:    jwtKey,
		ServerPort:      port,
		AIServiceURL:    aiURL,
		GameModes:       DefaultGameModes(engineBase, engineWS),
		TickInterval:    time.Duration(tickMs) * time.Millisecond,
		MatchCooldown:   cooldown,
		ShutdownTimeout: 15 * time.Second,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}
	cfg.ArchiveEnabled = cfg.R2AccountID != "" && cfg.R2AccessKeyID != "" &&
		cfg.R2SecretAccessKey != "" && cfg.R2BucketName != "" && cfg.R2PublicBaseURL != ""

	return cfg, nil
}

// DefaultGameModes builds the mode registry against the given engine
// endpoints. Mode metadata (team shape, modifiers) is fixed; only the
// engine location comes from the environment.
func DefaultGameModes(engineBase, engineWS string) map[string]GameMode {
	modes := []GameMode{
		{
			Name:        "pong",
			ServiceName: "pong",
			TeamSize:    1,
			TeamCount:   4,
			TeamNames:   [2]string{"left", "right"},
			Modifiers:   []string{"invisibility", "shrink", "so_long"},
		},
		{
			Name:        "pong_duo",
			ServiceName: "pong",
			TeamSize:    2,
			TeamCount:   4,
			TeamNames:   [2]string{"left", "right"},
			Modifiers:   []string{"invisibility", "shrink", "so_long"},
		},
	}

	out := make(map[string]GameMode, len(modes))
	for _, m := range modes {
		m.NewGameURL = fmt.Sprintf("%s/api/%s/new_game/", engineBase, m.ServiceName)
		m.AbortGameURL = fmt.Sprintf("%s/api/%s/abort_game/", engineBase, m.ServiceName)
		m.WebsocketURL = fmt.Sprintf("%s/%s", engineWS, m.ServiceName)
		out[m.Name] = m
	}
	return out
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}
