package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Broker stream
	BrokerWSURL string
	BrokerAppID string
	BrokerToken string

	// Market data defaults
	DefaultInstrument string
	PipDigits         int
	TimeframeSec      int
	CandleCap         int
	TickCap           int

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	ListenAddr    string
	WebhookURL    string

	// Console login (second factor for the session-check boundary)
	ConsoleUser       string
	ConsolePassword   string
	ConsoleTOTPSecret string
}

// Load reads configuration from a .env file (if present) and the
// environment, with sensible defaults for everything but the broker token.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	return &Config{
		BrokerWSURL: getEnv("BROKER_WS_URL", "wss://ws.derivws.com/websockets/v3"),
		BrokerAppID: getEnv("BROKER_APP_ID", "1089"),
		BrokerToken: mustEnv("BROKER_TOKEN"),

		DefaultInstrument: getEnv("INSTRUMENT", "R_100"),
		PipDigits:         getEnvInt("PIP_DIGITS", 2),
		TimeframeSec:      getEnvInt("TIMEFRAME_SEC", 60),
		CandleCap:         getEnvInt("CANDLE_CAP", 360),
		TickCap:           getEnvInt("TICK_CAP", 1400),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/ledger.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),

		ConsoleUser:       getEnv("CONSOLE_USER", "admin"),
		ConsolePassword:   getEnv("CONSOLE_PASSWORD", ""),
		ConsoleTOTPSecret: getEnv("CONSOLE_TOTP_SECRET", ""),
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid value for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
