package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr        string
	Dev               bool
	ArchiveDSN        string
	LogoByteLimit     int
	PingInterval      time.Duration
	StaleMultiplier   int
	HandshakeTimeout  time.Duration
	MaxAttempts       int
	RetryBackoff      time.Duration
	PresentationDelay time.Duration
}

// Load reads configuration from the environment, with a best-effort .env
// file for local development. Every knob has a sane default; only the
// archive DSN is genuinely optional.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		Dev:               getBool("DEV", false),
		ArchiveDSN:        getEnv("ARCHIVE_DSN", ""),
		LogoByteLimit:     getInt("LOGO_BYTE_LIMIT", 8*1024),
		PingInterval:      getDuration("PING_INTERVAL", 5*time.Second),
		StaleMultiplier:   getInt("STALE_MULTIPLIER", 3),
		HandshakeTimeout:  getDuration("HANDSHAKE_TIMEOUT", 5*time.Second),
		MaxAttempts:       getInt("CONNECT_MAX_ATTEMPTS", 3),
		RetryBackoff:      getDuration("CONNECT_RETRY_BACKOFF", time.Second),
		PresentationDelay: getDuration("PRESENTATION_DELAY", 4*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
