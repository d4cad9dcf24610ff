package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	HubAPIKey string

	// Storage
	DBPath string

	// Instantly sync
	InstantlyBaseURL string
	SyncWorkers      int
	SyncQueueSize    int
	SyncInterval     time.Duration
	JobTTL           time.Duration
	StatsWindow      time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Invitations
	InviteTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		HubAPIKey: os.Getenv("HUB_API_KEY"),

		DBPath: envOr("HUB_DB_PATH", "hub.db"),

		InstantlyBaseURL: os.Getenv("INSTANTLY_BASE_URL"),
		SyncWorkers:      envInt("SYNC_WORKERS", 2),
		SyncQueueSize:    envInt("SYNC_QUEUE_SIZE", 32),
		SyncInterval:     envDuration("SYNC_INTERVAL", 0),
		JobTTL:           envDuration("JOB_TTL", 1*time.Hour),
		StatsWindow:      envDuration("STATS_WINDOW", 1*time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		InviteTTL: envDuration("INVITE_TTL", 7*24*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.SyncWorkers <= 0 {
		cfg.SyncWorkers = 2
	}
	if cfg.SyncQueueSize <= 0 {
		cfg.SyncQueueSize = 32
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = 7 * 24 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.HubAPIKey == "" {
		return fmt.Errorf("HUB_API_KEY is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("HUB_DB_PATH is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
