package config

import (
	"strings"
	"time"
)

// Settings is the resolved console configuration.
type Settings struct {
	Port    string
	GinMode string

	LogLevel  string
	LogFormat string

	BackendURL     string
	BackendTimeout time.Duration

	// Single-script MP3 watch.
	MP3PollInterval    time.Duration
	MP3PollMaxAttempts int

	// Bulk MP3 watch.
	BulkPollInterval    time.Duration
	BulkPollMaxAttempts int

	// Delay before the forced reload that follows an MP3 deletion.
	ReconcileDelay time.Duration

	DisplayStatusInterval time.Duration
	DisplayStartGrace     time.Duration
	StatsRefreshInterval  time.Duration

	AlertDismissAfter time.Duration
	EmotionStylesFile string

	// Finished generation jobs older than this are pruned from the ledger.
	JobRetention time.Duration

	RateLimitPerMinute int
	MaxBodyKB          int
	AllowedOrigins     []string
}

// Load reads Settings from the environment.
func Load() Settings {
	return Settings{
		Port:      Get("PORT", "8000"),
		GinMode:   Get("GIN_MODE", ""),
		LogLevel:  Get("LOG_LEVEL", "info"),
		LogFormat: Get("LOG_FORMAT", "text"),

		BackendURL:     strings.TrimRight(Get("BACKEND_URL", "http://localhost:8000"), "/"),
		BackendTimeout: GetDuration("BACKEND_TIMEOUT", 30*time.Second),

		MP3PollInterval:    GetDuration("MP3_POLL_INTERVAL", time.Second),
		MP3PollMaxAttempts: GetInt("MP3_POLL_MAX_ATTEMPTS", 30),

		BulkPollInterval:    GetDuration("BULK_POLL_INTERVAL", 2*time.Second),
		BulkPollMaxAttempts: GetInt("BULK_POLL_MAX_ATTEMPTS", 60),

		ReconcileDelay: GetDuration("RECONCILE_DELAY", 500*time.Millisecond),

		DisplayStatusInterval: GetDuration("DISPLAY_STATUS_INTERVAL", 30*time.Second),
		DisplayStartGrace:     GetDuration("DISPLAY_START_GRACE", 2*time.Second),
		StatsRefreshInterval:  GetDuration("STATS_REFRESH_INTERVAL", time.Minute),

		AlertDismissAfter: GetDuration("ALERT_DISMISS_AFTER", 5*time.Second),
		EmotionStylesFile: Get("EMOTION_STYLES_FILE", ""),

		JobRetention: GetDuration("JOB_RETENTION", 30*24*time.Hour),

		RateLimitPerMinute: GetInt("CONSOLE_RATE_LIMIT_PER_MINUTE", 120),
		MaxBodyKB:          GetInt("CONSOLE_MAX_BODY_KB", 256),
		AllowedOrigins:     splitList(Get("CONSOLE_ALLOWED_ORIGINS", "")),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
