// Package config loads the coordinator's startup configuration from the
// environment, applying the defaults named in spec §6.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the coordinator reads at startup. All fields
// are optional; zero values are replaced by Load with the documented
// defaults.
type Config struct {
	// ListenAddr is the coordinator's own HTTP ingress/snapshot/query listen
	// address (spec §6 external interfaces).
	ListenAddr string
	// GatewayURL is the gateway's base RPC endpoint.
	GatewayURL string
	// ServiceURLs maps a back-end tag (event-manager, rsvp, guild-manager,
	// photo-vibe-check, vibe-canvas) to its resolved URL.
	ServiceURLs map[string]string
	// GuildDataRoot is the filesystem root under which per-guild state lives.
	GuildDataRoot string
	// IngressRateLimitPerMinute caps Task Manager submissions per 60s window.
	IngressRateLimitPerMinute int
	// RecursionLimit bounds agent graph node transitions per task.
	RecursionLimit int
	// SnapshotPollInterval is how often the chat adapter polls agent state.
	SnapshotPollInterval time.Duration
	// ModelAPIKey authenticates language-model calls (reasoning, vibe-check).
	ModelAPIKey string
	// Debug enables verbose logging and relaxes gateway auth in dev mode.
	Debug bool
	// QueueSoftCeiling is the Task Manager's back-pressure threshold (§5).
	QueueSoftCeiling int
	// TaskCompletionTimeout bounds how long a worker waits for a task's
	// Lifecycle to reach a final status before marking it abandoned.
	TaskCompletionTimeout time.Duration
	// LifecycleAbandonAge is loaded from TLT_LIFECYCLE_ABANDON_AGE. No
	// component reads it: an unfinished Lifecycle is not abandoned on age.
	LifecycleAbandonAge time.Duration
	// PhotoSubmissionMinInterval is loaded from TLT_PHOTO_SUBMIT_MIN_INTERVAL.
	// No component reads it: vibe-check photo submissions are not limited
	// per user and event.
	PhotoSubmissionMinInterval time.Duration
}

// defaultServiceURLs mirrors the back-end registry named informally in
// spec §4.7.
func defaultServiceURLs() map[string]string {
	return map[string]string{
		"event-manager":     "http://localhost:8010",
		"rsvp":              "http://localhost:8011",
		"guild-manager":     "http://localhost:8012",
		"photo-vibe-check":  "http://localhost:8013",
		"vibe-canvas":       "http://localhost:8014",
	}
}

// Load reads configuration from the environment, filling unset values with
// the defaults from spec §6.
func Load() Config {
	c := Config{
		ListenAddr:                 getenv("TLT_LISTEN_ADDR", ":8080"),
		GatewayURL:                 getenv("TLT_GATEWAY_URL", "http://localhost:8003/mcp/"),
		ServiceURLs:                defaultServiceURLs(),
		GuildDataRoot:              getenv("TLT_GUILD_DATA_ROOT", "./guild_data"),
		IngressRateLimitPerMinute:  getenvInt("TLT_RATE_LIMIT_PER_MINUTE", 30),
		RecursionLimit:             getenvInt("TLT_RECURSION_LIMIT", 500),
		SnapshotPollInterval:       getenvDuration("TLT_SNAPSHOT_POLL_INTERVAL", 30*time.Second),
		ModelAPIKey:                os.Getenv("TLT_MODEL_API_KEY"),
		Debug:                      getenvBool("TLT_DEBUG", false),
		QueueSoftCeiling:           getenvInt("TLT_QUEUE_SOFT_CEILING", 100),
		TaskCompletionTimeout:      getenvDuration("TLT_TASK_COMPLETION_TIMEOUT", 500*time.Second),
		LifecycleAbandonAge:        getenvDuration("TLT_LIFECYCLE_ABANDON_AGE", 30*time.Minute),
		PhotoSubmissionMinInterval: getenvDuration("TLT_PHOTO_SUBMIT_MIN_INTERVAL", time.Hour),
	}
	for _, tag := range []string{"event-manager", "rsvp", "guild-manager", "photo-vibe-check", "vibe-canvas"} {
		if v := os.Getenv("TLT_SERVICE_URL_" + tag); v != "" {
			c.ServiceURLs[tag] = v
		}
	}
	return c
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
