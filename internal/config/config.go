// Package config loads a replica's runtime configuration from the
// environment, generalizing the getenv/mustGetenv convention from the
// node bootstrap binary this module's cmd/replica is grounded on.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config is everything cmd/replica needs to construct a room.Room and
// its collaborators.
type Config struct {
	ReplicaID      string
	Listen         string
	BeatRateMs     time.Duration
	AliveThreshold time.Duration

	Transport string // "ws" or "redis"
	RedisAddr string

	Discover    bool
	DiscoverFor time.Duration

	BBoltPath   string // "" disables the dtlog
	PostgresURL string // "" disables the snapshot store
}

// Load reads Config from the environment, terminating the process if a
// required variable is missing.
func Load() Config {
	return Config{
		ReplicaID:      mustGetenv("REPLICA_ID"),
		Listen:         getenv("REPLICA_LISTEN", ":9090"),
		BeatRateMs:     durationMs(getenv("BEAT_RATE_MS", "500")),
		AliveThreshold: durationMs(getenv("ALIVE_THRESHOLD_MS", "3000")),
		Transport:      getenv("TRANSPORT", "ws"),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		Discover:       getenv("DISCOVER", "true") == "true",
		DiscoverFor:    durationMs(getenv("DISCOVER_WINDOW_MS", "3000")),
		BBoltPath:      getenv("BBOLT_PATH", ""),
		PostgresURL:    getenv("POSTGRES_URL", ""),
	}
}

func durationMs(s string) time.Duration {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("config: invalid duration %q: %v", s, err)
	}
	return time.Duration(n) * time.Millisecond
}

// getenv returns the environment variable k, or def if unset/empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// mustGetenv returns the environment variable k, terminating the
// process if it is unset or empty.
func mustGetenv(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	log.Fatalf("config: missing required env %s", k)
	return ""
}
