// Package config provides centralized configuration management.
// Every tunable of the replication server is declared here with its
// default and its environment override.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	MaxObservers int // Hard cap on connected websocket observers
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		MaxObservers: 200,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mo := getEnvInt("MAX_OBSERVERS", 0); mo > 0 {
		cfg.MaxObservers = mo
	}

	return cfg
}

// =============================================================================
// REPLICATION CONFIGURATION
// =============================================================================

// ReplicationConfig controls the synchronization tick.
type ReplicationConfig struct {
	TickRate           int     // Synchronization ticks per second
	ViewDistance       float32 // Interest radius around each observer, world units
	WorldSize          float32 // Side of the square map, world units
	MapID              uint32
	QuestLogFullResend bool // Resend whole quest log entries instead of precise diffs
	MaxPacketBytes     int  // Block bytes after which a packet is flushed early
	JournalPath        string
}

// DefaultReplication returns the default replication configuration.
func DefaultReplication() ReplicationConfig {
	return ReplicationConfig{
		TickRate:       10,
		ViewDistance:   100,
		WorldSize:      2000,
		MapID:          0,
		MaxPacketBytes: 64 * 1024,
	}
}

// ReplicationFromEnv returns replication configuration with environment overrides.
func ReplicationFromEnv() ReplicationConfig {
	cfg := DefaultReplication()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if vd := getEnvFloat("VIEW_DISTANCE", 0); vd > 0 {
		cfg.ViewDistance = float32(vd)
	}
	if ws := getEnvFloat("WORLD_SIZE", 0); ws > 0 {
		cfg.WorldSize = float32(ws)
	}
	if m := getEnvInt("MAP_ID", -1); m >= 0 {
		cfg.MapID = uint32(m)
	}
	if os.Getenv("QUEST_LOG_FULL_RESEND") == "true" {
		cfg.QuestLogFullResend = true
	}
	if mp := getEnvInt("MAX_PACKET_BYTES", 0); mp > 0 {
		cfg.MaxPacketBytes = mp
	}
	cfg.JournalPath = os.Getenv("JOURNAL_PATH")

	return cfg
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig controls the debug server (metrics + pprof).
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // MUST stay on localhost in production
	Profile    string // "cpu" or "mem" enables process profiling
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// ObservabilityFromEnv returns observability configuration with environment overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.Profile = os.Getenv("PROFILE")

	return cfg
}

// =============================================================================
// DEMO CONFIGURATION
// =============================================================================

// DemoConfig sizes the built-in simulation that keeps fields changing.
type DemoConfig struct {
	Enabled   bool
	Creatures int
	Seed      int64
}

// DefaultDemo returns the default demo configuration.
func DefaultDemo() DemoConfig {
	return DemoConfig{
		Enabled:   true,
		Creatures: 50,
		Seed:      1,
	}
}

// DemoFromEnv returns demo configuration with environment overrides.
func DemoFromEnv() DemoConfig {
	cfg := DefaultDemo()

	if os.Getenv("DEMO_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if c := getEnvInt("DEMO_CREATURES", -1); c >= 0 {
		cfg.Creatures = c
	}
	if s := getEnvInt("DEMO_SEED", 0); s != 0 {
		cfg.Seed = int64(s)
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server        ServerConfig
	Replication   ReplicationConfig
	Observability ObservabilityConfig
	Demo          DemoConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:        ServerFromEnv(),
		Replication:   ReplicationFromEnv(),
		Observability: ObservabilityFromEnv(),
		Demo:          DemoFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
