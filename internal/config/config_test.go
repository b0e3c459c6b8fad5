package config

import "testing"

// TestDefaultsAreUsable checks the defaults produce a runnable server
func TestDefaultsAreUsable(t *testing.T) {
	cfg := Load()
	if cfg.Replication.TickRate <= 0 {
		t.Errorf("Expected positive tick rate, got %d", cfg.Replication.TickRate)
	}
	if cfg.Replication.ViewDistance <= 0 || cfg.Replication.WorldSize < cfg.Replication.ViewDistance {
		t.Errorf("Expected view distance inside the world, got %v of %v", cfg.Replication.ViewDistance, cfg.Replication.WorldSize)
	}
	if cfg.Server.Port == 0 {
		t.Error("Expected a default port")
	}
}

// TestReplicationFromEnv verifies environment overrides and ignored garbage
func TestReplicationFromEnv(t *testing.T) {
	t.Setenv("TICK_RATE", "20")
	t.Setenv("VIEW_DISTANCE", "250.5")
	t.Setenv("MAP_ID", "530")
	t.Setenv("QUEST_LOG_FULL_RESEND", "true")
	t.Setenv("MAX_PACKET_BYTES", "not-a-number")
	t.Setenv("JOURNAL_PATH", "/tmp/journal.jsonl")

	cfg := ReplicationFromEnv()
	if cfg.TickRate != 20 {
		t.Errorf("Expected tick rate 20, got %d", cfg.TickRate)
	}
	if cfg.ViewDistance != 250.5 {
		t.Errorf("Expected view distance 250.5, got %v", cfg.ViewDistance)
	}
	if cfg.MapID != 530 {
		t.Errorf("Expected map 530, got %d", cfg.MapID)
	}
	if !cfg.QuestLogFullResend {
		t.Error("Expected quest log full resend")
	}
	if cfg.MaxPacketBytes != DefaultReplication().MaxPacketBytes {
		t.Errorf("Expected invalid MAX_PACKET_BYTES to keep the default, got %d", cfg.MaxPacketBytes)
	}
	if cfg.JournalPath != "/tmp/journal.jsonl" {
		t.Errorf("Expected journal path, got %q", cfg.JournalPath)
	}
}

// TestDemoFromEnv verifies the demo can be disabled and resized
func TestDemoFromEnv(t *testing.T) {
	t.Setenv("DEMO_ENABLED", "false")
	t.Setenv("DEMO_CREATURES", "0")

	cfg := DemoFromEnv()
	if cfg.Enabled {
		t.Error("Expected demo disabled")
	}
	if cfg.Creatures != 0 {
		t.Errorf("Expected 0 creatures, got %d", cfg.Creatures)
	}
}
