package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fieldsync/internal/api"
	"fieldsync/internal/config"
	"fieldsync/internal/demo"
	"fieldsync/internal/replication"
	"fieldsync/internal/visibility"

	"github.com/joho/godotenv"
	"github.com/pkg/profile"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🌐 ================================")
	log.Println("🌐  FIELDSYNC - REPLICATION SERVER")
	log.Println("🌐 ================================")

	appConfig := config.Load()
	serverCfg := appConfig.Server
	replCfg := appConfig.Replication

	switch appConfig.Observability.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	port := strconv.Itoa(serverCfg.Port)

	log.Printf("🎮 Config: %d TPS, view distance %.0f, map %d, world %.0f", replCfg.TickRate, replCfg.ViewDistance, replCfg.MapID, replCfg.WorldSize)
	if replCfg.QuestLogFullResend {
		log.Println("📜 Quest log entries are resent in full")
	}

	world := replication.NewWorld(replCfg, visibility.DefaultStore())

	var sim *demo.Simulation
	if appConfig.Demo.Enabled {
		sim = demo.New(world, appConfig.Demo, replCfg)
		if err := sim.Populate(); err != nil {
			log.Fatalf("Failed to populate demo: %v", err)
		}
		log.Printf("✅ Demo populated (%d creatures, seed %d)", appConfig.Demo.Creatures, appConfig.Demo.Seed)
	}

	if err := world.Start(); err != nil {
		log.Fatalf("Failed to start world: %v", err)
	}
	if sim != nil {
		sim.Start()
	}

	if err := api.StartDebugServer(appConfig.Observability); err != nil {
		log.Printf("⚠️ Debug server not started: %v", err)
	}

	server := api.NewServer(world, serverCfg, replCfg.ViewDistance)

	// Start API server in goroutine
	go func() {
		addr := ":" + port
		log.Printf("🌐 API server on http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	if sim != nil {
		sim.Stop()
	}
	world.Stop()
	log.Println("👋 Goodbye!")
}
