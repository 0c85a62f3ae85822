package main

import (
	"flag"
	"log"
	"os"

	"RWAPrice/internal/di"
	"RWAPrice/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present (local development)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s embedding=%s model=%s", cfg.Environment, cfg.Embedding.Provider, cfg.Generation.Model)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.Audit.Enabled {
		log.Printf("clickhouse: connected and schema ready - db: %s", cfg.Audit.ClickHouse.Database)
	}
	if cfg.KafkaEnabled() {
		log.Printf("kafka: connected brokers=%v signals=%s observations=%s", cfg.Kafka.Brokers, cfg.Kafka.SignalsTopic, cfg.Kafka.ObservationsTopic)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
