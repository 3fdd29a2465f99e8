package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"shortreel/assets"
	"shortreel/config"
	"shortreel/engine"
	"shortreel/pipeline"
	"shortreel/script"
	"shortreel/server"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
		} else {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	scripts, err := script.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create script client: %v", err)
	}

	pipe := pipeline.New(cfg, scripts, assets.NewResolver(cfg), func() engine.Engine {
		return engine.NewLocal()
	})

	srv := server.New(cfg, pipe)
	log.Printf("🎬 shortreel API listening on %s", cfg.Server.Addr)
	if err := srv.Router().Run(cfg.Server.Addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
