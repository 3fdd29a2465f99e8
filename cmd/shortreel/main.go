package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"shortreel/assets"
	"shortreel/config"
	"shortreel/engine"
	"shortreel/pipeline"
	"shortreel/script"
	"shortreel/types"
	"shortreel/upload"
)

func main() {
	// Load .env (local dev only)
	_ = godotenv.Load()

	var (
		topic      = flag.String("topic", "", "topic to build a video about")
		configPath = flag.String("config", "config.yaml", "path to config file")
		outPath    = flag.String("out", "output.mp4", "where to write the final video")
	)
	flag.Parse()

	if *topic == "" {
		log.Fatal("usage: shortreel -topic \"...\" [-config config.yaml] [-out output.mp4]")
	}

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

	log.Printf("🎬 building video for topic %q", *topic)

	lastLogged := -10
	result, err := pipe.Run(context.Background(), *topic, func(u types.Update) {
		// Log every 10% plus every phase change
		if u.Percent >= lastLogged+10 || u.Phase.Terminal() {
			lastLogged = u.Percent
			log.Printf("[pipeline] %3d%% (%s)", u.Percent, u.Phase)
		}
	})
	if err != nil {
		log.Fatalf("❌ pipeline failed (phase %s): %v", pipeline.FailedPhase(err), err)
	}

	if err := os.WriteFile(*outPath, result.Data, 0644); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	log.Printf("✅ done: %s (%d bytes, %.1fs)", *outPath,
		result.Summary.OutputSizeBytes, result.Summary.ProcessingTimeSeconds)

	if cfg.Upload.Enabled {
		id, url, err := upload.New(cfg).Run(context.Background(), result.Data, *topic)
		if err != nil {
			log.Fatalf("Upload failed: %v", err)
		}
		log.Printf("📺 published %s: %s", id, url)
	}
}
