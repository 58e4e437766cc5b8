package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/logger"
	"github.com/agenthands/glyph/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Could not load %s: %v. Using default configuration", cfgPath, err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()
	srv, err := server.NewServer(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize server", "error", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Close(closeCtx); err != nil {
			zlog.Warn("failed to close backends", "error", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	zlog.Info("starting server", "port", port, "llm_provider", cfg.LLM.Provider)
	if err := srv.SetupRouter().Run(":" + port); err != nil {
		zlog.Fatal("server stopped", "error", err)
	}
}
