package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subpipe/backend/internal/api"
	"github.com/subpipe/backend/internal/auth"
	"github.com/subpipe/backend/internal/config"
	"github.com/subpipe/backend/internal/db"
	"github.com/subpipe/backend/internal/pipeline"
	"github.com/subpipe/backend/internal/provider"
	"github.com/subpipe/backend/internal/watcher"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to ensure admin user: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret)

	manager := pipeline.NewManager(database, provider.Settings{
		GeminiAPIKey:    cfg.Providers.GeminiAPIKey,
		GeminiModel:     cfg.Providers.GeminiModel,
		OpenAIAPIKey:    cfg.Providers.OpenAIAPIKey,
		OpenAIModel:     cfg.Providers.OpenAIModel,
		AnthropicAPIKey: cfg.Providers.AnthropicAPIKey,
		AnthropicModel:  cfg.Providers.AnthropicModel,
		OllamaURL:       cfg.Providers.OllamaURL,
		OllamaModel:     cfg.Providers.OllamaModel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WatchDir != "" {
		w := watcher.New(cfg.WatchDir, cfg.Pipeline, manager)
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Watcher stopped: %v", err)
			}
		}()
	}

	router := api.NewRouter(cfg, database, jwtService, manager)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.Printf("Listening on :%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
