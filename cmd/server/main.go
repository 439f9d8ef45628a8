package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runeterra-roulette/backend/internal/api"
	"github.com/runeterra-roulette/backend/internal/config"
	"github.com/runeterra-roulette/backend/internal/database"
	"github.com/runeterra-roulette/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	policy, err := database.ParseEmptyFilterPolicy(cfg.EmptyFilterPolicy)
	if err != nil {
		log.Fatalf("Invalid EMPTY_FILTER_POLICY: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	store, err := database.Open(ctx, database.Options{
		Driver:       cfg.DBDriver,
		MongoURI:     cfg.MongoURI,
		MongoDBName:  cfg.MongoDatabase,
		SQLitePath:   cfg.DBPath,
		EmptyFilter:  policy,
		StoreTimeout: cfg.StoreTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	cardService := services.NewCardQueryService(store, cfg.Ingest.AssetBaseURL, cfg.VersionCacheTTL)

	router := api.SetupRouter(cardService, cfg.CORSAllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s (%s store)", cfg.Port, cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Printf("Failed to close database: %v", err)
	}

	log.Println("Server exited")
}
