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

	"docbench.io/workbench/internal/api"
	"docbench.io/workbench/internal/config"
	"docbench.io/workbench/internal/core"
	"docbench.io/workbench/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize the session store. The default DSN is :memory:, so all
	// workbench state lives and dies with the process.
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer dbStore.Close()

	// Seed the LLM configuration from the environment when a key is
	// provided and the session does not have one yet.
	if config.AppConfig.GeminiAPIKey != "" {
		cfg, err := dbStore.GetLLMConfig()
		if err != nil {
			log.Fatalf("Failed to read LLM config: %v", err)
		}
		if cfg.APIKey == "" {
			providers := core.Providers()
			seeded := store.LLMConfig{
				Provider: providers[0].ID,
				Model:    providers[0].Models[0],
				APIKey:   config.AppConfig.GeminiAPIKey,
			}
			if err := dbStore.SetLLMConfig(&seeded); err != nil {
				log.Fatalf("Failed to seed LLM config: %v", err)
			}
			log.Printf("Seeded LLM config from environment (%s / %s)", seeded.Provider, seeded.Model)
		}
	}

	// Initialize the job orchestrator and API
	jobService := core.NewJobService(dbStore)
	apiHandler := api.NewAPIHandler(dbStore, jobService)
	router := api.NewRouter(apiHandler, config.AppConfig.CORSOrigins)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
