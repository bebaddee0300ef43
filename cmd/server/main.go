package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"textgen-backend/internal/api"
	"textgen-backend/internal/config"
	"textgen-backend/internal/core"
	"textgen-backend/internal/metrics"
	"textgen-backend/internal/store"
	"textgen-backend/internal/tts"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag for evidence ingestion
	ingestFlag := flag.Bool("ingest", false, "Ingest evidence facts from the evidence file and exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Provider client is built here and injected; a failure aborts startup.
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}
	defer client.Close()

	geminiService := core.NewGeminiService(client)

	// Handle evidence ingestion if flag is set
	if *ingestFlag {
		log.Println("Starting evidence ingestion process...")
		numIngested, err := dbStore.IngestEvidenceFromFile(config.AppConfig.EvidenceFile, func(text string) ([]float32, error) {
			return geminiService.GetEmbedding(ctx, text)
		})
		if err != nil {
			log.Fatalf("Evidence ingestion failed: %v", err)
		}
		log.Printf("Evidence ingestion complete. Ingested %d chunks. Exiting.", numIngested)
		os.Exit(0)
	}

	// Initialize services
	evidenceService, err := core.NewEvidenceService(dbStore, geminiService)
	if err != nil {
		log.Fatalf("Failed to initialize evidence service: %v", err)
	}
	chatService := core.NewChatService(dbStore, geminiService, evidenceService)
	userService := core.NewUserService(dbStore)
	collector := metrics.NewCollector()
	speechClient := tts.NewClient()

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(userService, chatService, geminiService, speechClient, collector)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // Generation calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
