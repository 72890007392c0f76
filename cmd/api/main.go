// Package main is the entry point for the gateway server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/inkwell-ai/ocr-gateway/internal/config"
	"github.com/inkwell-ai/ocr-gateway/internal/handler"
	"github.com/inkwell-ai/ocr-gateway/internal/middleware"
	"github.com/inkwell-ai/ocr-gateway/internal/ollama"
	"github.com/inkwell-ai/ocr-gateway/internal/service"
	"github.com/inkwell-ai/ocr-gateway/pkg/logger"
	"github.com/inkwell-ai/ocr-gateway/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting gateway server", zap.String("ollama_url", cfg.OllamaBaseURL))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "ocr-gateway", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Inference daemon client and model availability manager
	daemon := ollama.NewHTTPClient(cfg.OllamaBaseURL, cfg.TagsTimeout, log)
	ensurer := ollama.NewEnsurer(daemon, cfg.ProbeTimeout, cfg.PullTimeout, log)

	// Conversation history store
	store := service.NewMemoryStore(cfg.ConversationTTL)
	defer store.Close()

	// Initialize services
	chatSvc := service.NewChatService(daemon, ensurer, store, cfg.ChatTimeout, log)
	ocrSvc := service.NewOCRService(service.NewTesseractEngine(cfg.TessdataPrefix), cfg.OCRMaxUploadBytes, log)
	analysisSvc := service.NewAnalysisService(daemon, cfg.VisionTimeout, cfg.DefaultVisionModel, cfg.VisionMaxUploadBytes, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(daemon)
	chatHandler := handler.NewChatHandler(chatSvc, cfg.DefaultChatModel, log)
	ocrHandler := handler.NewOCRHandler(ocrSvc, log)
	analysisHandler := handler.NewAnalysisHandler(analysisSvc, daemon, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/ocr", func(r chi.Router) {
			r.Post("/extract", ocrHandler.Extract)
			r.Get("/formats", ocrHandler.Formats)
			r.Get("/health", ocrHandler.Health)
		})

		r.Route("/ai", func(r chi.Router) {
			r.Post("/analyze", analysisHandler.Analyze)
			r.Post("/analyze-custom", analysisHandler.AnalyzeCustom)
			r.Get("/models", analysisHandler.Models)
			r.Get("/health", analysisHandler.Health)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/message", chatHandler.Message)
			r.Post("/stream", chatHandler.Stream)
			r.Post("/install-model", chatHandler.InstallModel)
			r.Get("/model-status/{model}", chatHandler.ModelStatus)
			r.Get("/models", chatHandler.Models)
			r.Get("/conversation/{id}", chatHandler.History)
			r.Delete("/conversation/{id}", chatHandler.Clear)
			r.Get("/health", chatHandler.Health)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
