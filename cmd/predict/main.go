// Command predict serves GET /predict for a model directory written by
// cmd/train.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Noofbiz/textcat/internal/config"
	"github.com/Noofbiz/textcat/internal/logger"
	"github.com/Noofbiz/textcat/internal/server/handler"
	"github.com/Noofbiz/textcat/internal/server/router"
	"github.com/Noofbiz/textcat/simple"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to JSON config file (optional)")
	artefacts := flag.String("artefacts", "", "model directory written by cmd/train (overrides config)")
	addr := flag.String("addr", "", "listen address host:port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *artefacts != "" {
		cfg.Predict.ArtefactsPath = *artefacts
	}
	listenAddr := cfg.Server.Addr()
	if *addr != "" {
		listenAddr = *addr
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	// Load the model (optional, /predict answers 503 without it)
	var predictor handler.Predictor
	cfg.Predict.ArtefactsPath = cfg.ArtefactsPath()
	p, err := simple.LoadArtefacts(cfg.Predict.ArtefactsPath)
	if err != nil {
		log.Warn("Failed to load artefacts, serving without a model",
			zap.String("artefacts", cfg.Predict.ArtefactsPath), zap.Error(err))
	} else {
		p.TopK = cfg.Predict.TopK
		predictor = p
		log.Info("Loaded artefacts",
			zap.String("artefacts", cfg.Predict.ArtefactsPath),
			zap.Int("n_labels", len(p.IndexToLabel)),
			zap.Int("top_k", p.TopK),
		)
	}

	r := router.Setup(predictor, &cfg.Predict, log)

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(srv, quit, log)
}

// serve runs srv until a value arrives on quit, then shuts it down gracefully.
// A listener failure is returned without waiting for quit.
func serve(srv *http.Server, quit <-chan os.Signal, log *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
