package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sujalbistaa/confide/internal/bot"
	"github.com/sujalbistaa/confide/internal/config"
	"github.com/sujalbistaa/confide/internal/db"
	routes "github.com/sujalbistaa/confide/internal/http"
	"github.com/sujalbistaa/confide/internal/store"
	"github.com/sujalbistaa/confide/internal/telegram"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// A missing .env file is fine in production, where the environment is
	// set directly.
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 1. Initialize Database
	database, err := db.Init(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	// 2. Run Migrations
	logger.Info("Running database migrations...")
	st := store.New(database)
	if err := st.Migrate(); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("Migrations complete")

	// 3. Wire the bot to the transport and the store
	client := telegram.New(cfg.BotToken)
	b := bot.New(cfg, st, client, logger)

	// 4. Initialize Gin Router
	router := gin.New()
	routes.SetupRoutes(router, &routes.Env{Bot: b, Logger: logger}, cfg.CORSOrigin, logger)

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exiting")
}
