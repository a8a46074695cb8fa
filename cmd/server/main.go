package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet_api/internal/app"
	"wallet_api/internal/config"
	"wallet_api/internal/handlers"
	"wallet_api/internal/logging"
	"wallet_api/internal/metrics"
	"wallet_api/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger := logging.SetupLogger(cfg.LogLevel)

	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open wallet store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	svc := service.NewWalletService(store, logger)
	handler := handlers.NewWalletHTTPHandler(svc, logger, cfg.TxTimeout, cfg.MaxRetries)

	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(logger), metrics.Middleware())
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("err", err))
	}
	logger.Info("Server exiting")
}
