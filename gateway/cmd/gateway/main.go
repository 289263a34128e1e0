package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/marketplace/gateway/internal/config"
	"github.com/Skotchmaster/marketplace/gateway/internal/httpserver"
	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", "gateway")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second

	deps := &httpserver.Deps{OrderURL: cfg.OrderURL, JWTSecret: cfg.JWTSecret, Logger: logger}
	if err := httpserver.Register(e, deps); err != nil {
		logger.Error("router_setup_failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("gateway_starting", "addr", cfg.ListenAddr, "upstream", cfg.OrderURL)
		errc <- e.Start(cfg.ListenAddr)
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway_failed", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway_shutdown_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway_stopped")
}
