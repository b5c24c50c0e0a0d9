package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/common/logger"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/app"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/config"
	httpapi "github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/http"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "haven-data")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !cfg.Auth.Disabled && cfg.Auth.JWTSecret == "" {
		log.Warn("AUTH_JWT_SECRET is empty, every API request will be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize haven-data", zap.Error(err))
	}
	defer a.Close()

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterReminderRoutes(httpapi.NewReminderHandler(a.Reminders, a.Scheduler, a.Scheduler.Today, log))
	billing := httpapi.NewBillingHandler(a.Billing, log)
	router.RegisterBillingRoutes(billing)
	router.RegisterResidentRoutes(billing, httpapi.NewDocumentHandler(a.Documents, log))

	auth := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, a.Repos.UserRoles, cfg.Auth.Disabled, log)
	srv := service.NewServer(cfg.HTTP.Addr, auth.Middleware(router), log)

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	switch {
	case !a.SchedulerAllowed():
		log.Warn("Reminder scheduler not started: no database configured")
	case cfg.Reminder.SchedulerEnabled:
		go func() {
			if err := a.Scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	default:
		log.Info("Reminder scheduler disabled, use haven-ctl reminders run-scheduled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("Service error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", zap.Error(err))
	}

	log.Info("Service stopped")
}
