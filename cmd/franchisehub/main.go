// Package main запускает HTTP-сервер сервиса франчайзинга.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/franchise-hub/internal/config"
	"github.com/mmeshcher/franchise-hub/internal/handler"
	"github.com/mmeshcher/franchise-hub/internal/middleware"
	"github.com/mmeshcher/franchise-hub/internal/repository"
	"github.com/mmeshcher/franchise-hub/internal/service"
	"github.com/mmeshcher/franchise-hub/internal/session"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := session.NewStore(ctx, cfg.RedisAddress)
	if err != nil {
		sugar.Fatalw("session store initialization error", "error", err.Error())
	}
	defer sessions.Close()

	svc := service.NewService(repo)
	defer svc.Close()

	// Начальная загрузка администратора из конфигурации
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := svc.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			sugar.Fatalw("admin bootstrap error", "error", err.Error())
		}
		sugar.Infow("admin account ready", "email", cfg.AdminEmail)
	}

	authMiddleware := middleware.NewAuthMiddleware(sessions)
	h := handler.NewHandler(svc, sessions, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting franchise-hub server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
