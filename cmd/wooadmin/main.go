// Package main запускает HTTP-сервер сервиса wooadmin.
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

	"github.com/mmeshcher/wooadmin-system/internal/config"
	"github.com/mmeshcher/wooadmin-system/internal/handler"
	"github.com/mmeshcher/wooadmin-system/internal/middleware"
	"github.com/mmeshcher/wooadmin-system/internal/push"
	"github.com/mmeshcher/wooadmin-system/internal/registry"
	"github.com/mmeshcher/wooadmin-system/internal/repository"
	"github.com/mmeshcher/wooadmin-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var svcRepo service.Repository
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		svcRepo = repo
	} else {
		sugar.Infow("tenant store not configured, running in single-tenant mode")
	}

	var tokenRegistry service.TokenRegistry
	var sender push.Sender
	if cfg.RedisAddress != "" {
		reg, err := registry.New(cfg.RedisAddress)
		if err != nil {
			sugar.Fatalw("token registry initialization error", "error", err.Error())
		}
		defer reg.Close()
		tokenRegistry = reg

		switch cfg.PushProvider {
		case config.PushProviderFCM:
			fcm, err := push.NewFCMSender(cfg.FCMClientEmail, cfg.FCMPrivateKey, cfg.FCMProjectID, logger)
			if err != nil {
				sugar.Fatalw("fcm sender initialization error", "error", err.Error())
			}
			sender = fcm
		case config.PushProviderExpo:
			sender = push.NewExpoSender(logger)
		}
	} else {
		sugar.Infow("redis not configured, push notifications disabled")
	}

	svc := service.NewService(svcRepo, tokenRegistry, sender, service.Credentials{
		URL:    cfg.WooURL,
		Key:    cfg.WooConsumerKey,
		Secret: cfg.WooConsumerSecret,
	}, logger)
	defer svc.Close()

	var authMiddleware *middleware.AuthMiddleware
	if svcRepo != nil {
		authMiddleware = middleware.NewAuthMiddleware(cfg.AuthSecret)
	}

	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting wooadmin server", "addr", cfg.RunAddress, "provider", cfg.PushProvider)
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
