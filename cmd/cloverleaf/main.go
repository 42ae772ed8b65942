// Package main запускает HTTP-сервер витрины Cloverleaf.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Sivlinh/CloverLeaf/internal/broker"
	"github.com/Sivlinh/CloverLeaf/internal/catalog"
	"github.com/Sivlinh/CloverLeaf/internal/config"
	"github.com/Sivlinh/CloverLeaf/internal/handler"
	"github.com/Sivlinh/CloverLeaf/internal/middleware"
	"github.com/Sivlinh/CloverLeaf/internal/payment"
	"github.com/Sivlinh/CloverLeaf/internal/repository"
	"github.com/Sivlinh/CloverLeaf/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	origin := uuid.NewString()

	store, err := openStore(cfg, origin)
	if err != nil {
		sugar.Fatalw("storage initialization error", "backend", cfg.StorageBackend, "error", err.Error())
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithOrigin(origin),
		service.WithTopUpTimeout(cfg.TopUpTimeout),
		service.WithIdleTimeout(cfg.StorefrontIdleTimeout),
	}

	var gateway *payment.Client
	if cfg.PaymentGatewayAddress != "" {
		gateway = payment.NewClient(cfg.PaymentGatewayAddress, logger)
		opts = append(opts, service.WithPaymentProvider(gateway))
	} else {
		sugar.Infow("payment gateway not configured, using simulator", "delay", cfg.PaymentSimulatorDelay)
		opts = append(opts, service.WithPaymentProvider(payment.NewSimulator(cfg.PaymentSimulatorDelay)))
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher := broker.NewKafkaPublisher(brokers)
		defer publisher.Close()
		opts = append(opts, service.WithOrderPublisher(publisher))
	}

	products := catalog.Default()
	svc := service.NewService(store, products, opts...)
	defer svc.Close()

	clientMiddleware := middleware.NewClientMiddleware(cfg.CookieSecret)
	h := handler.NewHandler(
		func(clientID string) handler.Storefront { return svc.Storefront(clientID) },
		products,
		logger,
		clientMiddleware,
	)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Изменения, сделанные другими экземплярами. Обрывы подписки Watch переживает сам.
	g.Go(func() error {
		if err := svc.Watch(ctx); err != nil {
			return fmt.Errorf("storage watch error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		svc.EvictIdle(ctx)
		return nil
	})

	if gateway != nil {
		g.Go(func() error {
			gateway.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		sugar.Infow("starting cloverleaf server", "addr", cfg.RunAddress, "storage", cfg.StorageBackend)
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

func openStore(cfg *config.Config, origin string) (service.Repository, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		return repository.NewPostgresStore(cfg.DatabaseURI, origin)
	case config.StorageRedis:
		return repository.NewRedisStore(cfg.RedisAddress, origin)
	default:
		return repository.NewMemoryStore(origin), nil
	}
}
