package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pasarku-be/internal/cart"
	"pasarku-be/internal/config"
	"pasarku-be/internal/db"
	"pasarku-be/internal/httpapi"
	"pasarku-be/internal/inventory"
	"pasarku-be/internal/jobs"
	"pasarku-be/internal/logger"
	"pasarku-be/internal/order"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	cartSvc, orderSvc := buildServices(cfg, database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := jobs.NewRunner(cartSvc, orderSvc, jobs.Config{
		CartCleanupInterval: cfg.CartCleanupInterval,
		OrderCheckInterval:  cfg.OrderAutoCancelCheckEvery,
		OrderAutoCancelAge:  cfg.OrderAutoCancelAge,
	})
	runner.Start(ctx)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: httpapi.NewRouter(cartSvc, orderSvc, cfg.PaymentCallbackToken),
	}

	go func() {
		logger.L().Info("server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildServices(cfg *config.Config, database *sql.DB) (cart.Service, order.Service) {
	gateway := inventory.NewClient(cfg.InventoryBaseURL, cfg.InventoryTimeout)

	cartRepo := cart.NewRepository(database)
	cartSvc := cart.NewService(cartRepo, gateway, cart.Config{
		ExpirationDays: cfg.CartExpirationDays,
		MaxItems:       cfg.CartMaxItems,
		RetentionDays:  cfg.CartRetentionDays,
		StrictValidate: cfg.CartValidateStrict,
	})

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, cartSvc, gateway)

	return cartSvc, orderSvc
}
