// Package jobs runs the periodic maintenance loops: cart expiry/retention
// cleanup and auto-cancellation of stale pending orders.
package jobs

import (
	"context"
	"time"

	"pasarku-be/internal/cart"
	"pasarku-be/internal/logger"
	"pasarku-be/internal/order"

	"go.uber.org/zap"
)

type Config struct {
	CartCleanupInterval time.Duration
	OrderCheckInterval  time.Duration
	OrderAutoCancelAge  time.Duration
}

func (c Config) withDefaults() Config {
	if c.CartCleanupInterval <= 0 {
		c.CartCleanupInterval = time.Hour
	}
	if c.OrderCheckInterval <= 0 {
		c.OrderCheckInterval = 15 * time.Minute
	}
	if c.OrderAutoCancelAge <= 0 {
		c.OrderAutoCancelAge = 24 * time.Hour
	}
	return c
}

type Runner struct {
	carts  cart.Service
	orders order.Service
	cfg    Config
}

func NewRunner(carts cart.Service, orders order.Service, cfg Config) *Runner {
	return &Runner{carts: carts, orders: orders, cfg: cfg.withDefaults()}
}

// Start launches the loops and returns immediately. The loops stop when ctx
// is cancelled.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx, "cart_cleanup", r.cfg.CartCleanupInterval, r.runCartCleanup)
	go r.loop(ctx, "order_auto_cancel", r.cfg.OrderCheckInterval, r.runOrderAutoCancel)

	logger.FromCtx(ctx).Info("background jobs started",
		zap.Duration("cart_cleanup_interval", r.cfg.CartCleanupInterval),
		zap.Duration("order_check_interval", r.cfg.OrderCheckInterval),
	)
}

func (r *Runner) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.FromCtx(ctx).Info("background job stopped", zap.String("job", name))
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (r *Runner) runCartCleanup(ctx context.Context) {
	if _, _, err := r.carts.CleanupExpired(ctx); err != nil {
		logger.FromCtx(ctx).Error("cart cleanup run failed", zap.Error(err))
	}
}

func (r *Runner) runOrderAutoCancel(ctx context.Context) {
	if _, err := r.orders.ProcessAutomaticStatusUpdates(ctx, r.cfg.OrderAutoCancelAge); err != nil {
		logger.FromCtx(ctx).Error("order auto-cancel run failed", zap.Error(err))
	}
}
