package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/makey/solar-forecast/internal/cache"
	"github.com/makey/solar-forecast/internal/config"
	"github.com/makey/solar-forecast/internal/lead"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Run serves the dashboard on srvCfg.Address until ctx is cancelled, then
// shuts the server down gracefully.
func Run(ctx context.Context, logger *zap.Logger, srvCfg *Config, conf *config.Configuration, version string) error {
	opts := Options{
		Logger:      logger,
		Config:      conf,
		MaxBodySize: srvCfg.BodySizeBytes(),
		Version:     version,

		ExposeEvaluations: srvCfg.ExposeEvaluations,
	}

	if srvCfg.RedisAddress != "" {
		client := redis.NewClient(&redis.Options{Addr: srvCfg.RedisAddress})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close redis client", zap.String("op", "dashboard.Run"), zap.Error(err))
			}
		}()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", srvCfg.RedisAddress, err)
		}
		opts.Cache = cache.NewRedis(client, "solar:", srvCfg.CacheTTLDuration())
		opts.Leads = lead.NewRedisStore(client, lead.DefaultRedisKey)
		logger.Info("using redis for projection cache and evaluation requests",
			zap.String("op", "dashboard.Run"),
			zap.String("address", srvCfg.RedisAddress),
		)
	}

	limiter := NewRateLimiter(srvCfg.EvaluationLimit, time.Minute)
	defer limiter.Stop()
	opts.Limiter = limiter

	server := &http.Server{
		Addr:         srvCfg.Address,
		Handler:      NewHandler(opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening",
			zap.String("op", "dashboard.Run"),
			zap.String("address", srvCfg.Address),
			zap.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("dashboard server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down dashboard", zap.String("op", "dashboard.Run"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during dashboard shutdown: %w", err)
	}
	return nil
}
