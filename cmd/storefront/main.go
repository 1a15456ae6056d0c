package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/carbuild-backend/api/controllers"
	"github.com/angelmondragon/carbuild-backend/api/routes"
	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/gateway"
	"github.com/angelmondragon/carbuild-backend/internal/orders"
	"github.com/angelmondragon/carbuild-backend/internal/pricing"
	"github.com/angelmondragon/carbuild-backend/internal/selection"
	"github.com/angelmondragon/carbuild-backend/internal/shop"
	"github.com/angelmondragon/carbuild-backend/pkg/config"
	"github.com/angelmondragon/carbuild-backend/pkg/lifecycle"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
	"github.com/angelmondragon/carbuild-backend/pkg/metrics"
	"github.com/angelmondragon/carbuild-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.NewEngineMetrics(reg)

	client := gateway.NewClient(cfg.Gateway.BaseURL,
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithLegacyCheckout(cfg.FeatureFlags.LegacyCheckout),
	)
	readiness := map[string]controllers.Pinger{"gateway": client}

	var (
		source    catalog.Source = client
		idem      redis.IdempotencyStore
		resources []io.Closer
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		resources = append(resources, redisClient)
		source = catalog.NewCachedSource(client, redisClient, cfg.Catalog.CacheTTL, logg)
		idem = redisClient
		readiness["redis"] = redisClient
	}

	session := shop.NewSession(source, client, client, shop.Options{
		Policy: selection.QuantityPolicy{
			DefaultMax:     cfg.Policy.MaxQuantityDefault,
			ChassisMax:     cfg.Policy.MaxQuantityChassis,
			ChassisKeyword: cfg.Policy.ChassisKeyword,
		},
		Pricing: pricing.Options{
			DebounceDelay:  cfg.Pricing.DebounceDelay,
			RequestTimeout: cfg.Pricing.RequestTimeout,
			Metrics:        engineMetrics,
		},
		Orders: orders.Options{Metrics: engineMetrics},
		Logger: logg,
	})
	resources = append(resources, lifecycle.CloserFunc(session.Close))

	addr := ":" + cfg.App.Port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"gateway":         cfg.Gateway.BaseURL,
		"legacy_checkout": cfg.FeatureFlags.LegacyCheckout,
	})
	logg.Info(ctx, "starting storefront server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewStorefrontRouter(cfg, logg, session, idem, reg, readiness),
		ReadHeaderTimeout: 5 * time.Second,
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := lifecycle.Serve(sigCtx, server, shutdownTimeout, resources...); err != nil {
		logg.Error(ctx, "storefront server stopped with errors", err)
		os.Exit(1)
	}
	logg.Info(ctx, "storefront server stopped")
}
