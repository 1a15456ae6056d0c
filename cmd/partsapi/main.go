package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	parts "github.com/angelmondragon/carbuild-backend/api/controllers/partsapi"
	"github.com/angelmondragon/carbuild-backend/api/routes"
	"github.com/angelmondragon/carbuild-backend/internal/partsapi"
	"github.com/angelmondragon/carbuild-backend/pkg/config"
	"github.com/angelmondragon/carbuild-backend/pkg/db"
	"github.com/angelmondragon/carbuild-backend/pkg/lifecycle"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
	"github.com/angelmondragon/carbuild-backend/pkg/migrate"
	"github.com/angelmondragon/carbuild-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "partsapi"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "partsapi",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.DB.Configured() {
		logg.Error(context.Background(), "parts api needs a database", errors.New("set CARBUILD_DB_DSN or CARBUILD_USE_SQLITE"))
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	resources := []io.Closer{dbClient}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	rule, err := partsapi.ParsePricingRule(cfg.Pricing.FreeShippingThreshold, cfg.Pricing.ShippingFee)
	if err != nil {
		logg.Error(context.Background(), "invalid pricing rule", err)
		os.Exit(1)
	}
	svc := partsapi.NewService(dbClient, rule, logg)

	if dbClient.Driver() == config.DriverSQLite {
		seed, err := partsapi.DefaultSeed()
		if err == nil {
			_, err = svc.Seed(context.Background(), seed)
		}
		if err != nil {
			logg.Error(context.Background(), "failed to seed sqlite catalog", err)
			os.Exit(1)
		}
	}

	deps := map[string]parts.Pinger{"database": dbClient}
	var idem redis.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		resources = append(resources, redisClient)
		idem = redisClient
		deps["redis"] = redisClient
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	addr := ":" + cfg.App.PartsPort
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":                     cfg.App.Env,
		"addr":                    addr,
		"driver":                  dbClient.Driver(),
		"free_shipping_threshold": rule.FreeShippingThreshold.String(),
		"shipping_fee":            rule.ShippingFee.String(),
	})
	logg.Info(ctx, "starting parts api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewPartsRouter(cfg, logg, svc, idem, reg, deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := lifecycle.Serve(sigCtx, server, shutdownTimeout, resources...); err != nil {
		logg.Error(ctx, "parts api server stopped with errors", err)
		os.Exit(1)
	}
	logg.Info(ctx, "parts api server stopped")
}
