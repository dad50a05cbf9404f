// Command tokenauthd serves the account API: login, refresh-token and
// revoke-token under /api/v1/account, plus /metrics and /healthz.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/internal/config"
	"github.com/MrEthical07/tokenauth/internal/directory"
	"github.com/MrEthical07/tokenauth/internal/httpapi"
	"github.com/MrEthical07/tokenauth/internal/logging"
	"github.com/MrEthical07/tokenauth/metrics/export/otel"
	"github.com/MrEthical07/tokenauth/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const metricsLogInterval = time.Minute

func main() {
	configPath := flag.String("config", os.Getenv("TOKENAUTH_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "tokenauthd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	dir := directory.New(cfg.Directory.OpenLogin)

	engineCfg := cfg.EngineConfig()
	for _, w := range engineCfg.Lint() {
		log.Warn("config lint",
			zap.String("code", w.Code),
			zap.String("severity", w.Severity.String()),
			zap.String("message", w.Message),
		)
	}

	builder := tokenauth.New().
		WithConfig(engineCfg).
		WithUserProvider(dir).
		WithLogger(logging.WithComponent(log, "engine"))
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(logging.NewAuditSink(log))
	}
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	for _, u := range cfg.Directory.Users {
		rec, err := dir.Add(directory.User{
			Identifier: u.Username,
			Name:       u.Name,
			Email:      u.Email,
			Password:   u.Password,
			Roles:      u.Roles,
		}, engine.HashPassword)
		if err != nil {
			return fmt.Errorf("seed directory: %w", err)
		}
		log.Info("directory user seeded", zap.String("user_id", rec.UserID), zap.String("username", rec.Identifier))
	}

	meterProvider, err := startMeterProvider(engine, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("meter provider shutdown", zap.Error(err))
		}
	}()

	router := httpapi.NewRouter(httpapi.Options{
		Auth:         engine,
		OpenLogin:    dir.OpenLogin(),
		Logger:       log,
		Metrics:      prometheus.NewPrometheusExporter(engine).Handler(),
		RefreshStats: engine.RefreshStats,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.Bool("open_login", dir.OpenLogin()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openRedis connects to the throttle backend. An empty address starts an
// in-process miniredis, which keeps throttle state only for this process.
func openRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (redis.UniversalClient, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}

	addr := cfg.Addr
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		log.Warn("no redis address configured, using in-process miniredis", zap.String("addr", addr))
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	cleanup := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, cleanup, nil
}

func startMeterProvider(engine *tokenauth.Engine, log *zap.Logger) (*sdkmetric.MeterProvider, error) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(logging.NewMetricExporter(log), sdkmetric.WithInterval(metricsLogInterval)),
	))
	if _, err := otel.NewOTelExporter(mp.Meter("github.com/MrEthical07/tokenauth"), engine); err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, fmt.Errorf("register otel exporter: %w", err)
	}
	return mp, nil
}
