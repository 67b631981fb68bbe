// The catalog service is the pricing authority. Price changes commit locally
// first and are then announced on the event stream for cart replicas.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"storefront/internal/auth/validator"
	"storefront/internal/catalog/cache"
	"storefront/internal/catalog/handler"
	"storefront/internal/catalog/service"
	"storefront/internal/catalog/store"
	"storefront/internal/platform/config"
	"storefront/internal/platform/httpserver"
	"storefront/internal/platform/kafka"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	"storefront/internal/platform/middleware"
	"storefront/internal/platform/redis"
	"storefront/internal/platform/resilience"
	"storefront/internal/platform/rpc"
	"storefront/internal/platform/rpc/wire"
)

func main() {
	log := logger.New("catalog")

	cfg, err := config.CatalogFromEnv()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	res := resilience.NewContext(resilience.Settings{
		MaxAttempts:      cfg.Resilience.RetryCount,
		BaseDelay:        time.Second,
		BreakerThreshold: cfg.Resilience.BreakerThreshold,
		BreakerOpenFor:   cfg.Resilience.BreakerOpenFor,
	}, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The cache is optional: without redis the service reads straight from
	// the store.
	var productCache *cache.ProductCache
	if redisClient, err := redis.New(ctx, cfg.RedisURL); err != nil {
		log.Warn("redis unavailable, product cache disabled", "error", err)
	} else {
		productCache = cache.New(redisClient, log)
	}

	publisher, err := kafka.NewPublisher(ctx, cfg.KafkaBrokers, cfg.PriceTopic, log)
	if err != nil {
		log.Error("kafka publisher init failed", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	svc, err := service.New(store.NewMemoryStore(), productCache, publisher, log)
	if err != nil {
		log.Error("service init failed", "error", err)
		os.Exit(1)
	}

	tokenValidator, closeRPC, err := buildValidator(cfg, res, log)
	if err != nil {
		log.Error("validator init failed", "error", err)
		os.Exit(1)
	}
	defer closeRPC()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.NewAuthBridge(tokenValidator, handler.PublicRoutes, cfg.Target, log, m).RequireAuth)
	handler.New(svc, log).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting", "addr", cfg.Addr, "target", string(cfg.Target), "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
}

// buildValidator picks the validation strategy. Local verifies signatures
// in-process with the shared signing key; remote asks the identity authority
// over gRPC through the resilient channel factory.
func buildValidator(cfg config.Catalog, res *resilience.Context, log *slog.Logger) (validator.TokenValidator, func(), error) {
	if cfg.AuthMode != "remote" {
		return validator.NewLocal(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience), func() {}, nil
	}

	factory := rpc.NewFactory(config.RPCURLTemplate, res, log)
	client, err := factory.CreateClient(wire.TokenAuthorityService, cfg.IdentityHost, cfg.IdentityPort, rpc.Settings{
		RetryCount:      cfg.Resilience.RetryCount,
		TimeoutSeconds:  cfg.Resilience.TimeoutSeconds,
		EnableKeepAlive: cfg.Resilience.EnableKeepAlive,
	})
	if err != nil {
		return nil, nil, err
	}
	return validator.NewRemote(client, log), func() { client.Close() }, nil
}
