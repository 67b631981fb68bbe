// The cart service keeps per-user carts whose line-item prices converge on
// the catalog's published values via the price change stream.
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
	"storefront/internal/cart/catalogclient"
	"storefront/internal/cart/consumer"
	"storefront/internal/cart/handler"
	"storefront/internal/cart/service"
	"storefront/internal/cart/store"
	"storefront/internal/platform/config"
	"storefront/internal/platform/httpserver"
	"storefront/internal/platform/kafka"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	"storefront/internal/platform/middleware"
	"storefront/internal/platform/resilience"
	"storefront/internal/platform/rpc"
	"storefront/internal/platform/rpc/wire"
)

func main() {
	log := logger.New("cart")

	cfg, err := config.CartFromEnv()
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

	cartStore, closeStore := buildStore(ctx, cfg, res, log)
	defer closeStore()

	catalog := catalogclient.New(cfg.CatalogURL, res)
	svc, err := service.New(cartStore, catalog, log)
	if err != nil {
		log.Error("service init failed", "error", err)
		os.Exit(1)
	}

	priceConsumer, err := kafka.NewConsumer(
		cfg.KafkaBrokers,
		cfg.ConsumerGroup,
		cfg.PriceTopic,
		consumer.NewPriceChangeHandler(cartStore, log, m),
		log,
	)
	if err != nil {
		log.Error("kafka consumer init failed", "error", err)
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
		log.Info("price change consumer starting",
			"brokers", cfg.KafkaBrokers,
			"topic", cfg.PriceTopic,
			"group", cfg.ConsumerGroup,
		)
		err := priceConsumer.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
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

// buildStore prefers postgres and falls back to the in-memory store so the
// service still runs in local development without a database.
func buildStore(ctx context.Context, cfg config.Cart, res *resilience.Context, log *slog.Logger) (store.Store, func()) {
	pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN, res)
	if err != nil {
		log.Warn("postgres unavailable, using in-memory cart store", "error", err)
		return store.NewMemoryStore(), func() {}
	}
	if err := pg.Migrate(ctx); err != nil {
		log.Error("cart schema migration failed", "error", err)
		os.Exit(1)
	}
	return pg, func() { pg.Close() }
}

func buildValidator(cfg config.Cart, res *resilience.Context, log *slog.Logger) (validator.TokenValidator, func(), error) {
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
