package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/meshimatch/internal/auth"
	"github.com/mmynk/meshimatch/internal/config"
	"github.com/mmynk/meshimatch/internal/metrics"
	"github.com/mmynk/meshimatch/internal/middleware"
	"github.com/mmynk/meshimatch/internal/pubsub"
	"github.com/mmynk/meshimatch/internal/rpc"
	"github.com/mmynk/meshimatch/internal/service"
	"github.com/mmynk/meshimatch/internal/storage"
	"github.com/mmynk/meshimatch/internal/storage/dynamo"
	"github.com/mmynk/meshimatch/internal/storage/sqlite"
	"github.com/mmynk/meshimatch/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	broker, err := openBroker(ctx, cfg)
	if err != nil {
		return err
	}
	defer broker.Close()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	// Metrics wraps everything so rejected calls are counted too.
	groupPath, groupHandler := rpc.NewGroupStoreServiceHandler(
		service.NewGroupStoreService(store, broker),
		connect.WithInterceptors(
			middleware.MetricsInterceptor{},
			middleware.RequireAuth(jwtManager),
			middleware.LoggingInterceptor{},
		),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	r.Handle("/metrics", metrics.Handler())
	r.Mount(groupPath, groupHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Authorization",
			"Content-Type",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
		},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
	}).Handler(r)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect streaming)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(corsHandler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting",
			"address", server.Addr,
			"store", cfg.StoreBackend,
			"broker", cfg.BrokerBackend,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server", "timeout", shutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreDynamo:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		slog.Info("Storage initialized", "dynamo_table", cfg.DynamoTable, "code_index", cfg.DynamoCodeIndex)
		return dynamo.New(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable, cfg.DynamoCodeIndex), nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		slog.Info("Storage initialized", "database", cfg.DBPath)
		return store, nil
	}
}

func openBroker(ctx context.Context, cfg *config.Config) (pubsub.Broker, error) {
	if cfg.BrokerBackend != config.BrokerRedis {
		return pubsub.NewMemoryBroker(), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("Broker initialized", "backend", "redis", "addr", opts.Addr)
	return pubsub.NewRedisBroker(client), nil
}
