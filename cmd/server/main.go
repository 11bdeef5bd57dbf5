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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"badgemint/internal/events"
	"badgemint/internal/identity/handler"
	"badgemint/internal/identity/service"
	"badgemint/internal/identity/store"
	noncestore "badgemint/internal/identity/store/nonce"
	pgstore "badgemint/internal/identity/store/postgres"
	"badgemint/internal/platform/config"
	"badgemint/internal/platform/httpserver"
	"badgemint/internal/platform/logger"
	"badgemint/internal/platform/metrics"
	"badgemint/internal/platform/postgres"
	platformredis "badgemint/internal/platform/redis"
	"badgemint/internal/platform/token"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		identityStore store.Registry
		configStore   store.ConfigStore
	)
	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		identityStore = pgstore.NewRegistry(pool)
		configStore = pgstore.NewConfigStore(pool)
		log.Info("using postgres registry store")
	} else {
		identityStore = store.NewInMemoryRegistry()
		configStore = store.NewInMemoryConfigStore()
		log.Info("using in-memory registry store")
	}

	var nonces store.NonceStore
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		nonces = noncestore.NewRedisStore(redisClient.Client, noncestore.WithRedisTTL(cfg.NonceTTL))
		log.Info("using redis nonce store")
	} else {
		nonces = noncestore.NewInMemoryStore(noncestore.WithTTL(cfg.NonceTTL))
		log.Info("using in-memory nonce store")
	}

	publisher, closeEvents, err := buildPublisher(ctx, cfg, log)
	if err != nil {
		log.Error("event publisher setup failed", "error", err)
		os.Exit(1)
	}
	defer closeEvents()

	svc, err := service.New(identityStore, configStore, nonces, publisher,
		service.WithLogger(log),
		service.WithMetrics(m),
	)
	if err != nil {
		log.Error("service setup failed", "error", err)
		os.Exit(1)
	}

	jwtSvc := token.NewJWTService(cfg.JWTSigningKey)

	router := chi.NewRouter()
	handler.New(svc, log, jwtSvc).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting badgemint", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// buildPublisher assembles the event pipeline: durable store when postgres is
// configured, kafka when brokers are configured, with kafka delivery decoupled
// from request handling through a channel-fed worker.
func buildPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (events.Publisher, func(), error) {
	var (
		publishers []events.Publisher
		closers    []func()
	)

	if cfg.PostgresDSN != "" {
		db, err := events.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		publishers = append(publishers, events.NewStorePublisher(events.NewPostgresStore(db)))
	} else {
		publishers = append(publishers, events.NewStorePublisher(events.NewInMemoryStore()))
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, events.WithTopic(cfg.KafkaTopic))
		if err != nil {
			return nil, nil, err
		}
		inbox := make(chan events.Event, 256)
		worker := events.NewWorker(kafka, inbox, log)
		workerCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = worker.Run(workerCtx)
		}()
		closers = append(closers, func() {
			cancel()
			<-done
			kafka.Close()
		})
		publishers = append(publishers, events.NewChannelPublisher(inbox, log))
		log.Info("kafka event publishing enabled", "topic", cfg.KafkaTopic)
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if len(publishers) == 1 {
		return publishers[0], closeAll, nil
	}
	return events.Fanout(publishers), closeAll, nil
}
