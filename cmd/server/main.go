// Command server runs the registration and verification API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"vouch/internal/audit"
	"vouch/internal/platform/config"
	"vouch/internal/platform/httpserver"
	"vouch/internal/platform/logger"
	"vouch/internal/platform/metrics"
	platformredis "vouch/internal/platform/redis"
	"vouch/internal/ratelimit"
	"vouch/internal/registrant"
	regstore "vouch/internal/registrant/store"
	httptransport "vouch/internal/transport/http"
	"vouch/internal/verification"
	"vouch/internal/verification/provider"
	"vouch/internal/verification/reconciler"
	"vouch/internal/verification/webhook"
)

func main() {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Registrant store: Postgres when configured, in-memory otherwise.
	var (
		store   regstore.Store
		db      *sql.DB
		healthy func(*http.Request) error
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := regstore.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		store = pg
		healthy = func(r *http.Request) error { return db.PingContext(r.Context()) }
		log.Info("using postgres registrant store")
	} else {
		store = regstore.NewMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory registrant store")
	}

	// Rate limiting: shared counters via Redis when available.
	var limitStore ratelimit.Store
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		limitStore = ratelimit.NewRedisStore(redisClient.Client)
		log.Info("rate limiting backed by redis")
	}
	limiter := ratelimit.New(limitStore, log, ratelimit.WithDisabled(cfg.DevMode))

	// Audit trail: Kafka sink behind an async worker when brokers are
	// configured, in-memory buffer otherwise.
	group, groupCtx := errgroup.WithContext(ctx)
	var auditStore audit.Store
	if cfg.KafkaBrokers != "" {
		kafkaStore, err := audit.NewKafkaStore(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka connect", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()

		channelStore, inbox := audit.NewChannelStore(1024)
		worker := audit.NewWorker(kafkaStore, inbox, log)
		group.Go(func() error {
			err := worker.Run(groupCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		auditStore = channelStore
		log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	} else {
		auditStore = audit.NewMemoryStore()
		log.Warn("KAFKA_BROKERS not set, audit events held in memory")
	}
	auditor := audit.NewPublisher(auditStore)

	// Verification provider wiring.
	providerClient := provider.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.AppToken,
		cfg.Provider.SecretKey,
		cfg.Provider.Timeout,
		log,
		m,
	)
	verifier := webhook.NewVerifier(cfg.Provider.WebhookSecret)
	rec := reconciler.New(store, log, auditor, m)
	bridge := verification.NewBridge(store, providerClient, rec, verifier, log, auditor, m, cfg.Provider.TokenTTL)

	registrants := registrant.NewService(store, log, auditor, m)

	router := httptransport.NewRouter(httptransport.Deps{
		Registrants:  httptransport.NewRegistrantHandler(registrants, rec, log),
		Verification: httptransport.NewVerificationHandler(bridge, log),
		Limiter:      limiter,
		Logger:       log,
		Metrics:      m,
		Registry:     registry,
		Health:       healthy,
	})

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
