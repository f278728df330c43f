// Command server runs the identity and access gateway for the business
// directory: password and Google login, JWT issuance, account mutation
// workflows and the ownership-gated business routes.
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

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	accounthandler "pymegate/internal/account/handler"
	accountservice "pymegate/internal/account/service"
	accountstore "pymegate/internal/account/store"
	"pymegate/internal/auth/credential"
	authhandler "pymegate/internal/auth/handler"
	"pymegate/internal/auth/oauth"
	"pymegate/internal/auth/token"
	businesshandler "pymegate/internal/business/handler"
	businessservice "pymegate/internal/business/service"
	businessstore "pymegate/internal/business/store"
	"pymegate/internal/platform/config"
	"pymegate/internal/platform/httpserver"
	"pymegate/internal/platform/logger"
	"pymegate/internal/platform/mail"
	"pymegate/internal/platform/metrics"
	"pymegate/internal/platform/middleware"
	platformredis "pymegate/internal/platform/redis"
	"pymegate/internal/ratelimit"
	"pymegate/pkg/platform/audit/publisher"
	auditsink "pymegate/pkg/platform/audit/sink"
	auditstore "pymegate/pkg/platform/audit/store/memory"
)

const tokenIssuerName = "pymegate"

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	tokens := token.NewIssuer(cfg.JWTSigningKey, tokenIssuerName)

	var credOpts []credential.Option
	if !cfg.IsProduction() {
		// Pre-migration records may still hold plaintext credentials.
		credOpts = append(credOpts, credential.WithLegacyPlaintextFallback())
	}
	credentials := credential.NewVerifier(credOpts...)

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		accounts   accountstore.AccountStore
		businesses businessstore.BusinessStore
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if _, err := db.ExecContext(ctx, accountstore.Schema); err != nil {
			log.Error("failed to apply accounts schema", "error", err)
			os.Exit(1)
		}
		accounts = accountstore.NewPostgres(db)

		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, businessstore.Schema); err != nil {
			log.Error("failed to apply businesses schema", "error", err)
			os.Exit(1)
		}
		businesses = businessstore.NewPostgres(pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		accounts = accountstore.NewInMemory()
		businesses = businessstore.NewInMemory()
	}

	// Audit trail: in-memory store, optional Kafka fan-out.
	pubOpts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(256),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := auditsink.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("failed to connect audit kafka sink", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		pubOpts = append(pubOpts, publisher.WithSink(kafka))
	}
	auditlog := publisher.NewPublisher(auditstore.NewInMemoryStore(), pubOpts...)
	defer auditlog.Close()

	// Login throttle: Redis when configured, in-memory otherwise.
	var throttleStore ratelimit.Store = ratelimit.NewInMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		throttleStore = ratelimit.NewRedisStore(redisClient.Client)
	}
	throttle := ratelimit.NewThrottle(throttleStore, log, ratelimit.WithAudit(auditlog))

	var notifier accountservice.Notifier
	if cfg.SMTP.Configured() {
		notifier = mail.NewSMTP(cfg.SMTP)
	} else if cfg.IsProduction() {
		log.Error("SMTP must be configured in production")
		os.Exit(1)
	}

	svcOpts := []accountservice.Option{
		accountservice.WithAudit(auditlog),
		accountservice.WithMetrics(m),
	}
	if cfg.IsProduction() {
		svcOpts = append(svcOpts, accountservice.WithProductionMode())
	}
	accountSvc := accountservice.New(accounts, credentials, tokens, notifier, log, svcOpts...)
	businessSvc := businessservice.New(businesses, log)

	var google oauth.IdentityProvider
	if cfg.Google.Configured() {
		google = oauth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL)
	} else {
		log.Warn("google oauth not configured, external login disabled")
	}
	linker := oauth.NewLinker(accounts, credentials, tokens, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestMetadata)
	router.Use(middleware.Tracing)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	accounthandler.New(accountSvc, businessSvc, tokens, throttle, log).Register(router)
	authhandler.New(google, linker, auditlog, log).Register(router)
	businesshandler.New(businessSvc, tokens, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
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

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
