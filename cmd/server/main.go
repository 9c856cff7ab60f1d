package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"roster/internal/change"
	changehandler "roster/internal/change/handler"
	"roster/internal/jwttoken"
	"roster/internal/member"
	"roster/internal/platform/config"
	"roster/internal/platform/httpserver"
	"roster/internal/platform/logger"
	"roster/internal/platform/metrics"
	"roster/internal/platform/otel"
	platformredis "roster/internal/platform/redis"
	"roster/internal/reconcile"
	"roster/internal/review"
	"roster/internal/team"
	httptransport "roster/internal/transport/http"
	"roster/pkg/platform/audit"
	"roster/pkg/platform/audit/publisher"
	auditmemory "roster/pkg/platform/audit/store/memory"
	auditpostgres "roster/pkg/platform/audit/store/postgres"
	auditworker "roster/pkg/platform/audit/worker"
)

// main wires dependencies and runs the server plus background workers.
// Business logic lives in the internal services.
func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := otel.Setup(ctx, "roster")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	// Storage. Without a database URL everything runs on in-memory stores,
	// which is enough for local development against a fake review platform.
	var (
		db          *sql.DB
		members     member.Store
		teams       team.Store
		ledger      change.Ledger
		auditStore  audit.Store
		auditOutbox *auditpostgres.Store
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		members = member.NewPostgres(db)
		teams = team.NewPostgres(db)
		ledger = change.NewPostgresLedger(db)
		auditOutbox = auditpostgres.New(db)
		auditStore = auditOutbox
		log.Info("using postgres storage")
	} else {
		members = member.NewInMemoryStore()
		teams = team.NewInMemoryStore(nil)
		ledger = change.NewInMemoryLedger()
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("no database configured, using in-memory storage")
	}

	auditPub := publisher.NewPublisher(auditStore, publisher.WithAsyncBuffer(256))
	defer auditPub.Close()

	// Reconciliation locking: cross-instance with Redis when configured,
	// in-process otherwise.
	var locker reconcile.Locker = reconcile.NewMemoryLocker()
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker = reconcile.NewRedisLocker(redisClient.Client)
		log.Info("using redis reconciliation locks")
	}

	m := metrics.New()
	tokens := jwttoken.New(cfg.JWTSigningKey, "roster")

	gateway := review.NewBreaker(review.NewGitHubGateway(review.GitHubConfig{
		APIBase:    cfg.GitHub.APIBase,
		Repo:       cfg.GitHub.Repo,
		BaseBranch: cfg.GitHub.BaseBranch,
		Token:      cfg.GitHub.Token,
		Timeout:    cfg.GitHub.Timeout,
	}))

	changeSvc := change.NewService(members, teams, ledger, gateway, auditPub, log,
		change.WithMetrics(m))
	reconcileSvc := reconcile.NewService(ledger, members, locker, auditPub, log,
		reconcile.WithMetrics(m))

	router := httptransport.NewRouter(httptransport.Deps{
		BaseInfo:       changehandler.New(changeSvc, log),
		Webhook:        reconcile.NewHandler(reconcileSvc, cfg.Webhook.Secret, log),
		TokenValidator: tokens,
		Logger:         log,
		DB:             db,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	// Audit feed: drain the outbox into Kafka. Needs both the database and
	// a broker list; otherwise events stay queryable in the store only.
	if len(cfg.Kafka.Brokers) > 0 && auditOutbox != nil {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
		)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()

		if err := auditworker.EnsureTopic(ctx, kafkaClient, cfg.Kafka.Topic); err != nil {
			return err
		}
		worker := auditworker.New(auditOutbox, kafkaClient, cfg.Kafka.Topic, 5*time.Second, log)
		group.Go(func() error { return worker.Run(groupCtx) })
		log.Info("audit feed worker started", "topic", cfg.Kafka.Topic)
	}

	group.Go(func() error {
		log.Info("starting roster server", "addr", cfg.Addr)
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
		return err
	}
	log.Info("server stopped")
	return nil
}
