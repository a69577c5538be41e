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

	"golang.org/x/sync/errgroup"

	"staffops/internal/attendance"
	attendancehandler "staffops/internal/attendance/handler"
	attendancemetrics "staffops/internal/attendance/metrics"
	"staffops/internal/audit"
	"staffops/internal/custody"
	custodyhandler "staffops/internal/custody/handler"
	custodymetrics "staffops/internal/custody/metrics"
	"staffops/internal/directory"
	jwttoken "staffops/internal/jwt_token"
	"staffops/internal/ledger"
	"staffops/internal/platform/config"
	"staffops/internal/platform/httpserver"
	"staffops/internal/platform/logger"
	"staffops/internal/platform/metrics"
	platformredis "staffops/internal/platform/redis"
	httptransport "staffops/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Document store: Postgres when configured, in-memory otherwise.
	var store ledger.Store
	var db *sql.DB
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := ledger.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("migrate documents table", "error", err)
			os.Exit(1)
		}
		store = pg
		log.Info("using postgres document store")
	} else {
		store = ledger.NewInMemoryStore()
		log.Warn("no POSTGRES_URL set, using in-memory store")
	}

	// Directory, optionally cached through Redis.
	baseDir, err := directory.LoadSeed(cfg.DirectorySeedFile)
	if err != nil {
		log.Error("load directory seed", "error", err)
		os.Exit(1)
	}
	var dir directory.Directory = baseDir
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		dir = directory.NewCached(baseDir, redisClient.Client, cfg.DirectoryCacheTTL, log)
		log.Info("directory cache enabled")
	}

	// Audit pipeline: engines emit into a buffered inbox, the worker drains
	// into the store and the optional Kafka sink.
	auditStore := audit.NewInMemoryStore()
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("connect kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("kafka audit sink enabled", "topic", cfg.Kafka.Topic)
	}
	auditor := audit.NewPublisher(cfg.AuditBuffer, log)
	auditWorker := audit.NewWorker(auditStore, sink, auditor.Inbox(), log)

	// Engines.
	locks := ledger.NewKeyLock()
	shift := attendance.ShiftPolicy{
		ExpectedStart:        cfg.Shift.ExpectedStart,
		ExpectedEnd:          cfg.Shift.ExpectedEnd,
		GraceMinutes:         cfg.Shift.GraceMinutes,
		StandardShiftMinutes: cfg.Shift.StandardShiftMinutes,
	}
	attendanceEngine, err := attendance.NewEngine(store, locks, shift,
		attendance.WithAuditor(auditor),
		attendance.WithMetrics(attendancemetrics.New()),
		attendance.WithLogger(log),
	)
	if err != nil {
		log.Error("build attendance engine", "error", err)
		os.Exit(1)
	}
	aggregator := attendance.NewAggregator(store, dir, log)

	custodyEngine, err := custody.NewEngine(store, locks,
		custody.WithAuditor(auditor),
		custody.WithMetrics(custodymetrics.New()),
		custody.WithLogger(log),
	)
	if err != nil {
		log.Error("build custody engine", "error", err)
		os.Exit(1)
	}

	// Transport.
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	router := httptransport.New(httptransport.Deps{
		Logger:       log,
		Metrics:      metrics.New(),
		JWTValidator: jwttoken.NewJWTServiceAdapter(jwtService),
		Attendance:   attendancehandler.New(attendanceEngine, aggregator, log),
		Custody:      custodyhandler.New(custodyEngine, log),
		Tokens:       httptransport.NewTokenIssuer(jwtService, cfg.AdminKeyHash, cfg.TokenTTL, log),
		DB:           db,
		Redis:        redisClient,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := auditWorker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting staffops", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
