package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bloodlink/internal/bloodrequest/disaster"
	"bloodlink/internal/bloodrequest/eligibility"
	"bloodlink/internal/bloodrequest/escalation"
	"bloodlink/internal/bloodrequest/handler"
	requestmetrics "bloodlink/internal/bloodrequest/metrics"
	"bloodlink/internal/bloodrequest/service"
	"bloodlink/internal/bloodrequest/store/directory"
	requeststore "bloodlink/internal/bloodrequest/store/request"
	jwttoken "bloodlink/internal/jwt_token"
	"bloodlink/internal/notification"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/kafka"
	"bloodlink/internal/platform/metrics"
	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/platform/postgres"
	"bloodlink/internal/platform/redis"
	"bloodlink/pkg/platform/audit/publisher"
	auditmemory "bloodlink/pkg/platform/audit/store/memory"
	auditpostgres "bloodlink/pkg/platform/audit/store/postgres"
	"bloodlink/pkg/platform/circuit"
	"bloodlink/pkg/platform/httputil"
)

const (
	auditBuffer          = 1024
	emailTopicPartitions = 3
)

// requestStore is what both request store implementations provide.
type requestStore interface {
	service.RequestStore
	eligibility.CommitmentReader
}

// directoryStore is what both directory implementations provide.
type directoryStore interface {
	service.DonorDirectory
	service.HospitalDirectory
	service.DonationRecorder
	eligibility.DonorLister
	directory.Writer
}

type app struct {
	router       http.Handler
	scheduler    *escalation.Scheduler
	storeKind    string
	notifierKind string
	closers      []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	var (
		requests  requestStore
		dir       directoryStore
		auditLogs publisher.Store
	)
	if db != nil {
		a.closers = append(a.closers, func() { _ = db.Close() })
		requests, dir, auditLogs = postgresStores(db)
		a.storeKind = "postgres"
	} else {
		mem := directory.NewInMemory()
		hospital, donors, err := directory.SeedDemo(ctx, mem)
		if err != nil {
			return nil, fmt.Errorf("seed demo directory: %w", err)
		}
		log.Warn("DATABASE_URL not set, using in-memory stores with demo data",
			"hospital_id", hospital.ID.String(),
			"donors", len(donors),
		)
		requests, dir, auditLogs = requeststore.NewInMemory(), mem, auditmemory.NewInMemoryStore()
		a.storeKind = "memory"
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	var (
		override disaster.Override = disaster.NewSwitch(false)
		lock     escalation.Lock   = escalation.NoopLock{}
	)
	if rdb != nil {
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		override = disaster.NewRedisOverride(rdb, cfg.Matching.DisasterKey, disaster.WithLogger(log))
		lock = escalation.NewRedisLock(rdb, "bloodlink:escalation:lock", cfg.Matching.SchedulerLockTTL)
	} else {
		log.Warn("REDIS_URL not set, disaster mode is process-local and escalation is not coordinated across replicas")
	}

	dispatcher, err := a.dispatcher(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	auditPublisher := publisher.NewPublisher(auditLogs,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
	)
	a.closers = append(a.closers, auditPublisher.Close)

	engineMetrics := requestmetrics.New()
	svc := service.New(requests, dir, dir,
		eligibility.New(dir, requests, override,
			eligibility.WithLogger(log),
			eligibility.WithDisasterMinRadius(cfg.Matching.DisasterMinRadiusKm),
		),
		dispatcher,
		service.WithLogger(log),
		service.WithMetrics(engineMetrics),
		service.WithDisaster(override),
		service.WithAuditPublisher(auditPublisher),
		service.WithAuditReader(auditPublisher),
		service.WithDonationRecorder(dir),
		service.WithDwellTime(cfg.Matching.DwellTime),
		service.WithNotifyConcurrency(cfg.Matching.NotifyConcurrency),
	)

	a.scheduler = escalation.New(svc,
		escalation.WithInterval(cfg.Matching.EscalationInterval),
		escalation.WithLock(lock),
		escalation.WithLogger(log),
		escalation.WithMetrics(engineMetrics),
	)
	a.router = router(cfg, log, svc, db, rdb)
	return a, nil
}

func postgresStores(db *sql.DB) (requestStore, directoryStore, publisher.Store) {
	return requeststore.NewPostgres(db), directory.NewPostgres(db), auditpostgres.New(db)
}

// dispatcher publishes email jobs to Kafka when brokers are configured and logs them
// otherwise. Either way delivery goes through the timeout and circuit breaker guard.
func (a *app) dispatcher(ctx context.Context, cfg config.Config, log *slog.Logger) (notification.Dispatcher, error) {
	var next notification.Dispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kafka.NewClient(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, emailTopicPartitions, 1); err != nil {
			client.Close()
			return nil, err
		}
		producer := kafka.NewProducer(client)
		a.closers = append(a.closers, func() { producer.Close(context.Background()) })
		next = notification.NewKafkaDispatcher(producer, cfg.Kafka.Topic)
		a.notifierKind = "kafka"
	} else {
		next = notification.NewLogDispatcher(log)
		a.notifierKind = "log"
	}
	return notification.NewGuarded(next,
		notification.WithTimeout(cfg.Matching.NotifyTimeout),
		notification.WithBreaker(circuit.New("email")),
		notification.WithMetrics(notification.NewMetrics()),
		notification.WithLogger(log),
	), nil
}

func router(cfg config.Config, log *slog.Logger, svc *service.Service, db *sql.DB, rdb *redis.Client) http.Handler {
	httpMetrics := metrics.New()
	jwt := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "", ""))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestTime)
	r.Use(middleware.AccessLog(log))
	r.Use(httpMetrics.Instrument)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if err := health(r.Context(), db, rdb); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, map[string]string{"status": status})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwt, log))
		handler.New(svc, log).Register(r)
	})
	return r
}

func health(ctx context.Context, db *sql.DB, rdb *redis.Client) error {
	var errs []error
	if db != nil {
		if err := db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if rdb != nil {
		if err := rdb.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
