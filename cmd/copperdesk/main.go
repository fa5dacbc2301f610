// Command copperdesk runs the ticket visibility service: session-gated
// ticket retrieval with row-level scoping, plus role management.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/copperdesk/copperdesk/pkg/auth"
	"github.com/copperdesk/copperdesk/pkg/config"
	"github.com/copperdesk/copperdesk/pkg/httputil"
	"github.com/copperdesk/copperdesk/pkg/middleware"
	"github.com/copperdesk/copperdesk/pkg/observability"
	"github.com/copperdesk/copperdesk/pkg/query"
	"github.com/copperdesk/copperdesk/pkg/roles"
	"github.com/copperdesk/copperdesk/pkg/tickets"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting copperdesk")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("copperdesk exited with error")
		os.Exit(1)
	}
	logger.Info("copperdesk stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	// Tracing
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return err
	}
	logger.Info("database connected")

	if err := roles.Migrate(ctx, db); err != nil {
		return err
	}
	if err := tickets.Migrate(ctx, db); err != nil {
		return err
	}
	sessionSQL := auth.NewSQLStore(db)
	if err := sessionSQL.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("migrations applied")

	// Optional shared session store
	var redisClient *redis.Client
	var sessionStore auth.Store = sessionSQL
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		sessionStore = auth.NewRedisStore(redisClient)
		logger.Info("redis session store connected")
	}

	// Metrics
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	// Collaborators
	validator := auth.NewValidator(sessionStore, cfg.Auth.SessionCacheSize, cfg.Auth.SessionCacheTTL, metrics)
	roleStore := roles.NewStore(db)

	policy := roles.FailOpen
	if cfg.Visibility.ResolutionPolicy == config.PolicyFailClosed {
		policy = roles.FailClosed
	}
	resolver := roles.NewResolver(roleStore, policy, logger, metrics)
	logger.WithField("policy", policy.String()).Info("scope resolution policy configured")

	ticketStore := tickets.NewStore(db, query.Postgres)
	ticketHandlers := tickets.NewHandlers(ticketStore, resolver, logger, metrics)
	roleHandlers := roles.NewHandlers(roleStore, logger)

	// API router: authenticated routes behind the session middleware.
	sessionMW := middleware.NewSessionMiddleware(validator)

	router := mux.NewRouter()
	router.Use(httputil.RequestIDMiddleware)
	router.Use(httputil.RecoveryMiddleware)
	router.Use(httputil.LoggingMiddleware)
	if metrics != nil {
		router.Use(metrics.HTTPMiddleware)
	}
	router.Use(sessionMW.Handler)
	ticketHandlers.RegisterRoutes(router)
	roleHandlers.RegisterRoutes(router)

	var apiHandler http.Handler = router
	if cfg.Observability.OTelEnabled {
		apiHandler = otelhttp.NewHandler(router, "copperdesk")
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port so probes bypass auth.
	healthChecker := observability.NewHealthChecker(db, redisClient)
	healthRouter := mux.NewRouter()
	healthRouter.HandleFunc("/healthz", healthChecker.Liveness).Methods("GET")
	healthRouter.HandleFunc("/readyz", healthChecker.Readiness).Methods("GET")
	if metrics != nil {
		healthRouter.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthRouter,
	}

	// Background jobs: expired-session sweep and DB pool gauges.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Auth.SweepSchedule, func() {
		swept, err := sessionSQL.Sweep(context.Background())
		if err != nil {
			logger.WithError(err).Warn("session sweep failed")
			return
		}
		if swept > 0 {
			logger.WithField("sessions", swept).Info("swept expired sessions")
		}
		if metrics != nil {
			metrics.SessionsSweptTotal.Add(float64(swept))
		}
	}); err != nil {
		return err
	}
	if metrics != nil {
		if _, err := scheduler.AddFunc("@every 15s", func() {
			metrics.UpdateDBStats(db)
		}); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown failed")
		}
		return nil
	})

	return group.Wait()
}
