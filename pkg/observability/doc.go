// Package observability provides structured logging, Prometheus metrics,
// health probes, and OpenTelemetry tracing for the copperdesk server.
//
// # Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Warn("scope resolution failed, falling back to unrestricted visibility")
//
// # Metrics
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.ScopeResolutionsTotal.WithLabelValues("owner", "ok").Inc()
//
// # Health
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	healthMux.HandleFunc("/healthz", checker.Liveness)
//	healthMux.HandleFunc("/readyz", checker.Readiness)
package observability
