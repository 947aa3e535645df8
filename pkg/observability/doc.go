// Package observability provides structured logging, Prometheus metrics,
// health checks, and graceful shutdown for the Alohawaii API.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 8080).Info("server started")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordGateDecision("internal", "allowed", true)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db)
//	mux.HandleFunc("/healthz", checker.Liveness)
//	mux.HandleFunc("/readyz", checker.Readiness)
package observability
