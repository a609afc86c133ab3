package httpx

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kyoronginus/accountlink/internal/observability/metrics"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Dispatcher TriggerDispatcher // Required
	Accounts   AccountAdmin      // Optional; enables /v1/accounts
	Evaluator  DecisionEvaluator // Optional; enables /v1/decisions
	// Verifier guards every /v1 route when set.
	Verifier TokenVerifier
	// Gatherer exposes /metrics when set.
	Gatherer prometheus.Gatherer
	// Checks back /readyz; an empty set reports ready.
	Checks   map[string]HealthCheck
	Metrics  *metrics.HTTP
	Logger   *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	auth := RequireBearer(services.Verifier, logger)

	handle := func(pattern, route string, h http.HandlerFunc) {
		mux.Handle(pattern, Chain(h, Instrument(services.Metrics, route), auth))
	}

	triggers := &TriggerHandlers{Dispatcher: services.Dispatcher, Logger: logger}
	handle("POST /v1/triggers", "/v1/triggers", triggers.Handle)

	accounts := &AccountHandlers{Admin: services.Accounts, Evaluator: services.Evaluator}
	if services.Accounts != nil {
		handle("GET /v1/accounts", "/v1/accounts", accounts.Lookup)
		handle("GET /v1/accounts/{id}", "/v1/accounts/{id}", accounts.Get)
		handle("POST /v1/accounts/{id}/methods", "/v1/accounts/{id}/methods", accounts.LinkMethod)
	}
	if services.Evaluator != nil {
		handle("POST /v1/decisions", "/v1/decisions", accounts.Evaluate)
	}

	health := &HealthHandlers{Checks: services.Checks}
	mux.HandleFunc("GET /healthz", health.Live)
	mux.HandleFunc("HEAD /healthz", health.Live)
	mux.HandleFunc("GET /readyz", health.Ready)
	if services.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(services.Gatherer, promhttp.HandlerOpts{}))
	}

	return Chain(mux, RequestID(), Recover(logger), Logging(logger))
}
