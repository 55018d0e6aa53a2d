package http

import (
	"net/http"
	"time"

	"github.com/dreschagin/analytics-validator/internal/interfaces/http/handler"
	"github.com/dreschagin/analytics-validator/internal/interfaces/http/middleware"
	"github.com/dreschagin/analytics-validator/internal/validation"
	"github.com/dreschagin/analytics-validator/pkg/config"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux                  *http.ServeMux
	validationAPIHandler *handler.ValidationAPIHandler
	sessionAPIHandler    *handler.SessionAPIHandler
	websocketHandler     *handler.WebSocketHandler
	runner               *validation.Runner
	security             config.SecurityConfig
	ingest               config.IngestConfig
	observer             middleware.LatencyObserver
	logger               *logger.Logger
}

// NewRouter создает новый router
func NewRouter(
	validationAPIHandler *handler.ValidationAPIHandler,
	sessionAPIHandler *handler.SessionAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	runner *validation.Runner,
	security config.SecurityConfig,
	ingest config.IngestConfig,
	observer middleware.LatencyObserver,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:                  http.NewServeMux(),
		validationAPIHandler: validationAPIHandler,
		sessionAPIHandler:    sessionAPIHandler,
		websocketHandler:     websocketHandler,
		runner:               runner,
		security:             security,
		ingest:               ingest,
		observer:             observer,
		logger:               logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Health endpoints are intentionally unauthenticated for probes.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", rt.readyz)

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)

	// WebSocket
	rt.mux.Handle("/ws", authMiddleware(http.HandlerFunc(rt.websocketHandler.HandleConnection)))

	// Validation API
	rt.mux.Handle("/api/v1/validation/summary", authMiddleware(http.HandlerFunc(rt.validationAPIHandler.GetSummary)))
	rt.mux.Handle("/api/v1/validation/latest", authMiddleware(http.HandlerFunc(rt.validationAPIHandler.GetLatest)))
	rt.mux.Handle("/api/v1/validation/history", authMiddleware(http.HandlerFunc(rt.validationAPIHandler.GetHistory)))
	rt.mux.Handle("/api/v1/validation/baseline", authMiddleware(http.HandlerFunc(rt.validationAPIHandler.GetBaseline)))
	rt.mux.Handle("/api/v1/validation/trends", authMiddleware(http.HandlerFunc(rt.validationAPIHandler.GetTrends)))
	rt.mux.Handle("/api/v1/validation/run", authMiddleware(http.HandlerFunc(rt.validationAPIHandler.RunNow)))

	// Ingest API дополнительно ограничен по rps, чтобы шумный клиент
	// не влиял на показания performance impact проверки
	ingestLimiter := middleware.NewIPRateLimiter(rt.ingest.RateLimitPerSecond, rt.ingest.RateLimitBurst)
	rateLimited := middleware.RateLimit(ingestLimiter)

	rt.mux.Handle("/api/v1/sessions/start", rateLimited(authMiddleware(http.HandlerFunc(rt.sessionAPIHandler.StartSession))))
	rt.mux.Handle("/api/v1/sessions/events", rateLimited(authMiddleware(http.HandlerFunc(rt.sessionAPIHandler.TrackEvent))))

	// Применяем middleware
	var h http.Handler = rt.mux
	h = middleware.Compression(h)
	h = middleware.Logger(rt.logger, rt.observer)(h)
	h = middleware.Recovery(rt.logger)(h)

	return h
}

// readyz сообщает о готовности только когда цикл валидации не отстает
// от расписания
func (rt *Router) readyz(w http.ResponseWriter, _ *http.Request) {
	snapshot := rt.runner.Snapshot()

	if snapshot.LastRunAt.IsZero() {
		http.Error(w, "not ready: no validation cycle yet", http.StatusServiceUnavailable)
		return
	}
	if time.Since(snapshot.LastRunAt) > snapshot.Interval*3 {
		http.Error(w, "not ready: stale validation cycle", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
