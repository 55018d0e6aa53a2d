package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dreschagin/analytics-validator/internal/interfaces/http/middleware"
	"github.com/dreschagin/analytics-validator/internal/validation"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

const runNowTimeout = 8 * time.Second

// ValidationAPIHandler обрабатывает API запросы к движку валидации
type ValidationAPIHandler struct {
	engine *validation.Engine
	runner *validation.Runner
	logger *logger.Logger
}

// NewValidationAPIHandler создает новый handler
func NewValidationAPIHandler(engine *validation.Engine, runner *validation.Runner, log *logger.Logger) *ValidationAPIHandler {
	return &ValidationAPIHandler{
		engine: engine,
		runner: runner,
		logger: log,
	}
}

// GetSummary возвращает сводку состояния валидации
// GET /api/v1/validation/summary
func (h *ValidationAPIHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.engine.Summary())
}

// GetLatest возвращает результат последнего цикла
// GET /api/v1/validation/latest
func (h *ValidationAPIHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	latest := h.engine.Latest()
	if latest == nil {
		middleware.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error": "no validation result yet",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, latest)
}

// GetHistory возвращает историю циклов, старые первыми
// GET /api/v1/validation/history
func (h *ValidationAPIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.engine.History())
}

// GetBaseline возвращает baseline-снимок метрик
// GET /api/v1/validation/baseline
func (h *ValidationAPIHandler) GetBaseline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.engine.Baseline())
}

// GetTrends возвращает trend-окно указанной метрики
// GET /api/v1/validation/trends?metric=session_duration
func (h *ValidationAPIHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": "metric query parameter is required",
		})
		return
	}

	series := h.engine.TrendWindow(metric)
	if series == nil {
		middleware.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error": "no trend data for metric: " + metric,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"metric": metric,
		"values": series,
	})
}

// RunNow запускает внеочередной цикл валидации
// POST /api/v1/validation/run
func (h *ValidationAPIHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), runNowTimeout)
	defer cancel()

	result := h.runner.RunOnce(ctx)

	h.logger.Info("On-demand validation completed",
		"cycle_id", result.ID,
		"score", result.OverallScore,
		"status", result.Status.String(),
	)

	middleware.WriteJSON(w, http.StatusOK, result)
}
