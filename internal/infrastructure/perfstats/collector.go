package perfstats

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/dreschagin/analytics-validator/internal/application/port"
)

// latencyWindow ограничивает окно для среднего времени ответа.
const latencyWindow = 256

// Collector собирает счетчики производительности собственного процесса.
// Реализует интерфейс port.PerformanceSource.
//
// Память читается через gopsutil; среднее время ответа и счетчик ошибок
// наполняются HTTP middleware через Observe.
type Collector struct {
	proc *process.Process

	mu          sync.RWMutex
	latencies   []time.Duration
	totalErrors int64
}

// NewCollector создает collector для текущего процесса.
func NewCollector() (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	return &Collector{proc: proc}, nil
}

// Observe регистрирует обработанный HTTP запрос.
func (c *Collector) Observe(latency time.Duration, statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latencies = append(c.latencies, latency)
	if len(c.latencies) > latencyWindow {
		c.latencies = c.latencies[1:]
	}

	if statusCode >= http.StatusInternalServerError {
		c.totalErrors++
	}
}

// RecordError увеличивает счетчик ошибок вне HTTP-контекста.
func (c *Collector) RecordError() {
	c.mu.Lock()
	c.totalErrors++
	c.mu.Unlock()
}

// PerformanceStats возвращает snapshot счетчиков ресурсов
// (реализация port.PerformanceSource)
func (c *Collector) PerformanceStats(ctx context.Context) (port.PerformanceStats, error) {
	memInfo, err := c.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return port.PerformanceStats{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return port.PerformanceStats{
		MemoryUsageBytes:  memInfo.RSS,
		AvgResponseTimeMs: c.avgLatencyMsLocked(),
		TotalErrors:       c.totalErrors,
	}, nil
}

func (c *Collector) avgLatencyMsLocked() float64 {
	if len(c.latencies) == 0 {
		return 0
	}

	var total time.Duration
	for _, latency := range c.latencies {
		total += latency
	}

	avg := total / time.Duration(len(c.latencies))
	return float64(avg.Microseconds()) / 1000.0
}
