package port

import "context"

// SessionInfo представляет snapshot текущей аналитической сессии
// Используется для передачи данных между Infrastructure и Application слоями.
// Нулевое значение поля означает "данные отсутствуют".
type SessionInfo struct {
	SessionID       string
	DurationSeconds float64
	JourneyEvents   int64
	UserID          string
	UserType        string
}

// PerformanceStats представляет snapshot счетчиков производительности процесса
type PerformanceStats struct {
	MemoryUsageBytes  uint64
	AvgResponseTimeMs float64
	TotalErrors       int64
}

// SessionSource определяет интерфейс источника сессионных счетчиков (Port)
// Реализация будет в Infrastructure слое
type SessionSource interface {
	// SessionInfo возвращает snapshot текущей сессии
	SessionInfo(ctx context.Context) (SessionInfo, error)

	// TrackAction регистрирует синтетическое действие пользователя
	// (используется только проверкой синхронизации)
	TrackAction(ctx context.Context, name, category string) error
}

// PerformanceSource определяет интерфейс источника счетчиков производительности (Port)
type PerformanceSource interface {
	// PerformanceStats возвращает snapshot счетчиков ресурсов
	PerformanceStats(ctx context.Context) (PerformanceStats, error)
}
