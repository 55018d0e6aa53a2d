package postgres

import (
	"context"
	"time"

	"github.com/dreschagin/analytics-validator/internal/validation"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

const saveTimeout = 5 * time.Second

// ArchiveListener записывает каждый завершенный цикл в архив.
// Реализует интерфейс validation.CycleListener.
type ArchiveListener struct {
	archive *ResultArchive
	logger  *logger.Logger
}

func NewArchiveListener(archive *ResultArchive, log *logger.Logger) *ArchiveListener {
	return &ArchiveListener{archive: archive, logger: log}
}

// OnCycleResult сохраняет результат. Ошибки БД логируются и не
// прерывают цикл валидации.
func (l *ArchiveListener) OnCycleResult(ctx context.Context, result validation.CycleResult) {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	if err := l.archive.Save(ctx, result); err != nil {
		l.logger.Warn("Failed to archive validation result",
			"cycle_id", result.ID,
			"error", err.Error(),
		)
		return
	}

	l.logger.Debug("Validation result archived", "cycle_id", result.ID)
}
