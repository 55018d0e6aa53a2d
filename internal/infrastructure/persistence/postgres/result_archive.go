package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/dreschagin/analytics-validator/internal/domain/valueobject"
	"github.com/dreschagin/analytics-validator/internal/validation"
)

// ResultArchive хранит результаты циклов валидации в PostgreSQL.
// В отличие от in-memory истории движка, архив не усекается и переживает
// рестарты сервиса.
type ResultArchive struct {
	db *sql.DB
}

// NewResultArchive создает архив и таблицу, если ее еще нет
func NewResultArchive(ctx context.Context, db *sql.DB) (*ResultArchive, error) {
	archive := &ResultArchive{db: db}

	if err := archive.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return archive, nil
}

func (a *ResultArchive) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS validation_results (
			id              TEXT PRIMARY KEY,
			occurred_at     TIMESTAMPTZ NOT NULL,
			duration_ms     BIGINT NOT NULL,
			overall_score   DOUBLE PRECISION NOT NULL,
			status          TEXT NOT NULL,
			checks          JSONB,
			recommendations JSONB,
			error           TEXT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_validation_results_occurred_at
			ON validation_results (occurred_at DESC);
	`

	_, err := a.db.ExecContext(ctx, query)
	return err
}

// Save сохраняет один результат цикла
func (a *ResultArchive) Save(ctx context.Context, result validation.CycleResult) error {
	model, err := ToDBModel(result)
	if err != nil {
		return fmt.Errorf("failed to convert to DB model: %w", err)
	}

	query := `
		INSERT INTO validation_results (id, occurred_at, duration_ms, overall_score, status, checks, recommendations, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = a.db.ExecContext(ctx, query,
		model.ID,
		model.OccurredAt,
		model.DurationMs,
		model.OverallScore,
		model.Status,
		model.Checks,
		model.Recommendations,
		model.Error,
	)

	if err != nil {
		return fmt.Errorf("failed to insert validation result: %w", err)
	}

	return nil
}

// FindRecent возвращает последние результаты, новые первыми
func (a *ResultArchive) FindRecent(ctx context.Context, limit int) ([]validation.CycleResult, error) {
	query := `
		SELECT id, occurred_at, duration_ms, overall_score, status, checks, recommendations, error
		FROM validation_results
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation results: %w", err)
	}
	defer rows.Close()

	return a.scanResults(rows)
}

// FindByTimeRange возвращает результаты за указанный период
func (a *ResultArchive) FindByTimeRange(ctx context.Context, from, to time.Time) ([]validation.CycleResult, error) {
	query := `
		SELECT id, occurred_at, duration_ms, overall_score, status, checks, recommendations, error
		FROM validation_results
		WHERE occurred_at BETWEEN $1 AND $2
		ORDER BY occurred_at DESC
	`

	rows, err := a.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation results: %w", err)
	}
	defer rows.Close()

	return a.scanResults(rows)
}

// CountByStatus возвращает количество результатов с указанным статусом
func (a *ResultArchive) CountByStatus(ctx context.Context, status valueobject.ValidationStatus) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM validation_results
		WHERE status = $1
	`

	var count int64
	err := a.db.QueryRowContext(ctx, query, status.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count validation results: %w", err)
	}

	return count, nil
}

// DeleteOlderThan удаляет результаты старше указанного времени
func (a *ResultArchive) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM validation_results
		WHERE occurred_at < $1
	`

	result, err := a.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old validation results: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// scanResults сканирует несколько строк в слайс результатов
func (a *ResultArchive) scanResults(rows *sql.Rows) ([]validation.CycleResult, error) {
	var results []validation.CycleResult

	for rows.Next() {
		model, err := ScanResultRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		result, err := ToCycleResult(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to cycle result: %w", err)
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return results, nil
}
