package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dreschagin/analytics-validator/internal/domain/valueobject"
	"github.com/dreschagin/analytics-validator/internal/validation"
)

// ResultDBModel представляет результат цикла в БД
type ResultDBModel struct {
	ID              string
	OccurredAt      time.Time
	DurationMs      int64
	OverallScore    float64
	Status          string
	Checks          []byte // JSONB
	Recommendations []byte // JSONB
	Error           sql.NullString
}

// ToDBModel конвертирует результат цикла в DB Model
func ToDBModel(result validation.CycleResult) (*ResultDBModel, error) {
	var checksBytes []byte
	var err error

	if len(result.Checks) > 0 {
		checksBytes, err = json.Marshal(result.Checks)
		if err != nil {
			return nil, err
		}
	}

	var recsBytes []byte
	if len(result.Recommendations) > 0 {
		recsBytes, err = json.Marshal(result.Recommendations)
		if err != nil {
			return nil, err
		}
	}

	model := &ResultDBModel{
		ID:              result.ID,
		OccurredAt:      result.Timestamp,
		DurationMs:      result.Duration.Milliseconds(),
		OverallScore:    result.OverallScore,
		Status:          result.Status.String(),
		Checks:          checksBytes,
		Recommendations: recsBytes,
	}

	if result.Error != "" {
		model.Error = sql.NullString{String: result.Error, Valid: true}
	}

	return model, nil
}

// ToCycleResult конвертирует DB Model обратно в результат цикла
func ToCycleResult(model *ResultDBModel) (validation.CycleResult, error) {
	result := validation.CycleResult{
		ID:           model.ID,
		Timestamp:    model.OccurredAt,
		Duration:     time.Duration(model.DurationMs) * time.Millisecond,
		OverallScore: model.OverallScore,
		Status:       valueobject.ValidationStatus(model.Status),
		Checks:       make(map[string]validation.CheckResult),
	}

	if len(model.Checks) > 0 {
		if err := json.Unmarshal(model.Checks, &result.Checks); err != nil {
			return validation.CycleResult{}, err
		}
	}

	if len(model.Recommendations) > 0 {
		if err := json.Unmarshal(model.Recommendations, &result.Recommendations); err != nil {
			return validation.CycleResult{}, err
		}
	}

	if model.Error.Valid {
		result.Error = model.Error.String
	}

	return result, nil
}

// ScanResultRow сканирует строку БД в ResultDBModel
func ScanResultRow(row interface {
	Scan(dest ...interface{}) error
}) (*ResultDBModel, error) {
	var model ResultDBModel
	var checks sql.NullString
	var recommendations sql.NullString

	err := row.Scan(
		&model.ID,
		&model.OccurredAt,
		&model.DurationMs,
		&model.OverallScore,
		&model.Status,
		&checks,
		&recommendations,
		&model.Error,
	)

	if err != nil {
		return nil, err
	}

	if checks.Valid {
		model.Checks = []byte(checks.String)
	}
	if recommendations.Valid {
		model.Recommendations = []byte(recommendations.String)
	}

	return &model, nil
}
