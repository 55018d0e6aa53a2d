package valueobject

import "errors"

// ValidationStatus представляет статус цикла валидации (Value Object)
type ValidationStatus string

const (
	StatusPassed  ValidationStatus = "passed"
	StatusWarning ValidationStatus = "warning"
	StatusFailed  ValidationStatus = "failed"
)

// Пороги статусов: >= 90 passed, >= 70 warning, иначе failed
const (
	passedScoreFloor  = 90.0
	warningScoreFloor = 70.0
)

// StatusForScore определяет статус по итоговой оценке цикла
func StatusForScore(overallScore float64) ValidationStatus {
	switch {
	case overallScore >= passedScoreFloor:
		return StatusPassed
	case overallScore >= warningScoreFloor:
		return StatusWarning
	default:
		return StatusFailed
	}
}

// Validate проверяет валидность статуса
func (vs ValidationStatus) Validate() error {
	switch vs {
	case StatusPassed, StatusWarning, StatusFailed:
		return nil
	default:
		return errors.New("invalid validation status")
	}
}

// String возвращает строковое представление статуса
func (vs ValidationStatus) String() string {
	return string(vs)
}

// AllValidationStatuses возвращает список всех допустимых статусов
func AllValidationStatuses() []ValidationStatus {
	return []ValidationStatus{StatusPassed, StatusWarning, StatusFailed}
}
