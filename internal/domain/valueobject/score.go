package valueobject

import "fmt"

// Score представляет оценку проверки в диапазоне [0, 100] (Value Object)
// Иммутабельный объект
type Score float64

const (
	MinScore Score = 0
	MaxScore Score = 100
)

// NewScore создает новый Score, ограничивая значение диапазоном [0, 100]
func NewScore(value float64) Score {
	if value < float64(MinScore) {
		return MinScore
	}
	if value > float64(MaxScore) {
		return MaxScore
	}
	return Score(value)
}

// Deduct снимает указанное количество баллов, не опускаясь ниже нуля
func (s Score) Deduct(points float64) Score {
	return NewScore(float64(s) - points)
}

// Raw возвращает числовое значение
func (s Score) Raw() float64 {
	return float64(s)
}

// IsPerfect проверяет, является ли оценка максимальной
func (s Score) IsPerfect() bool {
	return s == MaxScore
}

// String возвращает строковое представление
func (s Score) String() string {
	return fmt.Sprintf("%.1f", float64(s))
}
