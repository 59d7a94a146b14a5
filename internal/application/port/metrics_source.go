package port

import (
	"context"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
)

// MetricsSource определяет интерфейс получения snapshot'а метрик (Port)
// Реализации: случайный mock, фикстура, реальная телеметрия процесса
type MetricsSource interface {
	// Collect снимает один snapshot пяти метрик
	Collect(ctx context.Context) (*entity.MetricsSnapshot, error)
}

// MetricsSourceFunc позволяет использовать функцию как MetricsSource
type MetricsSourceFunc func(ctx context.Context) (*entity.MetricsSnapshot, error)

// Collect вызывает f(ctx)
func (f MetricsSourceFunc) Collect(ctx context.Context) (*entity.MetricsSnapshot, error) {
	return f(ctx)
}
