package port

import (
	"context"

	"object-detector/internal/domain/entity"
)

// Observer получает уведомление после обработки каждого файла.
// Уведомления информативны, итог прогона — RunResult.
type Observer interface {
	OnItem(ctx context.Context, event entity.ItemEvent) error
}

// RunFinisher опционально реализуется наблюдателем, которому нужен итог прогона.
type RunFinisher interface {
	OnRunFinished(ctx context.Context, result *entity.RunResult) error
}

// ObserverFunc адаптер обычной функции к Observer.
type ObserverFunc func(ctx context.Context, event entity.ItemEvent) error

// OnItem вызывает f
func (f ObserverFunc) OnItem(ctx context.Context, event entity.ItemEvent) error {
	return f(ctx, event)
}
