package port

import (
	"context"

	"object-detector/internal/domain/entity"
)

// SubscriberRepository интерфейс хранилища подписчиков
type SubscriberRepository interface {
	// Get возвращает подписчика по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.Subscriber, error)

	// Save сохраняет состояние подписчика
	Save(ctx context.Context, sub *entity.Subscriber) error

	// List возвращает всех подписчиков
	List(ctx context.Context) ([]entity.Subscriber, error)
}

// ObjectRepository хранилище вырезанных объектов
type ObjectRepository interface {
	// Save записывает объекты, пропуская уже сохранённые; возвращает число новых строк
	Save(ctx context.Context, objects []entity.StoredObject) (int, error)

	// List возвращает все сохранённые объекты
	List(ctx context.Context) ([]entity.StoredObject, error)

	// Count число сохранённых объектов
	Count(ctx context.Context) (int, error)

	// Clear удаляет все объекты
	Clear(ctx context.Context) error
}
