package storage

import (
	"context"
	"sort"
	"sync"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// MemorySubscriberRepository in-memory хранилище подписчиков
type MemorySubscriberRepository struct {
	mu   sync.RWMutex
	subs map[int64]*entity.Subscriber
}

// NewMemorySubscriberRepository создаёт новое in-memory хранилище
func NewMemorySubscriberRepository() *MemorySubscriberRepository {
	return &MemorySubscriberRepository{
		subs: make(map[int64]*entity.Subscriber),
	}
}

// Get возвращает подписчика по ID, создаёт нового если не найден
func (r *MemorySubscriberRepository) Get(ctx context.Context, userID, chatID int64) (*entity.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, exists := r.subs[userID]; exists {
		cp := *sub
		return &cp, nil
	}

	sub := entity.NewSubscriber(userID, chatID)
	r.subs[userID] = sub

	cp := *sub
	return &cp, nil
}

// Save сохраняет состояние подписчика
func (r *MemorySubscriberRepository) Save(ctx context.Context, sub *entity.Subscriber) error {
	cp := *sub

	r.mu.Lock()
	r.subs[sub.UserID] = &cp
	r.mu.Unlock()

	return nil
}

// List возвращает копии всех подписчиков, упорядоченные по UserID
func (r *MemorySubscriberRepository) List(ctx context.Context) ([]entity.Subscriber, error) {
	r.mu.RLock()
	out := make([]entity.Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, *sub)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Проверка реализации интерфейса
var _ port.SubscriberRepository = (*MemorySubscriberRepository)(nil)
