package app

import (
	"sync"

	"object-detector/internal/domain/entity"
)

// Aggregator потокобезопасно собирает результаты воркеров.
type Aggregator struct {
	mu         sync.RWMutex
	items      []entity.ItemResult
	detections int
}

// NewAggregator создаёт пустой агрегатор.
func NewAggregator(capacity int) *Aggregator {
	return &Aggregator{items: make([]entity.ItemResult, 0, capacity)}
}

// Add добавляет результат одного файла целиком.
func (a *Aggregator) Add(result entity.ItemResult) {
	a.mu.Lock()
	a.items = append(a.items, result)
	a.detections += len(result.Detections)
	a.mu.Unlock()
}

// Snapshot возвращает независимую копию всего, что добавлено к этому моменту.
func (a *Aggregator) Snapshot() []entity.ItemResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]entity.ItemResult, len(a.items))
	for i, item := range a.items {
		item.Detections = cloneDetections(item.Detections)
		out[i] = item
	}
	return out
}

// Len число добавленных результатов
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// DetectionCount число добавленных объектов
func (a *Aggregator) DetectionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detections
}

// Reset очищает агрегатор перед новым прогоном.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.items = a.items[:0:0]
	a.detections = 0
	a.mu.Unlock()
}

func cloneDetections(in []entity.Detection) []entity.Detection {
	if in == nil {
		return nil
	}
	out := make([]entity.Detection, len(in))
	copy(out, in)
	return out
}
