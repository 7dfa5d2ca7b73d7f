package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// ModelSharing политика использования модели воркерами
type ModelSharing string

const (
	SharingPerWorker ModelSharing = "per_worker" // Каждый воркер получает свой экземпляр
	SharingShared    ModelSharing = "shared"     // Один экземпляр на все воркеры
)

// ParseModelSharing разбирает значение из конфигурации.
func ParseModelSharing(s string) (ModelSharing, error) {
	switch ModelSharing(s) {
	case SharingPerWorker, "":
		return SharingPerWorker, nil
	case SharingShared:
		return SharingShared, nil
	default:
		return "", fmt.Errorf("unknown model sharing %q", s)
	}
}

// serializedDetector пропускает вызовы к небезопасному детектору по одному.
type serializedDetector struct {
	mu  sync.Mutex
	det port.Detector
}

// Serialize оборачивает детектор так, что Detect никогда не выполняется параллельно.
func Serialize(det port.Detector) port.Detector {
	return &serializedDetector{det: det}
}

func (s *serializedDetector) Detect(ctx context.Context, item entity.WorkItem) ([]entity.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.det.Detect(ctx, item)
}

func (s *serializedDetector) Close() error {
	if c, ok := s.det.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func concurrencySafe(det port.Detector) bool {
	cd, ok := det.(port.ConcurrentDetector)
	return ok && cd.ConcurrencySafe()
}

// provisionDetectors создаёт по детектору на каждый из n воркеров согласно политике.
func provisionDetectors(ctx context.Context, factory port.DetectorFactory, sharing ModelSharing, n int) ([]port.Detector, func(), error) {
	if factory == nil {
		return nil, nil, ErrNoDetector
	}

	var created []port.Detector
	release := func() {
		for _, det := range created {
			if c, ok := det.(io.Closer); ok {
				_ = c.Close()
			}
		}
	}

	workers := make([]port.Detector, n)
	if sharing == SharingShared {
		det, err := factory(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create detector: %w", err)
		}
		if !concurrencySafe(det) {
			det = Serialize(det)
		}
		created = append(created, det)
		for i := range workers {
			workers[i] = det
		}
		return workers, release, nil
	}

	for i := range workers {
		det, err := factory(ctx)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("create detector for worker %d: %w", i, err)
		}
		created = append(created, det)
		workers[i] = det
	}
	return workers, release, nil
}
