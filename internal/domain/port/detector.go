package port

import (
	"context"

	"object-detector/internal/domain/entity"
)

// Detector функция инференса: одно изображение — список найденных объектов.
type Detector interface {
	// Detect синхронно анализирует файл изображения
	Detect(ctx context.Context, item entity.WorkItem) ([]entity.Detection, error)
}

// ConcurrentDetector детектор, которому можно одновременно передавать несколько изображений.
type ConcurrentDetector interface {
	Detector

	// ConcurrencySafe сообщает, безопасен ли детектор для общего использования воркерами
	ConcurrencySafe() bool
}

// DetectorFactory создаёт новый экземпляр детектора (например, свою копию сети для воркера).
type DetectorFactory func(ctx context.Context) (Detector, error)
