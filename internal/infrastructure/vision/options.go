package vision

import (
	"context"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// Options параметры модели, согласованные заранее.
type Options struct {
	ModelPath     string
	ConfigPath    string // для Darknet-моделей; пусто для ONNX
	InputSize     int
	ConfThreshold float32
	IoUThreshold  float32
	Vocabulary    *entity.Vocabulary
}

// DefaultOptions параметры YOLOv4 416x416 со словарём COCO.
func DefaultOptions(modelPath string) Options {
	return Options{
		ModelPath:     modelPath,
		InputSize:     416,
		ConfThreshold: 0.3,
		IoUThreshold:  0.7,
		Vocabulary:    entity.NewVocabulary(entity.CocoLabels),
	}
}

// NewFactory возвращает фабрику: каждый вызов загружает свою копию сети.
func NewFactory(opts Options) port.DetectorFactory {
	return func(ctx context.Context) (port.Detector, error) {
		det, err := NewYoloDetector(opts)
		if err != nil {
			return nil, err
		}
		return det, nil
	}
}
