package app

import "errors"

var (
	// ErrInvalidParallelism параллелизм должен быть положительным
	ErrInvalidParallelism = errors.New("parallelism must be positive")
	// ErrInvalidFolder каталог с изображениями не существует или недоступен
	ErrInvalidFolder = errors.New("invalid image folder")
	// ErrRunInProgress прогон уже выполняется
	ErrRunInProgress = errors.New("run is already in progress")
	// ErrDetectorPanic детектор запаниковал на одном файле
	ErrDetectorPanic = errors.New("detector panicked")
	// ErrInvalidDetection детектор вернул непригодный результат
	ErrInvalidDetection = errors.New("invalid detection")
	// ErrNoDetector фабрика детекторов не задана
	ErrNoDetector = errors.New("detector is not configured")
)
