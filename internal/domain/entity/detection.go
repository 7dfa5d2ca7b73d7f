package entity

import (
	"path/filepath"
	"time"
)

// WorkItem путь к одному файлу изображения — единица работы прогона.
type WorkItem string

// Name возвращает имя файла без каталога.
func (w WorkItem) Name() string {
	return filepath.Base(string(w))
}

// Detection один распознанный объект.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	Box        BBox    `json:"bbox"`
}

// ItemResult результат обработки одного файла.
// Пустой Detections при Err == nil означает «объектов не найдено».
type ItemResult struct {
	Item       WorkItem
	Detections []Detection
	Err        error
	Duration   time.Duration
}

// Failed сообщает, завершилась ли обработка файла ошибкой.
func (r ItemResult) Failed() bool {
	return r.Err != nil
}

// Labels возвращает метки объектов в порядке обнаружения.
func (r ItemResult) Labels() []string {
	labels := make([]string, 0, len(r.Detections))
	for _, d := range r.Detections {
		labels = append(labels, d.Label)
	}
	return labels
}
