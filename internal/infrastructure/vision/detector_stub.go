//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"object-detector/internal/domain/entity"
)

// ErrNotBuilt сборка без тега gocv.
var ErrNotBuilt = errors.New("gocv build tag is not enabled")

// YoloDetector детектор-заглушка (без OpenCV).
type YoloDetector struct {
	opts Options
}

// NewYoloDetector возвращает ошибку, если сборка без тега gocv.
func NewYoloDetector(opts Options) (*YoloDetector, error) {
	_ = opts
	return nil, ErrNotBuilt
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *YoloDetector) Detect(ctx context.Context, item entity.WorkItem) ([]entity.Detection, error) {
	_ = ctx
	_ = item
	return nil, ErrNotBuilt
}

// ConcurrencySafe заглушка не держит состояния.
func (d *YoloDetector) ConcurrencySafe() bool { return true }

// Close ничего не делает.
func (d *YoloDetector) Close() error { return nil }
