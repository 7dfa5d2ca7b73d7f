package entity

import (
	"fmt"
	"image"
	"math"
)

// BBox ограничивающая рамка объекта в пикселях изображения (x1,y1 — левый верхний угол).
type BBox struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// NewBBox собирает рамку из двух углов, упорядочивая координаты.
func NewBBox(x1, y1, x2, y2 float32) BBox {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width ширина рамки
func (b BBox) Width() float32 { return b.X2 - b.X1 }

// Height высота рамки
func (b BBox) Height() float32 { return b.Y2 - b.Y1 }

// Valid проверяет порядок координат и отсутствие NaN.
func (b BBox) Valid() bool {
	for _, v := range []float32{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return b.Width() >= 0 && b.Height() >= 0
}

// Scale умножает координаты на коэффициент (например, после уменьшения картинки).
func (b BBox) Scale(k float32) BBox {
	return BBox{X1: b.X1 * k, Y1: b.Y1 * k, X2: b.X2 * k, Y2: b.Y2 * k}
}

// Rect переводит рамку в целочисленный прямоугольник, обрезанный по границам bounds.
func (b BBox) Rect(bounds image.Rectangle) image.Rectangle {
	r := image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
	return r.Intersect(bounds)
}

func (b BBox) String() string {
	return fmt.Sprintf("[%.0f,%.0f,%.0f,%.0f]", b.X1, b.Y1, b.X2, b.Y2)
}
