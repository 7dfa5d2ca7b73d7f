package entity

import "time"

// StoredObject вырезанный объект, сохранённый в базе.
type StoredObject struct {
	ID         int64
	RunID      string
	File       string
	Label      string
	Confidence float32
	X          int
	Y          int
	Width      int
	Height     int
	Image      []byte // PNG-вырезка объекта
	CreatedAt  time.Time
}

// NewStoredObject переводит детекцию в целочисленные координаты (ширина = x2 - x1).
func NewStoredObject(runID string, item WorkItem, d Detection, crop []byte) StoredObject {
	x := int(d.Box.X1)
	y := int(d.Box.Y1)
	return StoredObject{
		RunID:      runID,
		File:       string(item),
		Label:      d.Label,
		Confidence: d.Confidence,
		X:          x,
		Y:          y,
		Width:      int(d.Box.X2) - x,
		Height:     int(d.Box.Y2) - y,
		Image:      crop,
	}
}
