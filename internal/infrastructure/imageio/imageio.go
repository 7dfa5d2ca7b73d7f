// Package imageio читает изображения с диска, уменьшает их и вырезает найденные объекты.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/nfnt/resize"

	"object-detector/internal/domain/entity"
)

// ErrEmptyCrop рамка объекта не пересекается с изображением.
var ErrEmptyCrop = errors.New("bounding box is outside of the image")

// Load декодирует файл изображения.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// Downscale уменьшает изображение так, чтобы большая сторона не превышала maxSide.
// Возвращает коэффициент, на который нужно умножить координаты уменьшенной картинки.
func Downscale(img image.Image, maxSide int) (image.Image, float32) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img, 1
	}

	var out image.Image
	if w >= h {
		out = resize.Resize(uint(maxSide), 0, img, resize.Bilinear)
	} else {
		out = resize.Resize(0, uint(maxSide), img, resize.Bilinear)
	}
	return out, float32(w) / float32(out.Bounds().Dx())
}

// EncodeJPEG кодирует изображение для отправки по сети.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Crop вырезает область объекта и кодирует её в PNG.
func Crop(img image.Image, box entity.BBox) ([]byte, error) {
	r := box.Rect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyCrop
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
