//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"object-detector/internal/domain/entity"
)

// YoloDetector детектор объектов на gocv DNN. Сеть не потокобезопасна:
// один экземпляр на воркер либо последовательный доступ.
type YoloDetector struct {
	opts         Options
	net          gocv.Net
	outputLayers []string
}

// NewYoloDetector загружает сеть из файла модели.
func NewYoloDetector(opts Options) (*YoloDetector, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}

	var net gocv.Net
	if opts.ConfigPath != "" {
		net = gocv.ReadNet(opts.ModelPath, opts.ConfigPath)
	} else {
		net = gocv.ReadNetFromONNX(opts.ModelPath)
	}
	if net.Empty() {
		return nil, errors.New("failed to load network")
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YoloDetector{
		opts:         opts,
		net:          net,
		outputLayers: getOutputLayers(net),
	}, nil
}

// Detect читает файл, прогоняет сеть и возвращает объекты после NMS.
func (d *YoloDetector) Detect(ctx context.Context, item entity.WorkItem) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.IMRead(string(item), gocv.IMReadColor)
	if mat.Empty() {
		return nil, errors.New("failed to decode image")
	}
	defer mat.Close()

	size := image.Pt(d.opts.InputSize, d.opts.InputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outputs := d.net.ForwardLayers(d.outputLayers)
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	return d.decode(outputs, mat.Cols(), mat.Rows()), nil
}

// decode разбирает строки [cx, cy, w, h, objectness, scores...] в нормированных координатах.
func (d *YoloDetector) decode(outputs []gocv.Mat, width, height int) []entity.Detection {
	var (
		rects   []image.Rectangle
		scores  []float32
		classes []int
	)

	for _, out := range outputs {
		if sz := out.Size(); len(sz) > 2 {
			flat := out.Reshape(1, prod(sz[:len(sz)-1]))
			defer flat.Close()
			out = flat
		}
		rows, cols := out.Rows(), out.Cols()
		for i := 0; i < rows; i++ {
			objectness := out.GetFloatAt(i, 4)
			if objectness < d.opts.ConfThreshold {
				continue
			}

			best, classID := float32(0), -1
			for j := 5; j < cols; j++ {
				if s := out.GetFloatAt(i, j); s > best {
					best, classID = s, j-5
				}
			}
			score := objectness * best
			if classID < 0 || score < d.opts.ConfThreshold {
				continue
			}

			cx := out.GetFloatAt(i, 0) * float32(width)
			cy := out.GetFloatAt(i, 1) * float32(height)
			w := out.GetFloatAt(i, 2) * float32(width)
			h := out.GetFloatAt(i, 3) * float32(height)

			rect := image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)).Intersect(image.Rect(0, 0, width, height))
			if rect.Empty() {
				continue
			}
			rects = append(rects, rect)
			scores = append(scores, score)
			classes = append(classes, classID)
		}
	}

	if len(rects) == 0 {
		return []entity.Detection{}
	}

	keep := gocv.NMSBoxes(rects, scores, d.opts.ConfThreshold, d.opts.IoUThreshold)
	detections := make([]entity.Detection, 0, len(keep))
	for _, idx := range keep {
		label, ok := d.opts.Vocabulary.Label(classes[idx])
		if !ok {
			continue
		}
		r := rects[idx]
		detections = append(detections, entity.Detection{
			Label:      label,
			Confidence: scores[idx],
			Box:        entity.NewBBox(float32(r.Min.X), float32(r.Min.Y), float32(r.Max.X), float32(r.Max.Y)),
		})
	}
	return detections
}

// ConcurrencySafe сеть gocv нельзя вызывать из нескольких горутин одновременно.
func (d *YoloDetector) ConcurrencySafe() bool { return false }

// Close освобождает сеть.
func (d *YoloDetector) Close() error {
	if !d.net.Empty() {
		return d.net.Close()
	}
	return nil
}

func getOutputLayers(net gocv.Net) []string {
	layerNames := net.GetLayerNames()
	unconnectedOutLayers := net.GetUnconnectedOutLayers()

	var outputLayers []string
	for _, i := range unconnectedOutLayers {
		if i-1 < len(layerNames) {
			outputLayers = append(outputLayers, layerNames[i-1])
		}
	}

	return outputLayers
}

func prod(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}
