// Package remote обращается к внешнему сервису инференса по HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
	"object-detector/internal/infrastructure/imageio"
)

// Options настройки клиента сервиса инференса
type Options struct {
	InferenceURL  string
	HealthURL     string
	MaxSide       int // большая сторона картинки перед отправкой; 0 — не уменьшать
	ConfThreshold float32
	Vocabulary    *entity.Vocabulary
	Timeout       time.Duration
}

// Detector отправляет изображение во внешний сервис и разбирает ответ.
// Безопасен для одновременного использования всеми воркерами.
type Detector struct {
	opts   Options
	client *http.Client
	logger logrus.FieldLogger
}

type wireDetection struct {
	Label      string     `json:"label"`
	Confidence float32    `json:"confidence"`
	BBox       [4]float32 `json:"bbox"`
}

type wireResponse struct {
	Detections []wireDetection `json:"detections"`
}

// New создаёт клиента.
func New(opts Options, logger logrus.FieldLogger) *Detector {
	return &Detector{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// NewFactory отдаёт один и тот же клиент каждому воркеру.
// Недоступный сервис обнаруживается до запуска первого файла.
func NewFactory(d *Detector) port.DetectorFactory {
	return func(ctx context.Context) (port.Detector, error) {
		if err := d.CheckHealth(ctx); err != nil {
			return nil, fmt.Errorf("inference service health: %w", err)
		}
		return d, nil
	}
}

// Detect выполняет инференс через внешний сервис
func (d *Detector) Detect(ctx context.Context, item entity.WorkItem) ([]entity.Detection, error) {
	img, err := imageio.Load(string(item))
	if err != nil {
		return nil, err
	}

	small, scale := imageio.Downscale(img, d.opts.MaxSide)
	payload, err := imageio.EncodeJPEG(small)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	// Создаём multipart запрос
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", item.Name())
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.InferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return d.convert(item, result.Detections, scale), nil
}

// convert отбрасывает объекты ниже порога и вне словаря, возвращает координаты к исходному размеру.
func (d *Detector) convert(item entity.WorkItem, in []wireDetection, scale float32) []entity.Detection {
	out := make([]entity.Detection, 0, len(in))
	for _, w := range in {
		if w.Confidence < d.opts.ConfThreshold {
			continue
		}
		if d.opts.Vocabulary != nil && !d.opts.Vocabulary.Contains(w.Label) {
			d.logger.WithFields(logrus.Fields{"item": item.Name(), "label": w.Label}).Warn("label is not in vocabulary")
			continue
		}
		box := entity.NewBBox(w.BBox[0], w.BBox[1], w.BBox[2], w.BBox[3]).Scale(scale)
		out = append(out, entity.Detection{Label: w.Label, Confidence: w.Confidence, Box: box})
	}
	return out
}

// ConcurrencySafe http.Client можно использовать из нескольких горутин.
func (d *Detector) ConcurrencySafe() bool { return true }

// CheckHealth проверяет доступность сервиса
func (d *Detector) CheckHealth(ctx context.Context) error {
	if d.opts.HealthURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.opts.HealthURL, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

var _ port.ConcurrentDetector = (*Detector)(nil)
