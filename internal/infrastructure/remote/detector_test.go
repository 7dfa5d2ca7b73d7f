package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"object-detector/internal/domain/entity"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writeImage(t *testing.T, w, h int) entity.WorkItem {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return entity.WorkItem(path)
}

func TestDetector_SendsDownscaledImageAndRescalesBoxes(t *testing.T) {
	var uploaded image.Config
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "photo.png", header.Filename)

		uploaded, err = jpeg.DecodeConfig(file)
		require.NoError(t, err)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"detections": []map[string]any{
				{"label": "cat", "confidence": 0.9, "bbox": []float32{10, 20, 30, 40}},
				{"label": "dog", "confidence": 0.1, "bbox": []float32{0, 0, 5, 5}},
				{"label": "unicorn", "confidence": 0.99, "bbox": []float32{0, 0, 5, 5}},
			},
		})
	}))
	defer srv.Close()

	d := New(Options{
		InferenceURL:  srv.URL,
		MaxSide:       100,
		ConfThreshold: 0.3,
		Vocabulary:    entity.NewVocabulary(entity.CocoLabels),
	}, quietLogger())

	dets, err := d.Detect(context.Background(), writeImage(t, 400, 200))
	require.NoError(t, err)
	require.Equal(t, 100, uploaded.Width)
	require.Equal(t, 50, uploaded.Height)

	require.Len(t, dets, 1)
	require.Equal(t, "cat", dets[0].Label)
	require.Equal(t, entity.BBox{X1: 40, Y1: 80, X2: 120, Y2: 160}, dets[0].Box)
	require.True(t, d.ConcurrencySafe())
}

func TestDetector_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := New(Options{InferenceURL: srv.URL}, quietLogger())
	_, err := d.Detect(context.Background(), writeImage(t, 10, 10))
	require.ErrorContains(t, err, "503")
}

func TestDetector_HonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d := New(Options{InferenceURL: srv.URL}, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Detect(ctx, writeImage(t, 10, 10))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDetector_UnreadableImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))

	d := New(Options{InferenceURL: "http://127.0.0.1:0"}, quietLogger())
	_, err := d.Detect(context.Background(), entity.WorkItem(path))
	require.Error(t, err)
}

func TestDetector_CheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ok := New(Options{HealthURL: srv.URL + "/health"}, quietLogger())
	require.NoError(t, ok.CheckHealth(context.Background()))

	bad := New(Options{HealthURL: srv.URL + "/missing"}, quietLogger())
	require.Error(t, bad.CheckHealth(context.Background()))

	require.NoError(t, New(Options{}, quietLogger()).CheckHealth(context.Background()))
}

func TestFactory_ChecksHealthBeforeUse(t *testing.T) {
	var unhealthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !unhealthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := New(Options{HealthURL: srv.URL + "/health"}, quietLogger())
	factory := NewFactory(d)

	det, err := factory(context.Background())
	require.NoError(t, err)
	require.Same(t, d, det)

	unhealthy.Store(true)
	_, err = factory(context.Background())
	require.ErrorContains(t, err, "inference service health")
}
