package app

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeDetector возвращает заранее заданные объекты по имени файла и считает одновременные вызовы.
type fakeDetector struct {
	results map[string][]entity.Detection
	fail    map[string]error
	panics  map[string]bool
	hook    func(ctx context.Context, item entity.WorkItem)
	safe    bool

	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	closed   atomic.Bool
}

func (f *fakeDetector) Detect(ctx context.Context, item entity.WorkItem) ([]entity.Detection, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	if f.hook != nil {
		f.hook(ctx, item)
	}
	name := item.Name()
	if f.panics[name] {
		panic("model exploded on " + name)
	}
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	if dets, ok := f.results[name]; ok {
		return dets, nil
	}
	return deterministicDetections(name), nil
}

func (f *fakeDetector) ConcurrencySafe() bool { return f.safe }

func (f *fakeDetector) Close() error {
	f.closed.Store(true)
	return nil
}

var _ port.ConcurrentDetector = (*fakeDetector)(nil)

// deterministicDetections от 0 до 3 объектов, зависящих только от имени файла.
func deterministicDetections(name string) []entity.Detection {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum32()

	n := int(sum % 4)
	out := make([]entity.Detection, 0, n)
	for i := 0; i < n; i++ {
		label := entity.CocoLabels[(int(sum)+i)%len(entity.CocoLabels)]
		x := float32((sum >> uint(i)) % 100)
		out = append(out, entity.Detection{
			Label:      label,
			Confidence: 0.5,
			Box:        entity.BBox{X1: x, Y1: x, X2: x + 10, Y2: x + 20},
		})
	}
	return out
}

func factoryOf(det port.Detector) port.DetectorFactory {
	return func(ctx context.Context) (port.Detector, error) { return det, nil }
}

func makeItems(names ...string) []entity.WorkItem {
	items := make([]entity.WorkItem, len(names))
	for i, n := range names {
		items[i] = entity.WorkItem(filepath.Join("/images", n))
	}
	return items
}

func numberedItems(n int) []entity.WorkItem {
	names := make([]string, n)
	for i := range names {
		names[i] = "img" + string(rune('a'+i%26)) + string(rune('0'+i/26%10)) + ".jpg"
	}
	return makeItems(names...)
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("img"), 0o644))
	}
}

// recorder наблюдатель, запоминающий все события.
type recorder struct {
	mu     sync.Mutex
	events []entity.ItemEvent
	finals []*entity.RunResult
}

func (r *recorder) OnItem(ctx context.Context, ev entity.ItemEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) OnRunFinished(ctx context.Context, res *entity.RunResult) error {
	r.mu.Lock()
	r.finals = append(r.finals, res)
	r.mu.Unlock()
	return nil
}

func (r *recorder) itemCounts() map[entity.WorkItem]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[entity.WorkItem]int)
	for _, ev := range r.events {
		counts[ev.Result.Item]++
	}
	return counts
}

// normalize упорядочивает результаты прогона по файлу для сравнения без учёта порядка.
func normalize(items []entity.ItemResult) []entity.ItemResult {
	out := append([]entity.ItemResult(nil), items...)
	for i := range out {
		out[i].Duration = 0
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

func runWith(t require.TestingT, det port.Detector, items []entity.WorkItem, parallelism int, opts DispatchOptions, observers ...port.Observer) *entity.RunResult {
	notifier := NewNotifier(testLogger(), 0)
	for _, o := range observers {
		notifier.Subscribe(o)
	}
	d := NewDispatcher(factoryOf(det), notifier, testLogger(), opts)
	run, err := NewRun("/images", items, parallelism)
	require.NoError(t, err)
	res, err := d.Run(context.Background(), run)
	require.NoError(t, err)
	return res
}

var errBroken = errors.New("broken image")

// lookup ищет результат файла по имени.
func lookup(res *entity.RunResult, name string) (entity.ItemResult, bool) {
	for _, it := range res.Items {
		if it.Item.Name() == name {
			return it, true
		}
	}
	return entity.ItemResult{}, false
}
