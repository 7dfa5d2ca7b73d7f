package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gammazero/deque"

	"object-detector/internal/domain/entity"
)

// ListWorkItems перечисляет файлы каталога (без вложенных каталогов).
// Ошибка доступа к каталогу — ошибка конфигурации.
func ListWorkItems(folder string) ([]entity.WorkItem, error) {
	if folder == "" {
		return nil, fmt.Errorf("%w: path is empty", ErrInvalidFolder)
	}

	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFolder, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFolder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidFolder, abs)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFolder, err)
	}

	items := make([]entity.WorkItem, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		items = append(items, entity.WorkItem(filepath.Join(abs, e.Name())))
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })

	return items, nil
}

// WorkQueue очередь ещё не запущенных файлов, из которой забирают воркеры.
type WorkQueue struct {
	mu    sync.Mutex
	items deque.Deque[entity.WorkItem]
}

// NewWorkQueue заполняет очередь списком файлов.
func NewWorkQueue(items []entity.WorkItem) *WorkQueue {
	q := &WorkQueue{}
	for _, item := range items {
		q.items.PushBack(item)
	}
	return q
}

// Next извлекает следующий файл; false — очередь пуста.
func (q *WorkQueue) Next() (entity.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return "", false
	}
	return q.items.PopFront(), true
}
