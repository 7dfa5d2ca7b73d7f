package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"object-detector/internal/domain/entity"
)

// RunState счётчики прогона: общее число файлов задаётся один раз, счётчик готовых только растёт.
type RunState struct {
	total     int
	completed atomic.Int64
}

func newRunState(total int) *RunState {
	return &RunState{total: total}
}

// Total число файлов в прогоне
func (s *RunState) Total() int { return s.total }

// Completed число завершённых файлов
func (s *RunState) Completed() int { return int(s.completed.Load()) }

func (s *RunState) markCompleted() int {
	return int(s.completed.Add(1))
}

// Run один прогон по каталогу: свой контроллер отмены, счётчики и агрегатор.
type Run struct {
	ID          string
	Folder      string
	Items       []entity.WorkItem
	Parallelism int

	cancel  *CancelController
	state   *RunState
	results *Aggregator

	mu       sync.Mutex
	running  bool
	started  time.Time
	finished time.Time
}

// NewRun проверяет параметры и создаёт прогон.
func NewRun(folder string, items []entity.WorkItem, parallelism int) (*Run, error) {
	if parallelism <= 0 {
		return nil, ErrInvalidParallelism
	}

	return &Run{
		ID:          uuid.NewString(),
		Folder:      folder,
		Items:       append([]entity.WorkItem(nil), items...),
		Parallelism: parallelism,
		cancel:      NewCancelController(),
		state:       newRunState(len(items)),
		results:     NewAggregator(len(items)),
	}, nil
}

// Cancel запрещает запуск новых файлов; уже начатые доработают.
func (r *Run) Cancel() bool {
	return r.cancel.Cancel()
}

// Progress текущее состояние прогона.
func (r *Run) Progress() entity.Progress {
	r.mu.Lock()
	id, state := r.ID, r.state
	r.mu.Unlock()

	return entity.Progress{
		RunID:     id,
		Completed: state.Completed(),
		Total:     state.Total(),
		Canceled:  r.cancel.Canceled(),
	}
}

// Result снимок результатов, накопленных к этому моменту.
func (r *Run) Result() *entity.RunResult {
	r.mu.Lock()
	id, state := r.ID, r.state
	elapsed := r.finished.Sub(r.started)
	if r.running {
		elapsed = time.Since(r.started)
	}
	r.mu.Unlock()

	// Отмена, пришедшая после запуска последнего файла, ничего не отменила.
	items := r.results.Snapshot()
	return &entity.RunResult{
		ID:       id,
		Folder:   r.Folder,
		Total:    state.Total(),
		Items:    items,
		Canceled: r.cancel.Canceled() && len(items) < state.Total(),
		Elapsed:  elapsed,
	}
}

// Reset готовит завершённый прогон к повторному запуску с чистым состоянием и новым ID.
func (r *Run) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrRunInProgress
	}
	r.ID = uuid.NewString()
	r.cancel.Reset()
	r.state = newRunState(len(r.Items))
	r.results.Reset()
	r.started = time.Time{}
	r.finished = time.Time{}
	return nil
}

// Finished завершён ли прогон
func (r *Run) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.running && !r.finished.IsZero()
}

func (r *Run) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running || !r.started.IsZero() {
		return false
	}
	r.running = true
	r.started = time.Now()
	return true
}

func (r *Run) end() {
	r.mu.Lock()
	r.running = false
	r.finished = time.Now()
	r.mu.Unlock()
}
