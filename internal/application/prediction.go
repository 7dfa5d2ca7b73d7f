package app

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"object-detector/internal/domain/entity"
)

// PredictionService запускает прогоны по каталогам и хранит последний из них для /status и /cancel.
type PredictionService struct {
	dispatcher *Dispatcher
	notifier   *Notifier
	logger     logrus.FieldLogger

	mu      sync.Mutex
	current *Run
}

// NewPredictionService создаёт сервис прогонов.
func NewPredictionService(dispatcher *Dispatcher, notifier *Notifier, logger logrus.FieldLogger) *PredictionService {
	return &PredictionService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// Prepare перечисляет каталог и создаёт прогон; ошибки конфигурации возвращаются сразу.
func (s *PredictionService) Prepare(folder string, parallelism int) (*Run, error) {
	if parallelism <= 0 {
		return nil, ErrInvalidParallelism
	}

	items, err := ListWorkItems(folder)
	if err != nil {
		return nil, err
	}

	return NewRun(folder, items, parallelism)
}

// Execute выполняет подготовленный прогон до полного завершения.
func (s *PredictionService) Execute(ctx context.Context, run *Run) (*entity.RunResult, error) {
	s.mu.Lock()
	s.current = run
	s.mu.Unlock()

	result, err := s.dispatcher.Run(ctx, run)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Finish(context.WithoutCancel(ctx), result)
	}
	return result, nil
}

// MakePredictions обрабатывает все файлы каталога с заданным параллелизмом.
func (s *PredictionService) MakePredictions(ctx context.Context, folder string, parallelism int) (*entity.RunResult, error) {
	run, err := s.Prepare(folder, parallelism)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, run)
}

// Cancel останавливает текущий прогон; false, если отменять нечего.
// Отмена, пришедшая до старта воркеров, тоже учитывается.
func (s *PredictionService) Cancel() bool {
	s.mu.Lock()
	run := s.current
	s.mu.Unlock()

	if run == nil || run.Finished() {
		return false
	}
	if run.Cancel() {
		s.logger.WithField("run", run.ID).Info("cancellation requested")
	}
	return true
}

// Progress состояние последнего прогона; false, если прогонов ещё не было.
func (s *PredictionService) Progress() (entity.Progress, bool) {
	s.mu.Lock()
	run := s.current
	s.mu.Unlock()

	if run == nil {
		return entity.Progress{}, false
	}
	return run.Progress(), true
}
