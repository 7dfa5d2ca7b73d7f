package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// DispatchOptions параметры пула воркеров
type DispatchOptions struct {
	Sharing     ModelSharing
	ItemTimeout time.Duration // 0 — без ограничения на один файл
}

// Dispatcher раздаёт файлы прогона фиксированному пулу воркеров.
type Dispatcher struct {
	factory  port.DetectorFactory
	notifier *Notifier
	logger   logrus.FieldLogger
	opts     DispatchOptions
}

// NewDispatcher создаёт диспетчер.
func NewDispatcher(factory port.DetectorFactory, notifier *Notifier, logger logrus.FieldLogger, opts DispatchOptions) *Dispatcher {
	return &Dispatcher{
		factory:  factory,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
	}
}

// Run обрабатывает файлы прогона не более чем в run.Parallelism потоков.
// Возвращается после завершения всех запущенных файлов; отмена ошибкой не считается.
// Ошибка возвращается только если не удалось подготовить детекторы.
func (d *Dispatcher) Run(ctx context.Context, run *Run) (*entity.RunResult, error) {
	if run.Parallelism <= 0 {
		return nil, ErrInvalidParallelism
	}

	if !run.begin() {
		return nil, ErrRunInProgress
	}
	defer run.end()

	// Отмена родительского контекста лишь запрещает новые файлы.
	if ctx.Err() != nil {
		run.Cancel()
	}
	stop := context.AfterFunc(ctx, func() { run.Cancel() })
	defer stop()

	log := d.logger.WithField("run", run.ID)

	// Отменённый до старта прогон не загружает модели.
	if run.cancel.Canceled() {
		log.WithField("items", len(run.Items)).Info("run canceled before start")
		return run.Result(), nil
	}

	workers := run.Parallelism
	if len(run.Items) < workers {
		workers = len(run.Items)
	}

	var (
		detectors []port.Detector
		release   = func() {}
	)
	if workers > 0 {
		var err error
		detectors, release, err = provisionDetectors(context.WithoutCancel(ctx), d.factory, d.opts.Sharing, workers)
		if err != nil {
			return nil, err
		}
	}
	defer release()

	log.WithFields(logrus.Fields{
		"items":       len(run.Items),
		"parallelism": run.Parallelism,
		"sharing":     d.opts.Sharing,
	}).Info("run started")

	queue := NewWorkQueue(run.Items)
	itemCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(det port.Detector) {
			defer wg.Done()
			d.work(itemCtx, run, queue, det)
		}(detectors[i])
	}
	wg.Wait()

	result := run.Result()
	log.WithFields(logrus.Fields{
		"completed":  result.Completed(),
		"failed":     result.FailedCount(),
		"skipped":    result.Skipped(),
		"detections": result.DetectionCount(),
		"canceled":   result.Canceled,
		"elapsed":    result.Elapsed,
	}).Info("run finished")

	return result, nil
}

func (d *Dispatcher) work(ctx context.Context, run *Run, queue *WorkQueue, det port.Detector) {
	for {
		if run.cancel.Canceled() {
			return
		}
		item, ok := queue.Next()
		if !ok {
			return
		}

		res := d.process(ctx, det, item)
		if res.Failed() {
			d.logger.WithFields(logrus.Fields{"run": run.ID, "item": item.Name()}).WithError(res.Err).Error("item failed")
		}

		run.results.Add(res)
		completed := run.state.markCompleted()

		if d.notifier != nil {
			d.notifier.Publish(ctx, entity.ItemEvent{
				Result: res,
				Progress: entity.Progress{
					RunID:     run.ID,
					Completed: completed,
					Total:     run.state.Total(),
					Canceled:  run.cancel.Canceled(),
				},
			})
		}
	}
}

// process вызывает детектор ровно один раз; ошибки и паники остаются внутри результата файла.
func (d *Dispatcher) process(ctx context.Context, det port.Detector, item entity.WorkItem) (res entity.ItemResult) {
	if d.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.ItemTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = entity.ItemResult{Item: item, Err: fmt.Errorf("%w: %v", ErrDetectorPanic, r)}
		}
		res.Duration = time.Since(start)
	}()

	detections, err := det.Detect(ctx, item)
	if err != nil {
		return entity.ItemResult{Item: item, Err: fmt.Errorf("detect %s: %w", item.Name(), err)}
	}

	out := make([]entity.Detection, 0, len(detections))
	for i, dt := range detections {
		if dt.Label == "" || !dt.Box.Valid() {
			return entity.ItemResult{Item: item, Err: fmt.Errorf("%w: #%d %q %s", ErrInvalidDetection, i, dt.Label, dt.Box)}
		}
		out = append(out, dt)
	}

	return entity.ItemResult{Item: item, Detections: out}
}
