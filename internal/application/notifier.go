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

type subscription struct {
	id       int
	observer port.Observer
}

// Notifier рассылает уведомления о каждом обработанном файле всем подписчикам.
// Ошибка, паника или зависание одного наблюдателя не передаётся воркеру.
type Notifier struct {
	mu      sync.RWMutex
	subs    []subscription
	nextID  int
	timeout time.Duration
	logger  logrus.FieldLogger
}

// DefaultObserverTimeout ограничение ожидания наблюдателя, если другое не задано
const DefaultObserverTimeout = 5 * time.Second

// NewNotifier создаёт рассылку; timeout ограничивает ожидание одного наблюдателя,
// при timeout <= 0 действует DefaultObserverTimeout.
func NewNotifier(logger logrus.FieldLogger, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultObserverTimeout
	}
	return &Notifier{
		timeout: timeout,
		logger:  logger,
	}
}

// Subscribe добавляет наблюдателя и возвращает функцию отписки.
func (n *Notifier) Subscribe(observer port.Observer) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs = append(n.subs, subscription{id: id, observer: observer})
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, s := range n.subs {
			if s.id == id {
				n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
				return
			}
		}
	}
}

// Len число подписчиков
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Publish синхронно уведомляет всех наблюдателей о событии.
func (n *Notifier) Publish(ctx context.Context, event entity.ItemEvent) {
	for _, s := range n.snapshot() {
		ev := event
		ev.Result.Detections = cloneDetections(event.Result.Detections)
		observer := s.observer
		n.deliver(ctx, "item", func(ctx context.Context) error {
			return observer.OnItem(ctx, ev)
		}, logrus.Fields{"run": event.RunID, "item": event.Result.Item.Name()})
	}
}

// Finish передаёт итог прогона наблюдателям, реализующим port.RunFinisher.
func (n *Notifier) Finish(ctx context.Context, result *entity.RunResult) {
	for _, s := range n.snapshot() {
		finisher, ok := s.observer.(port.RunFinisher)
		if !ok {
			continue
		}
		n.deliver(ctx, "finish", func(ctx context.Context) error {
			return finisher.OnRunFinished(ctx, result)
		}, logrus.Fields{"run": result.ID})
	}
}

func (n *Notifier) snapshot() []subscription {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]subscription(nil), n.subs...)
}

func (n *Notifier) deliver(ctx context.Context, kind string, call func(context.Context) error, fields logrus.Fields) {
	log := n.logger.WithFields(fields).WithField("event", kind)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeCall(ctx, call)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.WithError(err).Warn("observer failed")
		}
	case <-ctx.Done():
		// Наблюдатель продолжает работу в своей горутине, воркер идёт дальше.
		log.WithError(ctx.Err()).Warn("observer timed out")
	}
}

func safeCall(ctx context.Context, call func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return call(ctx)
}
