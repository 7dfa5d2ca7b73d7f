package container

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"object-detector/config"
	telegram "object-detector/internal/api"
	app "object-detector/internal/application"
	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
	"object-detector/internal/infrastructure/console"
	"object-detector/internal/infrastructure/remote"
	"object-detector/internal/infrastructure/storage"
	"object-detector/internal/infrastructure/vision"
	"object-detector/internal/infrastructure/websocket"
)

const remoteTimeout = 30 * time.Second

type Container struct {
	Notifier      *app.Notifier
	Predictions   *app.PredictionService
	Subscriptions *app.SubscriptionService

	DB      *storage.DB                     // nil, если DB_PATH пуст
	Objects *storage.SQLiteObjectRepository // nil, если DB_PATH пуст
	Hub     *websocket.Hub                  // nil, если WS_ADDR пуст
	Bot     *telegram.Bot                   // nil, если TELEGRAM_TOKEN пуст
}

// New собирает сервисы по конфигурации. Консольный вывод прогона идёт в out.
func New(cfg *config.Config, logger *logrus.Logger, out io.Writer) (*Container, error) {
	sharing, err := app.ParseModelSharing(cfg.ModelSharing)
	if err != nil {
		return nil, err
	}

	factory, err := newDetectorFactory(cfg, logger)
	if err != nil {
		return nil, err
	}

	notifier := app.NewNotifier(logger, cfg.NotifyTimeout)
	dispatcher := app.NewDispatcher(factory, notifier, logger, app.DispatchOptions{
		Sharing:     sharing,
		ItemTimeout: cfg.ItemTimeout,
	})

	c := &Container{
		Notifier:      notifier,
		Predictions:   app.NewPredictionService(dispatcher, notifier, logger),
		Subscriptions: app.NewSubscriptionService(storage.NewMemorySubscriberRepository()),
	}

	notifier.Subscribe(console.NewPrinter(out))

	if cfg.DBPath != "" {
		db, err := storage.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.Objects = storage.NewSQLiteObjectRepository(db)
		notifier.Subscribe(storage.NewRecorder(c.Objects, logger))
	}

	if cfg.WSAddr != "" {
		c.Hub = websocket.NewHub(logger)
		notifier.Subscribe(c.Hub)
	}

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, c.Subscriptions, c.Predictions, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		c.Bot = bot
		notifier.Subscribe(bot)
	}

	return c, nil
}

func newDetectorFactory(cfg *config.Config, logger *logrus.Logger) (port.DetectorFactory, error) {
	vocabulary := entity.NewVocabulary(entity.CocoLabels)

	switch cfg.Detector {
	case config.DetectorGoCV:
		opts := vision.DefaultOptions(cfg.ModelPath)
		opts.ConfigPath = cfg.ConfigPath
		opts.InputSize = cfg.InputSize
		opts.ConfThreshold = cfg.ConfThreshold
		opts.IoUThreshold = cfg.IoUThreshold
		return vision.NewFactory(opts), nil

	case config.DetectorRemote:
		det := remote.New(remote.Options{
			InferenceURL:  cfg.InferenceURL,
			HealthURL:     cfg.HealthURL,
			MaxSide:       cfg.MaxUploadSide,
			ConfThreshold: cfg.ConfThreshold,
			Vocabulary:    vocabulary,
			Timeout:       remoteTimeout,
		}, logger)
		return remote.NewFactory(det), nil

	default:
		return nil, fmt.Errorf("%w: unknown detector %q", config.ErrInvalidConfig, cfg.Detector)
	}
}

// Close освобождает ресурсы
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
