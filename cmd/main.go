package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"object-detector/config"
	"object-detector/internal/container"
	"object-detector/internal/infrastructure/console"
	"object-detector/internal/infrastructure/storage"
	"object-detector/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	folder := flag.String("folder", cfg.ImageFolder, "каталог с изображениями")
	parallelism := flag.Int("parallelism", cfg.Parallelism, "число одновременно обрабатываемых файлов")
	clearDB := flag.Bool("clear", cfg.ClearDB, "очистить сохранённые объекты перед запуском")
	list := flag.Bool("list", false, "вывести сохранённые объекты и выйти")
	flag.Parse()

	cfg.ImageFolder = *folder
	cfg.Parallelism = *parallelism
	cfg.ClearDB = *clearDB

	logr, closeLog, err := logger.New(cfg.LogDirectory, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer closeLog()

	if *list {
		if err := listObjects(cfg.DBPath); err != nil {
			logr.Fatalf("List objects: %v", err)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		logr.Fatalf("Config error: %v", err)
	}

	appContainer, err := container.New(cfg, logr, os.Stdout)
	if err != nil {
		logr.Fatalf("Failed to build application: %v", err)
	}
	defer appContainer.Close()

	if cfg.ClearDB && appContainer.Objects != nil {
		if err := appContainer.Objects.Clear(context.Background()); err != nil {
			logr.Fatalf("Clear database: %v", err)
		}
		logr.Info("stored objects cleared")
	}

	servicesCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	handleSignals(logr, cancelRun)

	var server *http.Server
	if appContainer.Hub != nil {
		go appContainer.Hub.Run(servicesCtx)

		mux := http.NewServeMux()
		mux.Handle("/ws", appContainer.Hub)
		server = &http.Server{Addr: cfg.WSAddr, Handler: mux}
		go func() {
			logr.WithField("addr", cfg.WSAddr).Info("websocket feed listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logr.WithError(err).Error("websocket server failed")
			}
		}()
	}

	if appContainer.Bot != nil {
		go func() {
			if err := appContainer.Bot.Run(servicesCtx); err != nil {
				logr.WithError(err).Error("telegram bot stopped")
			}
		}()
	}

	result, err := appContainer.Predictions.MakePredictions(runCtx, cfg.ImageFolder, cfg.Parallelism)
	if err != nil {
		logr.Fatalf("Run failed: %v", err)
	}

	fields := logrus.Fields{
		"run":        result.ID,
		"completed":  result.Completed(),
		"total":      result.Total,
		"detections": result.DetectionCount(),
		"canceled":   result.Canceled,
	}
	if appContainer.Objects != nil {
		if n, err := appContainer.Objects.Count(context.Background()); err == nil {
			fields["stored_objects"] = n
		}
	}
	if appContainer.Hub != nil {
		fields["ws_clients"] = appContainer.Hub.ClientCount()
	}
	logr.WithFields(fields).Info("all done")

	stopServices()
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

// handleSignals первое прерывание останавливает прогон, второе завершает процесс сразу.
func handleSignals(logr *logrus.Logger, cancelRun context.CancelFunc) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigs
		logr.Warn("interrupt received, finishing started files (press Ctrl+C again to abort)")
		cancelRun()

		<-sigs
		logr.Error("aborted")
		os.Exit(1)
	}()
}

func listObjects(dbPath string) error {
	if dbPath == "" {
		return errors.New("DB_PATH is empty")
	}

	db, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	objects, err := storage.NewSQLiteObjectRepository(db).List(context.Background())
	if err != nil {
		return err
	}
	console.PrintObjects(os.Stdout, objects)
	return nil
}
