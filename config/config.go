package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig возвращается Validate для недопустимых настроек
var ErrInvalidConfig = errors.New("invalid config")

const (
	DetectorGoCV   = "gocv"
	DetectorRemote = "remote"
)

// Значения MODEL_SHARING
const (
	SharingPerWorker = "per_worker"
	SharingShared    = "shared"
)

type Config struct {
	ImageFolder  string
	Parallelism  int
	Detector     string // gocv или remote
	ModelPath    string
	ConfigPath   string // только для darknet-моделей
	InferenceURL string
	HealthURL    string // пусто — без проверки сервиса перед прогоном
	ModelSharing string

	ConfThreshold float32
	IoUThreshold  float32
	InputSize     int
	MaxUploadSide int

	ItemTimeout   time.Duration // 0 — без ограничения
	NotifyTimeout time.Duration // 0 — стандартное ограничение рассылки

	DBPath  string // пусто — без сохранения объектов
	ClearDB bool

	TelegramToken string
	WSAddr        string

	LogDirectory string
	LogLevel     string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		ImageFolder:   getEnv("IMAGE_FOLDER", ""),
		Parallelism:   env.asInt("PARALLELISM", 1),
		Detector:      getEnv("DETECTOR", DetectorGoCV),
		ModelPath:     getEnv("MODEL_PATH", filepath.Join("assets", "model", "yolov4.onnx")),
		ConfigPath:    getEnv("CONFIG_PATH", ""),
		InferenceURL:  getEnv("INFERENCE_URL", ""),
		HealthURL:     getEnv("HEALTH_URL", ""),
		ModelSharing:  getEnv("MODEL_SHARING", SharingPerWorker),
		ConfThreshold: env.asFloat("CONF_THRESHOLD", 0.3),
		IoUThreshold:  env.asFloat("IOU_THRESHOLD", 0.7),
		InputSize:     env.asInt("INPUT_SIZE", 416),
		MaxUploadSide: env.asInt("MAX_UPLOAD_SIDE", 1024),
		ItemTimeout:   env.asDuration("ITEM_TIMEOUT", 0),
		NotifyTimeout: env.asDuration("NOTIFY_TIMEOUT", 5*time.Second),
		DBPath:        getEnv("DB_PATH", "database.db"),
		ClearDB:       env.asBool("CLEAR_DB", false),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		WSAddr:        os.Getenv("WS_ADDR"),
		LogDirectory:  getEnv("LOG_DIR", "logs"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if err := env.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет настройки перед запуском прогона.
func (c *Config) Validate() error {
	if c.ImageFolder == "" {
		return fmt.Errorf("%w: IMAGE_FOLDER is required", ErrInvalidConfig)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("%w: PARALLELISM must be positive, got %d", ErrInvalidConfig, c.Parallelism)
	}

	switch c.Detector {
	case DetectorGoCV:
		if c.ModelPath == "" {
			return fmt.Errorf("%w: MODEL_PATH is required for gocv detector", ErrInvalidConfig)
		}
	case DetectorRemote:
		if c.InferenceURL == "" {
			return fmt.Errorf("%w: INFERENCE_URL is required for remote detector", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown DETECTOR %q", ErrInvalidConfig, c.Detector)
	}

	switch c.ModelSharing {
	case "", SharingPerWorker, SharingShared:
	default:
		return fmt.Errorf("%w: unknown MODEL_SHARING %q", ErrInvalidConfig, c.ModelSharing)
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("%w: CONF_THRESHOLD out of [0,1]: %v", ErrInvalidConfig, c.ConfThreshold)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("%w: IOU_THRESHOLD out of [0,1]: %v", ErrInvalidConfig, c.IoUThreshold)
	}
	if c.ItemTimeout < 0 || c.NotifyTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader разбирает типизированные переменные; заданное, но неразборчивое значение это ошибка
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	value := os.Getenv(key)
	return value, value != ""
}

func (r *envReader) fail(key, value string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, value, err))
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) asInt(key string, defaultValue int) int {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return intValue
}

func (r *envReader) asFloat(key string, defaultValue float32) float32 {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return float32(f)
}

func (r *envReader) asDuration(key string, defaultValue time.Duration) time.Duration {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return d
}

func (r *envReader) asBool(key string, defaultValue bool) bool {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return b
}
