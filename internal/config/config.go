// Пакет config — загрузка и валидация конфигурации qrtrack
// из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// defaultEnvFile — dotenv-файл, читаемый при наличии, если QT_ENV_FILE не задан.
const defaultEnvFile = ".env"

// Config содержит все параметры конфигурации qrtrack.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Директория PNG-файлов QR-кодов
	CodesDir string
	// Директория загруженных изображений
	UploadsDir string
	// Путь к файлу метаданных записей
	MetadataFile string
	// Публичный адрес сервиса для URL сканирования.
	// Пустое значение — адрес берётся из запроса.
	PublicBaseURL string
	// Максимальный размер тела запроса создания в байтах
	MaxUploadSize int64
	// Размер стороны PNG QR-кода в пикселях
	QRSize int
	// Уровень коррекции ошибок QR-кода (low, medium, high, highest)
	QRLevel string
	// Размер LRU-кэша PNG QR-кодов (записей)
	CacheSize int
	// Время жизни записи кэша
	CacheTTL time.Duration
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Путь к TLS сертификату (опционально, вместе с TLSKey)
	TLSCert string
	// Путь к TLS приватному ключу
	TLSKey string

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// TLSEnabled возвращает true, если заданы сертификат и ключ.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
// Перед чтением загружается dotenv-файл: QT_ENV_FILE, иначе .env при наличии.
// Переменные окружения процесса имеют приоритет над dotenv.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	var err error

	// QT_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("QT_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("QT_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("QT_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.CodesDir = getEnvDefault("QT_CODES_DIR", "qrcodes")
	cfg.UploadsDir = getEnvDefault("QT_UPLOADS_DIR", "uploads")
	if cfg.CodesDir == cfg.UploadsDir {
		return nil, fmt.Errorf("QT_CODES_DIR и QT_UPLOADS_DIR должны различаться: %q", cfg.CodesDir)
	}
	cfg.MetadataFile = getEnvDefault("QT_METADATA_FILE", "qr_metadata.json")

	// QT_PUBLIC_BASE_URL — без завершающего слэша
	cfg.PublicBaseURL = strings.TrimRight(getEnvDefault("QT_PUBLIC_BASE_URL", ""), "/")
	if cfg.PublicBaseURL != "" &&
		!strings.HasPrefix(cfg.PublicBaseURL, "http://") && !strings.HasPrefix(cfg.PublicBaseURL, "https://") {
		return nil, fmt.Errorf("QT_PUBLIC_BASE_URL: ожидается http:// или https://, получено %q", cfg.PublicBaseURL)
	}

	// QT_MAX_UPLOAD_SIZE — по умолчанию 10 MiB
	cfg.MaxUploadSize, err = getEnvInt64("QT_MAX_UPLOAD_SIZE", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("QT_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("QT_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}

	// QT_QR_SIZE — сторона PNG (64..2048)
	cfg.QRSize, err = getEnvInt("QT_QR_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("QT_QR_SIZE: %w", err)
	}
	if cfg.QRSize < 64 || cfg.QRSize > 2048 {
		return nil, fmt.Errorf("QT_QR_SIZE: значение %d вне допустимого диапазона 64-2048", cfg.QRSize)
	}

	cfg.QRLevel = strings.ToLower(getEnvDefault("QT_QR_LEVEL", "medium"))
	switch cfg.QRLevel {
	case "low", "medium", "high", "highest":
	default:
		return nil, fmt.Errorf("QT_QR_LEVEL: недопустимое значение %q, допустимые: low, medium, high, highest", cfg.QRLevel)
	}

	cfg.CacheSize, err = getEnvInt("QT_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("QT_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("QT_CACHE_SIZE: значение должно быть положительным")
	}

	cfg.CacheTTL, err = getEnvDuration("QT_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("QT_CACHE_TTL: %w", err)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("QT_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("QT_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("QT_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("QT_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// QT_TLS_CERT / QT_TLS_KEY — задаются только парой
	cfg.TLSCert = getEnvDefault("QT_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("QT_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("QT_TLS_CERT и QT_TLS_KEY задаются только вместе")
	}

	if cfg.HTTPReadTimeout, err = getEnvDuration("QT_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("QT_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.HTTPWriteTimeout, err = getEnvDuration("QT_HTTP_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("QT_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.HTTPIdleTimeout, err = getEnvDuration("QT_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("QT_HTTP_IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("QT_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("QT_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// loadEnvFile загружает dotenv-файл. Явно указанный QT_ENV_FILE обязан существовать.
func loadEnvFile() error {
	if path := os.Getenv("QT_ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("QT_ENV_FILE: ошибка загрузки %q: %w", path, err)
		}
		return nil
	}

	if _, err := os.Stat(defaultEnvFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("ошибка проверки %s: %w", defaultEnvFile, err)
	}
	if err := godotenv.Load(defaultEnvFile); err != nil {
		return fmt.Errorf("ошибка загрузки %s: %w", defaultEnvFile, err)
	}
	return nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1m, 10m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("длительность должна быть положительной: %q", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
