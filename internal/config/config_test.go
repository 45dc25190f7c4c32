package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// qtEnvKeys — все переменные окружения, читаемые Load.
var qtEnvKeys = []string{
	"QT_ENV_FILE", "QT_PORT", "QT_CODES_DIR", "QT_UPLOADS_DIR", "QT_METADATA_FILE",
	"QT_PUBLIC_BASE_URL", "QT_MAX_UPLOAD_SIZE", "QT_QR_SIZE", "QT_QR_LEVEL",
	"QT_CACHE_SIZE", "QT_CACHE_TTL", "QT_LOG_LEVEL", "QT_LOG_FORMAT",
	"QT_TLS_CERT", "QT_TLS_KEY",
	"QT_HTTP_READ_TIMEOUT", "QT_HTTP_WRITE_TIMEOUT", "QT_HTTP_IDLE_TIMEOUT",
	"QT_SHUTDOWN_TIMEOUT",
}

// clearQTEnv очищает переменные QT_* на время теста.
// После теста исходные значения восстанавливаются, а выставленные
// dotenv-файлом удаляются.
func clearQTEnv(t *testing.T) {
	t.Helper()
	originals := make(map[string]string)
	for _, k := range qtEnvKeys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
		}
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range qtEnvKeys {
			if v, ok := originals[k]; ok {
				os.Setenv(k, v)
			} else {
				os.Unsetenv(k)
			}
		}
	})
}

// setEnv выставляет переменные; очистку выполняет clearQTEnv.
func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		os.Setenv(k, v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearQTEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.CodesDir != "qrcodes" {
		t.Errorf("CodesDir: ожидалось 'qrcodes', получено %q", cfg.CodesDir)
	}
	if cfg.UploadsDir != "uploads" {
		t.Errorf("UploadsDir: ожидалось 'uploads', получено %q", cfg.UploadsDir)
	}
	if cfg.MetadataFile != "qr_metadata.json" {
		t.Errorf("MetadataFile: ожидалось 'qr_metadata.json', получено %q", cfg.MetadataFile)
	}
	if cfg.PublicBaseURL != "" {
		t.Errorf("PublicBaseURL: ожидалась пустая строка, получено %q", cfg.PublicBaseURL)
	}
	if cfg.MaxUploadSize != 10<<20 {
		t.Errorf("MaxUploadSize: ожидалось %d, получено %d", 10<<20, cfg.MaxUploadSize)
	}
	if cfg.QRSize != 256 {
		t.Errorf("QRSize: ожидалось 256, получено %d", cfg.QRSize)
	}
	if cfg.QRLevel != "medium" {
		t.Errorf("QRLevel: ожидалось 'medium', получено %q", cfg.QRLevel)
	}
	if cfg.CacheSize != 256 {
		t.Errorf("CacheSize: ожидалось 256, получено %d", cfg.CacheSize)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL: ожидалось 10m, получено %v", cfg.CacheTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось INFO, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось 'json', получено %q", cfg.LogFormat)
	}
	if cfg.TLSEnabled() {
		t.Error("TLSEnabled: ожидалось false")
	}
	if cfg.HTTPReadTimeout != 30*time.Second {
		t.Errorf("HTTPReadTimeout: ожидалось 30s, получено %v", cfg.HTTPReadTimeout)
	}
	if cfg.HTTPWriteTimeout != 60*time.Second {
		t.Errorf("HTTPWriteTimeout: ожидалось 60s, получено %v", cfg.HTTPWriteTimeout)
	}
	if cfg.HTTPIdleTimeout != 120*time.Second {
		t.Errorf("HTTPIdleTimeout: ожидалось 120s, получено %v", cfg.HTTPIdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 10s, получено %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_AllCustomValues(t *testing.T) {
	clearQTEnv(t)
	setEnv(t, map[string]string{
		"QT_PORT":               "9090",
		"QT_CODES_DIR":          "/data/codes",
		"QT_UPLOADS_DIR":        "/data/uploads",
		"QT_METADATA_FILE":      "/data/meta.json",
		"QT_PUBLIC_BASE_URL":    "https://qr.example.com/",
		"QT_MAX_UPLOAD_SIZE":    "1048576",
		"QT_QR_SIZE":            "512",
		"QT_QR_LEVEL":           "HIGH",
		"QT_CACHE_SIZE":         "32",
		"QT_CACHE_TTL":          "1m",
		"QT_LOG_LEVEL":          "debug",
		"QT_LOG_FORMAT":         "text",
		"QT_TLS_CERT":           "/tmp/tls.crt",
		"QT_TLS_KEY":            "/tmp/tls.key",
		"QT_HTTP_READ_TIMEOUT":  "20s",
		"QT_HTTP_WRITE_TIMEOUT": "45s",
		"QT_HTTP_IDLE_TIMEOUT":  "90s",
		"QT_SHUTDOWN_TIMEOUT":   "3s",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port: ожидалось 9090, получено %d", cfg.Port)
	}
	if cfg.CodesDir != "/data/codes" || cfg.UploadsDir != "/data/uploads" {
		t.Errorf("директории: получено %q, %q", cfg.CodesDir, cfg.UploadsDir)
	}
	if cfg.MetadataFile != "/data/meta.json" {
		t.Errorf("MetadataFile: получено %q", cfg.MetadataFile)
	}
	if cfg.PublicBaseURL != "https://qr.example.com" {
		t.Errorf("PublicBaseURL: ожидалось без завершающего слэша, получено %q", cfg.PublicBaseURL)
	}
	if cfg.MaxUploadSize != 1048576 {
		t.Errorf("MaxUploadSize: получено %d", cfg.MaxUploadSize)
	}
	if cfg.QRSize != 512 {
		t.Errorf("QRSize: получено %d", cfg.QRSize)
	}
	if cfg.QRLevel != "high" {
		t.Errorf("QRLevel: ожидалось 'high', получено %q", cfg.QRLevel)
	}
	if cfg.CacheSize != 32 || cfg.CacheTTL != time.Minute {
		t.Errorf("кэш: получено %d, %v", cfg.CacheSize, cfg.CacheTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось DEBUG, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: получено %q", cfg.LogFormat)
	}
	if !cfg.TLSEnabled() {
		t.Error("TLSEnabled: ожидалось true")
	}
	if cfg.HTTPReadTimeout != 20*time.Second || cfg.HTTPWriteTimeout != 45*time.Second ||
		cfg.HTTPIdleTimeout != 90*time.Second {
		t.Errorf("таймауты: получено %v, %v, %v", cfg.HTTPReadTimeout, cfg.HTTPWriteTimeout, cfg.HTTPIdleTimeout)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout: получено %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{"порт не число", map[string]string{"QT_PORT": "abc"}, "QT_PORT"},
		{"порт вне диапазона", map[string]string{"QT_PORT": "70000"}, "QT_PORT"},
		{"одинаковые директории", map[string]string{"QT_CODES_DIR": "data", "QT_UPLOADS_DIR": "data"}, "QT_CODES_DIR"},
		{"адрес без схемы", map[string]string{"QT_PUBLIC_BASE_URL": "qr.example.com"}, "QT_PUBLIC_BASE_URL"},
		{"нулевой лимит загрузки", map[string]string{"QT_MAX_UPLOAD_SIZE": "0"}, "QT_MAX_UPLOAD_SIZE"},
		{"малый QR", map[string]string{"QT_QR_SIZE": "10"}, "QT_QR_SIZE"},
		{"неизвестный уровень QR", map[string]string{"QT_QR_LEVEL": "ultra"}, "QT_QR_LEVEL"},
		{"отрицательный кэш", map[string]string{"QT_CACHE_SIZE": "-1"}, "QT_CACHE_SIZE"},
		{"некорректный TTL", map[string]string{"QT_CACHE_TTL": "soon"}, "QT_CACHE_TTL"},
		{"уровень логов", map[string]string{"QT_LOG_LEVEL": "verbose"}, "QT_LOG_LEVEL"},
		{"формат логов", map[string]string{"QT_LOG_FORMAT": "xml"}, "QT_LOG_FORMAT"},
		{"сертификат без ключа", map[string]string{"QT_TLS_CERT": "/tmp/tls.crt"}, "QT_TLS_KEY"},
		{"нулевой таймаут", map[string]string{"QT_SHUTDOWN_TIMEOUT": "0s"}, "QT_SHUTDOWN_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearQTEnv(t)
			setEnv(t, tt.vars)

			_, err := Load()
			if err == nil {
				t.Fatal("ожидалась ошибка")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ошибка %q не содержит %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearQTEnv(t)

	path := filepath.Join(t.TempDir(), "qrtrack.env")
	content := "QT_PORT=9191\nQT_QR_LEVEL=low\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("ошибка записи env-файла: %v", err)
	}
	setEnv(t, map[string]string{
		"QT_ENV_FILE": path,
		// Переменная процесса имеет приоритет над файлом
		"QT_QR_LEVEL": "highest",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.Port != 9191 {
		t.Errorf("Port: ожидалось 9191 из env-файла, получено %d", cfg.Port)
	}
	if cfg.QRLevel != "highest" {
		t.Errorf("QRLevel: ожидалось значение окружения 'highest', получено %q", cfg.QRLevel)
	}
}

func TestLoad_EnvFileMissing(t *testing.T) {
	clearQTEnv(t)
	setEnv(t, map[string]string{"QT_ENV_FILE": filepath.Join(t.TempDir(), "absent.env")})

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "QT_ENV_FILE") {
		t.Errorf("ожидалась ошибка QT_ENV_FILE, получено %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.input)
		if err != nil {
			t.Errorf("parseLogLevel(%q): неожиданная ошибка %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, ожидалось %v", tt.input, got, tt.want)
		}
	}
	if _, err := parseLogLevel("trace"); err == nil {
		t.Error("parseLogLevel(trace): ожидалась ошибка")
	}
}
