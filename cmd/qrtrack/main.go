// Точка входа qrtrack — сервиса генерации QR-кодов с учётом сканирований.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bigkaa/qrtrack/internal/api/handlers"
	"github.com/bigkaa/qrtrack/internal/api/openapi"
	"github.com/bigkaa/qrtrack/internal/config"
	"github.com/bigkaa/qrtrack/internal/render"
	"github.com/bigkaa/qrtrack/internal/server"
	"github.com/bigkaa/qrtrack/internal/service"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
	"github.com/bigkaa/qrtrack/internal/storage/index"
	"github.com/bigkaa/qrtrack/internal/storage/metadata"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("qrtrack запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("codes_dir", cfg.CodesDir),
		slog.String("uploads_dir", cfg.UploadsDir),
		slog.String("metadata_file", cfg.MetadataFile),
	)

	// --- Инициализация компонентов ---

	// 1. Хранилище файлов
	store, err := contentstore.New(cfg.CodesDir, cfg.UploadsDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.MetadataFile), 0o750); err != nil {
		logger.Error("Ошибка создания директории метаданных", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Восстановление записей и индекс
	repo := metadata.New(cfg.MetadataFile, store, logger)
	records, report, err := repo.Load()
	if err != nil {
		logger.Error("Ошибка загрузки метаданных", slog.String("error", err.Error()))
		os.Exit(1)
	}
	idx := index.New(logger)
	idx.Replace(records)
	logger.Info("Записи восстановлены",
		slog.String("source", string(report.Source)),
		slog.Int("loaded", report.Loaded),
		slog.Int("dropped_malformed", report.DroppedMalformed),
		slog.Int("dropped_missing_code", report.DroppedMissingCode),
		slog.Int("missing_uploads", report.MissingUploads),
		slog.Int("recovered_text", report.RecoveredText),
	)

	// 3. Генератор QR-кодов
	renderer, err := render.NewQRRenderer(cfg.QRSize, cfg.QRLevel)
	if err != nil {
		logger.Error("Ошибка инициализации генератора QR-кодов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Сервисы
	cache := service.NewCodeCache(cfg.CacheSize, cfg.CacheTTL)
	lifecycleSvc := service.NewLifecycleService(store, repo, idx, renderer, cache, cfg.PublicBaseURL, logger)
	verifySvc := service.NewVerifyService(store, idx, logger)

	// 5. Handlers
	apiHandler := handlers.NewAPIHandler(
		handlers.NewHealthHandler(store, idx),
		handlers.NewSystemHandler(cfg, idx, report),
		handlers.NewCodesHandler(lifecycleSvc, cfg.MaxUploadSize, logger),
		handlers.NewScanHandler(lifecycleSvc, logger),
		handlers.NewStaticHandler(lifecycleSvc, store, logger),
		handlers.NewMaintenanceHandler(verifySvc),
	)

	// 6. HTTP-сервер
	doc, err := openapi.Load()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	srv, err := server.New(cfg, logger, doc, apiHandler)
	if err != nil {
		logger.Error("Ошибка создания HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
