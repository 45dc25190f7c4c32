// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/qrtrack/internal/config"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// serviceName — имя сервиса в ответах health и info.
const serviceName = "qrtrack"

// IndexReadinessChecker — интерфейс для проверки готовности индекса.
type IndexReadinessChecker interface {
	IsReady() bool
}

// DirChecker — проверка доступности директорий хранилища на запись.
type DirChecker interface {
	CheckWritable(dir contentstore.Dir) error
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	store   DirChecker
	idx     IndexReadinessChecker
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(store DirChecker, idx IndexReadinessChecker) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		store:   store,
		idx:     idx,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: директории QR-кодов и загрузок, готовность индекса.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	checks := map[string]any{}
	for name, dir := range map[string]contentstore.Dir{
		"codes_dir":   contentstore.DirCodes,
		"uploads_dir": contentstore.DirUploads,
	} {
		check := h.checkDir(dir)
		if check["status"] != "ok" {
			overallStatus = statusFail
			httpStatus = http.StatusServiceUnavailable
		}
		checks[name] = check
	}

	indexCheck := map[string]any{"status": "ok"}
	if !h.idx.IsReady() {
		indexCheck = map[string]any{
			"status":  statusFail,
			"message": "Индекс не загружен",
		}
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}
	checks["index"] = indexCheck

	resp := map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
		"checks":    checks,
	}
	writeJSON(w, httpStatus, resp)
}

// checkDir проверяет доступность директории на запись.
func (h *HealthHandler) checkDir(dir contentstore.Dir) map[string]any {
	if err := h.store.CheckWritable(dir); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Директория недоступна для записи: " + err.Error(),
		}
	}
	return map[string]any{"status": "ok"}
}

