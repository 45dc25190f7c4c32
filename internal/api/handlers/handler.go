// Пакет handlers — HTTP-обработчики qrtrack.
// handler.go — регистрация маршрутов всех обработчиков.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// APIHandler объединяет все обработчики сервиса.
type APIHandler struct {
	health      *HealthHandler
	system      *SystemHandler
	codes       *CodesHandler
	scan        *ScanHandler
	static      *StaticHandler
	maintenance *MaintenanceHandler
}

// NewAPIHandler создаёт объединённый обработчик.
func NewAPIHandler(
	health *HealthHandler,
	system *SystemHandler,
	codes *CodesHandler,
	scan *ScanHandler,
	static *StaticHandler,
	maintenance *MaintenanceHandler,
) *APIHandler {
	return &APIHandler{
		health:      health,
		system:      system,
		codes:       codes,
		scan:        scan,
		static:      static,
		maintenance: maintenance,
	}
}

// Register регистрирует маршруты на роутере.
func (h *APIHandler) Register(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", h.system.GetInfo)

		r.Get("/codes", h.codes.ListCodes)
		r.Post("/codes", h.codes.CreateCode)
		r.Get("/codes/export", h.codes.ExportCodes)
		r.Delete("/codes/{id}", h.codes.DeleteCode)
		r.Get("/codes/{id}/scan-count", h.codes.GetScanCount)

		r.Post("/maintenance/verify", h.maintenance.Verify)
	})

	r.Get("/scan/{id}", h.scan.Scan)
	r.Get("/qrcodes/{filename}", h.static.ServeCode)
	r.Get("/uploads/{filename}", h.static.ServeUpload)

	// Маршруты ранних клиентов
	r.Post("/upload", h.codes.CreateCode)
	r.Get("/qrcodes-data", h.codes.ListCodesLegacy)
	r.Get("/api/scan-count/{id}", h.codes.GetScanCount)
	r.Delete("/api/qrcode/{id}", h.codes.DeleteCode)
	r.Get("/download-all-qrcodes", h.codes.ExportCodes)
}

// Handler возвращает http.Handler с зарегистрированными маршрутами.
// Используется в тестах без middleware сервера.
func (h *APIHandler) Handler() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}
