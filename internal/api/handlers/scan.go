// scan.go — обработчик GET /scan/{id}: точка входа при сканировании QR-кода.
// Изображение — перенаправление 302, текст — HTML-страница со счётчиком.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/service"
	"github.com/bigkaa/qrtrack/internal/ui/pages"
)

// ScanHandler — обработчик сканирований.
type ScanHandler struct {
	svc    *service.LifecycleService
	logger *slog.Logger
}

// NewScanHandler создаёт обработчик сканирований.
func NewScanHandler(svc *service.LifecycleService, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "scan_handler")),
	}
}

// Scan обрабатывает GET /scan/{id}.
// Некорректный или неизвестный id — страница 404.
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderNotFound(w, r)
		return
	}

	dispatch, err := h.svc.Scan(r.Context(), id)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			h.logger.Error("Ошибка обработки сканирования",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		h.renderNotFound(w, r)
		return
	}

	if dispatch.Kind == model.DispatchRedirect {
		http.Redirect(w, r, dispatch.Location, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := pages.ScanData{
		Text:      dispatch.Text,
		ScanCount: dispatch.ScanCount,
		Recovered: dispatch.Recovered,
	}
	if err := pages.Scan(data).Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга страницы сканирования",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (h *ScanHandler) renderNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := pages.NotFound().Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга страницы 404", slog.String("error", err.Error()))
	}
}
