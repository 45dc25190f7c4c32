// static.go — раздача PNG-файлов QR-кодов и загруженных изображений.
package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/qrtrack/internal/api/errors"
	"github.com/bigkaa/qrtrack/internal/service"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
)

// StaticHandler — обработчик /qrcodes/{filename} и /uploads/{filename}.
type StaticHandler struct {
	svc    *service.LifecycleService
	store  *contentstore.Store
	logger *slog.Logger
}

// NewStaticHandler создаёт обработчик раздачи файлов.
func NewStaticHandler(svc *service.LifecycleService, store *contentstore.Store, logger *slog.Logger) *StaticHandler {
	return &StaticHandler{
		svc:    svc,
		store:  store,
		logger: logger.With(slog.String("component", "static_handler")),
	}
}

// ServeCode обрабатывает GET /qrcodes/{filename}.
// Содержимое PNG не меняется после создания, поэтому берётся из кэша сервиса.
func (h *StaticHandler) ServeCode(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	data, err := h.svc.CodeImage(filename)
	if err != nil {
		apierrors.NotFound(w, "QR-код не найден")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, filename, time.Time{}, bytes.NewReader(data))
}

// ServeUpload обрабатывает GET /uploads/{filename}.
// Content-Type определяется по расширению (http.ServeContent).
func (h *StaticHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	f, err := h.store.Open(contentstore.DirUploads, filename)
	if err != nil {
		apierrors.NotFound(w, "Файл не найден")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.logger.Error("Ошибка получения информации о файле",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка чтения файла")
		return
	}

	http.ServeContent(w, r, filename, info.ModTime(), f)
}
