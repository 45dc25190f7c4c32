// codes.go — HTTP handlers операций с записями QR-кодов.
// Create, List, Scan count, Delete, Export.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/qrtrack/internal/api/errors"
	"github.com/bigkaa/qrtrack/internal/archive"
	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/service"
)

// multipartMemory — объём multipart-формы в памяти, остальное во временных файлах.
const multipartMemory = 8 << 20

// exportFilename — имя zip-архива выгрузки.
const exportFilename = "all-qr-codes.zip"

// CodesHandler — обработчик endpoints записей.
type CodesHandler struct {
	svc           *service.LifecycleService
	maxUploadSize int64
	logger        *slog.Logger
}

// NewCodesHandler создаёт обработчик endpoints записей.
func NewCodesHandler(svc *service.LifecycleService, maxUploadSize int64, logger *slog.Logger) *CodesHandler {
	return &CodesHandler{
		svc:           svc,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "codes_handler")),
	}
}

// codeListResponse — ответ GET /api/v1/codes.
type codeListResponse struct {
	Items []model.RecordView `json:"items"`
	Total int                `json:"total"`
}

// scanCountResponse — ответ GET /api/v1/codes/{id}/scan-count.
type scanCountResponse struct {
	ID        int64 `json:"id"`
	ScanCount int64 `json:"scan_count"`
}

// CreateCode обрабатывает POST /api/v1/codes.
// Форма (multipart или urlencoded): image (файл) или text, ровно одно из них.
func (h *CodesHandler) CreateCode(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadSize {
		apierrors.FileTooLarge(w, fmt.Sprintf("Размер запроса превышает максимум %d байт", h.maxUploadSize))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Размер запроса превышает максимум %d байт", h.maxUploadSize))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка разбора формы: %s", err.Error()))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	params := service.CreateParams{
		Text:    r.FormValue("text"),
		BaseURL: requestBaseURL(r),
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		params.ImageData = file
		params.ImageName = header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка чтения файла image: %s", err.Error()))
		return
	}

	rec, err := h.svc.Create(r.Context(), params)
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			apierrors.ValidationError(w, "Требуется ровно одно из полей: image или text")
			return
		}
		h.logger.Error("Ошибка создания записи", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка генерации QR-кода")
		return
	}

	writeJSON(w, http.StatusCreated, rec.View())
}

// ListCodes обрабатывает GET /api/v1/codes.
func (h *CodesHandler) ListCodes(w http.ResponseWriter, _ *http.Request) {
	items := h.svc.ListAll()
	writeJSON(w, http.StatusOK, codeListResponse{Items: items, Total: len(items)})
}

// ListCodesLegacy обрабатывает GET /qrcodes-data: JSON-массив без обёртки.
func (h *CodesHandler) ListCodesLegacy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListAll())
}

// GetScanCount обрабатывает GET /api/v1/codes/{id}/scan-count.
func (h *CodesHandler) GetScanCount(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	count, err := h.svc.GetScanCount(id)
	if err != nil {
		apierrors.Domain(w, err, fmt.Sprintf("QR-код %d не найден", id))
		return
	}
	writeJSON(w, http.StatusOK, scanCountResponse{ID: id, ScanCount: count})
}

// DeleteCode обрабатывает DELETE /api/v1/codes/{id}.
func (h *CodesHandler) DeleteCode(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		apierrors.Domain(w, err, fmt.Sprintf("QR-код %d не найден", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCodes обрабатывает GET /api/v1/codes/export: zip-архив всех PNG.
// Архив формируется потоком, поэтому ошибка после начала записи
// только логируется.
func (h *CodesHandler) ExportCodes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename))

	count, err := archive.Write(w, h.svc.ExportAll())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Ошибка формирования архива",
			slog.Int("written", count),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.InfoContext(r.Context(), "Архив QR-кодов выгружен", slog.Int("files", count))
}

// requestBaseURL восстанавливает базовый адрес сервиса из запроса.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// writeJSON записывает JSON-ответ.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

