// Пакет errors — JSON-ответы об ошибках HTTP API qrtrack:
// {"error": {"code": "...", "message": "..."}}.
// HTTP-статус определяется машиночитаемым кодом.
package errors //nolint:revive // импортируется под именем apierrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// Коды ошибок из OpenAPI контракта.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeReconcileInProgress = "RECONCILE_IN_PROGRESS"
	CodeInternalError       = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeValidationError:     http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeMethodNotAllowed:    http.StatusMethodNotAllowed,
	CodeFileTooLarge:        http.StatusRequestEntityTooLarge,
	CodeReconcileInProgress: http.StatusConflict,
	CodeInternalError:       http.StatusInternalServerError,
}

// Status возвращает HTTP-статус для кода ошибки; неизвестный код — 500.
func Status(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Write отправляет ответ об ошибке со статусом, соответствующим коду.
func Write(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(Status(code))
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{Code: code, Message: message},
	})
}

// Domain отвечает на ошибку сервисного слоя:
// model.ErrNotFound — 404, model.ErrInvalidInput — 400, прочие — 500.
func Domain(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		Write(w, CodeNotFound, message)
	case errors.Is(err, model.ErrInvalidInput):
		Write(w, CodeValidationError, message)
	default:
		Write(w, CodeInternalError, message)
	}
}

func ValidationError(w http.ResponseWriter, message string) {
	Write(w, CodeValidationError, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Write(w, CodeNotFound, message)
}

func MethodNotAllowed(w http.ResponseWriter, message string) {
	Write(w, CodeMethodNotAllowed, message)
}

func FileTooLarge(w http.ResponseWriter, message string) {
	Write(w, CodeFileTooLarge, message)
}

func ReconcileInProgress(w http.ResponseWriter, message string) {
	Write(w, CodeReconcileInProgress, message)
}

func InternalError(w http.ResponseWriter, message string) {
	Write(w, CodeInternalError, message)
}
