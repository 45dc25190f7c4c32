// maintenance.go — обработчик POST /api/v1/maintenance/verify.
// Делегирует проверку согласованности в VerifyService.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/qrtrack/internal/api/errors"
	"github.com/bigkaa/qrtrack/internal/service"
)

// VerifyRunner — интерфейс запуска проверки согласованности.
type VerifyRunner interface {
	// RunOnce выполняет одну проверку.
	// Возвращает результат и флаг "уже выполняется".
	RunOnce() (*service.VerifyReport, bool)
}

// MaintenanceHandler — обработчик endpoints обслуживания.
type MaintenanceHandler struct {
	verifier VerifyRunner
}

// NewMaintenanceHandler создаёт обработчик maintenance endpoints.
func NewMaintenanceHandler(verifier VerifyRunner) *MaintenanceHandler {
	return &MaintenanceHandler{verifier: verifier}
}

// Verify обрабатывает POST /api/v1/maintenance/verify.
// Если проверка уже выполняется — 409 RECONCILE_IN_PROGRESS.
func (h *MaintenanceHandler) Verify(w http.ResponseWriter, _ *http.Request) {
	report, inProgress := h.verifier.RunOnce()
	if inProgress {
		apierrors.ReconcileInProgress(w, "Проверка согласованности уже выполняется")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
