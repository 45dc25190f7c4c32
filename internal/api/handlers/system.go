// system.go — обработчик GET /api/v1/info (информация о сервисе).
package handlers

import (
	"net/http"

	"github.com/bigkaa/qrtrack/internal/config"
	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/storage/index"
	"github.com/bigkaa/qrtrack/internal/storage/metadata"
)

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	cfg    *config.Config
	idx    *index.Index
	report metadata.LoadReport
}

// NewSystemHandler создаёт обработчик системных endpoints.
// report — итог восстановления записей при старте.
func NewSystemHandler(cfg *config.Config, idx *index.Index, report metadata.LoadReport) *SystemHandler {
	return &SystemHandler{
		cfg:    cfg,
		idx:    idx,
		report: report,
	}
}

// recordCounts — количество записей по типам.
type recordCounts struct {
	Total int `json:"total"`
	Image int `json:"image"`
	Text  int `json:"text"`
}

// infoResponse — ответ GET /api/v1/info.
type infoResponse struct {
	Service       string              `json:"service"`
	Version       string              `json:"version"`
	Status        string              `json:"status"`
	PublicBaseURL string              `json:"public_base_url,omitempty"`
	MaxUploadSize int64               `json:"max_upload_size"`
	Records       recordCounts        `json:"records"`
	LoadReport    metadata.LoadReport `json:"load_report"`
}

// GetInfo обрабатывает GET /api/v1/info.
func (h *SystemHandler) GetInfo(w http.ResponseWriter, _ *http.Request) {
	status := "online"
	if !h.idx.IsReady() {
		status = "starting"
	}

	resp := infoResponse{
		Service:       serviceName,
		Version:       config.Version,
		Status:        status,
		PublicBaseURL: h.cfg.PublicBaseURL,
		MaxUploadSize: h.cfg.MaxUploadSize,
		Records: recordCounts{
			Total: h.idx.Count(),
			Image: h.idx.CountByType(model.ContentImage),
			Text:  h.idx.CountByType(model.ContentText),
		},
		LoadReport: h.report,
	}
	writeJSON(w, http.StatusOK, resp)
}
