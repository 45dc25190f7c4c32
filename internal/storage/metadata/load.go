// load.go — восстановление записей при старте.
//
// Основной путь: файл метаданных разобран как JSON-массив. Записи без
// PNG-файла QR-кода отбрасываются, записи с отсутствующей загрузкой
// сохраняются с предупреждением.
// Файл отсутствует — восстановление по директориям (recover.go).
// Файл повреждён — переименовывается в <name>.corrupt-<unix>,
// затем восстановление по директориям.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
)

// reconcileRecordsTotal — исходы восстановления записей при старте.
var reconcileRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qt_reconcile_records_total",
	Help: "Количество записей по исходу восстановления при старте",
}, []string{"outcome"})

// Source — источник, из которого восстановлены записи.
type Source string

const (
	// SourceMetadata — записи прочитаны из файла метаданных
	SourceMetadata Source = "metadata"
	// SourceDirectoryScan — записи восстановлены по содержимому директорий
	SourceDirectoryScan Source = "directory_scan"
)

// Сообщение о тексте, утерянном до появления поля text в файле.
const missingTextPlaceholder = "Text content not available"

// LoadReport — итог восстановления записей при старте.
type LoadReport struct {
	Source             Source `json:"source"`
	Loaded             int    `json:"loaded"`
	DroppedMalformed   int    `json:"dropped_malformed"`
	DroppedMissingCode int    `json:"dropped_missing_code"`
	MissingUploads     int    `json:"missing_uploads"`
	RecoveredText      int    `json:"recovered_text"`
	// CorruptBackup — куда перемещён нечитаемый файл метаданных
	CorruptBackup string `json:"corrupt_backup,omitempty"`
}

// rawEntry — запись файла до проверки. scanCount разбирается отдельно,
// так как некорректное значение не должно отбрасывать запись.
type rawEntry struct {
	ID             int64             `json:"id"`
	ContentType    model.ContentType `json:"contentType"`
	CodeFilename   string            `json:"codeFilename"`
	QRFilename     string            `json:"qrFilename"` // ранний формат файла
	ScanCount      json.RawMessage   `json:"scanCount"`
	UploadFilename string            `json:"uploadFilename"`
	Text           *string           `json:"text"`
	Recovered      bool              `json:"recovered"`
}

// Load восстанавливает упорядоченный набор записей. Вызывается один раз при старте.
// Ошибка возвращается только если файл метаданных существует, но не читается,
// либо не удалось перечислить директории при восстановлении.
// Предупреждения reconciliation логируются и учитываются в LoadReport.
func (r *Repository) Load() ([]*model.Record, LoadReport, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Файл метаданных не найден, восстановление по директориям",
				slog.String("path", r.path),
			)
			return r.recoverAndPersist(LoadReport{})
		}
		return nil, LoadReport{}, fmt.Errorf("ошибка чтения файла метаданных %s: %w", r.path, err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", r.path, time.Now().Unix())
		r.logger.Warn("Файл метаданных повреждён, восстановление по директориям",
			slog.String("path", r.path),
			slog.String("backup", backup),
			slog.String("error", err.Error()),
		)
		if err := os.Rename(r.path, backup); err != nil {
			return nil, LoadReport{}, fmt.Errorf("ошибка переименования повреждённого файла: %w", err)
		}
		return r.recoverAndPersist(LoadReport{CorruptBackup: backup})
	}

	records, report := r.reconcileEntries(raws)

	r.mu.Lock()
	r.snapshot = make([]*model.Record, 0, len(records))
	for _, rec := range records {
		r.snapshot = append(r.snapshot, rec.Clone())
	}
	r.mu.Unlock()

	r.logger.Info("Метаданные загружены",
		slog.Int("loaded", report.Loaded),
		slog.Int("dropped_malformed", report.DroppedMalformed),
		slog.Int("dropped_missing_code", report.DroppedMissingCode),
		slog.Int("missing_uploads", report.MissingUploads),
	)
	return records, report, nil
}

// reconcileEntries разбирает записи файла и сверяет их с файлами на диске.
func (r *Repository) reconcileEntries(raws []json.RawMessage) ([]*model.Record, LoadReport) {
	report := LoadReport{Source: SourceMetadata}
	records := make([]*model.Record, 0, len(raws))
	seen := make(map[int64]struct{}, len(raws))

	for pos, raw := range raws {
		rec, err := r.decodeEntry(raw)
		if err != nil {
			r.logger.Warn("Некорректная запись метаданных отброшена",
				slog.Int("position", pos),
				slog.String("error", err.Error()),
			)
			report.DroppedMalformed++
			reconcileRecordsTotal.WithLabelValues("dropped_malformed").Inc()
			continue
		}

		if _, dup := seen[rec.ID]; dup {
			r.logger.Warn("Повторяющийся идентификатор в метаданных отброшен",
				slog.Int64("id", rec.ID),
			)
			report.DroppedMalformed++
			reconcileRecordsTotal.WithLabelValues("dropped_malformed").Inc()
			continue
		}

		if !r.store.Exists(contentstore.DirCodes, rec.CodeFilename) {
			r.logger.Warn("Файл QR-кода отсутствует, запись отброшена",
				slog.Int64("id", rec.ID),
				slog.String("code_filename", rec.CodeFilename),
			)
			report.DroppedMissingCode++
			reconcileRecordsTotal.WithLabelValues("dropped_missing_code").Inc()
			continue
		}

		if upload := rec.UploadFilename(); upload != "" && !r.store.Exists(contentstore.DirUploads, upload) {
			r.logger.Warn("Загруженный файл отсутствует, запись сохранена",
				slog.Int64("id", rec.ID),
				slog.String("upload_filename", upload),
			)
			report.MissingUploads++
			reconcileRecordsTotal.WithLabelValues("missing_upload").Inc()
		}

		if tc, ok := rec.Content.(model.TextContent); ok && tc.Recovered {
			report.RecoveredText++
		}

		seen[rec.ID] = struct{}{}
		records = append(records, rec)
		reconcileRecordsTotal.WithLabelValues("loaded").Inc()
	}

	report.Loaded = len(records)
	return records, report
}

// decodeEntry строит запись из элемента JSON-массива.
func (r *Repository) decodeEntry(raw json.RawMessage) (*model.Record, error) {
	var e rawEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("ошибка разбора: %w", err)
	}
	if e.ID <= 0 {
		return nil, fmt.Errorf("некорректный id %d", e.ID)
	}
	if e.CodeFilename == "" {
		e.CodeFilename = e.QRFilename
	}
	if e.CodeFilename == "" {
		return nil, fmt.Errorf("запись %d: пустой codeFilename", e.ID)
	}

	rec := &model.Record{
		ID:           e.ID,
		CodeFilename: e.CodeFilename,
		ScanCount:    r.parseScanCount(e.ID, e.ScanCount),
	}

	switch e.ContentType {
	case model.ContentImage:
		if e.UploadFilename == "" {
			return nil, fmt.Errorf("запись %d: пустой uploadFilename", e.ID)
		}
		rec.Content = model.ImageContent{UploadFilename: e.UploadFilename}
	case model.ContentText:
		if e.Text == nil {
			r.logger.Warn("Текст записи отсутствует в метаданных",
				slog.Int64("id", e.ID),
			)
			rec.Content = model.TextContent{Text: missingTextPlaceholder, Recovered: true}
		} else {
			rec.Content = model.TextContent{Text: *e.Text, Recovered: e.Recovered}
		}
	default:
		return nil, fmt.Errorf("запись %d: неизвестный contentType %q", e.ID, e.ContentType)
	}

	return rec, nil
}

// parseScanCount извлекает счётчик сканирований.
// Отсутствующее, отрицательное или нецелое значение заменяется на 0.
func (r *Repository) parseScanCount(id int64, raw json.RawMessage) int64 {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil && n >= 0 {
		return n
	}

	// Целые значения в экспоненциальной записи (1e3)
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f >= 0 && f == math.Trunc(f) && f < math.MaxInt64 {
		return int64(f)
	}

	r.logger.Warn("Некорректный scanCount заменён на 0",
		slog.Int64("id", id),
		slog.String("value", string(raw)),
	)
	return 0
}

// recoverAndPersist восстанавливает записи по директориям и сразу
// сохраняет результат, чтобы следующий старт шёл по основному пути.
func (r *Repository) recoverAndPersist(report LoadReport) ([]*model.Record, LoadReport, error) {
	records, err := r.recoverFromDirectories()
	if err != nil {
		return nil, report, err
	}

	report.Source = SourceDirectoryScan
	report.Loaded = len(records)
	for _, rec := range records {
		if tc, ok := rec.Content.(model.TextContent); ok && tc.Recovered {
			report.RecoveredText++
			reconcileRecordsTotal.WithLabelValues("recovered_text").Inc()
		} else {
			reconcileRecordsTotal.WithLabelValues("recovered_image").Inc()
		}
	}

	if err := r.Persist(records); err != nil {
		r.logger.Error("Не удалось сохранить восстановленные метаданные",
			slog.String("error", err.Error()),
		)
	}

	r.logger.Info("Записи восстановлены по директориям",
		slog.Int("loaded", report.Loaded),
		slog.Int("recovered_text", report.RecoveredText),
	)
	return records, report, nil
}
