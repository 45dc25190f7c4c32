// verify.go — сверка индекса записей с файлами на диске.
//
// Сравнивает:
//   - записи индекса с PNG-файлами QR-кодов и загрузками
//   - файлы в директориях с записями индекса
//
// Обнаруживает проблемы:
//   - missing_code: запись есть, PNG-файла нет (удалён после старта)
//   - missing_upload: запись изображения есть, загрузки нет
//   - orphaned_code: PNG-файл без записи
//   - orphaned_upload: загрузка без записи
//
// Ничего не изменяет: отчёт для оператора. Запускается по запросу
// POST /api/v1/maintenance/verify.
package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
	"github.com/bigkaa/qrtrack/internal/storage/index"
)

// Prometheus метрики сверки
var (
	// verifyRunsTotal — количество запусков сверки.
	verifyRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qt_verify_runs_total",
		Help: "Общее количество запусков сверки",
	})

	// verifyIssuesTotal — количество обнаруженных проблем по типу.
	verifyIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qt_verify_issues_total",
		Help: "Общее количество проблем, обнаруженных сверкой",
	}, []string{"type"})
)

// IssueType — тип проблемы сверки.
type IssueType string

const (
	IssueMissingCode    IssueType = "missing_code"
	IssueMissingUpload  IssueType = "missing_upload"
	IssueOrphanedCode   IssueType = "orphaned_code"
	IssueOrphanedUpload IssueType = "orphaned_upload"
)

// VerifyIssue — одна обнаруженная проблема.
type VerifyIssue struct {
	Type        IssueType `json:"type"`
	ID          int64     `json:"id,omitempty"`
	Filename    string    `json:"filename"`
	Description string    `json:"description"`
}

// VerifySummary — количество проблем по типам.
type VerifySummary struct {
	OK              int `json:"ok"`
	MissingCodes    int `json:"missing_codes"`
	MissingUploads  int `json:"missing_uploads"`
	OrphanedCodes   int `json:"orphaned_codes"`
	OrphanedUploads int `json:"orphaned_uploads"`
}

// VerifyReport — результат сверки.
type VerifyReport struct {
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
	RecordsChecked int           `json:"records_checked"`
	Issues         []VerifyIssue `json:"issues"`
	Summary        VerifySummary `json:"summary"`
}

// VerifyService — сверка индекса с содержимым директорий.
type VerifyService struct {
	store  *contentstore.Store
	idx    *index.Index
	logger *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool
}

// NewVerifyService создаёт сервис сверки.
func NewVerifyService(store *contentstore.Store, idx *index.Index, logger *slog.Logger) *VerifyService {
	return &VerifyService{
		store:  store,
		idx:    idx,
		logger: logger.With(slog.String("component", "verify")),
	}
}

// IsInProgress возвращает true, если сверка выполняется.
func (vs *VerifyService) IsInProgress() bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.inProcess
}

// RunOnce выполняет одну сверку.
// Если сверка уже выполняется, возвращает nil, true.
func (vs *VerifyService) RunOnce() (*VerifyReport, bool) {
	vs.mu.Lock()
	if vs.inProcess {
		vs.mu.Unlock()
		vs.logger.Warn("Сверка уже выполняется, пропуск")
		return nil, true
	}
	vs.inProcess = true
	vs.mu.Unlock()

	defer func() {
		vs.mu.Lock()
		vs.inProcess = false
		vs.mu.Unlock()
	}()

	report := &VerifyReport{StartedAt: time.Now().UTC()}
	vs.logger.Info("Сверка начата")

	records := vs.idx.ListAll()
	report.RecordsChecked = len(records)
	report.Issues = vs.verify(records)
	report.CompletedAt = time.Now().UTC()

	affected := make(map[int64]struct{})
	for _, issue := range report.Issues {
		switch issue.Type {
		case IssueMissingCode:
			report.Summary.MissingCodes++
			affected[issue.ID] = struct{}{}
		case IssueMissingUpload:
			report.Summary.MissingUploads++
			affected[issue.ID] = struct{}{}
		case IssueOrphanedCode:
			report.Summary.OrphanedCodes++
		case IssueOrphanedUpload:
			report.Summary.OrphanedUploads++
		}
		verifyIssuesTotal.WithLabelValues(string(issue.Type)).Inc()
	}
	report.Summary.OK = report.RecordsChecked - len(affected)
	verifyRunsTotal.Inc()

	vs.logger.Info("Сверка завершена",
		slog.Int("records_checked", report.RecordsChecked),
		slog.Int("issues", len(report.Issues)),
		slog.Duration("duration", report.CompletedAt.Sub(report.StartedAt)),
	)
	return report, false
}

// verify сравнивает записи с файлами в обеих директориях.
func (vs *VerifyService) verify(records []*model.Record) []VerifyIssue {
	issues := make([]VerifyIssue, 0)

	codeFiles, err := vs.listSet(contentstore.DirCodes)
	if err != nil {
		return issues
	}
	uploadFiles, err := vs.listSet(contentstore.DirUploads)
	if err != nil {
		return issues
	}

	knownCodes := make(map[string]struct{}, len(records))
	knownUploads := make(map[string]struct{}, len(records))

	for _, rec := range records {
		knownCodes[rec.CodeFilename] = struct{}{}
		if _, ok := codeFiles[rec.CodeFilename]; !ok {
			issues = append(issues, VerifyIssue{
				Type:        IssueMissingCode,
				ID:          rec.ID,
				Filename:    rec.CodeFilename,
				Description: "Запись без PNG-файла QR-кода",
			})
		}

		upload := rec.UploadFilename()
		if upload == "" {
			continue
		}
		knownUploads[upload] = struct{}{}
		if _, ok := uploadFiles[upload]; !ok {
			issues = append(issues, VerifyIssue{
				Type:        IssueMissingUpload,
				ID:          rec.ID,
				Filename:    upload,
				Description: "Запись изображения без загруженного файла",
			})
		}
	}

	for name := range codeFiles {
		if _, ok := knownCodes[name]; !ok {
			issues = append(issues, VerifyIssue{
				Type:        IssueOrphanedCode,
				Filename:    name,
				Description: "PNG-файл QR-кода без записи",
			})
		}
	}
	for name := range uploadFiles {
		if _, ok := knownUploads[name]; !ok {
			issues = append(issues, VerifyIssue{
				Type:        IssueOrphanedUpload,
				Filename:    name,
				Description: "Загруженный файл без записи",
			})
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Type != issues[j].Type {
			return issues[i].Type < issues[j].Type
		}
		return issues[i].Filename < issues[j].Filename
	})
	return issues
}

// listSet возвращает множество имён файлов директории.
func (vs *VerifyService) listSet(dir contentstore.Dir) (map[string]struct{}, error) {
	names, err := vs.store.ListFilenames(dir)
	if err != nil {
		vs.logger.Error("Ошибка чтения директории",
			slog.String("dir", string(dir)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}
