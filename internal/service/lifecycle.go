// Пакет service — бизнес-логика qrtrack.
// lifecycle.go — операции жизненного цикла записей QR-кодов.
//
// Каждая изменяющая операция выполняется в одной критической секции:
// изменение индекса + сохранение файла метаданных. Сохранение вызывается
// через defer на каждом пути выхода, изменившем индекс. Ошибка сохранения
// логируется и не возвращается: индекс в памяти остаётся авторитетным.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/qrtrack/internal/api/middleware"
	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/render"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
	"github.com/bigkaa/qrtrack/internal/storage/index"
	"github.com/bigkaa/qrtrack/internal/storage/metadata"
)

// persistFailuresTotal — неудачные записи файла метаданных.
var persistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "qt_metadata_persist_failures_total",
	Help: "Количество неудачных записей файла метаданных",
})

// CreateParams — параметры создания записи.
// Должно быть задано ровно одно из ImageData или Text.
type CreateParams struct {
	// ImageData — поток загруженного изображения
	ImageData io.Reader
	// ImageName — оригинальное имя файла (для расширения)
	ImageName string
	// Text — текст, отображаемый при сканировании
	Text string
	// BaseURL — базовый адрес из запроса, используется если
	// публичный адрес не задан в конфигурации
	BaseURL string
}

// LifecycleService — фасад операций create/scan/list/delete/export.
type LifecycleService struct {
	store    *contentstore.Store
	repo     *metadata.Repository
	idx      *index.Index
	renderer render.Renderer
	cache    *CodeCache
	baseURL  string
	logger   *slog.Logger

	// mu — изменение индекса и сохранение метаданных
	mu sync.Mutex

	idMu   sync.Mutex
	lastID int64
	now    func() time.Time
}

// NewLifecycleService создаёт сервис. Индекс должен быть уже заполнен
// (Replace): последний выданный id инициализируется максимальным id индекса.
func NewLifecycleService(
	store *contentstore.Store,
	repo *metadata.Repository,
	idx *index.Index,
	renderer render.Renderer,
	cache *CodeCache,
	publicBaseURL string,
	logger *slog.Logger,
) *LifecycleService {
	s := &LifecycleService{
		store:    store,
		repo:     repo,
		idx:      idx,
		renderer: renderer,
		cache:    cache,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		logger:   logger.With(slog.String("component", "lifecycle")),
		lastID:   idx.MaxID(),
		now:      time.Now,
	}
	s.refreshRecordGauges()
	return s
}

// Create создаёт запись: сохраняет загрузку (для изображения), генерирует
// QR-код на адрес сканирования, добавляет запись в индекс и сохраняет метаданные.
// При ошибке до вставки в индекс записанные файлы удаляются.
func (s *LifecycleService) Create(ctx context.Context, params CreateParams) (*model.Record, error) {
	hasImage := params.ImageData != nil
	hasText := strings.TrimSpace(params.Text) != ""
	if hasImage == hasText {
		middleware.OperationsTotal.WithLabelValues("create", "invalid").Inc()
		return nil, fmt.Errorf("%w: требуется ровно одно из полей image или text", model.ErrInvalidInput)
	}

	id := s.nextID()
	rec := &model.Record{ID: id, CodeFilename: model.CodeFilenameFor(id)}

	type writtenFile struct {
		dir  contentstore.Dir
		name string
	}
	var written []writtenFile
	rollback := func() {
		for _, f := range written {
			if err := s.store.Delete(f.dir, f.name); err != nil {
				s.logger.Error("Ошибка удаления файла при откате",
					slog.Int64("id", id),
					slog.String("filename", f.name),
					slog.String("error", err.Error()),
				)
			}
		}
		middleware.OperationsTotal.WithLabelValues("create", "error").Inc()
	}

	if hasImage {
		upload := contentstore.NewUploadFilename(id, params.ImageName)
		if _, err := s.store.Save(contentstore.DirUploads, upload, params.ImageData); err != nil {
			rollback()
			return nil, fmt.Errorf("ошибка сохранения загрузки: %w", err)
		}
		written = append(written, writtenFile{contentstore.DirUploads, upload})
		rec.Content = model.ImageContent{UploadFilename: upload}
	} else {
		rec.Content = model.TextContent{Text: params.Text}
	}

	png, err := s.renderer.Render(s.scanURL(params.BaseURL, id))
	if err != nil {
		rollback()
		return nil, err
	}
	if _, err := s.store.Save(contentstore.DirCodes, rec.CodeFilename, bytes.NewReader(png)); err != nil {
		rollback()
		return nil, fmt.Errorf("ошибка сохранения QR-кода: %w", err)
	}
	written = append(written, writtenFile{contentstore.DirCodes, rec.CodeFilename})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idx.Insert(rec); err != nil {
		rollback()
		return nil, err
	}
	defer s.persist(ctx, "create", id, func() error { return s.repo.Append(rec) })

	s.cache.Set(rec.CodeFilename, png)
	middleware.OperationsTotal.WithLabelValues("create", "success").Inc()
	middleware.RecordsTotal.WithLabelValues(string(rec.ContentType())).Inc()

	s.logger.InfoContext(ctx, "Запись создана",
		slog.Int64("id", id),
		slog.String("content_type", string(rec.ContentType())),
		slog.String("code_filename", rec.CodeFilename),
	)
	return rec.Clone(), nil
}

// Scan регистрирует сканирование и возвращает инструкцию для HTTP-слоя:
// перенаправление на изображение или отображение текста с новым счётчиком.
func (s *LifecycleService) Scan(ctx context.Context, id int64) (*model.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.idx.IncrementScan(id)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("scan", "not_found").Inc()
		return nil, err
	}
	rec, err := s.idx.Get(id)
	if err != nil {
		return nil, err
	}
	defer s.persist(ctx, "scan", id, func() error { return s.repo.Update(rec) })

	middleware.OperationsTotal.WithLabelValues("scan", "success").Inc()
	middleware.ScansTotal.WithLabelValues(string(rec.ContentType())).Inc()

	s.logger.DebugContext(ctx, "Сканирование",
		slog.Int64("id", id),
		slog.Int64("scan_count", count),
	)

	switch c := rec.Content.(type) {
	case model.ImageContent:
		return &model.Dispatch{
			Kind:      model.DispatchRedirect,
			Location:  c.URL(),
			ScanCount: count,
		}, nil
	case model.TextContent:
		return &model.Dispatch{
			Kind:      model.DispatchRender,
			Text:      c.Text,
			Recovered: c.Recovered,
			ScanCount: count,
		}, nil
	default:
		return nil, fmt.Errorf("запись %d: неизвестный тип содержимого %T", id, rec.Content)
	}
}

// ListAll возвращает публичные проекции всех записей в порядке индекса.
func (s *LifecycleService) ListAll() []model.RecordView {
	records := s.idx.ListAll()
	views := make([]model.RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View())
	}
	return views
}

// GetScanCount возвращает счётчик сканирований записи.
func (s *LifecycleService) GetScanCount(id int64) (int64, error) {
	rec, err := s.idx.Get(id)
	if err != nil {
		return 0, err
	}
	return rec.ScanCount, nil
}

// Delete удаляет запись. Ошибки удаления файлов логируются:
// запись удаляется из индекса и метаданных в любом случае.
func (s *LifecycleService) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.idx.Remove(id)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("delete", "not_found").Inc()
		return err
	}
	defer s.persist(ctx, "delete", id, func() error { return s.repo.Remove(id) })

	s.cache.Delete(rec.CodeFilename)
	if err := s.store.Delete(contentstore.DirCodes, rec.CodeFilename); err != nil {
		s.logger.WarnContext(ctx, "Не удалось удалить файл QR-кода",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
	}
	if upload := rec.UploadFilename(); upload != "" {
		if err := s.store.Delete(contentstore.DirUploads, upload); err != nil {
			s.logger.WarnContext(ctx, "Не удалось удалить загруженный файл",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
	middleware.RecordsTotal.WithLabelValues(string(rec.ContentType())).Dec()

	s.logger.InfoContext(ctx, "Запись удалена", slog.Int64("id", id))
	return nil
}

// ExportAll возвращает ленивую последовательность PNG-файлов QR-кодов.
// Набор записей фиксируется в начале итерации. Отсутствующие или
// нечитаемые файлы пропускаются. Потребитель обязан закрыть Body.
func (s *LifecycleService) ExportAll() iter.Seq[model.ExportEntry] {
	return func(yield func(model.ExportEntry) bool) {
		for _, rec := range s.idx.ListAll() {
			f, err := s.store.Open(contentstore.DirCodes, rec.CodeFilename)
			if err != nil {
				s.logger.Debug("Файл QR-кода пропущен при выгрузке",
					slog.Int64("id", rec.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if !yield(model.ExportEntry{Filename: rec.CodeFilename, Body: f}) {
				return
			}
		}
	}
}

// CodeImage возвращает байты PNG-файла QR-кода, используя LRU-кэш.
// Промах кэша обрабатывается под s.mu: PNG удалённой записи не попадает в кэш.
func (s *LifecycleService) CodeImage(filename string) ([]byte, error) {
	if data, ok := s.cache.Get(filename); ok {
		return data, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Exists(contentstore.DirCodes, filename) {
		return nil, fmt.Errorf("файл %s: %w", filename, model.ErrNotFound)
	}
	data, err := s.store.ReadFile(contentstore.DirCodes, filename)
	if err != nil {
		return nil, err
	}
	s.cache.Set(filename, data)
	return data, nil
}

// nextID выдаёт идентификатор из текущего времени в миллисекундах.
// При совпадении или отставании часов — предыдущий id + 1.
func (s *LifecycleService) nextID() int64 {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// scanURL строит адрес сканирования, закодированный в QR-коде.
func (s *LifecycleService) scanURL(requestBase string, id int64) string {
	base := s.baseURL
	if base == "" {
		base = strings.TrimRight(requestBase, "/")
	}
	return base + model.ScanURLPrefix + strconv.FormatInt(id, 10)
}

// persist сохраняет изменение в файле метаданных. Ошибка логируется
// и учитывается в метрике, операция считается выполненной.
func (s *LifecycleService) persist(ctx context.Context, operation string, id int64, write func() error) {
	if err := write(); err != nil {
		persistFailuresTotal.Inc()
		s.logger.ErrorContext(ctx, "Не удалось сохранить метаданные, изменение только в памяти",
			slog.String("operation", operation),
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
	}
}

// refreshRecordGauges выставляет gauge количества записей по типам.
func (s *LifecycleService) refreshRecordGauges() {
	for _, t := range []model.ContentType{model.ContentImage, model.ContentText} {
		middleware.RecordsTotal.WithLabelValues(string(t)).Set(float64(s.idx.CountByType(t)))
	}
}
