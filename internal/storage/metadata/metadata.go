// Пакет metadata — файл метаданных записей QR-кодов (qr_metadata.json).
//
// Файл является сериализованной проекцией индекса: упорядоченный JSON-массив
// {id, contentType, codeFilename, scanCount, uploadFilename | text}.
// Все записи выполняются атомарно: temp → fsync → rename, поэтому
// читатель никогда не видит частично записанный файл.
//
// При старте Load восстанавливает записи и сверяет их с файлами на диске
// (см. load.go), при отсутствии файла — по содержимому директорий (recover.go).
package metadata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
)

// ContentChecker — операции хранилища содержимого, нужные для reconciliation.
type ContentChecker interface {
	Exists(dir contentstore.Dir, filename string) bool
	ListFilenames(dir contentstore.Dir) ([]string, error)
}

// entry — сериализованная проекция записи в файле метаданных.
type entry struct {
	ID             int64             `json:"id"`
	ContentType    model.ContentType `json:"contentType"`
	CodeFilename   string            `json:"codeFilename"`
	ScanCount      int64             `json:"scanCount"`
	UploadFilename string            `json:"uploadFilename,omitempty"`
	Text           *string           `json:"text,omitempty"`
	Recovered      bool              `json:"recovered,omitempty"`
}

// toEntry строит проекцию записи.
func toEntry(rec *model.Record) entry {
	e := entry{
		ID:           rec.ID,
		ContentType:  rec.ContentType(),
		CodeFilename: rec.CodeFilename,
		ScanCount:    rec.ScanCount,
	}
	switch c := rec.Content.(type) {
	case model.ImageContent:
		e.UploadFilename = c.UploadFilename
	case model.TextContent:
		text := c.Text
		e.Text = &text
		e.Recovered = c.Recovered
	}
	return e
}

// Repository — владелец файла метаданных.
// Хранит упорядоченный снимок записей, зеркалирующий индекс:
// Append/Update/Remove изменяют снимок и перезаписывают файл целиком.
// Если запись на диск не удалась, снимок всё равно обновлён и следующая
// успешная запись включит недостающие изменения.
type Repository struct {
	path   string
	store  ContentChecker
	logger *slog.Logger

	mu       sync.Mutex
	snapshot []*model.Record
}

// New создаёт репозиторий для файла path.
func New(path string, store ContentChecker, logger *slog.Logger) *Repository {
	return &Repository{
		path:   path,
		store:  store,
		logger: logger.With(slog.String("component", "metadata")),
	}
}

// Path возвращает путь к файлу метаданных.
func (r *Repository) Path() string {
	return r.path
}

// Persist заменяет снимок набором записей и атомарно записывает файл.
func (r *Repository) Persist(records []*model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot = make([]*model.Record, 0, len(records))
	for _, rec := range records {
		r.snapshot = append(r.snapshot, rec.Clone())
	}
	return r.writeLocked()
}

// Append добавляет запись в конец снимка и записывает файл.
func (r *Repository) Append(rec *model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot = append(r.snapshot, rec.Clone())
	return r.writeLocked()
}

// Update заменяет запись с тем же id и записывает файл.
// Возвращает ErrNotFound, если записи нет в снимке (файл не трогается).
func (r *Repository) Update(rec *model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.snapshot {
		if existing.ID == rec.ID {
			r.snapshot[i] = rec.Clone()
			return r.writeLocked()
		}
	}
	return fmt.Errorf("запись %d: %w", rec.ID, model.ErrNotFound)
}

// Remove удаляет запись из снимка и записывает файл.
// Возвращает ErrNotFound, если записи нет в снимке (файл не трогается).
func (r *Repository) Remove(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.snapshot {
		if existing.ID == id {
			r.snapshot = append(r.snapshot[:i], r.snapshot[i+1:]...)
			return r.writeLocked()
		}
	}
	return fmt.Errorf("запись %d: %w", id, model.ErrNotFound)
}

// writeLocked сериализует снимок и атомарно заменяет файл.
// Паттерн: JSON → temp файл в той же директории → fsync → atomic rename.
func (r *Repository) writeLocked() error {
	entries := make([]entry, 0, len(r.snapshot))
	for _, rec := range r.snapshot {
		entries = append(entries, toEntry(rec))
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	dir := filepath.Dir(r.path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o640); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка установки прав: %w", err)
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	r.logger.Debug("Метаданные сохранены",
		slog.Int("records", len(entries)),
	)
	return nil
}
