// Пакет contentstore — операции с файлами содержимого на диске.
// Управляет двумя директориями: сгенерированные PNG QR-кодов и
// загруженные оригиналы. Не хранит состояния записей, только байты по имени файла.
package contentstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Dir — логическая директория хранилища.
type Dir string

const (
	// DirCodes — директория PNG-файлов QR-кодов
	DirCodes Dir = "codes"
	// DirUploads — директория загруженных изображений
	DirUploads Dir = "uploads"
)

// tmpSuffix — суффикс временных файлов атомарной записи.
const tmpSuffix = ".tmp"

// ErrInvalidFilename — имя файла содержит разделители пути или "..".
var ErrInvalidFilename = errors.New("недопустимое имя файла")

// Store — управление файлами содержимого.
type Store struct {
	codesDir   string
	uploadsDir string
}

// New создаёт Store. Создаёт обе директории, если они не существуют.
func New(codesDir, uploadsDir string) (*Store, error) {
	for _, dir := range []string{codesDir, uploadsDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
		}
	}
	return &Store{codesDir: codesDir, uploadsDir: uploadsDir}, nil
}

// DirPath возвращает путь к директории на диске.
func (s *Store) DirPath(dir Dir) string {
	if dir == DirUploads {
		return s.uploadsDir
	}
	return s.codesDir
}

// Path возвращает полный путь к файлу.
func (s *Store) Path(dir Dir, filename string) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	return filepath.Join(s.DirPath(dir), filename), nil
}

// Exists проверяет существование обычного файла.
func (s *Store) Exists(dir Dir, filename string) bool {
	path, err := s.Path(dir, filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Delete удаляет файл. Возвращает nil, если файл уже не существует.
func (s *Store) Delete(dir Dir, filename string) error {
	path, err := s.Path(dir, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", filename, err)
	}
	return nil
}

// ListFilenames возвращает отсортированные имена обычных файлов в директории.
// Скрытые и временные файлы пропускаются.
func (s *Store) ListFilenames(dir Dir) ([]string, error) {
	entries, err := os.ReadDir(s.DirPath(dir))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", s.DirPath(dir), err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, tmpSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Save атомарно записывает данные из reader в файл.
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется. Возвращает количество записанных байт.
func (s *Store) Save(dir Dir, filename string, reader io.Reader) (int64, error) {
	fullPath, err := s.Path(dir, filename)
	if err != nil {
		return 0, err
	}

	f, err := os.CreateTemp(s.DirPath(dir), "."+filename+".*"+tmpSuffix)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := f.Name()

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o640); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка установки прав: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return size, nil
}

// Open открывает файл для чтения. Вызывающий код обязан закрыть файл.
func (s *Store) Open(dir Dir, filename string) (*os.File, error) {
	path, err := s.Path(dir, filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s: %w", filename, err)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", filename, err)
	}
	return f, nil
}

// ReadFile читает файл целиком.
func (s *Store) ReadFile(dir Dir, filename string) ([]byte, error) {
	path, err := s.Path(dir, filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", filename, err)
	}
	return data, nil
}

// CheckWritable проверяет, что директория существует и доступна на запись.
func (s *Store) CheckWritable(dir Dir) error {
	path := s.DirPath(dir)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("директория недоступна: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s не является директорией", path)
	}
	f, err := os.CreateTemp(path, ".write_test.*"+tmpSuffix)
	if err != nil {
		return fmt.Errorf("директория недоступна для записи: %w", err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

// NewUploadFilename генерирует имя загруженного файла.
// Формат: {id}_{uuid8}{ext}. Префикс id позволяет сопоставить загрузку
// с QR-кодом при восстановлении по директориям.
func NewUploadFilename(id int64, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalFilename)))
	ext = sanitizeExt(ext)
	uid := uuid.New().String()[:8]
	return fmt.Sprintf("%d_%s%s", id, uid, ext)
}

// sanitizeExt оставляет расширение только из латиницы и цифр (не длиннее 10 символов).
func sanitizeExt(ext string) string {
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return ""
		}
	}
	return ext
}

// validateFilename запрещает пустые имена и выход за пределы директории.
func validateFilename(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}
