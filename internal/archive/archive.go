// Пакет archive — упаковка файлов выгрузки в zip-поток.
// Сжатие — klauspost/compress/flate с максимальным уровнем.
// Архив читается стандартным archive/zip.
package archive

import (
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// Write записывает entries в zip-архив и возвращает количество файлов.
// Body каждого полученного элемента закрывается, в том числе при ошибке.
// Архив финализируется только при успехе: при ошибке поток неполон.
func Write(w io.Writer, entries iter.Seq[model.ExportEntry]) (int, error) {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	modified := time.Now()
	count := 0
	for entry := range entries {
		err := writeEntry(zw, entry, modified)
		entry.Body.Close()
		if err != nil {
			return count, err
		}
		count++
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("ошибка завершения архива: %w", err)
	}
	return count, nil
}

// writeEntry копирует один файл в архив.
func writeEntry(zw *zip.Writer, entry model.ExportEntry, modified time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entry.Filename,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("ошибка создания записи %s: %w", entry.Filename, err)
	}
	if _, err := io.Copy(fw, entry.Body); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", entry.Filename, err)
	}
	return nil
}
