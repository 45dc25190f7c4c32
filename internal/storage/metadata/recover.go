// recover.go — восстановление записей по содержимому директорий.
//
// Запускается только если файл метаданных отсутствует или повреждён.
// Каждый файл qr_<N>.png (N без ведущих нулей) даёт запись N. Загрузка с именем, начинающимся
// с N (за которым следует не цифра), делает запись изображением, иначе
// запись становится текстовой с заглушкой: исходный текст на диске не хранится.
// Счётчики сканирований не восстанавливаются.
package metadata

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
)

// recoverFromDirectories строит записи по файлам в директориях, упорядоченные по id.
func (r *Repository) recoverFromDirectories() ([]*model.Record, error) {
	codes, err := r.store.ListFilenames(contentstore.DirCodes)
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления QR-кодов: %w", err)
	}
	uploads, err := r.store.ListFilenames(contentstore.DirUploads)
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления загрузок: %w", err)
	}

	records := make([]*model.Record, 0, len(codes))
	for _, name := range codes {
		id, ok := model.ParseCodeFilename(name)
		if !ok {
			r.logger.Debug("Файл не является QR-кодом, пропуск",
				slog.String("filename", name),
			)
			continue
		}
		// qr_010.png и qr_10.png дают один id: принимается только каноническое имя
		if name != model.CodeFilenameFor(id) {
			r.logger.Debug("Неканоническое имя QR-кода, пропуск",
				slog.String("filename", name),
				slog.Int64("id", id),
			)
			continue
		}

		rec := &model.Record{ID: id, CodeFilename: name}
		if upload, found := matchUpload(id, uploads); found {
			rec.Content = model.ImageContent{UploadFilename: upload}
		} else {
			r.logger.Warn("Текст записи невосстановим, подставлена заглушка",
				slog.Int64("id", id),
			)
			rec.Content = model.TextContent{
				Text:      model.RecoveredTextPlaceholder,
				Recovered: true,
			}
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// matchUpload ищет загрузку для id среди отсортированных имён.
// Имя должно начинаться с десятичного id, за которым идёт не цифра
// или конец имени: загрузка 100_x.jpg не относится к id 10.
func matchUpload(id int64, uploads []string) (string, bool) {
	prefix := strconv.FormatInt(id, 10)
	for _, name := range uploads {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if len(name) == len(prefix) {
			return name, true
		}
		if c := name[len(prefix)]; c < '0' || c > '9' {
			return name, true
		}
	}
	return "", false
}
