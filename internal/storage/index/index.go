// Пакет index — потокобезопасный in-memory индекс записей QR-кодов.
//
// Индекс заполняется при старте из результата reconciliation (Replace)
// и обновляется синхронно при операциях create, scan и delete.
// Порядок ListAll — порядок вставки, стабилен в пределах жизни процесса.
//
// Не персистентный: при рестарте пересобирается из файла метаданных.
package index

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// Index — потокобезопасный in-memory индекс записей.
// Использует sync.RWMutex для конкурентного чтения и
// эксклюзивной записи. Наружу отдаются только копии.
type Index struct {
	mu      sync.RWMutex
	records map[int64]*model.Record // id → запись
	order   []int64                 // порядок вставки
	ready   bool
	logger  *slog.Logger
}

// New создаёт пустой индекс. Для заполнения вызовите Replace.
func New(logger *slog.Logger) *Index {
	return &Index{
		records: make(map[int64]*model.Record),
		logger:  logger.With(slog.String("component", "index")),
	}
}

// Replace заменяет содержимое индекса набором записей в заданном порядке.
// Записи с повторяющимся id пропускаются (остаётся первая).
// После вызова индекс помечается как ready.
func (idx *Index) Replace(records []*model.Record) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.records = make(map[int64]*model.Record, len(records))
	idx.order = make([]int64, 0, len(records))
	for _, rec := range records {
		if _, exists := idx.records[rec.ID]; exists {
			idx.logger.Warn("Повторяющийся идентификатор пропущен",
				slog.Int64("id", rec.ID),
			)
			continue
		}
		idx.records[rec.ID] = rec.Clone()
		idx.order = append(idx.order, rec.ID)
	}
	idx.ready = true

	idx.logger.Info("Индекс записей построен",
		slog.Int("records", len(idx.records)),
	)
}

// IsReady возвращает true, если индекс построен.
func (idx *Index) IsReady() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ready
}

// Insert добавляет запись. Возвращает ErrDuplicateID, если id уже занят.
func (idx *Index) Insert(rec *model.Record) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.records[rec.ID]; exists {
		return fmt.Errorf("запись %d: %w", rec.ID, model.ErrDuplicateID)
	}
	idx.records[rec.ID] = rec.Clone()
	idx.order = append(idx.order, rec.ID)
	return nil
}

// Get возвращает копию записи по id или ErrNotFound.
func (idx *Index) Get(id int64) (*model.Record, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rec, ok := idx.records[id]
	if !ok {
		return nil, fmt.Errorf("запись %d: %w", id, model.ErrNotFound)
	}
	return rec.Clone(), nil
}

// Remove удаляет запись и возвращает её копию или ErrNotFound.
func (idx *Index) Remove(id int64) (*model.Record, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rec, ok := idx.records[id]
	if !ok {
		return nil, fmt.Errorf("запись %d: %w", id, model.ErrNotFound)
	}
	delete(idx.records, id)
	for i, v := range idx.order {
		if v == id {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
	return rec, nil
}

// IncrementScan увеличивает счётчик сканирований и возвращает новое значение.
func (idx *Index) IncrementScan(id int64) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rec, ok := idx.records[id]
	if !ok {
		return 0, fmt.Errorf("запись %d: %w", id, model.ErrNotFound)
	}
	rec.ScanCount++
	return rec.ScanCount, nil
}

// ListAll возвращает копии всех записей в порядке вставки.
func (idx *Index) ListAll() []*model.Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := make([]*model.Record, 0, len(idx.order))
	for _, id := range idx.order {
		result = append(result, idx.records[id].Clone())
	}
	return result
}

// Count возвращает количество записей.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// CountByType возвращает количество записей указанного типа.
func (idx *Index) CountByType(t model.ContentType) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	count := 0
	for _, rec := range idx.records {
		if rec.ContentType() == t {
			count++
		}
	}
	return count
}

// MaxID возвращает наибольший id в индексе (0 для пустого).
func (idx *Index) MaxID() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var maxID int64
	for id := range idx.records {
		if id > maxID {
			maxID = id
		}
	}
	return maxID
}
