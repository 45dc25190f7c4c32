package service

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/render"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
	"github.com/bigkaa/qrtrack/internal/storage/index"
	"github.com/bigkaa/qrtrack/internal/storage/metadata"
)

// testLogger возвращает логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv — окружение сервиса во временной директории.
type testEnv struct {
	root  string
	store *contentstore.Store
	repo  *metadata.Repository
	idx   *index.Index
	svc   *LifecycleService
}

// newTestEnv создаёт пустое окружение с настоящим генератором QR-кодов.
func newTestEnv(t *testing.T, renderer render.Renderer) *testEnv {
	t.Helper()
	root := t.TempDir()

	store, err := contentstore.New(filepath.Join(root, "qrcodes"), filepath.Join(root, "uploads"))
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}
	if renderer == nil {
		renderer, err = render.NewQRRenderer(128, "medium")
		if err != nil {
			t.Fatalf("ошибка создания генератора: %v", err)
		}
	}

	repo := metadata.New(filepath.Join(root, "qr_metadata.json"), store, testLogger())
	records, _, err := repo.Load()
	if err != nil {
		t.Fatalf("ошибка загрузки метаданных: %v", err)
	}
	idx := index.New(testLogger())
	idx.Replace(records)

	svc := NewLifecycleService(store, repo, idx, renderer, NewCodeCache(16, 0), "", testLogger())
	return &testEnv{root: root, store: store, repo: repo, idx: idx, svc: svc}
}

// reload читает файл метаданных заново, как при перезапуске.
func (e *testEnv) reload(t *testing.T) []*model.Record {
	t.Helper()
	repo := metadata.New(e.repo.Path(), e.store, testLogger())
	records, report, err := repo.Load()
	if err != nil {
		t.Fatalf("ошибка повторной загрузки: %v", err)
	}
	if report.Source != metadata.SourceMetadata {
		t.Fatalf("ожидалась загрузка из файла метаданных, источник %q", report.Source)
	}
	return records
}

// failingRenderer всегда возвращает ошибку.
type failingRenderer struct{}

func (failingRenderer) Render(string) ([]byte, error) {
	return nil, errors.New("генератор недоступен")
}

// stubRenderer возвращает фиксированные байты и запоминает payload.
type stubRenderer struct {
	payloads []string
}

func (r *stubRenderer) Render(payload string) ([]byte, error) {
	r.payloads = append(r.payloads, payload)
	return []byte("png:" + payload), nil
}

func writeBlocker(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("ошибка записи файла: %v", err)
	}
}
