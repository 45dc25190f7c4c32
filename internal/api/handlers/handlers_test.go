package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bigkaa/qrtrack/internal/config"
	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/render"
	"github.com/bigkaa/qrtrack/internal/service"
	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
	"github.com/bigkaa/qrtrack/internal/storage/index"
	"github.com/bigkaa/qrtrack/internal/storage/metadata"
)

// testLogger возвращает логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testAPI — обработчики поверх временных директорий.
type testAPI struct {
	store   *contentstore.Store
	idx     *index.Index
	handler http.Handler
}

const testMaxUploadSize = 64 << 10

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	root := t.TempDir()

	store, err := contentstore.New(filepath.Join(root, "qrcodes"), filepath.Join(root, "uploads"))
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}
	repo := metadata.New(filepath.Join(root, "qr_metadata.json"), store, testLogger())
	records, report, err := repo.Load()
	if err != nil {
		t.Fatalf("ошибка загрузки метаданных: %v", err)
	}
	idx := index.New(testLogger())
	idx.Replace(records)

	renderer, err := render.NewQRRenderer(128, "medium")
	if err != nil {
		t.Fatalf("ошибка создания генератора: %v", err)
	}
	svc := service.NewLifecycleService(store, repo, idx, renderer, service.NewCodeCache(16, 0), "", testLogger())
	cfg := &config.Config{MaxUploadSize: testMaxUploadSize}

	api := NewAPIHandler(
		NewHealthHandler(store, idx),
		NewSystemHandler(cfg, idx, report),
		NewCodesHandler(svc, cfg.MaxUploadSize, testLogger()),
		NewScanHandler(svc, testLogger()),
		NewStaticHandler(svc, store, testLogger()),
		NewMaintenanceHandler(service.NewVerifyService(store, idx, testLogger())),
	)
	return &testAPI{store: store, idx: idx, handler: api.Handler()}
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

// multipartRequest строит POST-запрос с полем text и/или файлом image.
func multipartRequest(t *testing.T, path, text string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if text != "" {
		if err := mw.WriteField("text", text); err != nil {
			t.Fatalf("ошибка записи поля: %v", err)
		}
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatalf("ошибка создания файла формы: %v", err)
		}
		fw.Write(image)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (a *testAPI) createText(t *testing.T, text string) model.RecordView {
	t.Helper()
	w := a.do(t, multipartRequest(t, "/api/v1/codes", text, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("создание: ожидался 201, получен %d: %s", w.Code, w.Body.String())
	}
	var view model.RecordView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	return view
}

func (a *testAPI) createImage(t *testing.T, data []byte) model.RecordView {
	t.Helper()
	w := a.do(t, multipartRequest(t, "/api/v1/codes", "", data))
	if w.Code != http.StatusCreated {
		t.Fatalf("создание: ожидался 201, получен %d: %s", w.Code, w.Body.String())
	}
	var view model.RecordView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	return view
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}
	return resp.Error.Code
}

func idPath(format string, id int64) string {
	return strings.Replace(format, "{id}", strconv.FormatInt(id, 10), 1)
}
