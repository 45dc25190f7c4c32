package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/qrtrack/internal/storage/contentstore"
)

// stubDirChecker — проверка директорий с заданным результатом.
type stubDirChecker struct {
	failing map[contentstore.Dir]bool
}

func (s stubDirChecker) CheckWritable(dir contentstore.Dir) error {
	if s.failing[dir] {
		return errors.New("read-only file system")
	}
	return nil
}

// stubIndex — индекс с заданной готовностью.
type stubIndex bool

func (s stubIndex) IsReady() bool { return bool(s) }

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	return resp
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(stubDirChecker{}, stubIndex(false))

	w := httptest.NewRecorder()
	h.HealthLive(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", w.Code)
	}
	resp := decodeHealth(t, w)
	if resp["status"] != "ok" || resp["service"] != "qrtrack" {
		t.Errorf("неожиданный ответ: %v", resp)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		checker    stubDirChecker
		ready      bool
		wantStatus int
	}{
		{"всё доступно", stubDirChecker{}, true, http.StatusOK},
		{"индекс не готов", stubDirChecker{}, false, http.StatusServiceUnavailable},
		{"директория загрузок недоступна",
			stubDirChecker{failing: map[contentstore.Dir]bool{contentstore.DirUploads: true}},
			true, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checker, stubIndex(tt.ready))

			w := httptest.NewRecorder()
			h.HealthReady(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("ожидался %d, получен %d", tt.wantStatus, w.Code)
			}
			resp := decodeHealth(t, w)
			wantOverall := "ok"
			if tt.wantStatus != http.StatusOK {
				wantOverall = statusFail
			}
			if resp["status"] != wantOverall {
				t.Errorf("status: ожидалось %q, получено %v", wantOverall, resp["status"])
			}
			checks, ok := resp["checks"].(map[string]any)
			if !ok || len(checks) != 3 {
				t.Errorf("ожидалось 3 проверки: %v", resp["checks"])
			}
		})
	}
}

func TestHealthReady_RealStore(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", w.Code, w.Body.String())
	}
}
