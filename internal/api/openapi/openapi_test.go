package openapi

import "testing"

// TestLoad проверяет, что встроенный контракт валиден.
func TestLoad(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("ошибка Load: %v", err)
	}

	for _, path := range []string{
		"/api/v1/codes",
		"/api/v1/codes/{id}",
		"/api/v1/codes/{id}/scan-count",
		"/api/v1/codes/export",
		"/api/v1/maintenance/verify",
	} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("путь %s отсутствует в контракте", path)
		}
	}
}
