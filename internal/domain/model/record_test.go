package model

import "testing"

// TestParseCodeFilename проверяет разбор имени файла QR-кода.
func TestParseCodeFilename(t *testing.T) {
	cases := map[string]struct {
		id int64
		ok bool
	}{
		"qr_10.png":            {10, true},
		"qr_1718000000000.png": {1718000000000, true},
		"qr_.png":              {0, false},
		"qr_10.jpg":            {0, false},
		"qr_1a.png":            {0, false},
		"code_10.png":          {0, false},
		"qr_-5.png":            {0, false},
		"qr_0.png":             {0, false},
	}

	for name, want := range cases {
		id, ok := ParseCodeFilename(name)
		if ok != want.ok || id != want.id {
			t.Errorf("%s: ожидалось (%d, %v), получено (%d, %v)", name, want.id, want.ok, id, ok)
		}
	}
}

// TestCodeFilenameFor_RoundTrip проверяет, что сгенерированное имя разбирается обратно.
func TestCodeFilenameFor_RoundTrip(t *testing.T) {
	name := CodeFilenameFor(42)
	if name != "qr_42.png" {
		t.Errorf("ожидалось qr_42.png, получено %s", name)
	}
	id, ok := ParseCodeFilename(name)
	if !ok || id != 42 {
		t.Errorf("ожидалось 42, получено %d (%v)", id, ok)
	}
}

// TestView_Image проверяет публичную проекцию записи с изображением.
func TestView_Image(t *testing.T) {
	r := &Record{
		ID:           7,
		CodeFilename: "qr_7.png",
		Content:      ImageContent{UploadFilename: "7_abcd1234.jpg"},
		ScanCount:    3,
	}

	v := r.View()
	if v.ContentType != ContentImage {
		t.Errorf("ContentType: ожидалось image, получено %s", v.ContentType)
	}
	if v.ImageURL != "/uploads/7_abcd1234.jpg" {
		t.Errorf("ImageURL: получено %q", v.ImageURL)
	}
	if v.CodeURL != "/qrcodes/qr_7.png" {
		t.Errorf("CodeURL: получено %q", v.CodeURL)
	}
	if v.Text != "" {
		t.Errorf("Text должен быть пустым, получено %q", v.Text)
	}
	if v.ScanCount != 3 {
		t.Errorf("ScanCount: ожидалось 3, получено %d", v.ScanCount)
	}
}

// TestView_RecoveredText проверяет, что восстановленный текст помечается в проекции.
func TestView_RecoveredText(t *testing.T) {
	r := &Record{
		ID:           8,
		CodeFilename: "qr_8.png",
		Content:      TextContent{Text: RecoveredTextPlaceholder, Recovered: true},
	}

	v := r.View()
	if !v.Recovered {
		t.Error("восстановленная запись должна быть помечена recovered")
	}
	if v.ImageURL != "" {
		t.Errorf("ImageURL должен быть пустым, получено %q", v.ImageURL)
	}
	if r.UploadFilename() != "" {
		t.Errorf("UploadFilename для текста должен быть пустым")
	}
}

// TestClone проверяет независимость копии.
func TestClone(t *testing.T) {
	r := &Record{ID: 1, CodeFilename: "qr_1.png", Content: TextContent{Text: "a"}}
	c := r.Clone()
	c.ScanCount = 99

	if r.ScanCount != 0 {
		t.Error("Clone должен возвращать независимую копию")
	}
}
