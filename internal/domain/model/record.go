// Пакет model — доменные модели qrtrack.
// Record — единица идентичности: сгенерированный QR-код, ссылающийся
// на загруженное изображение или на сохранённый текст.
package model

import (
	"fmt"
	"io"
	"strconv"
)

// ContentType — тип содержимого, на которое ведёт QR-код.
type ContentType string

const (
	// ContentImage — QR-код перенаправляет на загруженное изображение
	ContentImage ContentType = "image"
	// ContentText — QR-код отображает сохранённый текст
	ContentText ContentType = "text"
)

// IsValid проверяет, что тип содержимого известен.
func (t ContentType) IsValid() bool {
	return t == ContentImage || t == ContentText
}

// Префиксы URL, под которыми HTTP-слой раздаёт файлы.
const (
	CodesURLPrefix   = "/qrcodes/"
	UploadsURLPrefix = "/uploads/"
	ScanURLPrefix    = "/scan/"
)

// RecoveredTextPlaceholder — текст, подставляемый для текстовых записей,
// восстановленных сканированием директорий (исходный текст не хранится в файлах).
const RecoveredTextPlaceholder = "Original text content (reload lost text content)"

// Content — вариант содержимого записи. Реализуется только
// ImageContent и TextContent, потребители обязаны обработать оба случая.
type Content interface {
	ContentType() ContentType
	sealed()
}

// ImageContent — содержимое-изображение.
type ImageContent struct {
	// UploadFilename — имя файла в директории загрузок
	UploadFilename string
}

// ContentType реализует Content.
func (ImageContent) ContentType() ContentType { return ContentImage }

func (ImageContent) sealed() {}

// URL возвращает адрес, по которому раздаётся загруженный файл.
func (c ImageContent) URL() string {
	return UploadsURLPrefix + c.UploadFilename
}

// TextContent — текстовое содержимое.
type TextContent struct {
	Text string
	// Recovered — текст является заглушкой после восстановления
	// по директориям, оригинал утерян
	Recovered bool
}

// ContentType реализует Content.
func (TextContent) ContentType() ContentType { return ContentText }

func (TextContent) sealed() {}

// Record — запись о QR-коде.
type Record struct {
	// ID — уникальный идентификатор (миллисекунды времени создания)
	ID int64
	// CodeFilename — имя PNG-файла QR-кода в директории кодов
	CodeFilename string
	// Content — изображение или текст
	Content Content
	// ScanCount — количество сканирований, изменяется только операцией scan
	ScanCount int64
}

// ContentType возвращает тип содержимого записи.
func (r *Record) ContentType() ContentType {
	if r.Content == nil {
		return ""
	}
	return r.Content.ContentType()
}

// CodeURL возвращает адрес PNG-файла QR-кода.
func (r *Record) CodeURL() string {
	return CodesURLPrefix + r.CodeFilename
}

// UploadFilename возвращает имя загруженного файла или "" для текстовых записей.
func (r *Record) UploadFilename() string {
	if img, ok := r.Content.(ImageContent); ok {
		return img.UploadFilename
	}
	return ""
}

// Clone возвращает копию записи. Варианты Content — значения,
// поэтому поверхностной копии достаточно.
func (r *Record) Clone() *Record {
	copied := *r
	return &copied
}

// CodeFilenameFor возвращает имя файла QR-кода для идентификатора.
// Формат: qr_{id}.png
func CodeFilenameFor(id int64) string {
	return fmt.Sprintf("qr_%d.png", id)
}

// ParseCodeFilename извлекает идентификатор из имени файла QR-кода.
// Возвращает false, если имя не соответствует формату qr_{id}.png.
func ParseCodeFilename(name string) (int64, bool) {
	const prefix, suffix = "qr_", ".png"
	if len(name) <= len(prefix)+len(suffix) {
		return 0, false
	}
	if name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
		return 0, false
	}
	digits := name[len(prefix) : len(name)-len(suffix)]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// RecordView — публичная проекция записи для API.
// Не содержит внутренних путей, только URL раздачи.
type RecordView struct {
	ID          int64       `json:"id"`
	ContentType ContentType `json:"content_type"`
	CodeURL     string      `json:"code_url"`
	ImageURL    string      `json:"image_url,omitempty"`
	Text        string      `json:"text,omitempty"`
	Recovered   bool        `json:"recovered,omitempty"`
	ScanCount   int64       `json:"scan_count"`
}

// View строит публичную проекцию записи.
func (r *Record) View() RecordView {
	v := RecordView{
		ID:          r.ID,
		ContentType: r.ContentType(),
		CodeURL:     r.CodeURL(),
		ScanCount:   r.ScanCount,
	}
	switch c := r.Content.(type) {
	case ImageContent:
		v.ImageURL = c.URL()
	case TextContent:
		v.Text = c.Text
		v.Recovered = c.Recovered
	}
	return v
}

// DispatchKind — способ обработки сканирования.
type DispatchKind string

const (
	// DispatchRedirect — перенаправить клиента на загруженное изображение
	DispatchRedirect DispatchKind = "redirect"
	// DispatchRender — отрисовать страницу с текстом и счётчиком
	DispatchRender DispatchKind = "render"
)

// Dispatch — инструкция HTTP-слою после успешного сканирования.
type Dispatch struct {
	Kind DispatchKind
	// Location — адрес перенаправления (только redirect)
	Location string
	// Text — текст для отображения (только render)
	Text string
	// Recovered — текст является заглушкой восстановления (только render)
	Recovered bool
	// ScanCount — значение счётчика после этого сканирования
	ScanCount int64
}

// ExportEntry — один файл для архива выгрузки.
// Вызывающий код обязан закрыть Body.
type ExportEntry struct {
	Filename string
	Body     io.ReadCloser
}
