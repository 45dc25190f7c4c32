// Пакет render — генерация PNG-изображений QR-кодов.
// Рендеринг детерминирован: одинаковый payload и параметры дают одинаковые байты.
package render

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer — генератор изображения QR-кода для строки.
type Renderer interface {
	Render(payload string) ([]byte, error)
}

// QRRenderer — генератор PNG на основе skip2/go-qrcode.
type QRRenderer struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewQRRenderer создаёт генератор с размером стороны size пикселей
// и уровнем коррекции ошибок level (low, medium, high, highest).
func NewQRRenderer(size int, level string) (*QRRenderer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("размер QR-кода должен быть положительным: %d", size)
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return &QRRenderer{size: size, level: lvl}, nil
}

// Render кодирует payload в PNG.
func (r *QRRenderer) Render(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("пустой payload QR-кода")
	}
	png, err := qrcode.Encode(payload, r.level, r.size)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации QR-кода: %w", err)
	}
	return png, nil
}

// ParseLevel преобразует название уровня коррекции ошибок.
func ParseLevel(level string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(level) {
	case "low":
		return qrcode.Low, nil
	case "medium", "":
		return qrcode.Medium, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	default:
		return 0, fmt.Errorf("неизвестный уровень коррекции QR-кода: %q", level)
	}
}
