// Пакет pages — HTML-страницы, отдаваемые при сканировании QR-кода.
// Разметка описана в scan.templ, scan_templ.go генерируется командой templ generate.
package pages

// ScanData — данные страницы текстового QR-кода.
type ScanData struct {
	Text      string
	ScanCount int64
	// Recovered — текст восстановлен без оригинала
	Recovered bool
}
