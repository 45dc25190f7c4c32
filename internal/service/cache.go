// cache.go — LRU-кэш PNG-файлов QR-кодов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qt_code_cache_hits_total",
		Help: "Общее количество попаданий в кэш QR-кодов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qt_code_cache_misses_total",
		Help: "Общее количество промахов кэша QR-кодов.",
	})
)

// CodeCache — кэш байтов PNG по имени файла QR-кода.
// PNG неизменяемы после создания, инвалидация нужна только при удалении.
type CodeCache struct {
	cache *expirable.LRU[string, []byte]
}

// NewCodeCache создаёт кэш на maxSize файлов с временем жизни ttl.
func NewCodeCache(maxSize int, ttl time.Duration) *CodeCache {
	return &CodeCache{cache: expirable.NewLRU[string, []byte](maxSize, nil, ttl)}
}

// Get возвращает байты файла при hit.
func (c *CodeCache) Get(filename string) ([]byte, bool) {
	data, ok := c.cache.Get(filename)
	if ok {
		cacheHitsTotal.Inc()
		return data, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет файл в кэш.
func (c *CodeCache) Set(filename string, data []byte) {
	c.cache.Add(filename, data)
}

// Delete удаляет файл из кэша.
func (c *CodeCache) Delete(filename string) {
	c.cache.Remove(filename)
}

// Len возвращает количество файлов в кэше.
func (c *CodeCache) Len() int {
	return c.cache.Len()
}
