// metrics.go — Prometheus HTTP метрики qrtrack.
// Регистрирует метрики: qt_http_requests_total, qt_http_request_duration_seconds.
// Бизнес-метрики (qt_records_total, qt_scans_total, qt_operations_total)
// экспортируются отсюда и обновляются из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qt_http_requests_total",
			Help: "Общее количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qt_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// RecordsTotal — текущее количество записей по типу содержимого (gauge).
	RecordsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qt_records_total",
			Help: "Текущее количество записей QR-кодов",
		},
		[]string{"content_type"},
	)

	// ScansTotal — количество сканирований по типу содержимого.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qt_scans_total",
			Help: "Общее количество сканирований QR-кодов",
		},
		[]string{"content_type"},
	)

	// OperationsTotal — количество операций жизненного цикла.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qt_operations_total",
			Help: "Общее количество операций с записями",
		},
		[]string{"operation", "result"},
	)
)

// unmatchedRoute — метка пути для запросов без маршрута.
const unmatchedRoute = "unmatched"

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// В качестве метки пути используется шаблон маршрута chi (/scan/{id}),
// что ограничивает кардинальность.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rec.status)
			path := routePattern(r)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// routePattern возвращает шаблон маршрута chi после обработки запроса.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}
