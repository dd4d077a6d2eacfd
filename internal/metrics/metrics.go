// Package metrics содержит метрики Prometheus сервера.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration - длительность HTTP-запросов в секундах.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flowkeeper",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
		},
		[]string{"method", "route", "status"},
	)

	// FocusSessionsCompleted - завершенные сессии таймера по типу.
	FocusSessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowkeeper",
			Name:      "focus_sessions_completed_total",
			Help:      "Total number of completed timer sessions",
		},
		[]string{"type"},
	)

	// HabitEntriesCreated - новые отметки привычек.
	HabitEntriesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flowkeeper",
		Name:      "habit_entries_created_total",
		Help:      "Total number of habit entries created",
	})

	// InsightsGenerated - вызовы анализа текста по источнику и результату.
	InsightsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowkeeper",
			Name:      "insights_generated_total",
			Help:      "Total number of AI insight requests",
		},
		[]string{"source", "status"}, // source: journal, voice_note; status: success, failed
	)

	// WebhookEvents - входящие события Stripe по типу.
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowkeeper",
			Name:      "stripe_webhook_events_total",
			Help:      "Total number of Stripe webhook events received",
		},
		[]string{"type"},
	)

	// EventPublishFailures - неудачные публикации доменных событий.
	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowkeeper",
			Name:      "event_publish_failures_total",
			Help:      "Total number of domain events that failed to publish",
		},
		[]string{"type"},
	)
)

// RecordHTTPRequestDuration записывает длительность HTTP-запроса.
func RecordHTTPRequestDuration(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// IncrementInsights учитывает вызов анализа текста.
func IncrementInsights(source string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	InsightsGenerated.WithLabelValues(source, status).Inc()
}
