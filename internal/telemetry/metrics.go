package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики Prometheus, общие для всех компонентов.
var (
	// ExecutionsTotal — количество завершённых executions по статусам.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbita_executions_total",
		Help: "Total workflow executions by terminal status",
	}, []string{"status"})

	// NodeDuration — длительность выполнения узлов по типам.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbita_node_duration_seconds",
		Help:    "Node execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"node_type"})

	// TriggerFires — количество срабатываний триггеров по типам.
	TriggerFires = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbita_trigger_fires_total",
		Help: "Total trigger activations by trigger type",
	}, []string{"type"})

	// WebhookRejections — количество отклонённых webhook запросов
	// по причинам (method, ip, headers, auth).
	WebhookRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbita_webhook_rejections_total",
		Help: "Total rejected webhook requests by reason",
	}, []string{"reason"})

	// EventsProcessed — количество обработанных событий по исходам.
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbita_events_processed_total",
		Help: "Total workflow events processed by outcome",
	}, []string{"status"})

	// QueueMessages — сообщения очередей по исходам обработки
	// (ok, malformed, requeued, dropped).
	QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbita_queue_messages_total",
		Help: "Total queue messages by processing outcome",
	}, []string{"queue", "outcome"})

	// MQReconnects — количество переподключений к брокеру сообщений.
	MQReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orbita_mq_reconnects_total",
		Help: "Total message broker reconnects",
	})
)
