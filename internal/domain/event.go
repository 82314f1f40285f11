package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowEvent — событие приложения, способное активировать EVENT триггеры.
//
// События публикуются внутренними сервисами (или приходят из RabbitMQ)
// и обрабатываются ровно один раз: после обработки выставляется Processed.
type WorkflowEvent struct {
	// ID — уникальный идентификатор события.
	ID uuid.UUID `json:"id"`

	// EventType — тип события (например, "scene.ingested").
	EventType string `json:"event_type"`

	// EventSource — сервис-источник события.
	EventSource string `json:"event_source,omitempty"`

	// ProjectID — проект, к которому относится событие.
	ProjectID string `json:"project_id,omitempty"`

	// UserID — пользователь, инициировавший событие.
	UserID string `json:"user_id,omitempty"`

	// Payload — данные события.
	Payload map[string]any `json:"payload,omitempty"`

	// Processed — событие уже сопоставлено с триггерами.
	Processed bool `json:"processed"`

	// ProcessedAt — время обработки.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Status — итог обработки: "PENDING", "PROCESSED", "FAILED".
	Status string `json:"status"`

	// TriggeredExecutions — triggerID → executionID для всех
	// запусков, порождённых этим событием.
	TriggeredExecutions map[string]string `json:"triggered_executions,omitempty"`

	// Error — текст ошибки обработки.
	Error string `json:"error,omitempty"`

	// CreatedAt — время публикации события.
	CreatedAt time.Time `json:"created_at"`
}

// Статусы обработки события.
const (
	EventStatusPending   = "PENDING"
	EventStatusProcessed = "PROCESSED"
	EventStatusFailed    = "FAILED"
)

// MarkProcessed помечает событие обработанным.
func (e *WorkflowEvent) MarkProcessed() {
	now := time.Now()
	e.Processed = true
	e.ProcessedAt = &now
	e.Status = EventStatusProcessed
}

// MarkFailed помечает событие необработанным из-за ошибки.
func (e *WorkflowEvent) MarkFailed(err string) {
	now := time.Now()
	e.Processed = true
	e.ProcessedAt = &now
	e.Status = EventStatusFailed
	e.Error = err
}

// AddTriggeredExecution записывает порождённый запуск.
func (e *WorkflowEvent) AddTriggeredExecution(triggerID, executionID uuid.UUID) {
	if e.TriggeredExecutions == nil {
		e.TriggeredExecutions = make(map[string]string)
	}
	e.TriggeredExecutions[triggerID.String()] = executionID.String()
}
