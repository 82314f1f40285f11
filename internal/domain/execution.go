package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — экземпляр выполнения workflow.
//
// Execution создаётся когда:
// - Пользователь запускает workflow вручную (через API/CLI)
// - Сработал SCHEDULED триггер
// - Принят и аутентифицирован webhook
// - Событие приложения совпало с EVENT триггером
//
// Мутирует только движок выполнения; после перехода в терминальный
// статус запись неизменяема.
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на workflow, который выполняется.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Version — метка версии workflow, которая выполняется.
	Version string `json:"version"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// Inputs — входные параметры, переданные при запуске.
	Inputs map[string]any `json:"inputs,omitempty"`

	// TriggeredBy — источник запуска: "manual:<user>", "trigger:<id>",
	// "event:<id>".
	TriggeredBy string `json:"triggered_by,omitempty"`

	// Logs — журнал выполнения, только добавление.
	Logs []ExecutionLog `json:"logs,omitempty"`

	// Results — выходы узлов: nodeID → output map.
	Results map[string]map[string]any `json:"results,omitempty"`

	// Error — текст ошибки, если execution завершился с FAILED.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt — время завершения (в любом терминальном статусе).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// CreatedAt — время создания execution.
	CreatedAt time.Time `json:"created_at"`
}

// ExecutionLog — одна запись журнала выполнения.
type ExecutionLog struct {
	// Timestamp — время записи.
	Timestamp time.Time `json:"timestamp"`

	// NodeID — узел, к которому относится запись (пусто для записей
	// уровня execution).
	NodeID string `json:"node_id,omitempty"`

	// Level — уровень: INFO, WARN, ERROR.
	Level LogLevel `json:"level"`

	// Message — текст записи.
	Message string `json:"message"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если execution завершён (в любом статусе).
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// AppendLog добавляет запись в журнал.
func (e *Execution) AppendLog(nodeID string, level LogLevel, message string) {
	e.Logs = append(e.Logs, ExecutionLog{
		Timestamp: time.Now(),
		NodeID:    nodeID,
		Level:     level,
		Message:   message,
	})
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// MarkCompleted переводит execution в статус COMPLETED.
func (e *Execution) MarkCompleted() {
	now := time.Now()
	e.Status = ExecutionStatusCompleted
	e.CompletedAt = &now
}

// MarkFailed переводит execution в статус FAILED с ошибкой.
func (e *Execution) MarkFailed(err string) {
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.CompletedAt = &now
	e.Error = err
}

// MarkCancelled переводит execution в статус CANCELLED.
func (e *Execution) MarkCancelled() {
	now := time.Now()
	e.Status = ExecutionStatusCancelled
	e.CompletedAt = &now
}
