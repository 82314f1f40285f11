package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trigger — правило автоматической активации workflow.
//
// Поддерживаются четыре типа: SCHEDULED (cron), WEBHOOK (входящий HTTP),
// EVENT (внутреннее событие приложения) и MANUAL (запуск через API).
// Статистику выполнения мутирует только подсистема триггеров,
// обновления одного триггера сериализуются.
type Trigger struct {
	// ID — уникальный идентификатор триггера.
	ID uuid.UUID `json:"id"`

	// WorkflowID — workflow, который активирует этот триггер.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// ProjectID — проект, которому принадлежит триггер.
	ProjectID string `json:"project_id,omitempty"`

	// Name — имя триггера, уникальное в рамках проекта.
	Name string `json:"name"`

	// Description — описание назначения триггера.
	Description string `json:"description,omitempty"`

	// Type — тип активации.
	Type TriggerType `json:"type"`

	// Config — конфигурация, зависящая от типа.
	Config TriggerConfig `json:"config"`

	// DefaultInputs — базовые входные параметры для каждого запуска.
	DefaultInputs map[string]any `json:"default_inputs,omitempty"`

	// Enabled — флаг активности. Выключенные триггеры не срабатывают.
	Enabled bool `json:"enabled"`

	// ExecutionCount — сколько раз триггер сработал.
	ExecutionCount int `json:"execution_count"`

	// LastExecutedAt — время последнего срабатывания.
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`

	// LastExecutionStatus — результат последнего срабатывания:
	// "SUCCESS" или "FAILED".
	LastExecutionStatus string `json:"last_execution_status,omitempty"`

	// LastExecutionID — ID последнего созданного execution.
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`

	// CreatedBy — кто создал триггер.
	CreatedBy string `json:"created_by,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordExecution записывает результат срабатывания.
func (t *Trigger) RecordExecution(executionID uuid.UUID, status string) {
	now := time.Now()
	t.ExecutionCount++
	t.LastExecutedAt = &now
	t.LastExecutionStatus = status
	t.LastExecutionID = &executionID
	t.UpdatedAt = now
}

// RecordFailure записывает неудачное срабатывание без execution.
func (t *Trigger) RecordFailure() {
	now := time.Now()
	t.LastExecutionStatus = "FAILED"
	t.UpdatedAt = now
}

// Disable выключает триггер.
func (t *Trigger) Disable() {
	t.Enabled = false
	t.UpdatedAt = time.Now()
}

// TriggerConfig — конфигурация триггера.
// Заполняются только поля, относящиеся к типу триггера.
type TriggerConfig struct {
	// --- SCHEDULED ---

	// CronExpression — стандартное 5-польное cron-выражение.
	CronExpression string `json:"cron_expression,omitempty"`

	// Timezone — часовой пояс для вычисления расписания.
	// По умолчанию UTC.
	Timezone string `json:"timezone,omitempty"`

	// StartDate — не срабатывать раньше этого времени.
	StartDate *time.Time `json:"start_date,omitempty"`

	// EndDate — после этого времени триггер автоматически выключается.
	EndDate *time.Time `json:"end_date,omitempty"`

	// MaxExecutions — лимит срабатываний; по достижении триггер
	// автоматически выключается. 0 — без лимита.
	MaxExecutions int `json:"max_executions,omitempty"`

	// --- WEBHOOK ---

	// WebhookSecret — общий секрет для аутентификации запросов.
	WebhookSecret string `json:"webhook_secret,omitempty"`

	// AllowedMethods — допустимые HTTP методы. Пусто — разрешён только POST.
	AllowedMethods []string `json:"allowed_methods,omitempty"`

	// IPAllowlist — допустимые IP клиента. Пусто — без ограничения.
	IPAllowlist []string `json:"ip_allowlist,omitempty"`

	// RequiredHeaders — заголовки, которые обязаны присутствовать
	// с точным значением.
	RequiredHeaders map[string]string `json:"required_headers,omitempty"`

	// QueryParamMapping — query-параметр → имя входного параметра.
	QueryParamMapping map[string]string `json:"query_param_mapping,omitempty"`

	// PathParamMapping — path-параметр → имя входного параметра.
	// Сегменты URL после ID триггера доступны под позиционными
	// ключами "param1", "param2", ...
	PathParamMapping map[string]string `json:"path_param_mapping,omitempty"`

	// BodyMapping — поле тела → имя входного параметра.
	// Пусто — всё тело целиком становится входными параметрами.
	BodyMapping map[string]string `json:"body_mapping,omitempty"`

	// Async — запускать workflow асинхронно, не дожидаясь завершения.
	Async bool `json:"async,omitempty"`

	// --- EVENT ---

	// EventType — тип события, на которое реагирует триггер. Обязателен.
	EventType string `json:"event_type,omitempty"`

	// EventSource — источник события. Пусто — любой источник.
	EventSource string `json:"event_source,omitempty"`

	// EventFilters — ключ/значение, которые должны совпасть с payload
	// события. Все фильтры должны выполниться.
	EventFilters map[string]any `json:"event_filters,omitempty"`

	// EventDataMapping — поле payload → имя входного параметра.
	// Пусто — payload целиком становится входными параметрами.
	EventDataMapping map[string]string `json:"event_data_mapping,omitempty"`
}
