package domain

// WorkflowStatus — статус жизненного цикла workflow.
//
// Жизненный цикл:
//
//	DRAFT → PUBLISHED → ARCHIVED
type WorkflowStatus string

const (
	// WorkflowStatusDraft — черновик, можно редактировать.
	WorkflowStatusDraft WorkflowStatus = "DRAFT"

	// WorkflowStatusPublished — опубликован, доступен для запуска триггерами.
	WorkflowStatusPublished WorkflowStatus = "PUBLISHED"

	// WorkflowStatusArchived — архивный, не запускается.
	WorkflowStatusArchived WorkflowStatus = "ARCHIVED"
)

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
//	          (или) → CANCELLED (из PENDING или RUNNING)
type ExecutionStatus string

const (
	// ExecutionStatusPending — execution создан, но ещё не начал выполняться.
	ExecutionStatusPending ExecutionStatus = "PENDING"

	// ExecutionStatusRunning — execution в процессе выполнения.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusCompleted — execution успешно завершён.
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"

	// ExecutionStatusFailed — execution завершился с ошибкой.
	ExecutionStatusFailed ExecutionStatus = "FAILED"

	// ExecutionStatusCancelled — execution отменён пользователем.
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (execution завершён).
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// TriggerType — способ активации workflow.
type TriggerType string

const (
	// TriggerTypeScheduled — запуск по cron-расписанию.
	TriggerTypeScheduled TriggerType = "SCHEDULED"

	// TriggerTypeWebhook — запуск по входящему HTTP-запросу.
	TriggerTypeWebhook TriggerType = "WEBHOOK"

	// TriggerTypeEvent — запуск по внутреннему событию приложения.
	TriggerTypeEvent TriggerType = "EVENT"

	// TriggerTypeManual — запуск вручную через API/CLI.
	TriggerTypeManual TriggerType = "MANUAL"
)

// IsValid проверяет, что тип триггера известен.
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerTypeScheduled, TriggerTypeWebhook, TriggerTypeEvent, TriggerTypeManual:
		return true
	default:
		return false
	}
}

// LogLevel — уровень записи в журнале execution.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)
