package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

// UpdateWorkflowRequest — запрос на обновление workflow.
type UpdateWorkflowRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ProjectID      string    `json:"project_id,omitempty"`
	Status         string    `json:"status"`
	CurrentVersion string    `json:"current_version,omitempty"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(w domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:             w.ID,
		Name:           w.Name,
		Description:    w.Description,
		ProjectID:      w.ProjectID,
		Status:         string(w.Status),
		CurrentVersion: w.CurrentVersion,
		CreatedBy:      w.CreatedBy,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

// WorkflowVersion DTOs

// CreateVersionRequest — запрос на создание версии workflow.
type CreateVersionRequest struct {
	Nodes     []domain.Node `json:"nodes"`
	Edges     []domain.Edge `json:"edges"`
	Changelog string        `json:"changelog,omitempty"`
	CreatedBy string        `json:"created_by,omitempty"`
}

// VersionResponse — ответ с версией workflow.
type VersionResponse struct {
	WorkflowID uuid.UUID     `json:"workflow_id"`
	Version    string        `json:"version"`
	Nodes      []domain.Node `json:"nodes"`
	Edges      []domain.Edge `json:"edges"`
	Changelog  string        `json:"changelog,omitempty"`
	CreatedBy  string        `json:"created_by,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// VersionFromDomain конвертирует domain.WorkflowVersion в VersionResponse.
func VersionFromDomain(v domain.WorkflowVersion) VersionResponse {
	return VersionResponse{
		WorkflowID: v.WorkflowID,
		Version:    v.Version,
		Nodes:      v.Nodes,
		Edges:      v.Edges,
		Changelog:  v.Changelog,
		CreatedBy:  v.CreatedBy,
		CreatedAt:  v.CreatedAt,
	}
}

// Execution DTOs

// StartExecutionRequest — запрос на запуск workflow.
type StartExecutionRequest struct {
	// Version — метка версии. Пусто — текущая версия workflow.
	Version string `json:"version,omitempty"`

	// Inputs — входные параметры запуска.
	Inputs map[string]any `json:"inputs,omitempty"`

	// Async — не дожидаться завершения выполнения.
	Async bool `json:"async,omitempty"`

	// User — кто запускает (попадает в triggered_by).
	User string `json:"user,omitempty"`
}

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID          uuid.UUID                 `json:"id"`
	WorkflowID  uuid.UUID                 `json:"workflow_id"`
	Version     string                    `json:"version"`
	Status      string                    `json:"status"`
	Inputs      map[string]any            `json:"inputs,omitempty"`
	TriggeredBy string                    `json:"triggered_by,omitempty"`
	Logs        []domain.ExecutionLog     `json:"logs,omitempty"`
	Results     map[string]map[string]any `json:"results,omitempty"`
	Error       string                    `json:"error,omitempty"`
	StartedAt   *time.Time                `json:"started_at,omitempty"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:          e.ID,
		WorkflowID:  e.WorkflowID,
		Version:     e.Version,
		Status:      string(e.Status),
		Inputs:      e.Inputs,
		TriggeredBy: e.TriggeredBy,
		Logs:        e.Logs,
		Results:     e.Results,
		Error:       e.Error,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		CreatedAt:   e.CreatedAt,
	}
}

// Trigger DTOs

// CreateTriggerRequest — запрос на создание триггера.
type CreateTriggerRequest struct {
	Name          string               `json:"name"`
	Description   string               `json:"description,omitempty"`
	ProjectID     string               `json:"project_id,omitempty"`
	Type          string               `json:"type"`
	Config        domain.TriggerConfig `json:"config"`
	DefaultInputs map[string]any       `json:"default_inputs,omitempty"`
	Enabled       bool                 `json:"enabled"`
	CreatedBy     string               `json:"created_by,omitempty"`
}

// UpdateTriggerRequest — запрос на обновление триггера.
type UpdateTriggerRequest struct {
	Name          *string               `json:"name,omitempty"`
	Description   *string               `json:"description,omitempty"`
	Config        *domain.TriggerConfig `json:"config,omitempty"`
	DefaultInputs *map[string]any       `json:"default_inputs,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение триггера.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// FireTriggerRequest — запрос на ручное срабатывание триггера.
type FireTriggerRequest struct {
	Inputs map[string]any `json:"inputs,omitempty"`
	Async  bool           `json:"async,omitempty"`
}

// SecretResponse — ответ с новым webhook секретом.
// Секрет возвращается только в момент генерации.
type SecretResponse struct {
	TriggerID uuid.UUID `json:"trigger_id"`
	Secret    string    `json:"secret"`
}

// TriggerStatsResponse — статистика срабатываний триггера.
type TriggerStatsResponse struct {
	TriggerID           uuid.UUID  `json:"trigger_id"`
	Enabled             bool       `json:"enabled"`
	ExecutionCount      int        `json:"execution_count"`
	LastExecutedAt      *time.Time `json:"last_executed_at,omitempty"`
	LastExecutionStatus string     `json:"last_execution_status,omitempty"`
	LastExecutionID     *uuid.UUID `json:"last_execution_id,omitempty"`
	NextExecutionAt     *time.Time `json:"next_execution_at,omitempty"`
}

// TriggerResponse — ответ с триггером.
type TriggerResponse struct {
	ID                  uuid.UUID            `json:"id"`
	WorkflowID          uuid.UUID            `json:"workflow_id"`
	ProjectID           string               `json:"project_id,omitempty"`
	Name                string               `json:"name"`
	Description         string               `json:"description,omitempty"`
	Type                string               `json:"type"`
	Config              domain.TriggerConfig `json:"config"`
	DefaultInputs       map[string]any       `json:"default_inputs,omitempty"`
	Enabled             bool                 `json:"enabled"`
	ExecutionCount      int                  `json:"execution_count"`
	LastExecutedAt      *time.Time           `json:"last_executed_at,omitempty"`
	LastExecutionStatus string               `json:"last_execution_status,omitempty"`
	LastExecutionID     *uuid.UUID           `json:"last_execution_id,omitempty"`
	CreatedBy           string               `json:"created_by,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// TriggerFromDomain конвертирует domain.Trigger в TriggerResponse.
// Webhook секрет в ответах не раскрывается.
func TriggerFromDomain(t domain.Trigger) TriggerResponse {
	cfg := t.Config
	cfg.WebhookSecret = ""

	return TriggerResponse{
		ID:                  t.ID,
		WorkflowID:          t.WorkflowID,
		ProjectID:           t.ProjectID,
		Name:                t.Name,
		Description:         t.Description,
		Type:                string(t.Type),
		Config:              cfg,
		DefaultInputs:       t.DefaultInputs,
		Enabled:             t.Enabled,
		ExecutionCount:      t.ExecutionCount,
		LastExecutedAt:      t.LastExecutedAt,
		LastExecutionStatus: t.LastExecutionStatus,
		LastExecutionID:     t.LastExecutionID,
		CreatedBy:           t.CreatedBy,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// Event DTOs

// IngestEventRequest — запрос на публикацию события приложения.
type IngestEventRequest struct {
	EventType   string         `json:"event_type"`
	EventSource string         `json:"event_source,omitempty"`
	ProjectID   string         `json:"project_id,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// EventResponse — ответ с событием.
type EventResponse struct {
	ID                  uuid.UUID         `json:"id"`
	EventType           string            `json:"event_type"`
	EventSource         string            `json:"event_source,omitempty"`
	ProjectID           string            `json:"project_id,omitempty"`
	UserID              string            `json:"user_id,omitempty"`
	Payload             map[string]any    `json:"payload,omitempty"`
	Processed           bool              `json:"processed"`
	ProcessedAt         *time.Time        `json:"processed_at,omitempty"`
	Status              string            `json:"status"`
	TriggeredExecutions map[string]string `json:"triggered_executions,omitempty"`
	Error               string            `json:"error,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// EventFromDomain конвертирует domain.WorkflowEvent в EventResponse.
func EventFromDomain(e domain.WorkflowEvent) EventResponse {
	return EventResponse{
		ID:                  e.ID,
		EventType:           e.EventType,
		EventSource:         e.EventSource,
		ProjectID:           e.ProjectID,
		UserID:              e.UserID,
		Payload:             e.Payload,
		Processed:           e.Processed,
		ProcessedAt:         e.ProcessedAt,
		Status:              e.Status,
		TriggeredExecutions: e.TriggeredExecutions,
		Error:               e.Error,
		CreatedAt:           e.CreatedAt,
	}
}
