package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	Status         string `json:"status"`
	CurrentVersion string `json:"current_version,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// VersionResponse — версия workflow из API.
type VersionResponse struct {
	WorkflowID string           `json:"workflow_id"`
	Version    string           `json:"version"`
	Nodes      []map[string]any `json:"nodes"`
	Edges      []map[string]any `json:"edges"`
	Changelog  string           `json:"changelog,omitempty"`
	CreatedAt  string           `json:"created_at"`
}

// ExecutionResponse — execution из API.
type ExecutionResponse struct {
	ID          string                    `json:"id"`
	WorkflowID  string                    `json:"workflow_id"`
	Version     string                    `json:"version"`
	Status      string                    `json:"status"`
	Inputs      map[string]any            `json:"inputs,omitempty"`
	TriggeredBy string                    `json:"triggered_by,omitempty"`
	Logs        []map[string]any          `json:"logs,omitempty"`
	Results     map[string]map[string]any `json:"results,omitempty"`
	Error       string                    `json:"error,omitempty"`
	StartedAt   string                    `json:"started_at,omitempty"`
	CompletedAt string                    `json:"completed_at,omitempty"`
	CreatedAt   string                    `json:"created_at"`
}

// TriggerResponse — триггер из API.
type TriggerResponse struct {
	ID                  string         `json:"id"`
	WorkflowID          string         `json:"workflow_id"`
	Name                string         `json:"name"`
	Type                string         `json:"type"`
	Config              map[string]any `json:"config"`
	DefaultInputs       map[string]any `json:"default_inputs,omitempty"`
	Enabled             bool           `json:"enabled"`
	ExecutionCount      int            `json:"execution_count"`
	LastExecutedAt      string         `json:"last_executed_at,omitempty"`
	LastExecutionStatus string         `json:"last_execution_status,omitempty"`
	CreatedAt           string         `json:"created_at"`
}

// SecretResponse — новый webhook секрет из API.
type SecretResponse struct {
	TriggerID string `json:"trigger_id"`
	Secret    string `json:"secret"`
}

// TriggerStatsResponse — статистика срабатываний триггера из API.
type TriggerStatsResponse struct {
	TriggerID           string `json:"trigger_id"`
	Enabled             bool   `json:"enabled"`
	ExecutionCount      int    `json:"execution_count"`
	LastExecutedAt      string `json:"last_executed_at,omitempty"`
	LastExecutionStatus string `json:"last_execution_status,omitempty"`
	LastExecutionID     string `json:"last_execution_id,omitempty"`
	NextExecutionAt     string `json:"next_execution_at,omitempty"`
}

// EventResponse — событие из API.
type EventResponse struct {
	ID                  string            `json:"id"`
	EventType           string            `json:"event_type"`
	EventSource         string            `json:"event_source,omitempty"`
	Payload             map[string]any    `json:"payload,omitempty"`
	Processed           bool              `json:"processed"`
	Status              string            `json:"status"`
	TriggeredExecutions map[string]string `json:"triggered_executions,omitempty"`
	CreatedAt           string            `json:"created_at"`
}

// --- Request types ---

// CreateWorkflowRequest — создание workflow.
type CreateWorkflowRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
}

// UpdateWorkflowRequest — обновление workflow.
type UpdateWorkflowRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateVersionRequest — создание версии workflow.
type CreateVersionRequest struct {
	Nodes     json.RawMessage `json:"nodes"`
	Edges     json.RawMessage `json:"edges"`
	Changelog string          `json:"changelog,omitempty"`
}

// StartExecutionRequest — запуск workflow.
type StartExecutionRequest struct {
	Version string         `json:"version,omitempty"`
	Inputs  map[string]any `json:"inputs,omitempty"`
	Async   bool           `json:"async,omitempty"`
	User    string         `json:"user,omitempty"`
}

// CreateTriggerRequest — создание триггера.
type CreateTriggerRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Type          string         `json:"type"`
	Config        map[string]any `json:"config"`
	DefaultInputs map[string]any `json:"default_inputs,omitempty"`
	Enabled       bool           `json:"enabled"`
}

// FireTriggerRequest — ручное срабатывание триггера.
type FireTriggerRequest struct {
	Inputs map[string]any `json:"inputs,omitempty"`
	Async  bool           `json:"async,omitempty"`
}

// IngestEventRequest — публикация события.
type IngestEventRequest struct {
	EventType   string         `json:"event_type"`
	EventSource string         `json:"event_source,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// ListExecutionsOpts — параметры фильтрации executions.
type ListExecutionsOpts struct {
	WorkflowID string
	Status     string
	Limit      int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Orbita API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Workflows ---

// ListWorkflows возвращает workflows.
func (c *Client) ListWorkflows(projectID, status string) ([]WorkflowResponse, error) {
	params := url.Values{}
	if projectID != "" {
		params.Set("project_id", projectID)
	}
	if status != "" {
		params.Set("status", status)
	}

	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", params, &workflows)
	return workflows, err
}

// CreateWorkflow создаёт новый workflow.
func (c *Client) CreateWorkflow(req CreateWorkflowRequest) (*WorkflowResponse, error) {
	var workflow WorkflowResponse
	err := c.post("/api/v1/workflows", req, &workflow)
	return &workflow, err
}

// GetWorkflow возвращает workflow по ID.
func (c *Client) GetWorkflow(id string) (*WorkflowResponse, error) {
	var workflow WorkflowResponse
	err := c.get("/api/v1/workflows/"+id, &workflow)
	return &workflow, err
}

// UpdateWorkflow обновляет workflow.
func (c *Client) UpdateWorkflow(id string, req UpdateWorkflowRequest) (*WorkflowResponse, error) {
	var workflow WorkflowResponse
	err := c.put("/api/v1/workflows/"+id, req, &workflow)
	return &workflow, err
}

// DeleteWorkflow удаляет workflow.
func (c *Client) DeleteWorkflow(id string) error {
	return c.delete("/api/v1/workflows/" + id)
}

// PublishWorkflow публикует workflow.
func (c *Client) PublishWorkflow(id string) (*WorkflowResponse, error) {
	var workflow WorkflowResponse
	err := c.post("/api/v1/workflows/"+id+"/publish", nil, &workflow)
	return &workflow, err
}

// ArchiveWorkflow архивирует workflow.
func (c *Client) ArchiveWorkflow(id string) (*WorkflowResponse, error) {
	var workflow WorkflowResponse
	err := c.post("/api/v1/workflows/"+id+"/archive", nil, &workflow)
	return &workflow, err
}

// ListVersions возвращает версии workflow.
func (c *Client) ListVersions(workflowID string) ([]VersionResponse, error) {
	var versions []VersionResponse
	err := c.list("/api/v1/workflows/"+workflowID+"/versions", nil, &versions)
	return versions, err
}

// CreateVersion создаёт новую версию workflow.
func (c *Client) CreateVersion(workflowID string, req CreateVersionRequest) (*VersionResponse, error) {
	var version VersionResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/versions", req, &version)
	return &version, err
}

// GetVersion возвращает версию workflow.
func (c *Client) GetVersion(workflowID, version string) (*VersionResponse, error) {
	var v VersionResponse
	err := c.get("/api/v1/workflows/"+workflowID+"/versions/"+version, &v)
	return &v, err
}

// --- Executions ---

// ListExecutions возвращает список executions с фильтрацией.
func (c *Client) ListExecutions(opts ListExecutionsOpts) ([]ExecutionResponse, error) {
	params := url.Values{}
	if opts.WorkflowID != "" {
		params.Set("workflow_id", opts.WorkflowID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var executions []ExecutionResponse
	err := c.list("/api/v1/executions", params, &executions)
	return executions, err
}

// StartExecution запускает workflow.
func (c *Client) StartExecution(workflowID string, req StartExecutionRequest) (*ExecutionResponse, error) {
	var execution ExecutionResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/executions", req, &execution)
	return &execution, err
}

// GetExecution возвращает execution по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var execution ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &execution)
	return &execution, err
}

// CancelExecution отменяет execution.
func (c *Client) CancelExecution(id string) error {
	return c.post("/api/v1/executions/"+id+"/cancel", nil, nil)
}

// --- Triggers ---

// ListTriggers возвращает triggers. Фильтры опциональны.
func (c *Client) ListTriggers(workflowID, triggerType string) ([]TriggerResponse, error) {
	params := url.Values{}
	if workflowID != "" {
		params.Set("workflow_id", workflowID)
	}
	if triggerType != "" {
		params.Set("type", triggerType)
	}

	var triggers []TriggerResponse
	err := c.list("/api/v1/triggers", params, &triggers)
	return triggers, err
}

// CreateTrigger создаёт триггер для workflow.
func (c *Client) CreateTrigger(workflowID string, req CreateTriggerRequest) (*TriggerResponse, error) {
	var trig TriggerResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/triggers", req, &trig)
	return &trig, err
}

// GetTrigger возвращает триггер по ID.
func (c *Client) GetTrigger(id string) (*TriggerResponse, error) {
	var trig TriggerResponse
	err := c.get("/api/v1/triggers/"+id, &trig)
	return &trig, err
}

// DeleteTrigger удаляет триггер.
func (c *Client) DeleteTrigger(id string) error {
	return c.delete("/api/v1/triggers/" + id)
}

// EnableTrigger включает триггер.
func (c *Client) EnableTrigger(id string) (*TriggerResponse, error) {
	return c.setTriggerEnabled(id, true)
}

// DisableTrigger выключает триггер.
func (c *Client) DisableTrigger(id string) (*TriggerResponse, error) {
	return c.setTriggerEnabled(id, false)
}

func (c *Client) setTriggerEnabled(id string, enabled bool) (*TriggerResponse, error) {
	var trig TriggerResponse
	body := map[string]bool{"enabled": enabled}
	err := c.put("/api/v1/triggers/"+id+"/enabled", body, &trig)
	return &trig, err
}

// FireTrigger вручную активирует триггер.
func (c *Client) FireTrigger(id string, req FireTriggerRequest) (*ExecutionResponse, error) {
	var execution ExecutionResponse
	err := c.post("/api/v1/triggers/"+id+"/fire", req, &execution)
	return &execution, err
}

// RotateTriggerSecret генерирует новый webhook секрет.
func (c *Client) RotateTriggerSecret(id string) (*SecretResponse, error) {
	var secret SecretResponse
	err := c.post("/api/v1/triggers/"+id+"/secret", nil, &secret)
	return &secret, err
}

// GetTriggerStats возвращает статистику срабатываний триггера.
func (c *Client) GetTriggerStats(id string) (*TriggerStatsResponse, error) {
	var stats TriggerStatsResponse
	err := c.get("/api/v1/triggers/"+id+"/stats", &stats)
	return &stats, err
}

// --- Events ---

// ListEvents возвращает события.
func (c *Client) ListEvents(eventType, status string) ([]EventResponse, error) {
	params := url.Values{}
	if eventType != "" {
		params.Set("event_type", eventType)
	}
	if status != "" {
		params.Set("status", status)
	}

	var events []EventResponse
	err := c.list("/api/v1/events", params, &events)
	return events, err
}

// IngestEvent публикует событие приложения.
func (c *Client) IngestEvent(req IngestEventRequest) (*EventResponse, error) {
	var event EventResponse
	err := c.post("/api/v1/events", req, &event)
	return &event, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
