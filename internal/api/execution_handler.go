package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/engine"
	"github.com/shaiso/Orbita/internal/repo"
)

// ListExecutions возвращает список executions.
// GET /api/v1/executions
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{
		Status: domain.ExecutionStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if raw := r.URL.Query().Get("workflow_id"); raw != "" {
		workflowID, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &workflowID
	}

	executions, err := h.executionRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, e := range executions {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// StartExecution запускает workflow.
//
// В синхронном режиме ответ содержит завершённый execution;
// с async=true execution возвращается сразу в статусе PENDING.
// POST /api/v1/workflows/{id}/executions
func (h *Handler) StartExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req StartExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	workflow, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	triggeredBy := "manual:api"
	if req.User != "" {
		triggeredBy = "manual:" + req.User
	}

	var execution *domain.Execution
	if req.Async {
		execution, err = h.runner.Start(r.Context(), workflow, req.Version, req.Inputs, triggeredBy)
	} else {
		execution, err = h.runner.Run(r.Context(), workflow, req.Version, req.Inputs, triggeredBy)
	}
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotExecutable):
			InvalidState(w, err.Error())
		case errors.Is(err, engine.ErrVersionNotFound):
			NotFound(w, err.Error())
		default:
			InternalError(w, h.logger, err)
		}
		return
	}

	if req.Async {
		JSON(w, http.StatusAccepted, DataResponse{Data: ExecutionFromDomain(*execution)})
		return
	}
	Created(w, ExecutionFromDomain(*execution))
}

// GetExecution возвращает execution по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	execution, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*execution))
}

// CancelExecution отменяет выполняющийся execution.
// POST /api/v1/executions/{id}/cancel
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	if err := h.runner.Cancel(id); err != nil {
		// Не в active: либо уже завершён, либо не существует
		execution, getErr := h.executionRepo.GetByID(r.Context(), id)
		if HandleRepoError(w, h.logger, getErr, "execution not found") {
			return
		}
		if execution.IsFinished() {
			Conflict(w, "execution already finished")
			return
		}
		InvalidState(w, err.Error())
		return
	}

	Success(w, map[string]any{"cancelled": true})
}

// ExecutionStats возвращает количество executions по статусам.
// GET /api/v1/executions/stats
func (h *Handler) ExecutionStats(w http.ResponseWriter, r *http.Request) {
	var workflowID *uuid.UUID
	if raw := r.URL.Query().Get("workflow_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		workflowID = &id
	}

	counts, err := h.executionRepo.CountByStatus(r.Context(), workflowID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	byStatus := make(map[string]int, len(counts))
	for status, count := range counts {
		byStatus[string(status)] = count
	}

	Success(w, map[string]any{
		"by_status": byStatus,
		"active":    h.runner.Active(),
	})
}
