package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/graph"
	"github.com/shaiso/Orbita/internal/repo"
)

// ListWorkflows возвращает список workflows.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	filter := repo.WorkflowFilter{
		ProjectID: r.URL.Query().Get("project_id"),
		Status:    domain.WorkflowStatus(r.URL.Query().Get("status")),
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
	}

	workflows, err := h.workflowRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowFromDomain(wf)
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт новый workflow в статусе DRAFT.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	now := time.Now()
	workflow := &domain.Workflow{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		Status:      domain.WorkflowStatusDraft,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.workflowRepo.Create(r.Context(), workflow); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, WorkflowFromDomain(*workflow))
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	workflow, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*workflow))
}

// UpdateWorkflow обновляет метаданные workflow.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	workflow, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if workflow.Status == domain.WorkflowStatusArchived {
		InvalidState(w, "archived workflow cannot be updated")
		return
	}

	if req.Name != nil {
		workflow.Name = *req.Name
	}
	if req.Description != nil {
		workflow.Description = *req.Description
	}
	workflow.UpdatedAt = time.Now()

	if err := h.workflowRepo.Update(r.Context(), workflow); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, WorkflowFromDomain(*workflow))
}

// DeleteWorkflow удаляет workflow вместе с версиями и executions.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflowRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

// PublishWorkflow публикует workflow: DRAFT → PUBLISHED.
//
// Перед публикацией топология текущей версии проходит валидацию —
// workflow с невалидным графом опубликовать нельзя.
// POST /api/v1/workflows/{id}/publish
func (h *Handler) PublishWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	workflow, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if workflow.Status == domain.WorkflowStatusArchived {
		InvalidState(w, "archived workflow cannot be published")
		return
	}
	if workflow.CurrentVersion == "" {
		InvalidState(w, "workflow has no versions")
		return
	}

	version, err := h.workflowRepo.GetVersion(r.Context(), id, workflow.CurrentVersion)
	if HandleRepoError(w, h.logger, err, "workflow version not found") {
		return
	}

	if err := graph.Validate(version.Nodes, version.Edges); err != nil {
		InvalidState(w, err.Error())
		return
	}

	workflow.Status = domain.WorkflowStatusPublished
	workflow.UpdatedAt = time.Now()

	if err := h.workflowRepo.Update(r.Context(), workflow); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, WorkflowFromDomain(*workflow))
}

// ArchiveWorkflow архивирует workflow. Архивный workflow не запускается.
// POST /api/v1/workflows/{id}/archive
func (h *Handler) ArchiveWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	workflow, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	workflow.Status = domain.WorkflowStatusArchived
	workflow.UpdatedAt = time.Now()

	if err := h.workflowRepo.Update(r.Context(), workflow); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, WorkflowFromDomain(*workflow))
}

// ListVersions возвращает список версий workflow.
// GET /api/v1/workflows/{id}/versions
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	// Проверяем, что workflow существует
	_, err = h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	versions, err := h.workflowRepo.ListVersions(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]VersionResponse, len(versions))
	for i, v := range versions {
		result[i] = VersionFromDomain(v)
	}

	List(w, result, len(result))
}

// CreateVersion создаёт новую версию workflow и делает её текущей.
//
// Топология проверяется до сохранения: версия с циклом, дублями ID
// или без TRIGGER узла не создаётся.
// POST /api/v1/workflows/{id}/versions
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	workflow, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if workflow.Status == domain.WorkflowStatusArchived {
		InvalidState(w, "archived workflow cannot be versioned")
		return
	}

	if err := graph.Validate(req.Nodes, req.Edges); err != nil {
		BadRequest(w, err.Error())
		return
	}

	version := &domain.WorkflowVersion{
		WorkflowID: id,
		Nodes:      req.Nodes,
		Edges:      req.Edges,
		Changelog:  req.Changelog,
		CreatedBy:  req.CreatedBy,
		CreatedAt:  time.Now(),
	}

	if err := h.workflowRepo.CreateVersion(r.Context(), version); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	workflow.CurrentVersion = version.Version
	workflow.UpdatedAt = time.Now()
	if err := h.workflowRepo.Update(r.Context(), workflow); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, VersionFromDomain(*version))
}

// GetVersion возвращает конкретную версию workflow.
// GET /api/v1/workflows/{id}/versions/{version}
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	version, err := h.workflowRepo.GetVersion(r.Context(), id, r.PathValue("version"))
	if HandleRepoError(w, h.logger, err, "workflow version not found") {
		return
	}

	Success(w, VersionFromDomain(*version))
}
