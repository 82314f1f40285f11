package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/repo"
	"github.com/shaiso/Orbita/internal/trigger"
)

// ListTriggers возвращает список триггеров.
// GET /api/v1/triggers
func (h *Handler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	filter := repo.TriggerFilter{
		Type: domain.TriggerType(r.URL.Query().Get("type")),
	}

	if raw := r.URL.Query().Get("workflow_id"); raw != "" {
		workflowID, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &workflowID
	}

	triggers, err := h.triggerRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TriggerResponse, len(triggers))
	for i, t := range triggers {
		result[i] = TriggerFromDomain(t)
	}

	List(w, result, len(result))
}

// CreateTrigger создаёт триггер для workflow.
//
// Для SCHEDULED триггеров cron-выражение валидируется при создании.
// Для WEBHOOK триггеров без секрета секрет генерируется автоматически
// и возвращается в ответе один раз.
// POST /api/v1/workflows/{id}/triggers
func (h *Handler) CreateTrigger(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req CreateTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	triggerType := domain.TriggerType(req.Type)
	if !triggerType.IsValid() {
		BadRequest(w, "invalid trigger type: "+req.Type)
		return
	}

	workflow, err := h.workflowRepo.GetByID(r.Context(), workflowID)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}
	if workflow.Status == domain.WorkflowStatusArchived {
		InvalidState(w, "archived workflow cannot have triggers")
		return
	}

	var generatedSecret string
	switch triggerType {
	case domain.TriggerTypeScheduled:
		if err := trigger.ValidateCronExpr(req.Config.CronExpression); err != nil {
			BadRequest(w, err.Error())
			return
		}
	case domain.TriggerTypeWebhook:
		if req.Config.WebhookSecret == "" {
			secret, err := trigger.GenerateSecret()
			if err != nil {
				InternalError(w, h.logger, err)
				return
			}
			req.Config.WebhookSecret = secret
			generatedSecret = secret
		}
	case domain.TriggerTypeEvent:
		if req.Config.EventType == "" {
			BadRequest(w, "event_type is required for EVENT triggers")
			return
		}
	}

	now := time.Now()
	trig := &domain.Trigger{
		ID:            uuid.New(),
		WorkflowID:    workflowID,
		ProjectID:     req.ProjectID,
		Name:          req.Name,
		Description:   req.Description,
		Type:          triggerType,
		Config:        req.Config,
		DefaultInputs: req.DefaultInputs,
		Enabled:       req.Enabled,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.triggerRepo.Create(r.Context(), trig); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	resp := TriggerFromDomain(*trig)
	if generatedSecret != "" {
		resp.Config.WebhookSecret = generatedSecret
	}
	Created(w, resp)
}

// GetTrigger возвращает триггер по ID.
// GET /api/v1/triggers/{id}
func (h *Handler) GetTrigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	trig, err := h.triggerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "trigger not found") {
		return
	}

	Success(w, TriggerFromDomain(*trig))
}

// UpdateTrigger обновляет триггер.
// PUT /api/v1/triggers/{id}
func (h *Handler) UpdateTrigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	var req UpdateTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	trig, err := h.triggerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "trigger not found") {
		return
	}

	if req.Name != nil {
		trig.Name = *req.Name
	}
	if req.Description != nil {
		trig.Description = *req.Description
	}
	if req.Config != nil {
		if trig.Type == domain.TriggerTypeScheduled {
			if err := trigger.ValidateCronExpr(req.Config.CronExpression); err != nil {
				BadRequest(w, err.Error())
				return
			}
		}
		// Пустой секрет в запросе не затирает существующий
		if req.Config.WebhookSecret == "" {
			req.Config.WebhookSecret = trig.Config.WebhookSecret
		}
		trig.Config = *req.Config
	}
	if req.DefaultInputs != nil {
		trig.DefaultInputs = *req.DefaultInputs
	}
	trig.UpdatedAt = time.Now()

	if err := h.triggerRepo.Update(r.Context(), trig); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, TriggerFromDomain(*trig))
}

// DeleteTrigger удаляет триггер.
// DELETE /api/v1/triggers/{id}
func (h *Handler) DeleteTrigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	if err := h.triggerRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "trigger not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

// SetTriggerEnabled включает или выключает триггер.
// PUT /api/v1/triggers/{id}/enabled
func (h *Handler) SetTriggerEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	trig, err := h.triggerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "trigger not found") {
		return
	}

	trig.Enabled = req.Enabled
	trig.UpdatedAt = time.Now()

	if err := h.triggerRepo.Update(r.Context(), trig); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, TriggerFromDomain(*trig))
}

// FireTrigger вручную активирует триггер.
// POST /api/v1/triggers/{id}/fire
func (h *Handler) FireTrigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	var req FireTriggerRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body")
			return
		}
	}

	trig, err := h.triggerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "trigger not found") {
		return
	}

	execution, err := h.activator.Fire(r.Context(), trig, req.Inputs, !req.Async)
	if err != nil {
		switch {
		case errors.Is(err, trigger.ErrTriggerDisabled):
			InvalidState(w, err.Error())
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

// RotateTriggerSecret генерирует новый webhook секрет.
//
// Старый секрет перестаёт действовать сразу. Новый секрет
// возвращается в ответе и больше нигде не раскрывается.
// POST /api/v1/triggers/{id}/secret
func (h *Handler) RotateTriggerSecret(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	trig, err := h.triggerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "trigger not found") {
		return
	}

	if trig.Type != domain.TriggerTypeWebhook {
		InvalidState(w, "secret rotation is only supported for WEBHOOK triggers")
		return
	}

	secret, err := trigger.GenerateSecret()
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	trig.Config.WebhookSecret = secret
	trig.UpdatedAt = time.Now()

	if err := h.triggerRepo.Update(r.Context(), trig); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, SecretResponse{TriggerID: trig.ID, Secret: secret})
}

// GetTriggerStats возвращает статистику срабатываний триггера.
//
// Для включённых SCHEDULED триггеров дополнительно вычисляется время
// следующего срабатывания по cron-выражению.
// GET /api/v1/triggers/{id}/stats
func (h *Handler) GetTriggerStats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	trig, err := h.triggerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "trigger not found") {
		return
	}

	stats := TriggerStatsResponse{
		TriggerID:           trig.ID,
		Enabled:             trig.Enabled,
		ExecutionCount:      trig.ExecutionCount,
		LastExecutedAt:      trig.LastExecutedAt,
		LastExecutionStatus: trig.LastExecutionStatus,
		LastExecutionID:     trig.LastExecutionID,
	}

	if trig.Type == domain.TriggerTypeScheduled && trig.Enabled {
		next, err := trigger.NextExecution(&trig.Config, time.Now())
		if err != nil {
			h.logger.Warn("next execution time unavailable",
				"trigger_id", trig.ID,
				"error", err,
			)
		} else {
			stats.NextExecutionAt = &next
		}
	}

	Success(w, stats)
}
