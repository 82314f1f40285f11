package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/mq"
	"github.com/shaiso/Orbita/internal/repo"
)

// IngestEvent принимает событие приложения.
//
// Синхронный режим (по умолчанию): событие сохраняется и сразу
// сопоставляется с EVENT триггерами, ответ содержит результат
// обработки. С async=true событие уходит в RabbitMQ и обрабатывается
// консьюмером сервера; ответ — 202 с событием в статусе PENDING.
// POST /api/v1/events
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var req IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.EventType == "" {
		BadRequest(w, "event_type is required")
		return
	}

	async := r.URL.Query().Get("async") == "true"
	if async && h.publisher != nil {
		err := h.publisher.PublishInboundEvent(r.Context(), mq.EventInboundPayload{
			EventType:   req.EventType,
			EventSource: req.EventSource,
			ProjectID:   req.ProjectID,
			UserID:      req.UserID,
			Payload:     req.Payload,
		})
		if err != nil {
			InternalError(w, h.logger, err)
			return
		}
		JSON(w, http.StatusAccepted, DataResponse{Data: map[string]any{
			"event_type": req.EventType,
			"status":     domain.EventStatusPending,
		}})
		return
	}

	event := &domain.WorkflowEvent{
		ID:          uuid.New(),
		EventType:   req.EventType,
		EventSource: req.EventSource,
		ProjectID:   req.ProjectID,
		UserID:      req.UserID,
		Payload:     req.Payload,
		Status:      domain.EventStatusPending,
		CreatedAt:   time.Now(),
	}

	if err := h.eventRepo.Create(r.Context(), event); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	if err := h.events.Process(r.Context(), event); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, EventFromDomain(*event))
}

// ListEvents возвращает список событий.
// GET /api/v1/events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := repo.EventFilter{
		EventType: r.URL.Query().Get("event_type"),
		Status:    r.URL.Query().Get("status"),
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
	}

	events, err := h.eventRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]EventResponse, len(events))
	for i, e := range events {
		result[i] = EventFromDomain(e)
	}

	List(w, result, len(result))
}

// GetEvent возвращает событие по ID.
// GET /api/v1/events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid event id")
		return
	}

	event, err := h.eventRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "event not found") {
		return
	}

	Success(w, EventFromDomain(*event))
}
