package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Orbita/internal/domain"
)

// EventRepo — репозиторий для аудита событий workflow.
type EventRepo struct {
	pool *pgxpool.Pool
}

// NewEventRepo создаёт новый EventRepo.
func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Create создаёт запись события.
func (r *EventRepo) Create(ctx context.Context, event *domain.WorkflowEvent) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO workflow_events (id, event_type, event_source, project_id, user_id,
		                             payload, processed, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.EventSource),
		nullString(event.ProjectID),
		nullString(event.UserID),
		payloadJSON,
		event.Processed,
		event.Status,
		event.CreatedAt,
	)
	if err != nil {
		return wrapDB("insert event", err)
	}
	return nil
}

// GetByID возвращает событие по ID.
func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowEvent, error) {
	query := selectEvent + ` WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

// List возвращает события с фильтрацией по типу и статусу.
func (r *EventRepo) List(ctx context.Context, filter EventFilter) ([]domain.WorkflowEvent, error) {
	query := selectEvent + `
		WHERE ($1::text IS NULL OR event_type = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.EventType),
		nullString(filter.Status),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.WorkflowEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// Update обновляет событие (результат обработки).
func (r *EventRepo) Update(ctx context.Context, event *domain.WorkflowEvent) error {
	executionsJSON, err := json.Marshal(event.TriggeredExecutions)
	if err != nil {
		return fmt.Errorf("marshal triggered executions: %w", err)
	}

	query := `
		UPDATE workflow_events
		SET processed = $2, processed_at = $3, status = $4, triggered_executions = $5, error = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Processed,
		event.ProcessedAt,
		event.Status,
		executionsJSON,
		nullString(event.Error),
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

const selectEvent = `
	SELECT id, event_type, event_source, project_id, user_id, payload, processed,
	       processed_at, status, triggered_executions, error, created_at
	FROM workflow_events
`

// EventFilter — параметры фильтрации событий.
type EventFilter struct {
	EventType string
	Status    string
	Limit     int
	Offset    int
}

// scanEvent сканирует одну строку в WorkflowEvent.
func scanEvent(row pgx.Row) (*domain.WorkflowEvent, error) {
	var event domain.WorkflowEvent
	var payloadJSON, executionsJSON []byte
	var eventSource, projectID, userID, eventError *string

	err := row.Scan(
		&event.ID,
		&event.EventType,
		&eventSource,
		&projectID,
		&userID,
		&payloadJSON,
		&event.Processed,
		&event.ProcessedAt,
		&event.Status,
		&executionsJSON,
		&eventError,
		&event.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if executionsJSON != nil {
		if err := json.Unmarshal(executionsJSON, &event.TriggeredExecutions); err != nil {
			return nil, fmt.Errorf("unmarshal triggered executions: %w", err)
		}
	}
	if eventSource != nil {
		event.EventSource = *eventSource
	}
	if projectID != nil {
		event.ProjectID = *projectID
	}
	if userID != nil {
		event.UserID = *userID
	}
	if eventError != nil {
		event.Error = *eventError
	}

	return &event, nil
}
