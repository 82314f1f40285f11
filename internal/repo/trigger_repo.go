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

// TriggerRepo — репозиторий для работы с triggers.
type TriggerRepo struct {
	pool *pgxpool.Pool
}

// NewTriggerRepo создаёт новый TriggerRepo.
func NewTriggerRepo(pool *pgxpool.Pool) *TriggerRepo {
	return &TriggerRepo{pool: pool}
}

// Create создаёт новый trigger.
func (r *TriggerRepo) Create(ctx context.Context, trig *domain.Trigger) error {
	configJSON, err := json.Marshal(trig.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	inputsJSON, err := json.Marshal(trig.DefaultInputs)
	if err != nil {
		return fmt.Errorf("marshal default inputs: %w", err)
	}

	query := `
		INSERT INTO triggers (id, workflow_id, project_id, name, description, type, config,
		                      default_inputs, enabled, execution_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.pool.Exec(ctx, query,
		trig.ID,
		trig.WorkflowID,
		nullString(trig.ProjectID),
		trig.Name,
		nullString(trig.Description),
		trig.Type,
		configJSON,
		inputsJSON,
		trig.Enabled,
		trig.ExecutionCount,
		nullString(trig.CreatedBy),
		trig.CreatedAt,
		trig.UpdatedAt,
	)
	if err != nil {
		return wrapDB("insert trigger", err)
	}
	return nil
}

// GetByID возвращает trigger по ID.
func (r *TriggerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trigger, error) {
	query := selectTrigger + ` WHERE id = $1`
	return scanTrigger(r.pool.QueryRow(ctx, query, id))
}

// List возвращает triggers с фильтрацией по workflow и типу.
func (r *TriggerRepo) List(ctx context.Context, filter TriggerFilter) ([]domain.Trigger, error) {
	query := selectTrigger + `
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR type = $2)
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.WorkflowID),
		nullString(string(filter.Type)),
	)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	defer rows.Close()

	return collectTriggers(rows)
}

// ListEnabled возвращает включённые triggers заданного типа.
func (r *TriggerRepo) ListEnabled(ctx context.Context, triggerType domain.TriggerType) ([]domain.Trigger, error) {
	query := selectTrigger + `
		WHERE enabled = true AND type = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, triggerType)
	if err != nil {
		return nil, fmt.Errorf("list enabled triggers: %w", err)
	}
	defer rows.Close()

	return collectTriggers(rows)
}

// Update обновляет trigger.
func (r *TriggerRepo) Update(ctx context.Context, trig *domain.Trigger) error {
	configJSON, err := json.Marshal(trig.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	inputsJSON, err := json.Marshal(trig.DefaultInputs)
	if err != nil {
		return fmt.Errorf("marshal default inputs: %w", err)
	}

	query := `
		UPDATE triggers
		SET name = $2, description = $3, config = $4, default_inputs = $5, enabled = $6,
		    execution_count = $7, last_executed_at = $8, last_execution_status = $9,
		    last_execution_id = $10, updated_at = $11
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		trig.ID,
		trig.Name,
		nullString(trig.Description),
		configJSON,
		inputsJSON,
		trig.Enabled,
		trig.ExecutionCount,
		trig.LastExecutedAt,
		nullString(trig.LastExecutionStatus),
		nullUUID(trig.LastExecutionID),
		trig.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update trigger: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет trigger.
func (r *TriggerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM triggers WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

const selectTrigger = `
	SELECT id, workflow_id, project_id, name, description, type, config, default_inputs,
	       enabled, execution_count, last_executed_at, last_execution_status,
	       last_execution_id, created_by, created_at, updated_at
	FROM triggers
`

// TriggerFilter — параметры фильтрации triggers.
type TriggerFilter struct {
	WorkflowID *uuid.UUID
	Type       domain.TriggerType
}

// scanTrigger сканирует одну строку в Trigger.
func scanTrigger(row pgx.Row) (*domain.Trigger, error) {
	var trig domain.Trigger
	var configJSON, inputsJSON []byte
	var projectID, description, lastStatus, createdBy *string

	err := row.Scan(
		&trig.ID,
		&trig.WorkflowID,
		&projectID,
		&trig.Name,
		&description,
		&trig.Type,
		&configJSON,
		&inputsJSON,
		&trig.Enabled,
		&trig.ExecutionCount,
		&trig.LastExecutedAt,
		&lastStatus,
		&trig.LastExecutionID,
		&createdBy,
		&trig.CreatedAt,
		&trig.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan trigger: %w", err)
	}

	if err := json.Unmarshal(configJSON, &trig.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if inputsJSON != nil {
		if err := json.Unmarshal(inputsJSON, &trig.DefaultInputs); err != nil {
			return nil, fmt.Errorf("unmarshal default inputs: %w", err)
		}
	}
	if projectID != nil {
		trig.ProjectID = *projectID
	}
	if description != nil {
		trig.Description = *description
	}
	if lastStatus != nil {
		trig.LastExecutionStatus = *lastStatus
	}
	if createdBy != nil {
		trig.CreatedBy = *createdBy
	}

	return &trig, nil
}

func collectTriggers(rows pgx.Rows) ([]domain.Trigger, error) {
	var triggers []domain.Trigger
	for rows.Next() {
		trig, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, *trig)
	}
	return triggers, rows.Err()
}
