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

// ExecutionRepo — репозиторий для работы с executions.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Create создаёт новый execution.
func (r *ExecutionRepo) Create(ctx context.Context, execution *domain.Execution) error {
	inputsJSON, err := json.Marshal(execution.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, version, status, inputs, triggered_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Version,
		execution.Status,
		inputsJSON,
		nullString(execution.TriggeredBy),
		execution.CreatedAt,
	)
	if err != nil {
		return wrapDB("insert execution", err)
	}
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, workflow_id, version, status, inputs, triggered_by, logs, results,
		       error, started_at, completed_at, created_at
		FROM executions
		WHERE id = $1
	`
	return scanExecution(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список executions с фильтрацией.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := `
		SELECT id, workflow_id, version, status, inputs, triggered_by, logs, results,
		       error, started_at, completed_at, created_at
		FROM executions
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.WorkflowID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *execution)
	}
	return executions, rows.Err()
}

// Update обновляет execution.
func (r *ExecutionRepo) Update(ctx context.Context, execution *domain.Execution) error {
	logsJSON, err := json.Marshal(execution.Logs)
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}
	resultsJSON, err := json.Marshal(execution.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	query := `
		UPDATE executions
		SET status = $2, logs = $3, results = $4, error = $5, started_at = $6, completed_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		execution.ID,
		execution.Status,
		logsJSON,
		resultsJSON,
		nullString(execution.Error),
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus возвращает количество executions по статусам.
func (r *ExecutionRepo) CountByStatus(ctx context.Context, workflowID *uuid.UUID) (map[domain.ExecutionStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM executions
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		GROUP BY status
	`
	rows, err := r.pool.Query(ctx, query, nullUUID(workflowID))
	if err != nil {
		return nil, fmt.Errorf("count executions: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ExecutionStatus]int)
	for rows.Next() {
		var status domain.ExecutionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// --- Helpers ---

// ExecutionFilter — параметры фильтрации executions.
type ExecutionFilter struct {
	WorkflowID *uuid.UUID
	Status     domain.ExecutionStatus
	Limit      int
	Offset     int
}

// scanExecution сканирует одну строку в Execution.
func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var execution domain.Execution
	var inputsJSON, logsJSON, resultsJSON []byte
	var triggeredBy, executionError *string

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Version,
		&execution.Status,
		&inputsJSON,
		&triggeredBy,
		&logsJSON,
		&resultsJSON,
		&executionError,
		&execution.StartedAt,
		&execution.CompletedAt,
		&execution.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if inputsJSON != nil {
		if err := json.Unmarshal(inputsJSON, &execution.Inputs); err != nil {
			return nil, fmt.Errorf("unmarshal inputs: %w", err)
		}
	}
	if logsJSON != nil {
		if err := json.Unmarshal(logsJSON, &execution.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs: %w", err)
		}
	}
	if resultsJSON != nil {
		if err := json.Unmarshal(resultsJSON, &execution.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	if triggeredBy != nil {
		execution.TriggeredBy = *triggeredBy
	}
	if executionError != nil {
		execution.Error = *executionError
	}

	return &execution, nil
}
