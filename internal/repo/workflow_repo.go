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

// WorkflowRepo — репозиторий для работы с workflows и workflow_versions.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// --- Workflow CRUD ---

// Create создаёт новый workflow.
func (r *WorkflowRepo) Create(ctx context.Context, workflow *domain.Workflow) error {
	query := `
		INSERT INTO workflows (id, name, description, project_id, status, current_version, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		workflow.ID,
		workflow.Name,
		nullString(workflow.Description),
		nullString(workflow.ProjectID),
		workflow.Status,
		nullString(workflow.CurrentVersion),
		nullString(workflow.CreatedBy),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return wrapDB("insert workflow", err)
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, name, description, project_id, status, current_version, created_by, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список workflows с фильтрацией по проекту и статусу.
func (r *WorkflowRepo) List(ctx context.Context, filter WorkflowFilter) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, description, project_id, status, current_version, created_by, created_at, updated_at
		FROM workflows
		WHERE ($1::text IS NULL OR project_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.ProjectID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		var wf domain.Workflow
		var description, projectID, currentVersion, createdBy *string
		if err := rows.Scan(
			&wf.ID,
			&wf.Name,
			&description,
			&projectID,
			&wf.Status,
			&currentVersion,
			&createdBy,
			&wf.CreatedAt,
			&wf.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		fillWorkflowStrings(&wf, description, projectID, currentVersion, createdBy)
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

// Update обновляет workflow.
func (r *WorkflowRepo) Update(ctx context.Context, workflow *domain.Workflow) error {
	query := `
		UPDATE workflows
		SET name = $2, description = $3, status = $4, current_version = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		workflow.ID,
		workflow.Name,
		nullString(workflow.Description),
		workflow.Status,
		nullString(workflow.CurrentVersion),
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет workflow (каскадно удалит versions, executions, triggers).
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM workflows WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- WorkflowVersion CRUD ---

// CreateVersion создаёт новую версию workflow.
// Метка версии назначается автоматически: v1, v2, ...
func (r *WorkflowRepo) CreateVersion(ctx context.Context, version *domain.WorkflowVersion) error {
	nodesJSON, err := json.Marshal(version.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(version.Edges)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	var count int
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM workflow_versions
		WHERE workflow_id = $1
	`, version.WorkflowID).Scan(&count)
	if err != nil {
		return fmt.Errorf("count versions: %w", err)
	}
	version.Version = fmt.Sprintf("v%d", count+1)

	_, err = r.pool.Exec(ctx, `
		INSERT INTO workflow_versions (workflow_id, version, nodes, edges, changelog, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		version.WorkflowID,
		version.Version,
		nodesJSON,
		edgesJSON,
		nullString(version.Changelog),
		nullString(version.CreatedBy),
		version.CreatedAt,
	)
	if err != nil {
		return wrapDB("insert workflow version", err)
	}
	return nil
}

// GetVersion возвращает конкретную версию workflow.
func (r *WorkflowRepo) GetVersion(ctx context.Context, workflowID uuid.UUID, version string) (*domain.WorkflowVersion, error) {
	query := `
		SELECT workflow_id, version, nodes, edges, changelog, created_by, created_at
		FROM workflow_versions
		WHERE workflow_id = $1 AND version = $2
	`
	return r.scanVersion(r.pool.QueryRow(ctx, query, workflowID, version))
}

// GetLatestVersion возвращает последнюю версию workflow.
func (r *WorkflowRepo) GetLatestVersion(ctx context.Context, workflowID uuid.UUID) (*domain.WorkflowVersion, error) {
	query := `
		SELECT workflow_id, version, nodes, edges, changelog, created_by, created_at
		FROM workflow_versions
		WHERE workflow_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanVersion(r.pool.QueryRow(ctx, query, workflowID))
}

// ListVersions возвращает все версии workflow.
func (r *WorkflowRepo) ListVersions(ctx context.Context, workflowID uuid.UUID) ([]domain.WorkflowVersion, error) {
	query := `
		SELECT workflow_id, version, nodes, edges, changelog, created_by, created_at
		FROM workflow_versions
		WHERE workflow_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list workflow versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.WorkflowVersion
	for rows.Next() {
		version, err := scanVersionRow(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *version)
	}
	return versions, rows.Err()
}

// --- Helpers ---

// WorkflowFilter — параметры фильтрации workflows.
type WorkflowFilter struct {
	ProjectID string
	Status    domain.WorkflowStatus
	Limit     int
	Offset    int
}

// scanWorkflow сканирует одну строку в Workflow.
func (r *WorkflowRepo) scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var description, projectID, currentVersion, createdBy *string

	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&description,
		&projectID,
		&wf.Status,
		&currentVersion,
		&createdBy,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	fillWorkflowStrings(&wf, description, projectID, currentVersion, createdBy)
	return &wf, nil
}

func fillWorkflowStrings(wf *domain.Workflow, description, projectID, currentVersion, createdBy *string) {
	if description != nil {
		wf.Description = *description
	}
	if projectID != nil {
		wf.ProjectID = *projectID
	}
	if currentVersion != nil {
		wf.CurrentVersion = *currentVersion
	}
	if createdBy != nil {
		wf.CreatedBy = *createdBy
	}
}

// scanVersion сканирует одну строку в WorkflowVersion.
func (r *WorkflowRepo) scanVersion(row pgx.Row) (*domain.WorkflowVersion, error) {
	version, err := scanVersionRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return version, err
}

func scanVersionRow(row pgx.Row) (*domain.WorkflowVersion, error) {
	var version domain.WorkflowVersion
	var nodesJSON, edgesJSON []byte
	var changelog, createdBy *string

	err := row.Scan(
		&version.WorkflowID,
		&version.Version,
		&nodesJSON,
		&edgesJSON,
		&changelog,
		&createdBy,
		&version.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow version: %w", err)
	}

	if err := json.Unmarshal(nodesJSON, &version.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(edgesJSON, &version.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	if changelog != nil {
		version.Changelog = *changelog
	}
	if createdBy != nil {
		version.CreatedBy = *createdBy
	}

	return &version, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
