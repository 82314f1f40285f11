package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/telemetry"
)

// ExecutionStore — хранилище executions, нужное Runner.
type ExecutionStore interface {
	Create(ctx context.Context, execution *domain.Execution) error
	Update(ctx context.Context, execution *domain.Execution) error
}

// VersionStore — доступ к версиям workflow.
type VersionStore interface {
	GetVersion(ctx context.Context, workflowID uuid.UUID, version string) (*domain.WorkflowVersion, error)
}

// Runner запускает executions и управляет их жизненным циклом:
// создаёт записи, ведёт реестр активных запусков для отмены и
// сохраняет терминальное состояние.
type Runner struct {
	engine     *Engine
	executions ExecutionStore
	versions   VersionStore
	onFinished func(*domain.Execution)
	logger     *slog.Logger

	mu     sync.Mutex
	active map[uuid.UUID]context.CancelFunc
}

// RunnerConfig — конфигурация Runner.
type RunnerConfig struct {
	// Engine — движок выполнения.
	Engine *Engine

	// Executions — хранилище executions.
	Executions ExecutionStore

	// Versions — доступ к версиям workflow.
	Versions VersionStore

	// OnFinished вызывается после сохранения терминального состояния
	// (уведомления, метрики). Необязателен.
	OnFinished func(*domain.Execution)

	// Logger — логгер.
	Logger *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		engine:     cfg.Engine,
		executions: cfg.Executions,
		versions:   cfg.Versions,
		onFinished: cfg.OnFinished,
		logger:     logger,
		active:     make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start запускает workflow асинхронно.
//
// Создаёт execution в статусе PENDING и возвращает его сразу;
// выполнение идёт в фоне. Пустая версия означает текущую версию
// workflow.
func (r *Runner) Start(
	ctx context.Context,
	workflow *domain.Workflow,
	versionLabel string,
	inputs map[string]any,
	triggeredBy string,
) (*domain.Execution, error) {
	execution, version, err := r.prepare(ctx, workflow, versionLabel, inputs, triggeredBy)
	if err != nil {
		return nil, err
	}

	// Жизнь execution не ограничена входящим запросом
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.track(execution.ID, cancel)

	go func() {
		defer cancel()
		defer r.untrack(execution.ID)
		r.run(runCtx, execution, version)
	}()

	return execution, nil
}

// Run запускает workflow синхронно и возвращает завершённый execution.
// Используется webhook триггерами в синхронном режиме.
func (r *Runner) Run(
	ctx context.Context,
	workflow *domain.Workflow,
	versionLabel string,
	inputs map[string]any,
	triggeredBy string,
) (*domain.Execution, error) {
	execution, version, err := r.prepare(ctx, workflow, versionLabel, inputs, triggeredBy)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.track(execution.ID, cancel)
	defer r.untrack(execution.ID)

	r.run(runCtx, execution, version)
	return execution, nil
}

// Cancel отменяет выполняющийся execution.
// Отмена срабатывает между узлами: текущий узел дорабатывает.
func (r *Runner) Cancel(executionID uuid.UUID) error {
	r.mu.Lock()
	cancel, exists := r.active[executionID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrExecutionNotActive, executionID)
	}
	cancel()
	return nil
}

// Active возвращает количество выполняющихся executions.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// prepare проверяет workflow, находит версию и создаёт запись execution.
func (r *Runner) prepare(
	ctx context.Context,
	workflow *domain.Workflow,
	versionLabel string,
	inputs map[string]any,
	triggeredBy string,
) (*domain.Execution, *domain.WorkflowVersion, error) {
	if !workflow.IsExecutable() {
		return nil, nil, fmt.Errorf("%w: workflow %s has status %s",
			ErrNotExecutable, workflow.ID, workflow.Status)
	}

	if versionLabel == "" {
		versionLabel = workflow.CurrentVersion
	}

	version, err := r.versions.GetVersion(ctx, workflow.ID, versionLabel)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: workflow %s version %s: %v",
			ErrVersionNotFound, workflow.ID, versionLabel, err)
	}

	execution := &domain.Execution{
		ID:          uuid.New(),
		WorkflowID:  workflow.ID,
		Version:     versionLabel,
		Status:      domain.ExecutionStatusPending,
		Inputs:      inputs,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now(),
	}

	if err := r.executions.Create(ctx, execution); err != nil {
		return nil, nil, fmt.Errorf("create execution: %w", err)
	}

	return execution, version, nil
}

// run выполняет execution и сохраняет его состояние.
func (r *Runner) run(ctx context.Context, execution *domain.Execution, version *domain.WorkflowVersion) {
	execution.MarkRunning()
	if err := r.executions.Update(ctx, execution); err != nil {
		r.logger.Error("persist running status failed",
			"execution_id", execution.ID,
			"error", err,
		)
	}

	if err := r.engine.Run(ctx, execution, version); err != nil {
		r.logger.Warn("execution finished with error",
			"execution_id", execution.ID,
			"workflow_id", execution.WorkflowID,
			"status", execution.Status,
			"error", err,
		)
	} else {
		r.logger.Info("execution finished",
			"execution_id", execution.ID,
			"workflow_id", execution.WorkflowID,
			"status", execution.Status,
			"duration", execution.Duration(),
		)
	}

	telemetry.ExecutionsTotal.WithLabelValues(string(execution.Status)).Inc()

	// Терминальное состояние сохраняем без привязки к отменённому контексту
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.executions.Update(persistCtx, execution); err != nil {
		r.logger.Error("persist terminal status failed",
			"execution_id", execution.ID,
			"error", err,
		)
	}

	if r.onFinished != nil {
		r.onFinished(execution)
	}
}

// track регистрирует активный execution.
func (r *Runner) track(id uuid.UUID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[id] = cancel
}

// untrack снимает execution с учёта.
func (r *Runner) untrack(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}
