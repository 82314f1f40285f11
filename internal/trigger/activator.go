package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/telemetry"
)

// TriggerStore — хранилище триггеров, нужное подсистеме активации.
type TriggerStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Trigger, error)
	ListEnabled(ctx context.Context, triggerType domain.TriggerType) ([]domain.Trigger, error)
	Update(ctx context.Context, trigger *domain.Trigger) error
}

// WorkflowStore — доступ к workflow.
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// Starter запускает executions. Реализуется engine.Runner.
type Starter interface {
	// Start запускает workflow асинхронно.
	Start(ctx context.Context, workflow *domain.Workflow, version string,
		inputs map[string]any, triggeredBy string) (*domain.Execution, error)

	// Run запускает workflow и дожидается завершения.
	Run(ctx context.Context, workflow *domain.Workflow, version string,
		inputs map[string]any, triggeredBy string) (*domain.Execution, error)
}

// Activator — общий механизм срабатывания триггера.
//
// Объединяет то, что одинаково для всех типов: слияние входных
// параметров с DefaultInputs, запуск workflow, обновление статистики
// под per-trigger блокировкой и автоотключение по MaxExecutions.
type Activator struct {
	triggers  TriggerStore
	workflows WorkflowStore
	runner    Starter
	logger    *slog.Logger
	locks     *keyedLocks
}

// ActivatorConfig — конфигурация Activator.
type ActivatorConfig struct {
	// Triggers — хранилище триггеров.
	Triggers TriggerStore

	// Workflows — доступ к workflow.
	Workflows WorkflowStore

	// Runner — запуск executions.
	Runner Starter

	// Logger — логгер.
	Logger *slog.Logger
}

// NewActivator создаёт Activator.
func NewActivator(cfg ActivatorConfig) *Activator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Activator{
		triggers:  cfg.Triggers,
		workflows: cfg.Workflows,
		runner:    cfg.Runner,
		logger:    logger,
		locks:     newKeyedLocks(),
	}
}

// Fire активирует триггер: запускает workflow и записывает статистику.
//
// inputs накладываются поверх DefaultInputs триггера. При sync=true
// вызов блокируется до завершения execution (webhook в синхронном
// режиме), иначе возвращается сразу после создания execution.
func (a *Activator) Fire(ctx context.Context, trig *domain.Trigger, inputs map[string]any, sync bool) (*domain.Execution, error) {
	if !trig.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrTriggerDisabled, trig.ID)
	}

	workflow, err := a.workflows.GetByID(ctx, trig.WorkflowID)
	if err != nil {
		a.recordFailure(ctx, trig)
		return nil, fmt.Errorf("get workflow %s: %w", trig.WorkflowID, err)
	}

	merged := mergeInputs(trig.DefaultInputs, inputs)
	triggeredBy := fmt.Sprintf("trigger:%s", trig.ID)

	var execution *domain.Execution
	if sync {
		execution, err = a.runner.Run(ctx, workflow, "", merged, triggeredBy)
	} else {
		execution, err = a.runner.Start(ctx, workflow, "", merged, triggeredBy)
	}
	if err != nil {
		a.recordFailure(ctx, trig)
		return nil, fmt.Errorf("start workflow %s: %w", trig.WorkflowID, err)
	}

	telemetry.TriggerFires.WithLabelValues(string(trig.Type)).Inc()
	a.recordSuccess(ctx, trig, execution.ID)

	a.logger.Info("trigger fired",
		"trigger_id", trig.ID,
		"trigger_type", trig.Type,
		"workflow_id", trig.WorkflowID,
		"execution_id", execution.ID,
	)

	return execution, nil
}

// recordSuccess обновляет статистику триггера после успешного запуска.
// По достижении MaxExecutions триггер автоматически выключается.
func (a *Activator) recordSuccess(ctx context.Context, trig *domain.Trigger, executionID uuid.UUID) {
	unlock := a.locks.Lock(trig.ID)
	defer unlock()

	trig.RecordExecution(executionID, "SUCCESS")

	if trig.Config.MaxExecutions > 0 && trig.ExecutionCount >= trig.Config.MaxExecutions {
		trig.Disable()
		a.logger.Info("trigger disabled: max executions reached",
			"trigger_id", trig.ID,
			"execution_count", trig.ExecutionCount,
		)
	}

	if err := a.triggers.Update(ctx, trig); err != nil {
		a.logger.Error("update trigger stats failed",
			"trigger_id", trig.ID,
			"error", err,
		)
	}
}

// recordFailure фиксирует неудачное срабатывание.
func (a *Activator) recordFailure(ctx context.Context, trig *domain.Trigger) {
	unlock := a.locks.Lock(trig.ID)
	defer unlock()

	trig.RecordFailure()
	if err := a.triggers.Update(ctx, trig); err != nil {
		a.logger.Error("update trigger stats failed",
			"trigger_id", trig.ID,
			"error", err,
		)
	}
}

// mergeInputs накладывает overrides поверх defaults.
func mergeInputs(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
