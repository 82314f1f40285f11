package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/graph"
	"github.com/shaiso/Orbita/internal/nodes"
	"github.com/shaiso/Orbita/internal/telemetry"
)

// Engine — движок последовательного выполнения workflow.
//
// Движок не ходит в хранилище: он получает execution и версию workflow,
// выполняет узлы в детерминированном топологическом порядке и мутирует
// execution (журнал, результаты, статус). Персистентность — забота
// Runner.
type Engine struct {
	registry *nodes.Registry
	logger   *slog.Logger
}

// Config — конфигурация Engine.
type Config struct {
	// Registry — реестр исполнителей узлов.
	Registry *nodes.Registry

	// Logger — логгер.
	Logger *slog.Logger
}

// NewEngine создаёт Engine.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry: cfg.Registry,
		logger:   logger,
	}
}

// Run выполняет execution по заданной версии workflow.
//
// Узлы выполняются строго последовательно в порядке graph.Order.
// DECISION узлы отсекают ветку: рёбра невыбранной ветки блокируются,
// и узел пропускается, если ВСЕ его входящие рёбра заблокированы или
// ведут из пропущенных узлов. Пропуск ветки не мешает execution
// завершиться со статусом COMPLETED.
//
// При ошибке узла execution переходит в FAILED, оставшиеся узлы не
// выполняются. При отмене контекста — в CANCELLED между узлами.
func (e *Engine) Run(ctx context.Context, execution *domain.Execution, version *domain.WorkflowVersion) error {
	if err := graph.Validate(version.Nodes, version.Edges); err != nil {
		execution.AppendLog("", domain.LogLevelError, fmt.Sprintf("graph validation failed: %v", err))
		execution.MarkFailed(err.Error())
		return fmt.Errorf("validate graph: %w", err)
	}

	order, err := graph.Order(version.Nodes, version.Edges)
	if err != nil {
		execution.AppendLog("", domain.LogLevelError, fmt.Sprintf("ordering failed: %v", err))
		execution.MarkFailed(err.Error())
		return fmt.Errorf("order graph: %w", err)
	}

	if execution.StartedAt == nil {
		execution.MarkRunning()
	}
	if execution.Results == nil {
		execution.Results = make(map[string]map[string]any, len(order))
	}
	execution.AppendLog("", domain.LogLevelInfo,
		fmt.Sprintf("execution started: %d nodes, version %s", len(order), version.Version))

	// Состояние отсечения веток: заблокированные рёбра и пропущенные узлы
	blocked := make(map[string]bool)
	skipped := make(map[string]bool)

	for i := range order {
		node := &order[i]

		select {
		case <-ctx.Done():
			execution.AppendLog(node.ID, domain.LogLevelWarn, "execution cancelled")
			execution.MarkCancelled()
			return ctx.Err()
		default:
		}

		if e.shouldSkip(node.ID, version.Edges, blocked, skipped) {
			skipped[node.ID] = true
			execution.AppendLog(node.ID, domain.LogLevelInfo, "node skipped: branch not taken")
			continue
		}

		if err := e.runNode(ctx, execution, version, node, blocked); err != nil {
			return err
		}
	}

	execution.MarkCompleted()
	execution.AppendLog("", domain.LogLevelInfo, "execution completed")
	return nil
}

// runNode выполняет один узел и обновляет состояние execution.
func (e *Engine) runNode(
	ctx context.Context,
	execution *domain.Execution,
	version *domain.WorkflowVersion,
	node *domain.Node,
	blocked map[string]bool,
) error {
	exec, err := e.registry.Get(node.Type)
	if err != nil {
		execution.AppendLog(node.ID, domain.LogLevelError, err.Error())
		execution.MarkFailed(err.Error())
		return fmt.Errorf("node %s: %w", node.ID, err)
	}

	if err := exec.ValidateConfig(node); err != nil {
		execution.AppendLog(node.ID, domain.LogLevelError, fmt.Sprintf("invalid config: %v", err))
		execution.MarkFailed(err.Error())
		return fmt.Errorf("node %s: %w", node.ID, err)
	}

	input := &nodes.Input{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		TriggeredBy: execution.TriggeredBy,
		Values:      ResolveInputs(execution.Inputs, node, version.Edges, execution.Results),
	}

	execution.AppendLog(node.ID, domain.LogLevelInfo, fmt.Sprintf("node started: %s", node.Type))

	started := time.Now()
	result, err := exec.Execute(ctx, node, input)
	telemetry.NodeDuration.WithLabelValues(string(node.Type)).Observe(time.Since(started).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			execution.AppendLog(node.ID, domain.LogLevelWarn, "execution cancelled")
			execution.MarkCancelled()
			return ctx.Err()
		}
		msg := fmt.Sprintf("node %s failed: %v", node.ID, err)
		execution.AppendLog(node.ID, domain.LogLevelError, msg)
		execution.MarkFailed(msg)
		e.logger.Error("node execution failed",
			"execution_id", execution.ID,
			"node_id", node.ID,
			"error", err,
		)
		return fmt.Errorf("node %s: %w", node.ID, err)
	}

	execution.Results[node.ID] = result.Outputs
	for _, warning := range result.Warnings {
		execution.AppendLog(node.ID, domain.LogLevelWarn, warning)
	}
	execution.AppendLog(node.ID, domain.LogLevelInfo, "node completed")

	if node.Type == domain.NodeTypeDecision {
		e.pruneBranches(execution, version.Edges, node.ID, result.Outputs, blocked)
	}

	return nil
}

// pruneBranches блокирует рёбра невыбранной ветки DECISION узла.
//
// Рёбра с меткой противоположной ветки блокируются всегда; рёбра без
// метки считаются веткой "true" и блокируются при отрицательном решении.
func (e *Engine) pruneBranches(
	execution *domain.Execution,
	edges []domain.Edge,
	nodeID string,
	outputs map[string]any,
	blocked map[string]bool,
) {
	decision, _ := outputs["decision"].(bool)

	taken := branchFalse
	notTaken := branchTrue
	if decision {
		taken = branchTrue
		notTaken = branchFalse
	}

	for _, edge := range graph.OutgoingEdges(edges, nodeID) {
		if edge.Label == notTaken || (edge.Label == "" && !decision) {
			blocked[edge.ID] = true
		}
	}

	execution.AppendLog(nodeID, domain.LogLevelInfo, fmt.Sprintf("decision: branch %q taken", taken))
}

// shouldSkip проверяет, нужно ли пропустить узел.
//
// Узел пропускается, если у него есть хотя бы одно входящее ребро и
// ВСЕ входящие рёбра либо заблокированы, либо ведут из пропущенных
// узлов. Узел, достижимый по независимому пути, выполняется.
func (e *Engine) shouldSkip(nodeID string, edges []domain.Edge, blocked, skipped map[string]bool) bool {
	incoming := graph.IncomingEdges(edges, nodeID)
	if len(incoming) == 0 {
		return false
	}
	for _, edge := range incoming {
		if !blocked[edge.ID] && !skipped[edge.Source] {
			return false
		}
	}
	return true
}
