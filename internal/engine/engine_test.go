package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/graph"
	"github.com/shaiso/Orbita/internal/nodes"
)

// fakeExecutor — управляемый исполнитель для тестов движка.
type fakeExecutor struct {
	nodeType  domain.NodeType
	outputs   map[string]any
	warnings  []string
	err       error
	onExecute func(node *domain.Node, input *nodes.Input)
	calls     []string
}

func (f *fakeExecutor) Type() domain.NodeType                  { return f.nodeType }
func (f *fakeExecutor) ValidateConfig(node *domain.Node) error { return nil }

func (f *fakeExecutor) Execute(ctx context.Context, node *domain.Node, input *nodes.Input) (*nodes.Result, error) {
	f.calls = append(f.calls, node.ID)
	if f.onExecute != nil {
		f.onExecute(node, input)
	}
	if f.err != nil {
		return nil, f.err
	}
	result := nodes.NewResult(f.outputs)
	result.Warnings = f.warnings
	return result, nil
}

// testRegistry собирает реестр: настоящие TRIGGER/DECISION исполнители
// плюс подставные для остальных типов.
func testRegistry(fakes ...*fakeExecutor) *nodes.Registry {
	r := nodes.NewRegistry()
	r.Register(nodes.NewTriggerExecutor())
	r.Register(nodes.NewDecisionExecutor())
	for _, f := range fakes {
		r.Register(f)
	}
	return r
}

func testEngine(registry *nodes.Registry) *Engine {
	return NewEngine(Config{Registry: registry, Logger: slog.Default()})
}

func newExecution(workflowID uuid.UUID, inputs map[string]any) *domain.Execution {
	return &domain.Execution{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Version:    "v1",
		Status:     domain.ExecutionStatusPending,
		Inputs:     inputs,
	}
}

func TestEngineLinearRun(t *testing.T) {
	input := &fakeExecutor{
		nodeType: domain.NodeTypeDataInput,
		outputs:  map[string]any{"scene": map[string]any{"id": "S2A"}},
	}
	processing := &fakeExecutor{
		nodeType: domain.NodeTypeProcessing,
		outputs:  map[string]any{"result": map[string]any{"mean": 0.62}},
		warnings: []string{"partial cloud cover"},
	}
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
	}

	version := &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeTrigger},
			{ID: "load", Type: domain.NodeTypeDataInput},
			{ID: "ndvi", Type: domain.NodeTypeProcessing},
			{ID: "store", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "load"},
			{ID: "e2", Source: "load", Target: "ndvi"},
			{ID: "e3", Source: "ndvi", Target: "store"},
		},
	}

	execution := newExecution(uuid.New(), map[string]any{"scene_id": "S2A"})
	eng := testEngine(testRegistry(input, processing, output))

	if err := eng.Run(context.Background(), execution, version); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if execution.Status != domain.ExecutionStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", execution.Status)
	}
	for _, nodeID := range []string{"start", "load", "ndvi", "store"} {
		if _, ok := execution.Results[nodeID]; !ok {
			t.Errorf("missing result for node %s", nodeID)
		}
	}
	if execution.CompletedAt == nil || execution.StartedAt == nil {
		t.Error("expected timestamps to be set")
	}

	// предупреждение узла попадает в журнал с уровнем WARN
	foundWarning := false
	for _, log := range execution.Logs {
		if log.Level == domain.LogLevelWarn && log.Message == "partial cloud cover" {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Error("expected node warning in execution log")
	}
}

func TestEngineInputsReachDownstream(t *testing.T) {
	processing := &fakeExecutor{
		nodeType: domain.NodeTypeProcessing,
		outputs:  map[string]any{"result": map[string]any{"mean": 0.62}},
	}

	var seen map[string]any
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
		onExecute: func(node *domain.Node, input *nodes.Input) {
			seen = input.Values
		},
	}

	version := &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeTrigger},
			{ID: "ndvi", Type: domain.NodeTypeProcessing},
			{ID: "store", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "ndvi"},
			{ID: "e2", Source: "ndvi", Target: "store", Label: "index"},
		},
	}

	execution := newExecution(uuid.New(), map[string]any{"scene_id": "S2A"})
	eng := testEngine(testRegistry(processing, output))

	if err := eng.Run(context.Background(), execution, version); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if seen["scene_id"] != "S2A" {
		t.Error("workflow inputs not propagated to node")
	}
	if _, ok := seen["ndvi"]; !ok {
		t.Error("predecessor outputs not available under node ID")
	}
	if _, ok := seen["ndvi.result"]; !ok {
		t.Error("predecessor outputs not available under dotted key")
	}
	if _, ok := seen["index"]; !ok {
		t.Error("predecessor outputs not available under edge label")
	}
}

func TestEngineDecisionPruning(t *testing.T) {
	processing := &fakeExecutor{
		nodeType: domain.NodeTypeProcessing,
		outputs:  map[string]any{"result": map[string]any{"mean": 0.13}},
	}
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
	}

	version := &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeTrigger},
			{ID: "ndvi", Type: domain.NodeTypeProcessing},
			{ID: "check", Type: domain.NodeTypeDecision, Config: map[string]any{
				"condition_type": "threshold",
				"field":          "ndvi.result.mean",
				"operator":       "gte",
				"value":          0.4,
			}},
			{ID: "report-healthy", Type: domain.NodeTypeOutput},
			{ID: "report-stressed", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "ndvi"},
			{ID: "e2", Source: "ndvi", Target: "check"},
			{ID: "e3", Source: "check", Target: "report-healthy", Label: "true"},
			{ID: "e4", Source: "check", Target: "report-stressed", Label: "false"},
		},
	}

	execution := newExecution(uuid.New(), nil)
	eng := testEngine(testRegistry(processing, output))

	if err := eng.Run(context.Background(), execution, version); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if execution.Status != domain.ExecutionStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", execution.Status)
	}
	if _, ok := execution.Results["report-healthy"]; ok {
		t.Error("true branch should have been skipped")
	}
	if _, ok := execution.Results["report-stressed"]; !ok {
		t.Error("false branch should have been executed")
	}

	foundSkip := false
	for _, log := range execution.Logs {
		if log.NodeID == "report-healthy" && log.Message == "node skipped: branch not taken" {
			foundSkip = true
		}
	}
	if !foundSkip {
		t.Error("expected skip entry in execution log")
	}
}

func TestEngineSkipPropagatesDownstream(t *testing.T) {
	processing := &fakeExecutor{
		nodeType: domain.NodeTypeProcessing,
		outputs:  map[string]any{"result": map[string]any{"mean": 0.9}},
	}
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
	}

	// За узлом невыбранной ветки стоит ещё один узел — он тоже
	// должен быть пропущен
	version := &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeTrigger},
			{ID: "ndvi", Type: domain.NodeTypeProcessing},
			{ID: "check", Type: domain.NodeTypeDecision, Config: map[string]any{
				"condition_type": "threshold",
				"field":          "ndvi.result.mean",
				"operator":       "gte",
				"value":          0.4,
			}},
			{ID: "alert", Type: domain.NodeTypeProcessing},
			{ID: "notify", Type: domain.NodeTypeOutput},
			{ID: "archive", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "ndvi"},
			{ID: "e2", Source: "ndvi", Target: "check"},
			{ID: "e3", Source: "check", Target: "alert", Label: "false"},
			{ID: "e4", Source: "alert", Target: "notify"},
			{ID: "e5", Source: "check", Target: "archive", Label: "true"},
		},
	}

	execution := newExecution(uuid.New(), nil)
	eng := testEngine(testRegistry(processing, output))

	if err := eng.Run(context.Background(), execution, version); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, ok := execution.Results["alert"]; ok {
		t.Error("false branch node should have been skipped")
	}
	if _, ok := execution.Results["notify"]; ok {
		t.Error("downstream of skipped node should have been skipped")
	}
	if _, ok := execution.Results["archive"]; !ok {
		t.Error("taken branch should have been executed")
	}
}

func TestEngineIndependentPathNotPruned(t *testing.T) {
	processing := &fakeExecutor{
		nodeType: domain.NodeTypeProcessing,
		outputs:  map[string]any{"result": map[string]any{"mean": 0.9}},
	}
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
	}

	// store достижим и по невыбранной ветке, и по независимому пути
	// от ndvi — независимый путь сохраняет узел
	version := &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeTrigger},
			{ID: "ndvi", Type: domain.NodeTypeProcessing},
			{ID: "check", Type: domain.NodeTypeDecision, Config: map[string]any{
				"condition_type": "threshold",
				"field":          "ndvi.result.mean",
				"operator":       "gte",
				"value":          0.4,
			}},
			{ID: "store", Type: domain.NodeTypeOutput},
			{ID: "archive", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "ndvi"},
			{ID: "e2", Source: "ndvi", Target: "check"},
			{ID: "e3", Source: "check", Target: "store", Label: "false"},
			{ID: "e4", Source: "ndvi", Target: "store"},
			{ID: "e5", Source: "check", Target: "archive", Label: "true"},
		},
	}

	execution := newExecution(uuid.New(), nil)
	eng := testEngine(testRegistry(processing, output))

	if err := eng.Run(context.Background(), execution, version); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, ok := execution.Results["store"]; !ok {
		t.Error("node reachable via independent path should have been executed")
	}
}

func TestEngineRejectsEmptyEdgeIDs(t *testing.T) {
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
	}

	// Отсечение веток адресует рёбра по ID: граф с пустыми ID рёбер
	// не должен дойти до выполнения, иначе блокировка одного ребра
	// накрыла бы независимый путь
	version := &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeTrigger},
			{ID: "check", Type: domain.NodeTypeDecision, Config: map[string]any{
				"condition_type": "data_check",
				"field":          "missing",
			}},
			{ID: "on-true", Type: domain.NodeTypeOutput},
			{ID: "independent", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "", Source: "start", Target: "check"},
			{ID: "", Source: "check", Target: "on-true", Label: "true"},
			{ID: "", Source: "start", Target: "independent"},
		},
	}

	execution := newExecution(uuid.New(), nil)
	eng := testEngine(testRegistry(output))

	err := eng.Run(context.Background(), execution, version)
	if !errors.Is(err, graph.ErrEmptyEdgeID) {
		t.Fatalf("expected ErrEmptyEdgeID, got %v", err)
	}
	if execution.Status != domain.ExecutionStatusFailed {
		t.Errorf("status = %s, want FAILED", execution.Status)
	}
	if len(execution.Results) != 0 {
		t.Errorf("no node should have executed, got results for %d nodes", len(execution.Results))
	}
}

func TestEngineNodeFailure(t *testing.T) {
	processing := &fakeExecutor{
		nodeType: domain.NodeTypeProcessing,
		err:      fmt.Errorf("processing service unavailable"),
	}
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
	}

	version := &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeTrigger},
			{ID: "ndvi", Type: domain.NodeTypeProcessing},
			{ID: "store", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "ndvi"},
			{ID: "e2", Source: "ndvi", Target: "store"},
		},
	}

	execution := newExecution(uuid.New(), nil)
	eng := testEngine(testRegistry(processing, output))

	err := eng.Run(context.Background(), execution, version)
	if err == nil {
		t.Fatal("expected Run to fail")
	}
	if execution.Status != domain.ExecutionStatusFailed {
		t.Errorf("status = %s, want FAILED", execution.Status)
	}
	if execution.Error == "" {
		t.Error("expected execution error to be set")
	}
	if len(output.calls) != 0 {
		t.Error("downstream node should not execute after failure")
	}
}

func TestEngineCancellationBetweenNodes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Отмена приходит во время выполнения узла и срабатывает перед
	// следующим узлом
	processing := &fakeExecutor{
		nodeType: domain.NodeTypeProcessing,
		outputs:  map[string]any{"result": map[string]any{"mean": 0.5}},
		onExecute: func(node *domain.Node, input *nodes.Input) {
			cancel()
		},
	}
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
	}

	version := &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeTrigger},
			{ID: "ndvi", Type: domain.NodeTypeProcessing},
			{ID: "store", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "ndvi"},
			{ID: "e2", Source: "ndvi", Target: "store"},
		},
	}

	execution := newExecution(uuid.New(), nil)
	eng := testEngine(testRegistry(processing, output))

	err := eng.Run(ctx, execution, version)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if execution.Status != domain.ExecutionStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", execution.Status)
	}
	if len(output.calls) != 0 {
		t.Error("node after cancellation should not execute")
	}
}

func TestEngineInvalidGraph(t *testing.T) {
	version := &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeTypeTrigger},
			{ID: "b", Type: domain.NodeTypeProcessing},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	}

	execution := newExecution(uuid.New(), nil)
	eng := testEngine(testRegistry())

	if err := eng.Run(context.Background(), execution, version); err == nil {
		t.Fatal("expected validation to fail")
	}
	if execution.Status != domain.ExecutionStatusFailed {
		t.Errorf("status = %s, want FAILED", execution.Status)
	}
}

// --- Runner ---

type memExecutionStore struct {
	mu         sync.Mutex
	executions map[uuid.UUID]*domain.Execution
}

func newMemExecutionStore() *memExecutionStore {
	return &memExecutionStore{executions: make(map[uuid.UUID]*domain.Execution)}
}

func (s *memExecutionStore) Create(ctx context.Context, execution *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *execution
	s.executions[execution.ID] = &snapshot
	return nil
}

func (s *memExecutionStore) Update(ctx context.Context, execution *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *execution
	s.executions[execution.ID] = &snapshot
	return nil
}

func (s *memExecutionStore) get(id uuid.UUID) *domain.Execution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executions[id]
}

type memVersionStore struct {
	version *domain.WorkflowVersion
}

func (s *memVersionStore) GetVersion(ctx context.Context, workflowID uuid.UUID, version string) (*domain.WorkflowVersion, error) {
	if s.version == nil || s.version.Version != version {
		return nil, fmt.Errorf("version %s not found", version)
	}
	return s.version, nil
}

func simpleVersion() *domain.WorkflowVersion {
	return &domain.WorkflowVersion{
		Version: "v1",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeTrigger},
			{ID: "store", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "store"},
		},
	}
}

func publishedWorkflow() *domain.Workflow {
	return &domain.Workflow{
		ID:             uuid.New(),
		Name:           "ndvi-monitor",
		Status:         domain.WorkflowStatusPublished,
		CurrentVersion: "v1",
	}
}

func TestRunnerRunSync(t *testing.T) {
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
	}
	store := newMemExecutionStore()
	runner := NewRunner(RunnerConfig{
		Engine:     testEngine(testRegistry(output)),
		Executions: store,
		Versions:   &memVersionStore{version: simpleVersion()},
		Logger:     slog.Default(),
	})

	workflow := publishedWorkflow()
	execution, err := runner.Run(context.Background(), workflow, "", map[string]any{"k": "v"}, "manual:tester")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if execution.Status != domain.ExecutionStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", execution.Status)
	}
	if execution.Version != "v1" {
		t.Errorf("version = %s, want current version v1", execution.Version)
	}

	persisted := store.get(execution.ID)
	if persisted == nil {
		t.Fatal("execution was not persisted")
	}
	if persisted.Status != domain.ExecutionStatusCompleted {
		t.Errorf("persisted status = %s, want COMPLETED", persisted.Status)
	}
	if runner.Active() != 0 {
		t.Errorf("Active() = %d after completion, want 0", runner.Active())
	}
}

func TestRunnerCallsOnFinished(t *testing.T) {
	output := &fakeExecutor{
		nodeType: domain.NodeTypeOutput,
		outputs:  map[string]any{"stored": true},
	}

	var finished *domain.Execution
	runner := NewRunner(RunnerConfig{
		Engine:     testEngine(testRegistry(output)),
		Executions: newMemExecutionStore(),
		Versions:   &memVersionStore{version: simpleVersion()},
		OnFinished: func(e *domain.Execution) { finished = e },
		Logger:     slog.Default(),
	})

	execution, err := runner.Run(context.Background(), publishedWorkflow(), "", nil, "manual:tester")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if finished == nil {
		t.Fatal("OnFinished was not called")
	}
	if finished.ID != execution.ID {
		t.Errorf("OnFinished got execution %s, want %s", finished.ID, execution.ID)
	}
	if !finished.Status.IsTerminal() {
		t.Errorf("OnFinished got non-terminal status %s", finished.Status)
	}
}

func TestRunnerRejectsDraftWorkflow(t *testing.T) {
	runner := NewRunner(RunnerConfig{
		Engine:     testEngine(testRegistry()),
		Executions: newMemExecutionStore(),
		Versions:   &memVersionStore{version: simpleVersion()},
		Logger:     slog.Default(),
	})

	workflow := publishedWorkflow()
	workflow.Status = domain.WorkflowStatusDraft

	_, err := runner.Run(context.Background(), workflow, "", nil, "manual:tester")
	if !errors.Is(err, ErrNotExecutable) {
		t.Errorf("expected ErrNotExecutable, got %v", err)
	}
}

func TestRunnerUnknownVersion(t *testing.T) {
	runner := NewRunner(RunnerConfig{
		Engine:     testEngine(testRegistry()),
		Executions: newMemExecutionStore(),
		Versions:   &memVersionStore{version: simpleVersion()},
		Logger:     slog.Default(),
	})

	_, err := runner.Run(context.Background(), publishedWorkflow(), "v9", nil, "manual:tester")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestRunnerCancelInactive(t *testing.T) {
	runner := NewRunner(RunnerConfig{
		Engine:     testEngine(testRegistry()),
		Executions: newMemExecutionStore(),
		Versions:   &memVersionStore{version: simpleVersion()},
		Logger:     slog.Default(),
	})

	err := runner.Cancel(uuid.New())
	if !errors.Is(err, ErrExecutionNotActive) {
		t.Errorf("expected ErrExecutionNotActive, got %v", err)
	}
}
