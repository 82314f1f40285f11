package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/retry"
)

func TestDefaultRegistryCoversAllTypes(t *testing.T) {
	r := DefaultRegistry(Config{Logger: slog.Default()})

	for _, nodeType := range []domain.NodeType{
		domain.NodeTypeTrigger,
		domain.NodeTypeDataInput,
		domain.NodeTypeProcessing,
		domain.NodeTypeDecision,
		domain.NodeTypeOutput,
	} {
		exec, err := r.Get(nodeType)
		if err != nil {
			t.Errorf("Get(%s) failed: %v", nodeType, err)
			continue
		}
		if exec.Type() != nodeType {
			t.Errorf("executor for %s reports type %s", nodeType, exec.Type())
		}
	}

	if got := len(r.Types()); got != 5 {
		t.Errorf("Types() returned %d entries, want 5", got)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(domain.NodeTypeProcessing)
	if !errors.Is(err, ErrExecutorNotFound) {
		t.Errorf("expected ErrExecutorNotFound, got %v", err)
	}
	if r.Has(domain.NodeTypeProcessing) {
		t.Error("Has() reported executor in empty registry")
	}
}

type stubExecutor struct {
	nodeType domain.NodeType
}

func (s *stubExecutor) Type() domain.NodeType                    { return s.nodeType }
func (s *stubExecutor) ValidateConfig(node *domain.Node) error   { return nil }
func (s *stubExecutor) Execute(ctx context.Context, node *domain.Node, input *Input) (*Result, error) {
	return NewResult(map[string]any{"stub": true}), nil
}

func TestRegistryRegisterOverrides(t *testing.T) {
	r := DefaultRegistry(Config{Logger: slog.Default()})

	stub := &stubExecutor{nodeType: domain.NodeTypeProcessing}
	r.Register(stub)

	exec, err := r.Get(domain.NodeTypeProcessing)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if exec != stub {
		t.Error("expected Register to override existing executor")
	}
}

func TestTriggerExecutorOutputs(t *testing.T) {
	exec := NewTriggerExecutor()

	node := &domain.Node{
		ID:     "start",
		Type:   domain.NodeTypeTrigger,
		Config: map[string]any{"trigger_type": "SCHEDULED"},
	}
	input := &Input{TriggeredBy: "scheduler"}

	result, err := exec.Execute(context.Background(), node, input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Outputs["triggered"] != true {
		t.Error("expected triggered=true")
	}
	if result.Outputs["trigger_type"] != "SCHEDULED" {
		t.Errorf("trigger_type = %v", result.Outputs["trigger_type"])
	}
	if result.Outputs["triggered_by"] != "scheduler" {
		t.Errorf("triggered_by = %v", result.Outputs["triggered_by"])
	}
}

func TestDataInputInline(t *testing.T) {
	exec := NewDataInputExecutor(nil, nil, slog.Default())

	node := &domain.Node{
		ID:   "input",
		Type: domain.NodeTypeDataInput,
		Config: map[string]any{
			"data_source": "inline",
			"data":        map[string]any{"collection": "sentinel-2"},
		},
	}

	result, err := exec.Execute(context.Background(), node, &Input{Values: map[string]any{}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	data, ok := result.Outputs["data"].(map[string]any)
	if !ok || data["collection"] != "sentinel-2" {
		t.Errorf("unexpected inline data: %v", result.Outputs["data"])
	}
}

func TestDataInputDoesNotMutateConfig(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(map[string]any{"id": "S2A"})
	}))
	defer srv.Close()

	client := NewServiceClient(ClientConfig{CatalogURL: srv.URL})
	retries := retry.NewHandler(retry.NewPolicies(), slog.Default())
	exec := NewDataInputExecutor(client, retries, slog.Default())

	// Конфигурация версии общая для параллельных executions:
	// дополнение запроса параметрами запуска не должно её менять
	node := &domain.Node{
		ID:   "input",
		Type: domain.NodeTypeDataInput,
		Config: map[string]any{
			"data_source": "catalog",
			"query":       map[string]any{"collection": "sentinel-2"},
		},
	}
	input := &Input{Values: map[string]any{"scene_id": "S2A_MSIL2A_20240601"}}

	if _, err := exec.Execute(context.Background(), node, input); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if received["scene_id"] != "S2A_MSIL2A_20240601" {
		t.Errorf("catalog query missing runtime scene_id: %v", received)
	}

	query := node.Config["query"].(map[string]any)
	if _, ok := query["scene_id"]; ok {
		t.Error("node config query was mutated by execution")
	}
	if len(query) != 1 || query["collection"] != "sentinel-2" {
		t.Errorf("node config query changed: %v", query)
	}
}

func TestDataInputValidateConfig(t *testing.T) {
	exec := NewDataInputExecutor(nil, nil, slog.Default())

	err := exec.ValidateConfig(&domain.Node{ID: "n", Config: map[string]any{}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for missing data_source, got %v", err)
	}

	err = exec.ValidateConfig(&domain.Node{ID: "n", Config: map[string]any{"data_source": "ftp"}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown data_source, got %v", err)
	}
}

func TestOutputInlinePassthrough(t *testing.T) {
	exec := NewOutputExecutor(nil, nil, slog.Default())

	node := &domain.Node{
		ID:     "report",
		Type:   domain.NodeTypeOutput,
		Config: map[string]any{"destination": "inline"},
	}
	input := &Input{Values: map[string]any{"ndvi.result": 0.62}}

	result, err := exec.Execute(context.Background(), node, input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	data, ok := result.Outputs["data"].(map[string]any)
	if !ok || data["ndvi.result"] != 0.62 {
		t.Errorf("unexpected output data: %v", result.Outputs["data"])
	}
}
