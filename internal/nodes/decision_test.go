package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Orbita/internal/domain"
)

func decisionNode(config map[string]any) *domain.Node {
	return &domain.Node{
		ID:     "decide",
		Type:   domain.NodeTypeDecision,
		Config: config,
	}
}

func TestDecisionThreshold(t *testing.T) {
	exec := NewDecisionExecutor()

	node := decisionNode(map[string]any{
		"condition_type": "threshold",
		"field":          "ndvi.result.mean",
		"operator":       "gte",
		"value":          0.4,
	})

	tests := []struct {
		name string
		mean float64
		want bool
	}{
		{"above threshold", 0.62, true},
		{"at threshold", 0.4, true},
		{"below threshold", 0.13, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := &Input{Values: map[string]any{
				"ndvi": map[string]any{
					"result": map[string]any{"mean": tt.mean},
				},
			}}

			result, err := exec.Execute(context.Background(), node, input)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if got := result.Outputs["decision"]; got != tt.want {
				t.Errorf("decision = %v, want %v", got, tt.want)
			}
			wantPath := "false"
			if tt.want {
				wantPath = "true"
			}
			if got := result.Outputs["path"]; got != wantPath {
				t.Errorf("path = %v, want %s", got, wantPath)
			}
		})
	}
}

func TestDecisionComparisonOperators(t *testing.T) {
	exec := NewDecisionExecutor()

	tests := []struct {
		name     string
		operator string
		actual   any
		expected any
		want     bool
	}{
		{"eq numbers", "eq", 5, 5.0, true}, // JSON приводит числа к float64
		{"eq strings", "eq", "sentinel-2", "sentinel-2", true},
		{"neq", "neq", "landsat-8", "sentinel-2", true},
		{"gt", "gt", 10.0, 3.0, true},
		{"lt false", "lt", 10.0, 3.0, false},
		{"lte equal", "lte", 3.0, 3.0, true},
		{"contains", "contains", "S2A_MSIL2A_20240601", "MSIL2A", true},
		{"contains miss", "contains", "S2A_MSIL2A", "L1C", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := decisionNode(map[string]any{
				"condition_type": "comparison",
				"field":          "probe",
				"operator":       tt.operator,
				"value":          tt.expected,
			})
			input := &Input{Values: map[string]any{"probe": tt.actual}}

			result, err := exec.Execute(context.Background(), node, input)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if got := result.Outputs["decision"]; got != tt.want {
				t.Errorf("decision = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecisionDataCheck(t *testing.T) {
	exec := NewDecisionExecutor()

	node := decisionNode(map[string]any{
		"condition_type": "data_check",
		"field":          "scene",
	})

	withField := &Input{Values: map[string]any{"scene": map[string]any{"id": "S2A"}}}
	result, err := exec.Execute(context.Background(), node, withField)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Outputs["decision"] != true {
		t.Error("expected decision=true when field is present")
	}

	withoutField := &Input{Values: map[string]any{}}
	result, err = exec.Execute(context.Background(), node, withoutField)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Outputs["decision"] != false {
		t.Error("expected decision=false when field is absent")
	}
}

func TestDecisionExpression(t *testing.T) {
	exec := NewDecisionExecutor()

	values := map[string]any{
		"ndvi": map[string]any{
			"result": map[string]any{"mean": 0.62},
		},
		"load": map[string]any{
			"scene": map[string]any{"status": "ready"},
		},
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"numeric gte", "ndvi.result.mean >= 0.4", true},
		{"numeric lt", "ndvi.result.mean < 0.4", false},
		{"string eq single quotes", "load.scene.status == 'ready'", true},
		{"string neq", "load.scene.status != \"ready\"", false},
		{"variable reference form", "${ndvi.result.mean} > 0.5", true},
		{"contains", "load.scene.status contains 'rea'", true},
		{"literal booleans", "true == true", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := decisionNode(map[string]any{
				"condition_type": "expression",
				"expression":     tt.expr,
			})

			result, err := exec.Execute(context.Background(), node, &Input{Values: values})
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if got := result.Outputs["decision"]; got != tt.want {
				t.Errorf("decision = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecisionExpressionUnresolvedVariable(t *testing.T) {
	exec := NewDecisionExecutor()

	node := decisionNode(map[string]any{
		"condition_type": "expression",
		"expression":     "missing.field > 0.5",
	})

	result, err := exec.Execute(context.Background(), node, &Input{Values: map[string]any{}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Outputs["decision"] != false {
		t.Error("expected decision=false for unresolvable operand")
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning about the unresolvable operand")
	}
}

func TestDecisionExpressionMalformed(t *testing.T) {
	exec := NewDecisionExecutor()

	for _, expr := range []string{"ndvi.mean", "a ~ b", "a > b c"} {
		node := decisionNode(map[string]any{
			"condition_type": "expression",
			"expression":     expr,
		})
		if err := exec.ValidateConfig(node); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("ValidateConfig(%q): expected ErrInvalidConfig, got %v", expr, err)
		}
		if _, err := exec.Execute(context.Background(), node, &Input{Values: map[string]any{}}); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Execute(%q): expected ErrInvalidConfig, got %v", expr, err)
		}
	}
}

func TestDecisionMissingField(t *testing.T) {
	exec := NewDecisionExecutor()

	node := decisionNode(map[string]any{
		"condition_type": "threshold",
		"field":          "missing.value",
		"operator":       "gt",
		"value":          1.0,
	})

	_, err := exec.Execute(context.Background(), node, &Input{Values: map[string]any{}})
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
}

func TestDecisionValidateConfig(t *testing.T) {
	exec := NewDecisionExecutor()

	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{
			name: "valid",
			config: map[string]any{
				"condition_type": "comparison",
				"field":          "x",
				"operator":       "eq",
				"value":          1,
			},
			wantErr: false,
		},
		{
			name:    "missing condition_type",
			config:  map[string]any{"field": "x"},
			wantErr: true,
		},
		{
			name: "unknown condition_type",
			config: map[string]any{
				"condition_type": "regex",
				"field":          "x",
			},
			wantErr: true,
		},
		{
			name:    "missing field",
			config:  map[string]any{"condition_type": "data_check"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exec.ValidateConfig(decisionNode(tt.config))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	values := map[string]any{
		"scene_id": "S2A",
		"ndvi.result": map[string]any{
			"mean": 0.5,
		},
		"ndvi": map[string]any{
			"result": map[string]any{
				"mean": 0.62,
			},
		},
	}

	// буквальный ключ имеет приоритет над точечным путём
	if v, ok := Lookup(values, "ndvi.result"); !ok {
		t.Fatal("expected literal key to resolve")
	} else if m, ok := v.(map[string]any); !ok || m["mean"] != 0.5 {
		t.Errorf("literal key returned %v", v)
	}

	v, ok := Lookup(values, "ndvi.result.mean")
	if !ok {
		t.Fatal("expected dotted path to resolve")
	}
	if v != 0.62 {
		t.Errorf("dotted path returned %v, want 0.62", v)
	}

	if _, ok := Lookup(values, "scene_id.nested"); ok {
		t.Error("expected lookup through non-map to fail")
	}
	if _, ok := Lookup(values, "absent"); ok {
		t.Error("expected absent key to fail")
	}
}
