package graph

import (
	"errors"
	"testing"

	"github.com/shaiso/Orbita/internal/domain"
)

func TestValidate_EmptyNodes(t *testing.T) {
	err := Validate(nil, nil)
	if !errors.Is(err, ErrEmptyNodes) {
		t.Errorf("expected ErrEmptyNodes, got %v", err)
	}
}

func TestValidate_NoTrigger(t *testing.T) {
	nodes := []domain.Node{
		{ID: "A", Type: domain.NodeTypeDataInput},
		{ID: "B", Type: domain.NodeTypeOutput},
	}

	err := Validate(nodes, nil)
	if !errors.Is(err, ErrNoTrigger) {
		t.Errorf("expected ErrNoTrigger, got %v", err)
	}
}

func TestValidate_MultipleTriggers(t *testing.T) {
	nodes := []domain.Node{
		{ID: "T1", Type: domain.NodeTypeTrigger},
		{ID: "T2", Type: domain.NodeTypeTrigger},
	}

	err := Validate(nodes, nil)
	if !errors.Is(err, ErrMultipleTriggers) {
		t.Errorf("expected ErrMultipleTriggers, got %v", err)
	}
}

func TestValidate_DuplicateNodeID(t *testing.T) {
	nodes := []domain.Node{
		{ID: "T", Type: domain.NodeTypeTrigger},
		{ID: "T", Type: domain.NodeTypeOutput},
	}

	err := Validate(nodes, nil)
	if !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("expected ErrDuplicateNodeID, got %v", err)
	}
}

func TestValidate_UnknownNodeType(t *testing.T) {
	nodes := []domain.Node{
		{ID: "T", Type: domain.NodeTypeTrigger},
		{ID: "X", Type: "MAGIC"},
	}

	err := Validate(nodes, nil)
	if !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("expected ErrUnknownNodeType, got %v", err)
	}

	// Ошибка должна нести контекст узла
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.NodeID != "X" {
		t.Errorf("expected node X in error, got %s", verr.NodeID)
	}
}

func TestValidate_EmptyEdgeID(t *testing.T) {
	nodes := []domain.Node{
		{ID: "T", Type: domain.NodeTypeTrigger},
		{ID: "A", Type: domain.NodeTypeProcessing},
	}
	edges := []domain.Edge{
		{ID: "", Source: "T", Target: "A"},
	}

	err := Validate(nodes, edges)
	if !errors.Is(err, ErrEmptyEdgeID) {
		t.Errorf("expected ErrEmptyEdgeID, got %v", err)
	}
}

func TestValidate_DuplicateEdgeID(t *testing.T) {
	nodes := []domain.Node{
		{ID: "T", Type: domain.NodeTypeTrigger},
		{ID: "A", Type: domain.NodeTypeProcessing},
		{ID: "B", Type: domain.NodeTypeOutput},
	}
	edges := []domain.Edge{
		{ID: "e1", Source: "T", Target: "A"},
		{ID: "e1", Source: "T", Target: "B"},
	}

	err := Validate(nodes, edges)
	if !errors.Is(err, ErrDuplicateEdgeID) {
		t.Errorf("expected ErrDuplicateEdgeID, got %v", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.NodeID != "e1" {
		t.Errorf("expected edge e1 in error, got %s", verr.NodeID)
	}
}

func TestValidate_UnknownEndpoint(t *testing.T) {
	nodes := []domain.Node{
		{ID: "T", Type: domain.NodeTypeTrigger},
		{ID: "A", Type: domain.NodeTypeProcessing},
	}
	edges := []domain.Edge{
		{ID: "e1", Source: "T", Target: "ghost"},
	}

	err := Validate(nodes, edges)
	if !errors.Is(err, ErrUnknownEndpoint) {
		t.Errorf("expected ErrUnknownEndpoint, got %v", err)
	}
}

func TestValidate_SelfLoop(t *testing.T) {
	nodes := []domain.Node{
		{ID: "T", Type: domain.NodeTypeTrigger},
		{ID: "A", Type: domain.NodeTypeProcessing},
	}
	edges := []domain.Edge{
		{ID: "e1", Source: "A", Target: "A"},
	}

	err := Validate(nodes, edges)
	if !errors.Is(err, ErrSelfLoop) {
		t.Errorf("expected ErrSelfLoop, got %v", err)
	}
}

func TestValidate_Cycle(t *testing.T) {
	// T → A → B → C → A
	nodes := []domain.Node{
		{ID: "T", Type: domain.NodeTypeTrigger},
		{ID: "A", Type: domain.NodeTypeProcessing},
		{ID: "B", Type: domain.NodeTypeProcessing},
		{ID: "C", Type: domain.NodeTypeProcessing},
	}
	edges := []domain.Edge{
		{ID: "e1", Source: "T", Target: "A"},
		{ID: "e2", Source: "A", Target: "B"},
		{ID: "e3", Source: "B", Target: "C"},
		{ID: "e4", Source: "C", Target: "A"},
	}

	err := Validate(nodes, edges)
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestValidate_ValidDiamond(t *testing.T) {
	// T → A → B → D
	//       ↘ C ↗
	nodes := []domain.Node{
		{ID: "T", Type: domain.NodeTypeTrigger},
		{ID: "A", Type: domain.NodeTypeDataInput},
		{ID: "B", Type: domain.NodeTypeProcessing},
		{ID: "C", Type: domain.NodeTypeProcessing},
		{ID: "D", Type: domain.NodeTypeOutput},
	}
	edges := []domain.Edge{
		{ID: "e1", Source: "T", Target: "A"},
		{ID: "e2", Source: "A", Target: "B"},
		{ID: "e3", Source: "A", Target: "C"},
		{ID: "e4", Source: "B", Target: "D"},
		{ID: "e5", Source: "C", Target: "D"},
	}

	if err := Validate(nodes, edges); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_DisconnectedComponentWithCycle(t *testing.T) {
	// Цикл в компоненте, не достижимой из триггера, тоже ошибка
	nodes := []domain.Node{
		{ID: "T", Type: domain.NodeTypeTrigger},
		{ID: "A", Type: domain.NodeTypeProcessing},
		{ID: "B", Type: domain.NodeTypeProcessing},
	}
	edges := []domain.Edge{
		{ID: "e1", Source: "A", Target: "B"},
		{ID: "e2", Source: "B", Target: "A"},
	}

	err := Validate(nodes, edges)
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}
