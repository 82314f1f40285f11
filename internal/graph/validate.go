package graph

import (
	"fmt"

	"github.com/shaiso/Orbita/internal/domain"
)

// Validate выполняет полную структурную валидацию графа workflow.
//
// Проверки выполняются в фиксированном порядке, возвращается первая
// найденная ошибка:
//   - Наличие узлов
//   - Уникальность и непустота ID узлов, корректность типов
//   - Ровно один TRIGGER узел
//   - Уникальность и непустота ID рёбер
//   - Рёбра ссылаются на существующие узлы
//   - Отсутствие self-loop рёбер
//   - Отсутствие циклов (трёхцветный DFS)
//
// Validate не имеет побочных эффектов; движок повторяет её перед
// каждым запуском, так как хранилище могло измениться после публикации.
func Validate(nodes []domain.Node, edges []domain.Edge) error {
	if len(nodes) == 0 {
		return ErrEmptyNodes
	}

	nodeIDs := make(map[string]bool, len(nodes))
	triggers := 0

	for i := range nodes {
		node := &nodes[i]

		if node.ID == "" {
			return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
		}
		if nodeIDs[node.ID] {
			return NewValidationError(node.ID, "id",
				fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
		}
		nodeIDs[node.ID] = true

		if !node.Type.IsValid() {
			return NewValidationError(node.ID, "type",
				fmt.Sprintf("unknown node type: %s", node.Type), ErrUnknownNodeType)
		}

		if node.Type == domain.NodeTypeTrigger {
			triggers++
		}
	}

	if triggers == 0 {
		return ErrNoTrigger
	}
	if triggers > 1 {
		return fmt.Errorf("%w: found %d", ErrMultipleTriggers, triggers)
	}

	// ID рёбер проверяются так же строго, как ID узлов: движок
	// адресует рёбра по ID при отсечении веток после DECISION.
	edgeIDs := make(map[string]bool, len(edges))

	for i := range edges {
		edge := &edges[i]

		if edge.ID == "" {
			return NewValidationError("", "id", "edge has empty ID", ErrEmptyEdgeID)
		}
		if edgeIDs[edge.ID] {
			return NewValidationError(edge.ID, "id",
				fmt.Sprintf("duplicate edge ID: %s", edge.ID), ErrDuplicateEdgeID)
		}
		edgeIDs[edge.ID] = true

		if !nodeIDs[edge.Source] {
			return NewValidationError(edge.Source, "source",
				fmt.Sprintf("edge %s references unknown source: %s", edge.ID, edge.Source),
				ErrUnknownEndpoint)
		}
		if !nodeIDs[edge.Target] {
			return NewValidationError(edge.Target, "target",
				fmt.Sprintf("edge %s references unknown target: %s", edge.ID, edge.Target),
				ErrUnknownEndpoint)
		}
		if edge.Source == edge.Target {
			return NewValidationError(edge.Source, "target",
				fmt.Sprintf("edge %s connects node to itself", edge.ID), ErrSelfLoop)
		}
	}

	return detectCycle(nodes, edges)
}

// Цвета узлов для DFS.
const (
	colorWhite = iota // не посещён
	colorGray         // в текущем пути обхода
	colorBlack        // полностью обработан
)

// detectCycle ищет цикл трёхцветным DFS.
// Встреча серого узла означает ребро назад в текущий путь — цикл.
func detectCycle(nodes []domain.Node, edges []domain.Edge) error {
	adjacency := make(map[string][]string, len(nodes))
	for i := range edges {
		adjacency[edges[i].Source] = append(adjacency[edges[i].Source], edges[i].Target)
	}

	colors := make(map[string]int, len(nodes))

	var visit func(id string) error
	visit = func(id string) error {
		colors[id] = colorGray
		for _, next := range adjacency[id] {
			switch colors[next] {
			case colorGray:
				return fmt.Errorf("%w: via node %s", ErrCycle, next)
			case colorWhite:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		colors[id] = colorBlack
		return nil
	}

	for i := range nodes {
		if colors[nodes[i].ID] == colorWhite {
			if err := visit(nodes[i].ID); err != nil {
				return err
			}
		}
	}

	return nil
}
