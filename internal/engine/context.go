package engine

import (
	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/graph"
)

// Метки рёбер, зарезервированные под ветки DECISION узлов.
const (
	branchTrue  = "true"
	branchFalse = "false"
)

// ResolveInputs собирает входные данные узла перед выполнением.
//
// База — параметры запуска execution. Поверх них раскладываются выходы
// узлов-предшественников (по входящим рёбрам):
//   - весь выход предшественника доступен под его ID
//   - каждое поле выхода — под ключом "nodeID.field"
//   - если у ребра есть метка-имя (не ветка DECISION), весь выход
//     предшественника дублируется под этой меткой
//
// Выходы пропущенных узлов не попадают во входные данные.
func ResolveInputs(
	inputs map[string]any,
	node *domain.Node,
	edges []domain.Edge,
	results map[string]map[string]any,
) map[string]any {
	values := make(map[string]any, len(inputs))
	for k, v := range inputs {
		values[k] = v
	}

	for _, edge := range graph.IncomingEdges(edges, node.ID) {
		outputs, ok := results[edge.Source]
		if !ok {
			continue
		}

		values[edge.Source] = outputs
		for field, v := range outputs {
			values[edge.Source+"."+field] = v
		}

		if edge.Label != "" && edge.Label != branchTrue && edge.Label != branchFalse {
			values[edge.Label] = outputs
		}
	}

	return values
}
