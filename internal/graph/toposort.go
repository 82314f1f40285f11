package graph

import (
	"github.com/shaiso/Orbita/internal/domain"
)

// Order строит порядок выполнения узлов (алгоритм Кана).
//
// Очередь инициализируется узлами с нулевой входящей степенью в порядке
// их следования в списке узлов; новые готовые узлы добавляются в хвост
// очереди (FIFO). Никакой дополнительной сортировки нет, поэтому для
// одного и того же графа порядок всегда одинаковый.
//
// Предполагается, что граф уже прошёл Validate; оставшийся цикл
// обнаруживается по неполному результату и возвращается ErrCycle.
func Order(nodes []domain.Node, edges []domain.Edge) ([]domain.Node, error) {
	inDegree := make(map[string]int, len(nodes))
	adjacency := make(map[string][]string, len(nodes))
	byID := make(map[string]domain.Node, len(nodes))

	for i := range nodes {
		byID[nodes[i].ID] = nodes[i]
		if _, ok := inDegree[nodes[i].ID]; !ok {
			inDegree[nodes[i].ID] = 0
		}
	}

	for i := range edges {
		adjacency[edges[i].Source] = append(adjacency[edges[i].Source], edges[i].Target)
		inDegree[edges[i].Target]++
	}

	// Очередь заполняется в порядке списка узлов — это и даёт детерминизм.
	queue := make([]string, 0, len(nodes))
	for i := range nodes {
		if inDegree[nodes[i].ID] == 0 {
			queue = append(queue, nodes[i].ID)
		}
	}

	order := make([]domain.Node, 0, len(nodes))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, byID[id])

		for _, next := range adjacency[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл.
	if len(order) != len(nodes) {
		return nil, ErrCycle
	}

	return order, nil
}

// IncomingEdges возвращает входящие рёбра узла в порядке списка рёбер.
func IncomingEdges(edges []domain.Edge, nodeID string) []domain.Edge {
	var in []domain.Edge
	for i := range edges {
		if edges[i].Target == nodeID {
			in = append(in, edges[i])
		}
	}
	return in
}

// OutgoingEdges возвращает исходящие рёбра узла в порядке списка рёбер.
func OutgoingEdges(edges []domain.Edge, nodeID string) []domain.Edge {
	var out []domain.Edge
	for i := range edges {
		if edges[i].Source == nodeID {
			out = append(out, edges[i])
		}
	}
	return out
}
