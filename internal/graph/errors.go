package graph

import "errors"

// Ошибки валидации графа workflow.
var (
	// ErrEmptyNodes — версия не содержит узлов.
	ErrEmptyNodes = errors.New("workflow has no nodes")

	// ErrNoTrigger — в графе нет TRIGGER узла.
	ErrNoTrigger = errors.New("workflow has no trigger node")

	// ErrMultipleTriggers — в графе больше одного TRIGGER узла.
	ErrMultipleTriggers = errors.New("workflow has multiple trigger nodes")

	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNodeType — неизвестный тип узла.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrEmptyEdgeID — ребро не имеет ID.
	ErrEmptyEdgeID = errors.New("edge has empty ID")

	// ErrDuplicateEdgeID — несколько рёбер с одинаковым ID.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrUnknownEndpoint — ребро ссылается на несуществующий узел.
	ErrUnknownEndpoint = errors.New("edge references unknown node")

	// ErrSelfLoop — ребро соединяет узел с самим собой.
	ErrSelfLoop = errors.New("edge forms a self-loop")

	// ErrCycle — обнаружен цикл в графе.
	ErrCycle = errors.New("cycle detected")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	NodeID  string // ID узла или ребра, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
