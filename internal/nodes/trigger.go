package nodes

import (
	"context"
	"time"

	"github.com/shaiso/Orbita/internal/domain"
)

// TriggerExecutor — исполнитель TRIGGER узлов.
//
// Триггерный узел не делает работы: он фиксирует факт и источник
// запуска, его выход доступен остальным узлам графа.
type TriggerExecutor struct{}

// NewTriggerExecutor создаёт TriggerExecutor.
func NewTriggerExecutor() *TriggerExecutor {
	return &TriggerExecutor{}
}

// Type возвращает тип узла.
func (e *TriggerExecutor) Type() domain.NodeType {
	return domain.NodeTypeTrigger
}

// ValidateConfig проверяет конфигурацию узла.
// У триггерного узла нет обязательных полей.
func (e *TriggerExecutor) ValidateConfig(node *domain.Node) error {
	return nil
}

// Execute выполняет узел.
func (e *TriggerExecutor) Execute(ctx context.Context, node *domain.Node, input *Input) (*Result, error) {
	return NewResult(map[string]any{
		"triggered":    true,
		"trigger_type": ConfigString(node.Config, "trigger_type"),
		"triggered_by": input.TriggeredBy,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}), nil
}
