package nodes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/retry"
)

// ProcessingExecutor — исполнитель PROCESSING узлов.
//
// Передаёт данные предшественников сервису обработки снимков
// (вычисление NDVI и других индексов). Вызов идёт через политику
// повторов compute_index.
//
// Конфигурация:
//
//	{
//	    "operation": "ndvi",
//	    "parameters": {"scale": 10}
//	}
type ProcessingExecutor struct {
	client  *ServiceClient
	retries *retry.Handler
	logger  *slog.Logger
}

// NewProcessingExecutor создаёт ProcessingExecutor.
func NewProcessingExecutor(client *ServiceClient, retries *retry.Handler, logger *slog.Logger) *ProcessingExecutor {
	return &ProcessingExecutor{
		client:  client,
		retries: retries,
		logger:  logger,
	}
}

// Type возвращает тип узла.
func (e *ProcessingExecutor) Type() domain.NodeType {
	return domain.NodeTypeProcessing
}

// ValidateConfig проверяет конфигурацию узла.
func (e *ProcessingExecutor) ValidateConfig(node *domain.Node) error {
	if ConfigString(node.Config, "operation") == "" {
		return fmt.Errorf("%w: %s: operation is required", ErrInvalidConfig, node.ID)
	}
	return nil
}

// Execute выполняет узел.
func (e *ProcessingExecutor) Execute(ctx context.Context, node *domain.Node, input *Input) (*Result, error) {
	operation := ConfigString(node.Config, "operation")

	payload := map[string]any{
		"operation":  operation,
		"parameters": ConfigMap(node.Config, "parameters"),
		"inputs":     input.Values,
	}

	var output map[string]any
	err := e.retries.Do(ctx, retry.TaskComputeIndex, node.ID, input.ExecutionID.String(),
		func(ctx context.Context) error {
			var callErr error
			output, callErr = e.client.ComputeIndex(ctx, payload)
			return callErr
		})
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", operation, err)
	}

	e.logger.Debug("processing completed",
		"node_id", node.ID,
		"operation", operation,
		"execution_id", input.ExecutionID,
	)

	result := NewResult(map[string]any{
		"operation": operation,
		"result":    output,
	})

	// Сервис обработки может вернуть предупреждения (частичное покрытие,
	// облачность) — пробрасываем их в журнал execution
	if warnings, ok := output["warnings"].([]any); ok {
		for _, w := range warnings {
			if s, ok := w.(string); ok {
				result.Warnings = append(result.Warnings, s)
			}
		}
	}

	return result, nil
}
