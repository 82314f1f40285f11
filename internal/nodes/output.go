package nodes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/retry"
)

// Назначения OUTPUT узла.
const (
	destinationStorage = "storage"
	destinationInline  = "inline"
)

// OutputExecutor — исполнитель OUTPUT узлов.
//
// Завершает пайплайн:
//   - "storage" — отправляет результаты предшественников в хранилище
//     проекта (вызов идёт через политику повторов store_result)
//   - "inline" — возвращает результаты как выход узла, ничего не
//     отправляя наружу
type OutputExecutor struct {
	client  *ServiceClient
	retries *retry.Handler
	logger  *slog.Logger
}

// NewOutputExecutor создаёт OutputExecutor.
func NewOutputExecutor(client *ServiceClient, retries *retry.Handler, logger *slog.Logger) *OutputExecutor {
	return &OutputExecutor{
		client:  client,
		retries: retries,
		logger:  logger,
	}
}

// Type возвращает тип узла.
func (e *OutputExecutor) Type() domain.NodeType {
	return domain.NodeTypeOutput
}

// ValidateConfig проверяет конфигурацию узла.
func (e *OutputExecutor) ValidateConfig(node *domain.Node) error {
	dest := ConfigString(node.Config, "destination")
	switch dest {
	case destinationStorage, destinationInline, "":
		// пустое назначение означает inline
		return nil
	default:
		return fmt.Errorf("%w: %s: unknown destination: %s", ErrInvalidConfig, node.ID, dest)
	}
}

// Execute выполняет узел.
func (e *OutputExecutor) Execute(ctx context.Context, node *domain.Node, input *Input) (*Result, error) {
	dest := ConfigString(node.Config, "destination")
	if dest == "" {
		dest = destinationInline
	}

	switch dest {
	case destinationInline:
		return NewResult(map[string]any{
			"destination": destinationInline,
			"data":        input.Values,
		}), nil

	case destinationStorage:
		payload := map[string]any{
			"workflow_id":  input.WorkflowID,
			"execution_id": input.ExecutionID,
			"format":       ConfigString(node.Config, "format"),
			"data":         input.Values,
		}

		var stored map[string]any
		err := e.retries.Do(ctx, retry.TaskStoreResult, node.ID, input.ExecutionID.String(),
			func(ctx context.Context) error {
				var callErr error
				stored, callErr = e.client.StoreResult(ctx, payload)
				return callErr
			})
		if err != nil {
			return nil, fmt.Errorf("store result: %w", err)
		}

		e.logger.Debug("result stored",
			"node_id", node.ID,
			"execution_id", input.ExecutionID,
		)

		return NewResult(map[string]any{
			"destination": destinationStorage,
			"stored":      true,
			"receipt":     stored,
		}), nil

	default:
		return nil, fmt.Errorf("%w: %s: unknown destination: %s", ErrInvalidConfig, node.ID, dest)
	}
}
