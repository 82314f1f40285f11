package nodes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/retry"
)

// Источники данных DATA_INPUT узла.
const (
	dataSourceCatalog = "catalog"
	dataSourceInline  = "inline"
)

// DataInputExecutor — исполнитель DATA_INPUT узлов.
//
// Загружает исходные данные пайплайна:
//   - "catalog" — запрашивает сцену в каталоге снимков (внешний HTTP
//     сервис, вызов идёт через политику повторов load_scene)
//   - "inline" — данные заданы прямо в конфигурации узла
//
// Конфигурация:
//
//	{
//	    "data_source": "catalog",
//	    "query": {"scene_id": "S2A_...", "collection": "sentinel-2"}
//	}
type DataInputExecutor struct {
	client  *ServiceClient
	retries *retry.Handler
	logger  *slog.Logger
}

// NewDataInputExecutor создаёт DataInputExecutor.
func NewDataInputExecutor(client *ServiceClient, retries *retry.Handler, logger *slog.Logger) *DataInputExecutor {
	return &DataInputExecutor{
		client:  client,
		retries: retries,
		logger:  logger,
	}
}

// Type возвращает тип узла.
func (e *DataInputExecutor) Type() domain.NodeType {
	return domain.NodeTypeDataInput
}

// ValidateConfig проверяет конфигурацию узла.
func (e *DataInputExecutor) ValidateConfig(node *domain.Node) error {
	source := ConfigString(node.Config, "data_source")
	switch source {
	case dataSourceCatalog, dataSourceInline:
		return nil
	case "":
		return fmt.Errorf("%w: %s: data_source is required", ErrInvalidConfig, node.ID)
	default:
		return fmt.Errorf("%w: %s: unknown data_source: %s", ErrInvalidConfig, node.ID, source)
	}
}

// Execute выполняет узел.
func (e *DataInputExecutor) Execute(ctx context.Context, node *domain.Node, input *Input) (*Result, error) {
	source := ConfigString(node.Config, "data_source")

	switch source {
	case dataSourceInline:
		data := ConfigMap(node.Config, "data")
		if data == nil {
			data = make(map[string]any)
		}
		return NewResult(map[string]any{
			"source": dataSourceInline,
			"data":   data,
		}), nil

	case dataSourceCatalog:
		// Конфигурация узла разделяется всеми executions одной версии,
		// поэтому запрос собирается в копию
		query := make(map[string]any)
		for k, v := range ConfigMap(node.Config, "query") {
			query[k] = v
		}
		// Параметры запуска могут дополнять запрос (например, дата сцены
		// приходит из webhook payload)
		if sceneID, ok := input.Values["scene_id"]; ok {
			query["scene_id"] = sceneID
		}

		var scene map[string]any
		err := e.retries.Do(ctx, retry.TaskLoadScene, node.ID, input.ExecutionID.String(),
			func(ctx context.Context) error {
				var callErr error
				scene, callErr = e.client.FetchScene(ctx, query)
				return callErr
			})
		if err != nil {
			return nil, fmt.Errorf("load scene: %w", err)
		}

		e.logger.Debug("scene loaded",
			"node_id", node.ID,
			"execution_id", input.ExecutionID,
		)

		return NewResult(map[string]any{
			"source": dataSourceCatalog,
			"scene":  scene,
		}), nil

	default:
		return nil, fmt.Errorf("%w: %s: unknown data_source: %s", ErrInvalidConfig, node.ID, source)
	}
}
