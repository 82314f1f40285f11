package nodes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
)

// Ошибки исполнителей узлов.
var (
	// ErrExecutorNotFound — для типа узла нет зарегистрированного исполнителя.
	ErrExecutorNotFound = errors.New("no executor registered for node type")

	// ErrInvalidConfig — невалидная конфигурация узла.
	ErrInvalidConfig = errors.New("invalid node config")

	// ErrMissingInput — во входных данных нет обязательного поля.
	ErrMissingInput = errors.New("required input missing")
)

// Executor — исполнитель узлов одного типа.
//
// Каждый тип узла (TRIGGER, DATA_INPUT, PROCESSING, DECISION, OUTPUT)
// реализует этот интерфейс. Исполнитель не знает о графе — только
// о своём узле и разрешённых входных данных.
type Executor interface {
	// Type возвращает тип узла, который обслуживает исполнитель.
	Type() domain.NodeType

	// ValidateConfig проверяет конфигурацию узла перед выполнением.
	ValidateConfig(node *domain.Node) error

	// Execute выполняет узел и возвращает результат.
	// Исполнитель должен учитывать ctx для graceful shutdown.
	Execute(ctx context.Context, node *domain.Node, input *Input) (*Result, error)
}

// Input — входные данные для выполнения узла.
type Input struct {
	// ExecutionID — execution, в рамках которого выполняется узел.
	ExecutionID uuid.UUID

	// WorkflowID — workflow, которому принадлежит узел.
	WorkflowID uuid.UUID

	// TriggeredBy — источник запуска execution.
	TriggeredBy string

	// Values — разрешённые входные данные: параметры запуска плюс
	// выходы узлов-предшественников (под ключами "nodeID.field"
	// и под метками рёбер).
	Values map[string]any
}

// Result — результат выполнения узла.
type Result struct {
	// Outputs — выходные данные узла. Становятся адресуемыми для
	// узлов-потомков.
	Outputs map[string]any

	// Warnings — некритичные замечания, попадают в журнал execution
	// с уровнем WARN.
	Warnings []string
}

// NewResult создаёт Result с outputs.
func NewResult(outputs map[string]any) *Result {
	if outputs == nil {
		outputs = make(map[string]any)
	}
	return &Result{Outputs: outputs}
}

// --- Config helpers ---

// ConfigString извлекает строковое значение из конфига узла.
func ConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ConfigFloat извлекает числовое значение из конфига узла.
func ConfigFloat(config map[string]any, key string) (float64, bool) {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	}
	return 0, false
}

// ConfigBool извлекает булево значение из конфига узла.
func ConfigBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// ConfigMap извлекает map из конфига узла.
func ConfigMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}
