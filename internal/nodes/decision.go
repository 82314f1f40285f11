package nodes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/Orbita/internal/domain"
)

// Типы условий DECISION узла.
const (
	conditionComparison = "comparison"
	conditionThreshold  = "threshold"
	conditionExpression = "expression"
	conditionDataCheck  = "data_check"
)

// Операторы сравнения.
const (
	opEq       = "eq"
	opNeq      = "neq"
	opGt       = "gt"
	opGte      = "gte"
	opLt       = "lt"
	opLte      = "lte"
	opContains = "contains"
)

// DecisionExecutor — исполнитель DECISION узлов.
//
// Вычисляет условие над разрешёнными входными данными и возвращает
// булев результат. Движок использует его для отсечения ветки:
// исходящие рёбра с меткой противоположной ветки блокируются.
//
// Конфигурация:
//
//	{
//	    "condition_type": "threshold",
//	    "field": "ndvi.result.mean",
//	    "operator": "gte",
//	    "value": 0.4
//	}
//
// Типы условий: comparison, threshold, expression, data_check.
// Для expression условие задаётся строкой "операнд оператор операнд",
// например "ndvi.result.mean >= 0.4" или "load.scene.status == 'ready'".
//
// Выход: {"decision": true, "path": "true", "field": ..., "actual": ...}
type DecisionExecutor struct{}

// NewDecisionExecutor создаёт DecisionExecutor.
func NewDecisionExecutor() *DecisionExecutor {
	return &DecisionExecutor{}
}

// Type возвращает тип узла.
func (e *DecisionExecutor) Type() domain.NodeType {
	return domain.NodeTypeDecision
}

// ValidateConfig проверяет конфигурацию узла.
func (e *DecisionExecutor) ValidateConfig(node *domain.Node) error {
	condType := ConfigString(node.Config, "condition_type")
	switch condType {
	case conditionComparison, conditionThreshold, conditionDataCheck:
		if ConfigString(node.Config, "field") == "" {
			return fmt.Errorf("%w: %s: field is required", ErrInvalidConfig, node.ID)
		}
	case conditionExpression:
		raw := ConfigString(node.Config, "expression")
		if raw == "" {
			return fmt.Errorf("%w: %s: expression is required", ErrInvalidConfig, node.ID)
		}
		if _, err := parseExpression(raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, node.ID, err)
		}
	case "":
		return fmt.Errorf("%w: %s: condition_type is required", ErrInvalidConfig, node.ID)
	default:
		return fmt.Errorf("%w: %s: unknown condition_type: %s", ErrInvalidConfig, node.ID, condType)
	}
	return nil
}

// Execute выполняет узел.
func (e *DecisionExecutor) Execute(ctx context.Context, node *domain.Node, input *Input) (*Result, error) {
	condType := ConfigString(node.Config, "condition_type")

	var decision bool
	var warnings []string
	outputs := map[string]any{}

	switch condType {
	case conditionDataCheck:
		// Проверка наличия непустого значения
		field := ConfigString(node.Config, "field")
		actual, found := Lookup(input.Values, field)
		decision = found && actual != nil
		outputs["field"] = field
		outputs["actual"] = actual

	case conditionComparison, conditionThreshold:
		field := ConfigString(node.Config, "field")
		actual, found := Lookup(input.Values, field)
		if !found {
			return nil, fmt.Errorf("%w: %s: field %q not present", ErrMissingInput, node.ID, field)
		}
		operator := ConfigString(node.Config, "operator")
		if operator == "" {
			operator = opEq
		}
		expected := node.Config["value"]

		var err error
		decision, err = compare(actual, operator, expected)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.ID, err)
		}
		outputs["field"] = field
		outputs["actual"] = actual

	case conditionExpression:
		raw := ConfigString(node.Config, "expression")
		expr, err := parseExpression(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, node.ID, err)
		}
		decision, warnings = expr.evaluate(input.Values)
		outputs["expression"] = raw

	default:
		return nil, fmt.Errorf("%w: %s: unknown condition_type: %s", ErrInvalidConfig, node.ID, condType)
	}

	path := "false"
	if decision {
		path = "true"
	}
	outputs["decision"] = decision
	outputs["path"] = path

	result := NewResult(outputs)
	result.Warnings = warnings
	return result, nil
}

// Символьные операторы выражений.
var exprOperators = map[string]string{
	"==":       opEq,
	"!=":       opNeq,
	">":        opGt,
	">=":       opGte,
	"<":        opLt,
	"<=":       opLte,
	"contains": opContains,
}

// expression — разобранное условие вида "операнд оператор операнд".
type expression struct {
	left     string
	operator string
	right    string
}

// parseExpression разбирает выражение "lhs op rhs", например
// "ndvi.result.mean >= 0.4" или "load.scene.status == 'ready'".
func parseExpression(raw string) (*expression, error) {
	tokens := strings.Fields(raw)
	if len(tokens) != 3 {
		return nil, fmt.Errorf("expression must have form %q, got %q", "operand operator operand", raw)
	}
	op, ok := exprOperators[tokens[1]]
	if !ok {
		return nil, fmt.Errorf("unknown expression operator: %s", tokens[1])
	}
	return &expression{left: tokens[0], operator: op, right: tokens[2]}, nil
}

// evaluate вычисляет выражение над разрешёнными входными данными.
// Неразрешимая переменная или несравнимые операнды дают false с
// предупреждением, а не ошибку узла.
func (x *expression) evaluate(values map[string]any) (bool, []string) {
	left, lok := resolveOperand(x.left, values)
	right, rok := resolveOperand(x.right, values)
	if !lok || !rok {
		missing := x.left
		if lok {
			missing = x.right
		}
		return false, []string{fmt.Sprintf("expression operand %q not resolvable, condition is false", missing)}
	}

	decision, err := compare(left, x.operator, right)
	if err != nil {
		return false, []string{fmt.Sprintf("expression not comparable: %v, condition is false", err)}
	}
	return decision, nil
}

// resolveOperand интерпретирует токен выражения: строковый литерал в
// кавычках, число, булево значение — или переменная, разрешаемая по
// точечному пути во входных данных. Форма ${path} тоже принимается.
func resolveOperand(token string, values map[string]any) (any, bool) {
	if len(token) >= 2 {
		if (token[0] == '\'' && token[len(token)-1] == '\'') ||
			(token[0] == '"' && token[len(token)-1] == '"') {
			return token[1 : len(token)-1], true
		}
	}
	switch token {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, true
	}

	if strings.HasPrefix(token, "${") && strings.HasSuffix(token, "}") {
		token = token[2 : len(token)-1]
	}
	return Lookup(values, token)
}

// compare сравнивает значение с ожидаемым по оператору.
func compare(actual any, operator string, expected any) (bool, error) {
	switch operator {
	case opEq, opNeq:
		equal := looseEqual(actual, expected)
		if operator == opNeq {
			return !equal, nil
		}
		return equal, nil

	case opGt, opGte, opLt, opLte:
		a, aok := toFloat(actual)
		b, bok := toFloat(expected)
		if !aok || !bok {
			return false, fmt.Errorf("operator %s requires numeric operands, got %T and %T",
				operator, actual, expected)
		}
		switch operator {
		case opGt:
			return a > b, nil
		case opGte:
			return a >= b, nil
		case opLt:
			return a < b, nil
		default:
			return a <= b, nil
		}

	case opContains:
		as, aok := actual.(string)
		bs, bok := expected.(string)
		if !aok || !bok {
			return false, fmt.Errorf("operator contains requires string operands")
		}
		return strings.Contains(as, bs), nil

	default:
		return false, fmt.Errorf("unknown operator: %s", operator)
	}
}

// looseEqual сравнивает значения с числовой коэрцией.
// JSON десериализует все числа в float64, поэтому 5 и 5.0 равны.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// toFloat приводит значение к float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Lookup разрешает точечный путь в map: "ndvi.result.mean" проходит
// по вложенным map. Сначала пробуется буквальный ключ целиком —
// выходы узлов кладутся в значения и под ключами вида "nodeID.field".
func Lookup(values map[string]any, path string) (any, bool) {
	if v, ok := values[path]; ok {
		return v, true
	}

	parts := strings.Split(path, ".")
	var current any = values
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
