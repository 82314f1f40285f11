package engine

import "errors"

// Ошибки движка выполнения.
var (
	// ErrNotExecutable — workflow не в статусе PUBLISHED.
	ErrNotExecutable = errors.New("workflow is not executable")

	// ErrVersionNotFound — запрошенная версия workflow не найдена.
	ErrVersionNotFound = errors.New("workflow version not found")

	// ErrExecutionNotActive — execution не выполняется и не может быть отменён.
	ErrExecutionNotActive = errors.New("execution is not active")

	// ErrNodeFailed — узел завершился ошибкой.
	ErrNodeFailed = errors.New("node execution failed")
)
