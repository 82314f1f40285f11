package nodes

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/retry"
)

// Registry — реестр исполнителей по типам узлов.
//
// Реестр заполняется статически при старте; движок запрашивает
// исполнителя для каждого узла графа. Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.NodeType]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[domain.NodeType]Executor),
	}
}

// Config — зависимости стандартного набора исполнителей.
type Config struct {
	// Client — клиент внешних сервисов (каталог сцен, обработка, хранилище).
	Client *ServiceClient

	// Retries — обработчик повторов внешних вызовов.
	Retries *retry.Handler

	// Logger — логгер.
	Logger *slog.Logger
}

// DefaultRegistry создаёт реестр со всеми стандартными исполнителями.
func DefaultRegistry(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retries := cfg.Retries
	if retries == nil {
		retries = retry.NewHandler(retry.NewPolicies(), logger)
	}

	r := NewRegistry()
	r.Register(NewTriggerExecutor())
	r.Register(NewDataInputExecutor(cfg.Client, retries, logger))
	r.Register(NewProcessingExecutor(cfg.Client, retries, logger))
	r.Register(NewDecisionExecutor())
	r.Register(NewOutputExecutor(cfg.Client, retries, logger))
	return r
}

// Register регистрирует исполнителя.
// Исполнитель для уже занятого типа будет перезаписан.
func (r *Registry) Register(exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[exec.Type()] = exec
}

// Get возвращает исполнителя по типу узла.
// Возвращает ErrExecutorNotFound, если исполнитель не зарегистрирован.
func (r *Registry) Get(nodeType domain.NodeType) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, exists := r.executors[nodeType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrExecutorNotFound, nodeType)
	}
	return exec, nil
}

// Has проверяет, зарегистрирован ли исполнитель.
func (r *Registry) Has(nodeType domain.NodeType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.executors[nodeType]
	return exists
}

// Types возвращает список зарегистрированных типов узлов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}
