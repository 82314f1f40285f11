package retry

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Strategy — стратегия вычисления задержки между попытками.
type Strategy string

const (
	// StrategyExponential — delay = initial * multiplier^(attempt-1).
	StrategyExponential Strategy = "exponential"

	// StrategyLinear — delay = initial * attempt.
	StrategyLinear Strategy = "linear"

	// StrategyFixed — delay = initial для каждой попытки.
	StrategyFixed Strategy = "fixed"
)

// Классы ошибок для сопоставления с RetryableClasses.
const (
	// ClassTimeout — превышен таймаут вызова.
	ClassTimeout = "timeout"

	// ClassConnection — не удалось установить соединение.
	ClassConnection = "connection"

	// ClassRemote — удалённый сервис ответил ошибочным статусом.
	ClassRemote = "remote"

	// ClassOther — всё остальное.
	ClassOther = "other"
)

// Policy — политика повторных попыток для типа задачи.
type Policy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int

	// InitialDelay — начальная задержка.
	InitialDelay time.Duration

	// Multiplier — множитель задержки для exponential стратегии.
	Multiplier float64

	// MaxDelay — потолок задержки.
	MaxDelay time.Duration

	// Strategy — стратегия вычисления задержки.
	Strategy Strategy

	// RetryableClasses — классы ошибок, при которых делать retry.
	// Пустой список — retry при любой ошибке.
	RetryableClasses []string
}

// Delay вычисляет задержку перед попыткой attempt+1.
// attempt нумеруется с 1.
func (p Policy) Delay(attempt int) time.Duration {
	initial := p.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var delay time.Duration
	switch p.Strategy {
	case StrategyExponential:
		multiplier := p.Multiplier
		if multiplier <= 0 {
			multiplier = 2.0
		}
		delay = initial
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * multiplier)
			if delay > maxDelay {
				delay = maxDelay
				break
			}
		}
	case StrategyLinear:
		delay = initial * time.Duration(attempt)
	default:
		// fixed или неизвестная стратегия
		delay = initial
	}

	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// Retryable проверяет, подлежит ли ошибка данного класса повтору.
func (p Policy) Retryable(class string) bool {
	if len(p.RetryableClasses) == 0 {
		return true
	}
	for _, c := range p.RetryableClasses {
		if c == class {
			return true
		}
	}
	return false
}

// Типы задач со встроенными политиками.
const (
	TaskLoadScene    = "load_scene"
	TaskComputeIndex = "compute_index"
	TaskStoreResult  = "store_result"
	TaskTrigger      = "workflow_trigger"
)

// defaultPolicies — встроенные политики по типам задач.
// Загрузка сцен из каталога — самый нестабильный вызов, ей достаётся
// самый щедрый бюджет попыток.
var defaultPolicies = map[string]Policy{
	TaskLoadScene: {
		MaxAttempts:      5,
		InitialDelay:     2 * time.Second,
		Multiplier:       2.0,
		MaxDelay:         30 * time.Second,
		Strategy:         StrategyExponential,
		RetryableClasses: []string{ClassTimeout, ClassConnection, ClassRemote},
	},
	TaskComputeIndex: {
		MaxAttempts:      3,
		InitialDelay:     time.Second,
		Multiplier:       1.5,
		MaxDelay:         10 * time.Second,
		Strategy:         StrategyExponential,
		RetryableClasses: []string{ClassTimeout, ClassConnection},
	},
	TaskStoreResult: {
		MaxAttempts:      4,
		InitialDelay:     500 * time.Millisecond,
		Multiplier:       2.0,
		MaxDelay:         8 * time.Second,
		Strategy:         StrategyExponential,
		RetryableClasses: []string{ClassTimeout, ClassConnection, ClassRemote},
	},
	TaskTrigger: {
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     time.Second,
		Strategy:     StrategyFixed,
		// Пустой список специально: ручной запуск повторяем при любой ошибке
	},
}

// fallbackPolicy — политика для неизвестных типов задач.
var fallbackPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: time.Second,
	Multiplier:   2.0,
	MaxDelay:     10 * time.Second,
	Strategy:     StrategyExponential,
}

// Policies — реестр политик по типам задач.
// Потокобезопасен.
type Policies struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewPolicies создаёт реестр со встроенными политиками.
func NewPolicies() *Policies {
	p := &Policies{policies: make(map[string]Policy, len(defaultPolicies))}
	for taskType, policy := range defaultPolicies {
		p.policies[taskType] = policy
	}
	return p
}

// Get возвращает политику для типа задачи.
// Для неизвестных типов возвращается запасная политика.
func (p *Policies) Get(taskType string) Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if policy, ok := p.policies[taskType]; ok {
		return policy
	}
	return fallbackPolicy
}

// Set регистрирует или переопределяет политику.
func (p *Policies) Set(taskType string, policy Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policies[taskType] = policy
}

// Types возвращает список типов задач с явными политиками.
func (p *Policies) Types() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	types := make([]string, 0, len(p.policies))
	for t := range p.policies {
		types = append(types, t)
	}
	return types
}

// ClassifiedError — ошибка с известным классом.
// Вызывающий код оборачивает ошибки внешних сервисов, чтобы политики
// могли сопоставить их с RetryableClasses.
type ClassifiedError struct {
	Class string
	Err   error
}

// Error реализует интерфейс error.
func (e *ClassifiedError) Error() string {
	return e.Err.Error()
}

// Unwrap возвращает базовую ошибку.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// NewClassifiedError оборачивает ошибку с классом.
func NewClassifiedError(class string, err error) *ClassifiedError {
	return &ClassifiedError{Class: class, Err: err}
}

// Classify определяет класс ошибки.
//
// Порядок: явный ClassifiedError → таймауты контекста и сети → other.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Class
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ClassConnection
	}

	return ClassOther
}
