package retry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// maxRecentErrors — сколько последних ошибок хранится на тип задачи.
const maxRecentErrors = 100

// ErrorRecord — запись об одной неудачной попытке.
type ErrorRecord struct {
	// TaskType — тип задачи.
	TaskType string `json:"task_type"`

	// TaskID — идентификатор задачи (обычно ID узла).
	TaskID string `json:"task_id,omitempty"`

	// ExecutionID — execution, в рамках которого произошла ошибка.
	ExecutionID string `json:"execution_id,omitempty"`

	// Attempt — номер попытки (с 1).
	Attempt int `json:"attempt"`

	// Class — класс ошибки.
	Class string `json:"class"`

	// Message — текст ошибки.
	Message string `json:"message"`

	// Timestamp — время ошибки.
	Timestamp time.Time `json:"timestamp"`
}

// ErrorStats — агрегированная статистика ошибок по типу задачи.
type ErrorStats struct {
	// TaskType — тип задачи.
	TaskType string `json:"task_type"`

	// Total — всего зарегистрированных ошибок.
	Total int `json:"total"`

	// ByClass — количество ошибок по классам.
	ByClass map[string]int `json:"by_class"`

	// FirstErrorAt — время первой ошибки.
	FirstErrorAt *time.Time `json:"first_error_at,omitempty"`

	// LastErrorAt — время последней ошибки.
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}

// Decision — решение о повторе после неудачной попытки.
type Decision struct {
	// Retry — выполнять ли ещё одну попытку.
	Retry bool

	// Delay — сколько ждать перед следующей попыткой.
	Delay time.Duration

	// Attempt — номер неудавшейся попытки.
	Attempt int

	// Class — класс ошибки.
	Class string
}

// taskErrors — накопленные ошибки одного типа задачи.
// Последние maxRecentErrors записей хранятся в кольцевом буфере.
type taskErrors struct {
	recent  []ErrorRecord // кольцевой буфер
	next    int           // позиция следующей записи
	total   int
	byClass map[string]int
	firstAt time.Time
	lastAt  time.Time
}

// Handler управляет повторами и ведёт статистику ошибок по типам задач.
type Handler struct {
	policies *Policies
	logger   *slog.Logger

	mu     sync.Mutex
	errors map[string]*taskErrors
}

// NewHandler создаёт Handler с указанными политиками.
func NewHandler(policies *Policies, logger *slog.Logger) *Handler {
	if policies == nil {
		policies = NewPolicies()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		policies: policies,
		logger:   logger,
		errors:   make(map[string]*taskErrors),
	}
}

// Handle регистрирует неудачную попытку и решает, повторять ли её.
func (h *Handler) Handle(taskType, taskID, executionID string, attempt int, err error) Decision {
	class := Classify(err)

	h.record(ErrorRecord{
		TaskType:    taskType,
		TaskID:      taskID,
		ExecutionID: executionID,
		Attempt:     attempt,
		Class:       class,
		Message:     err.Error(),
		Timestamp:   time.Now(),
	})

	policy := h.policies.Get(taskType)

	if attempt >= policy.MaxAttempts {
		return Decision{Retry: false, Attempt: attempt, Class: class}
	}
	if !policy.Retryable(class) {
		return Decision{Retry: false, Attempt: attempt, Class: class}
	}

	return Decision{
		Retry:   true,
		Delay:   policy.Delay(attempt),
		Attempt: attempt,
		Class:   class,
	}
}

// Do выполняет fn с повторами согласно политике типа задачи.
//
// Каждая неудачная попытка регистрируется в статистике. После исчерпания
// попыток (или неповторяемой ошибки) возвращается последняя ошибка.
func (h *Handler) Do(ctx context.Context, taskType, taskID, executionID string, fn func(ctx context.Context) error) error {
	attempt := 1

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		decision := h.Handle(taskType, taskID, executionID, attempt, err)
		if !decision.Retry {
			return err
		}

		h.logger.Debug("retrying task",
			"task_type", taskType,
			"task_id", taskID,
			"attempt", attempt,
			"delay", decision.Delay,
			"class", decision.Class,
		)

		select {
		case <-time.After(decision.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		attempt++
	}
}

// record добавляет запись в статистику.
func (h *Handler) record(rec ErrorRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	te, ok := h.errors[rec.TaskType]
	if !ok {
		te = &taskErrors{
			recent:  make([]ErrorRecord, 0, maxRecentErrors),
			byClass: make(map[string]int),
			firstAt: rec.Timestamp,
		}
		h.errors[rec.TaskType] = te
	}

	if len(te.recent) < maxRecentErrors {
		te.recent = append(te.recent, rec)
	} else {
		te.recent[te.next] = rec
	}
	te.next = (te.next + 1) % maxRecentErrors

	te.total++
	te.byClass[rec.Class]++
	te.lastAt = rec.Timestamp
}

// Stats возвращает статистику по типу задачи.
// Для неизвестного типа возвращается пустая статистика.
func (h *Handler) Stats(taskType string) ErrorStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	te, ok := h.errors[taskType]
	if !ok {
		return ErrorStats{TaskType: taskType, ByClass: map[string]int{}}
	}

	byClass := make(map[string]int, len(te.byClass))
	for class, count := range te.byClass {
		byClass[class] = count
	}

	first := te.firstAt
	last := te.lastAt
	return ErrorStats{
		TaskType:     taskType,
		Total:        te.total,
		ByClass:      byClass,
		FirstErrorAt: &first,
		LastErrorAt:  &last,
	}
}

// AllStats возвращает статистику по всем типам задач с ошибками.
func (h *Handler) AllStats() []ErrorStats {
	h.mu.Lock()
	types := make([]string, 0, len(h.errors))
	for t := range h.errors {
		types = append(types, t)
	}
	h.mu.Unlock()

	stats := make([]ErrorStats, 0, len(types))
	for _, t := range types {
		stats = append(stats, h.Stats(t))
	}
	return stats
}

// RecentErrors возвращает последние ошибки типа задачи,
// от старых к новым, не больше limit записей.
func (h *Handler) RecentErrors(taskType string, limit int) []ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	te, ok := h.errors[taskType]
	if !ok {
		return nil
	}

	// Разворачиваем кольцевой буфер в хронологический порядок
	var ordered []ErrorRecord
	if len(te.recent) < maxRecentErrors {
		ordered = append(ordered, te.recent...)
	} else {
		ordered = append(ordered, te.recent[te.next:]...)
		ordered = append(ordered, te.recent[:te.next]...)
	}

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}

// Reset сбрасывает статистику типа задачи.
// Пустой taskType сбрасывает всё.
func (h *Handler) Reset(taskType string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if taskType == "" {
		h.errors = make(map[string]*taskErrors)
		return
	}
	delete(h.errors, taskType)
}
