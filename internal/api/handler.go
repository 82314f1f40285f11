package api

import (
	"log/slog"

	"github.com/shaiso/Orbita/internal/engine"
	"github.com/shaiso/Orbita/internal/mq"
	"github.com/shaiso/Orbita/internal/repo"
	"github.com/shaiso/Orbita/internal/retry"
	"github.com/shaiso/Orbita/internal/trigger"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflowRepo  *repo.WorkflowRepo
	executionRepo *repo.ExecutionRepo
	triggerRepo   *repo.TriggerRepo
	eventRepo     *repo.EventRepo
	runner        *engine.Runner
	activator     *trigger.Activator
	webhooks      *trigger.WebhookProcessor
	events        *trigger.EventProcessor
	retries       *retry.Handler
	publisher     *mq.Publisher
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	WorkflowRepo  *repo.WorkflowRepo
	ExecutionRepo *repo.ExecutionRepo
	TriggerRepo   *repo.TriggerRepo
	EventRepo     *repo.EventRepo
	Runner        *engine.Runner
	Activator     *trigger.Activator
	Webhooks      *trigger.WebhookProcessor
	Events        *trigger.EventProcessor
	Retries       *retry.Handler
	Publisher     *mq.Publisher
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		workflowRepo:  cfg.WorkflowRepo,
		executionRepo: cfg.ExecutionRepo,
		triggerRepo:   cfg.TriggerRepo,
		eventRepo:     cfg.EventRepo,
		runner:        cfg.Runner,
		activator:     cfg.Activator,
		webhooks:      cfg.Webhooks,
		events:        cfg.Events,
		retries:       cfg.Retries,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
	}
}
