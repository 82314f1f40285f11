package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
)

// WebhookRequest — входящий webhook запрос в разобранном виде.
type WebhookRequest struct {
	// Method — HTTP метод запроса.
	Method string

	// RemoteAddr — адрес клиента (host:port).
	RemoteAddr string

	// Headers — заголовки запроса.
	Headers http.Header

	// Query — query-параметры.
	Query url.Values

	// PathParams — сегменты URL после ID триггера под позиционными
	// ключами "param1", "param2", ...
	PathParams map[string]string

	// Body — сырое тело запроса. Нужно целиком для проверки подписи.
	Body []byte
}

// ClientIP возвращает IP клиента с учётом прокси-заголовков.
func (r *WebhookRequest) ClientIP() string {
	return clientIP(r.Headers, r.RemoteAddr)
}

// WebhookResult — результат обработки webhook.
type WebhookResult struct {
	// Execution — созданный execution. В асинхронном режиме его
	// статус ещё не терминальный.
	Execution *domain.Execution

	// Async — true, если workflow запущен без ожидания завершения.
	Async bool
}

// WebhookProcessor принимает webhook запросы: находит триггер,
// аутентифицирует запрос, собирает входные параметры из query и тела
// и запускает workflow.
type WebhookProcessor struct {
	triggers  TriggerStore
	activator *Activator
	auth      *Authenticator
	logger    *slog.Logger
}

// WebhookConfig — конфигурация WebhookProcessor.
type WebhookConfig struct {
	// Triggers — хранилище триггеров.
	Triggers TriggerStore

	// Activator — механизм срабатывания.
	Activator *Activator

	// Logger — логгер.
	Logger *slog.Logger
}

// NewWebhookProcessor создаёт WebhookProcessor.
func NewWebhookProcessor(cfg WebhookConfig) *WebhookProcessor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookProcessor{
		triggers:  cfg.Triggers,
		activator: cfg.Activator,
		auth:      NewAuthenticator(),
		logger:    logger,
	}
}

// Process обрабатывает webhook запрос для триггера.
//
// Любая неудачная проверка прерывает обработку до запуска workflow:
// отклонённый запрос не создаёт execution.
func (p *WebhookProcessor) Process(ctx context.Context, triggerID uuid.UUID, req *WebhookRequest) (*WebhookResult, error) {
	trig, err := p.triggers.GetByID(ctx, triggerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, triggerID)
	}

	if !trig.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrTriggerDisabled, triggerID)
	}
	if trig.Type != domain.TriggerTypeWebhook {
		return nil, fmt.Errorf("%w: trigger %s has type %s", ErrWrongTriggerType, triggerID, trig.Type)
	}

	if err := p.auth.Authenticate(trig, req); err != nil {
		p.logger.Warn("webhook rejected",
			"trigger_id", trig.ID,
			"client_ip", req.ClientIP(),
			"error", err,
		)
		return nil, err
	}

	inputs, err := p.buildInputs(&trig.Config, req)
	if err != nil {
		return nil, err
	}

	async := trig.Config.Async
	execution, err := p.activator.Fire(ctx, trig, inputs, !async)
	if err != nil {
		return nil, err
	}

	return &WebhookResult{Execution: execution, Async: async}, nil
}

// buildInputs собирает входные параметры из path, query и тела запроса.
//
// PathParamMapping переносит сегменты URL, QueryParamMapping —
// query-параметры, под заданными именами. BodyMapping переносит поля
// JSON тела; пустой mapping кладёт тело целиком. При совпадении имён
// query перекрывает path, а тело перекрывает и то и другое.
func (p *WebhookProcessor) buildInputs(cfg *domain.TriggerConfig, req *WebhookRequest) (map[string]any, error) {
	inputs := make(map[string]any)

	for param, name := range cfg.PathParamMapping {
		if v, ok := req.PathParams[param]; ok {
			inputs[name] = v
		}
	}

	for param, name := range cfg.QueryParamMapping {
		if v := req.Query.Get(param); v != "" {
			inputs[name] = v
		}
	}

	if len(req.Body) == 0 {
		return inputs, nil
	}

	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, fmt.Errorf("parse webhook body: %w", err)
	}

	if len(cfg.BodyMapping) == 0 {
		for k, v := range body {
			inputs[k] = v
		}
		return inputs, nil
	}

	for field, name := range cfg.BodyMapping {
		if v, ok := body[field]; ok {
			inputs[name] = v
		}
	}
	return inputs, nil
}
