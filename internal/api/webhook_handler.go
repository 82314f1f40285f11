package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/trigger"
)

// maxWebhookBody — лимит размера тела webhook запроса (1 MiB).
const maxWebhookBody = 1 << 20

// HandleWebhook принимает входящий webhook для триггера.
//
// Маршрут зарегистрирован без метода: допустимость метода решает
// конфигурация триггера, а не роутер. Отклонённый запрос не создаёт
// execution. Сегменты URL после ID триггера передаются как
// path-параметры "param1", "param2", ... для PathParamMapping.
// ANY /api/v1/webhooks/{id}
// ANY /api/v1/webhooks/{id}/{rest...}
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid trigger id")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}

	req := &trigger.WebhookRequest{
		Method:     r.Method,
		RemoteAddr: r.RemoteAddr,
		Headers:    r.Header,
		Query:      r.URL.Query(),
		PathParams: webhookPathParams(r.PathValue("rest")),
		Body:       body,
	}

	result, err := h.webhooks.Process(r.Context(), id, req)
	if err != nil {
		h.handleWebhookError(w, err)
		return
	}

	if result.Async {
		JSON(w, http.StatusAccepted, DataResponse{Data: ExecutionFromDomain(*result.Execution)})
		return
	}
	Success(w, ExecutionFromDomain(*result.Execution))
}

// webhookPathParams раскладывает остаток пути на позиционные
// параметры: "fields/42" -> {"param1": "fields", "param2": "42"}.
func webhookPathParams(rest string) map[string]string {
	if rest == "" {
		return nil
	}
	params := make(map[string]string)
	i := 0
	for _, segment := range strings.Split(rest, "/") {
		if segment == "" {
			continue
		}
		i++
		params[fmt.Sprintf("param%d", i)] = segment
	}
	return params
}

// handleWebhookError преобразует ошибку webhook обработки в HTTP ответ.
func (h *Handler) handleWebhookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trigger.ErrTriggerNotFound):
		NotFound(w, "trigger not found")
	case errors.Is(err, trigger.ErrTriggerDisabled):
		Forbidden(w, "trigger is disabled")
	case errors.Is(err, trigger.ErrWrongTriggerType):
		BadRequest(w, "trigger is not a webhook trigger")
	case errors.Is(err, trigger.ErrMethodNotAllowed):
		MethodNotAllowed(w)
	case errors.Is(err, trigger.ErrIPNotAllowed):
		Forbidden(w, "client ip is not allowed")
	case errors.Is(err, trigger.ErrHeaderMissing):
		BadRequest(w, err.Error())
	case errors.Is(err, trigger.ErrAuthFailed):
		Unauthorized(w, "webhook authentication failed")
	default:
		InternalError(w, h.logger, err)
	}
}
