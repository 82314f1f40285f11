package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Workflows
	mux.Handle("GET /api/v1/workflows", chain(http.HandlerFunc(h.ListWorkflows)))
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.CreateWorkflow)))
	mux.Handle("GET /api/v1/workflows/{id}", chain(http.HandlerFunc(h.GetWorkflow)))
	mux.Handle("PUT /api/v1/workflows/{id}", chain(http.HandlerFunc(h.UpdateWorkflow)))
	mux.Handle("DELETE /api/v1/workflows/{id}", chain(http.HandlerFunc(h.DeleteWorkflow)))
	mux.Handle("POST /api/v1/workflows/{id}/publish", chain(http.HandlerFunc(h.PublishWorkflow)))
	mux.Handle("POST /api/v1/workflows/{id}/archive", chain(http.HandlerFunc(h.ArchiveWorkflow)))

	// Workflow Versions
	mux.Handle("GET /api/v1/workflows/{id}/versions", chain(http.HandlerFunc(h.ListVersions)))
	mux.Handle("POST /api/v1/workflows/{id}/versions", chain(http.HandlerFunc(h.CreateVersion)))
	mux.Handle("GET /api/v1/workflows/{id}/versions/{version}", chain(http.HandlerFunc(h.GetVersion)))

	// Executions
	mux.Handle("GET /api/v1/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("GET /api/v1/executions/stats", chain(http.HandlerFunc(h.ExecutionStats)))
	mux.Handle("POST /api/v1/workflows/{id}/executions", chain(http.HandlerFunc(h.StartExecution)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))
	mux.Handle("POST /api/v1/executions/{id}/cancel", chain(http.HandlerFunc(h.CancelExecution)))

	// Triggers
	mux.Handle("GET /api/v1/triggers", chain(http.HandlerFunc(h.ListTriggers)))
	mux.Handle("POST /api/v1/workflows/{id}/triggers", chain(http.HandlerFunc(h.CreateTrigger)))
	mux.Handle("GET /api/v1/triggers/{id}", chain(http.HandlerFunc(h.GetTrigger)))
	mux.Handle("PUT /api/v1/triggers/{id}", chain(http.HandlerFunc(h.UpdateTrigger)))
	mux.Handle("DELETE /api/v1/triggers/{id}", chain(http.HandlerFunc(h.DeleteTrigger)))
	mux.Handle("PUT /api/v1/triggers/{id}/enabled", chain(http.HandlerFunc(h.SetTriggerEnabled)))
	mux.Handle("GET /api/v1/triggers/{id}/stats", chain(http.HandlerFunc(h.GetTriggerStats)))
	mux.Handle("POST /api/v1/triggers/{id}/fire", chain(http.HandlerFunc(h.FireTrigger)))
	mux.Handle("POST /api/v1/triggers/{id}/secret", chain(http.HandlerFunc(h.RotateTriggerSecret)))

	// Webhooks — без метода: допустимость метода проверяет триггер.
	// Второй маршрут ловит хвост пути для PathParamMapping.
	mux.Handle("/api/v1/webhooks/{id}", chain(http.HandlerFunc(h.HandleWebhook)))
	mux.Handle("/api/v1/webhooks/{id}/{rest...}", chain(http.HandlerFunc(h.HandleWebhook)))

	// Events
	mux.Handle("POST /api/v1/events", chain(http.HandlerFunc(h.IngestEvent)))
	mux.Handle("GET /api/v1/events", chain(http.HandlerFunc(h.ListEvents)))
	mux.Handle("GET /api/v1/events/{id}", chain(http.HandlerFunc(h.GetEvent)))

	// Errors
	mux.Handle("GET /api/v1/errors/stats", chain(http.HandlerFunc(h.ErrorStats)))
	mux.Handle("GET /api/v1/errors/{taskType}", chain(http.HandlerFunc(h.TaskErrors)))
	mux.Handle("DELETE /api/v1/errors/{taskType}", chain(http.HandlerFunc(h.ResetTaskErrors)))
}
