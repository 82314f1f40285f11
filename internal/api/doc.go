// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (репозитории, runner, триггеры, publisher)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - workflow_handler.go  — обработчики для /workflows и версий
//   - execution_handler.go — обработчики для /executions
//   - trigger_handler.go   — обработчики для /triggers
//   - webhook_handler.go   — приём входящих webhooks
//   - event_handler.go     — приём и просмотр событий приложения
//   - errors_handler.go    — статистика ошибок retry-подсистемы
//
// API предоставляет REST endpoints для управления workflows,
// их версиями, executions, триггерами и событиями.
package api
