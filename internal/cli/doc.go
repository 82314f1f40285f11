// Package cli реализует инструмент командной строки Orbita.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Orbita API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления workflows, executions, триггерами
// и событиями.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Orbita API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	workflows, err := client.ListWorkflows("", "PUBLISHED")
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: orbita workflow list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - workflow:  list, create, show, update, delete, publish, archive, versions, push
//   - execution: list, start, show, cancel, logs
//   - trigger:   list, create, show, delete, enable, disable, fire, rotate-secret, stats
//   - event:     list, publish
//
// Каждая группа создаётся через фабричную функцию (NewWorkflowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
