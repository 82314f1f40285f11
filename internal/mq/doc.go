// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - event.inbound        — событие приложения для EVENT триггеров
//   - execution.completed  — уведомление о завершении execution
//
// Exchanges:
//   - orbita.events — входящие события приложений
//   - orbita.notify — уведомления о завершении executions
//   - orbita.dlq    — dead letter queue
package mq
