// Package retry реализует политики повторных попыток по типам задач
// и накопление статистики ошибок для мониторинга.
package retry
