// Package trigger реализует автоматическую активацию workflow:
// планировщик cron-триггеров, приём и аутентификацию webhook,
// сопоставление событий приложения с EVENT триггерами и общий
// механизм запуска с учётом статистики и лимитов.
package trigger
