package trigger

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Orbita/internal/domain"
)

// cronParser — парсер стандартных 5-польных cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextExecution вычисляет следующее время срабатывания SCHEDULED
// триггера после from. Учитывает timezone конфигурации; невалидный
// timezone трактуется как UTC.
func NextExecution(cfg *domain.TriggerConfig, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		// Fallback на UTC если timezone невалидный
		loc = time.UTC
	}

	schedule, err := cronParser.Parse(cfg.CronExpression)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cfg.CronExpression, err)
	}

	next := schedule.Next(from.In(loc))
	return next.UTC(), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}
