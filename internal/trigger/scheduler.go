package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Orbita/internal/domain"
)

// fireWindow — допуск для триггеров, которые ещё ни разу не
// срабатывали: срабатывание в пределах окна от текущего момента
// считается due. Компенсирует дрейф тиков.
const fireWindow = 30 * time.Second

// Scheduler — планировщик SCHEDULED триггеров.
//
// Каждый тик просматривает включённые расписания, проверяет
// ограничения (период действия, лимит срабатываний) и активирует
// due триггеры. Запуски идут в фоне, чтобы долгий workflow не
// задерживал остальные расписания.
type Scheduler struct {
	triggers  TriggerStore
	activator *Activator
	logger    *slog.Logger

	// wg учитывает фоновые запуски для корректной остановки
	wg sync.WaitGroup
}

// SchedulerConfig — конфигурация Scheduler.
type SchedulerConfig struct {
	// Triggers — хранилище триггеров.
	Triggers TriggerStore

	// Activator — механизм срабатывания.
	Activator *Activator

	// Logger — логгер.
	Logger *slog.Logger
}

// NewScheduler создаёт Scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		triggers:  cfg.Triggers,
		activator: cfg.Activator,
		logger:    logger,
	}
}

// Tick выполняет один тик планировщика.
//
// Ошибки одного триггера не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	triggers, err := s.triggers.ListEnabled(ctx, domain.TriggerTypeScheduled)
	if err != nil {
		return fmt.Errorf("list scheduled triggers: %w", err)
	}

	var fired int
	for i := range triggers {
		trig := &triggers[i]

		due, err := s.evaluate(ctx, trig, now)
		if err != nil {
			s.logger.Error("evaluate schedule failed",
				"trigger_id", trig.ID,
				"trigger_name", trig.Name,
				"error", err,
			)
			continue
		}
		if !due {
			continue
		}

		fired++
		s.wg.Add(1)
		go func(trig *domain.Trigger) {
			defer s.wg.Done()
			if _, err := s.activator.Fire(ctx, trig, nil, false); err != nil {
				s.logger.Error("scheduled trigger fire failed",
					"trigger_id", trig.ID,
					"error", err,
				)
			}
		}(trig)
	}

	if fired > 0 {
		s.logger.Info("scheduler tick completed",
			"checked", len(triggers),
			"fired", fired,
		)
	}

	return nil
}

// Wait дожидается завершения фоновых запусков текущих тиков.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// evaluate проверяет, должен ли триггер сработать сейчас.
// Попутно выключает триггеры с истёкшим периодом действия или
// исчерпанным лимитом.
func (s *Scheduler) evaluate(ctx context.Context, trig *domain.Trigger, now time.Time) (bool, error) {
	cfg := &trig.Config

	if cfg.StartDate != nil && now.Before(*cfg.StartDate) {
		return false, nil
	}

	if cfg.EndDate != nil && now.After(*cfg.EndDate) {
		s.disable(ctx, trig, "end date passed")
		return false, nil
	}

	if cfg.MaxExecutions > 0 && trig.ExecutionCount >= cfg.MaxExecutions {
		s.disable(ctx, trig, "max executions reached")
		return false, nil
	}

	return s.isDue(cfg, trig.LastExecutedAt, now)
}

// isDue вычисляет момент следующего срабатывания и сравнивает с now.
//
// Для триггера, который ещё не срабатывал, точкой отсчёта берётся
// минута назад, а сравнение идёт с допуском fireWindow — иначе
// только что созданное расписание ждало бы полный цикл.
func (s *Scheduler) isDue(cfg *domain.TriggerConfig, lastExecutedAt *time.Time, now time.Time) (bool, error) {
	if lastExecutedAt == nil {
		next, err := NextExecution(cfg, now.Add(-time.Minute))
		if err != nil {
			return false, err
		}
		return !next.After(now.Add(fireWindow)), nil
	}

	next, err := NextExecution(cfg, *lastExecutedAt)
	if err != nil {
		return false, err
	}
	return !next.After(now), nil
}

// disable выключает триггер и сохраняет изменение.
func (s *Scheduler) disable(ctx context.Context, trig *domain.Trigger, reason string) {
	trig.Disable()
	if err := s.triggers.Update(ctx, trig); err != nil {
		s.logger.Error("disable trigger failed",
			"trigger_id", trig.ID,
			"error", err,
		)
		return
	}
	s.logger.Info("trigger disabled",
		"trigger_id", trig.ID,
		"reason", reason,
	)
}
