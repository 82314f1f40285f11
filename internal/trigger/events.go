package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/telemetry"
)

// EventStore — хранилище событий.
type EventStore interface {
	Create(ctx context.Context, event *domain.WorkflowEvent) error
	Update(ctx context.Context, event *domain.WorkflowEvent) error
}

// EventProcessor сопоставляет события приложения с EVENT триггерами
// и запускает совпавшие workflow.
type EventProcessor struct {
	triggers  TriggerStore
	events    EventStore
	activator *Activator
	logger    *slog.Logger
}

// EventConfig — конфигурация EventProcessor.
type EventConfig struct {
	// Triggers — хранилище триггеров.
	Triggers TriggerStore

	// Events — хранилище событий (аудит).
	Events EventStore

	// Activator — механизм срабатывания.
	Activator *Activator

	// Logger — логгер.
	Logger *slog.Logger
}

// NewEventProcessor создаёт EventProcessor.
func NewEventProcessor(cfg EventConfig) *EventProcessor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EventProcessor{
		triggers:  cfg.Triggers,
		events:    cfg.Events,
		activator: cfg.Activator,
		logger:    logger,
	}
}

// Process обрабатывает одно событие.
//
// Событие сравнивается со всеми включёнными EVENT триггерами; каждый
// совпавший запускает свой workflow. Обработка идемпотентна: уже
// обработанное событие пропускается (защита от повторной доставки).
func (p *EventProcessor) Process(ctx context.Context, event *domain.WorkflowEvent) error {
	if event.Processed {
		p.logger.Debug("event already processed, skipping", "event_id", event.ID)
		return nil
	}

	triggers, err := p.triggers.ListEnabled(ctx, domain.TriggerTypeEvent)
	if err != nil {
		return fmt.Errorf("list event triggers: %w", err)
	}

	var fired, failed int
	for i := range triggers {
		trig := &triggers[i]

		if !Matches(trig, event) {
			continue
		}

		inputs := eventInputs(&trig.Config, event)
		execution, err := p.activator.Fire(ctx, trig, inputs, false)
		if err != nil {
			failed++
			p.logger.Error("event trigger fire failed",
				"event_id", event.ID,
				"trigger_id", trig.ID,
				"error", err,
			)
			continue
		}

		fired++
		event.AddTriggeredExecution(trig.ID, execution.ID)
	}

	if failed > 0 && fired == 0 {
		event.MarkFailed(fmt.Sprintf("%d matching triggers failed", failed))
		telemetry.EventsProcessed.WithLabelValues("failed").Inc()
	} else {
		event.MarkProcessed()
		telemetry.EventsProcessed.WithLabelValues("processed").Inc()
	}

	if err := p.events.Update(ctx, event); err != nil {
		return fmt.Errorf("update event %s: %w", event.ID, err)
	}

	p.logger.Info("event processed",
		"event_id", event.ID,
		"event_type", event.EventType,
		"matched", fired,
	)
	return nil
}

// Matches проверяет, совпадает ли событие с EVENT триггером.
//
// EventType обязателен и сравнивается точно. EventSource и ProjectID
// проверяются, только если заданы. Все EventFilters должны совпасть
// со значениями payload.
func Matches(trig *domain.Trigger, event *domain.WorkflowEvent) bool {
	cfg := &trig.Config

	if cfg.EventType == "" || cfg.EventType != event.EventType {
		return false
	}
	if cfg.EventSource != "" && cfg.EventSource != event.EventSource {
		return false
	}
	if trig.ProjectID != "" && trig.ProjectID != event.ProjectID {
		return false
	}

	for key, expected := range cfg.EventFilters {
		actual, ok := event.Payload[key]
		if !ok || !reflect.DeepEqual(actual, expected) {
			return false
		}
	}
	return true
}

// eventInputs строит входные параметры workflow из payload события.
// Пустой EventDataMapping передаёт payload целиком.
func eventInputs(cfg *domain.TriggerConfig, event *domain.WorkflowEvent) map[string]any {
	if len(cfg.EventDataMapping) == 0 {
		inputs := make(map[string]any, len(event.Payload))
		for k, v := range event.Payload {
			inputs[k] = v
		}
		return inputs
	}

	inputs := make(map[string]any, len(cfg.EventDataMapping))
	for field, name := range cfg.EventDataMapping {
		if v, ok := event.Payload[field]; ok {
			inputs[name] = v
		}
	}
	return inputs
}
