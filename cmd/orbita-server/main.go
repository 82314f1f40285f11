// Orbita server — HTTP API, планировщик SCHEDULED триггеров и
// consumer входящих событий из RabbitMQ в одном процессе.
//
// Планировщик защищён advisory lock'ом в PostgreSQL: при нескольких
// инстансах тики выполняет только лидер.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Orbita/internal/api"
	"github.com/shaiso/Orbita/internal/config"
	"github.com/shaiso/Orbita/internal/domain"
	"github.com/shaiso/Orbita/internal/engine"
	"github.com/shaiso/Orbita/internal/mq"
	"github.com/shaiso/Orbita/internal/nodes"
	"github.com/shaiso/Orbita/internal/repo"
	"github.com/shaiso/Orbita/internal/retry"
	"github.com/shaiso/Orbita/internal/telemetry"
	"github.com/shaiso/Orbita/internal/trigger"
)

// schedLockKey — ключ advisory lock для лидерства планировщика.
const schedLockKey int64 = 620031

var startTime = time.Now()

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting orbita-server")

	// --- База данных ---
	pool, err := repo.NewPool(ctx, cfg.DB.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	triggerRepo := repo.NewTriggerRepo(pool)
	eventRepo := repo.NewEventRepo(pool)

	// --- RabbitMQ (опционально) ---
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	if !cfg.MQ.Disabled {
		mqConn, err = mq.NewConnection(mq.ConnConfig{URL: cfg.MQ.URL, Logger: logger})
		if err != nil {
			logger.Warn("rabbitmq unavailable, continuing without it", "error", err)
		} else {
			defer mqConn.Close()
			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Error("failed to setup mq topology", "error", err)
				os.Exit(1)
			}
			publisher = mq.NewPublisher(mqConn, logger)
			logger.Info("rabbitmq topology ready")
		}
	}

	// --- Движок выполнения ---
	retries := retry.NewHandler(retry.NewPolicies(), logger)
	svcClient := nodes.NewServiceClient(nodes.ClientConfig{
		CatalogURL:    cfg.Services.CatalogURL,
		ProcessingURL: cfg.Services.ProcessingURL,
		StorageURL:    cfg.Services.StorageURL,
	})
	registry := nodes.DefaultRegistry(nodes.Config{
		Client:  svcClient,
		Retries: retries,
		Logger:  logger,
	})

	eng := engine.NewEngine(engine.Config{Registry: registry, Logger: logger})
	runner := engine.NewRunner(engine.RunnerConfig{
		Engine:     eng,
		Executions: executionRepo,
		Versions:   workflowRepo,
		OnFinished: executionNotifier(publisher, logger),
		Logger:     logger,
	})

	// --- Триггеры ---
	activator := trigger.NewActivator(trigger.ActivatorConfig{
		Triggers:  triggerRepo,
		Workflows: workflowRepo,
		Runner:    runner,
		Logger:    logger,
	})
	webhooks := trigger.NewWebhookProcessor(trigger.WebhookConfig{
		Triggers:  triggerRepo,
		Activator: activator,
		Logger:    logger,
	})
	eventProc := trigger.NewEventProcessor(trigger.EventConfig{
		Triggers:  triggerRepo,
		Events:    eventRepo,
		Activator: activator,
		Logger:    logger,
	})

	// --- HTTP API ---
	handler := api.NewHandler(api.Config{
		WorkflowRepo:  workflowRepo,
		ExecutionRepo: executionRepo,
		TriggerRepo:   triggerRepo,
		EventRepo:     eventRepo,
		Runner:        runner,
		Activator:     activator,
		Webhooks:      webhooks,
		Events:        eventProc,
		Retries:       retries,
		Publisher:     publisher,
		Logger:        logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// --- Планировщик SCHEDULED триггеров ---
	sched := trigger.NewScheduler(trigger.SchedulerConfig{
		Triggers:  triggerRepo,
		Activator: activator,
		Logger:    logger,
	})
	if !cfg.Scheduler.Disabled {
		go runScheduler(ctx, pool, sched, cfg.Scheduler.TickInterval, logger)
	}

	// --- Consumer входящих событий ---
	if mqConn != nil {
		consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:   mq.QueueEventsInbound,
			Handler: inboundEventHandler(eventRepo, eventProc),
		})
		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("event consumer stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	// Даём фоновым запускам планировщика завершиться
	sched.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// runScheduler крутит тики планировщика, пока процесс остаётся лидером.
func runScheduler(
	ctx context.Context,
	pool *pgxpool.Pool,
	sched *trigger.Scheduler,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var hasLock bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !hasLock {
				var ok bool
				err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok)
				if err != nil {
					logger.Warn("scheduler lock failed", "error", err)
					continue
				}
				if !ok {
					// Не лидер — пропускаем тик
					continue
				}
				hasLock = true
				logger.Info("scheduler leadership acquired")
			}

			if err := sched.Tick(ctx); err != nil {
				logger.Warn("scheduler tick failed", "error", err)
			}
		}
	}
}

// executionNotifier публикует уведомление о завершении execution.
func executionNotifier(publisher *mq.Publisher, logger *slog.Logger) func(*domain.Execution) {
	if publisher == nil {
		return nil
	}
	return func(execution *domain.Execution) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := publisher.PublishExecutionCompleted(ctx, mq.ExecutionCompletedPayload{
			ExecutionID: execution.ID,
			WorkflowID:  execution.WorkflowID,
			Status:      string(execution.Status),
			Error:       execution.Error,
			DurationMS:  execution.Duration().Milliseconds(),
		})
		if err != nil {
			logger.Warn("publish execution.completed failed",
				"execution_id", execution.ID,
				"error", err,
			)
		}
	}
}

// inboundEventHandler превращает сообщение event.inbound в WorkflowEvent
// и прогоняет его через EventProcessor.
func inboundEventHandler(events *repo.EventRepo, proc *trigger.EventProcessor) mq.Handler {
	return mq.TypedHandler(func(ctx context.Context, payload mq.EventInboundPayload) error {
		event := &domain.WorkflowEvent{
			ID:          uuid.New(),
			EventType:   payload.EventType,
			EventSource: payload.EventSource,
			ProjectID:   payload.ProjectID,
			UserID:      payload.UserID,
			Payload:     payload.Payload,
			Status:      domain.EventStatusPending,
			CreatedAt:   time.Now(),
		}

		if err := events.Create(ctx, event); err != nil {
			return fmt.Errorf("store event: %w", err)
		}

		return proc.Process(ctx, event)
	})
}
