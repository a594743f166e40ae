package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/config"
	"storefront-backend/internal/shared"
	"storefront-backend/pkg/logger"
)

// Scheduler registers the periodic sweeps that drive webhook
// processing, reconciliation, and expiry. Cadences come from JobConfig
// so operators can tune them per environment.
type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

type periodicTask struct {
	taskType string
	every    time.Duration
	queue    string
}

func (s *Scheduler) RegisterPeriodicJobs() error {
	reconcileEvery := time.Duration(s.jobConfig.ReconcileIntervalSeconds) * time.Second
	expiryEvery := time.Duration(s.jobConfig.ExpiryIntervalSeconds) * time.Second

	tasks := []periodicTask{
		{shared.TypeWebhookProcessQueue, 5 * time.Second, shared.QueueCritical},
		{shared.TypeWebhookRetrySweep, 30 * time.Second, shared.QueueDefault},
		{shared.TypeWebhookDLQSweep, 5 * time.Minute, shared.QueueDefault},
		{shared.TypePaymentReconcile, reconcileEvery, shared.QueueDefault},
		{shared.TypeReservationExpire, expiryEvery, shared.QueueDefault},
		{shared.TypeCheckoutExpireSession, expiryEvery, shared.QueueLow},
		{shared.TypeStockRepairDrift, 10 * time.Minute, shared.QueueLow},
	}

	for _, t := range tasks {
		spec := fmt.Sprintf("@every %s", t.every)
		task := asynq.NewTask(t.taskType, nil)

		entryID, err := s.scheduler.Register(spec, task,
			asynq.Queue(t.queue),
			asynq.MaxRetry(0),
		)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", t.taskType, err)
		}

		logger.Info("Periodic job registered", map[string]interface{}{
			"task":     t.taskType,
			"interval": t.every.String(),
			"entry_id": entryID,
		})
	}

	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
