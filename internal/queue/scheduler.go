package queue

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/invory/notification-service/internal/config"
	"github.com/invory/notification-service/internal/queue/handlers"
)

// Scheduler registers periodic tasks and enqueues them on schedule.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(log *slog.Logger) (*Scheduler, error) {
	redisAddr := fmt.Sprintf("%s:%s",
		os.Getenv(config.ENV_KEY_REDIS_HOST),
		os.Getenv(config.ENV_KEY_REDIS_PORT),
	)

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: os.Getenv(config.ENV_KEY_REDIS_PASSWORD),
		},
		&asynq.SchedulerOpts{},
	)

	// Stale push tokens are swept once a day.
	entryID, err := scheduler.Register(
		"@every 24h",
		asynq.NewTask(handlers.TypeCleanupPushTokens, nil),
		asynq.Queue("low"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register cleanup task: %w", err)
	}

	log.Info("Scheduler registered task",
		slog.String("entry_id", entryID),
		slog.String("type", handlers.TypeCleanupPushTokens),
	)

	return &Scheduler{scheduler: scheduler}, nil
}

// Start runs the scheduler, blocking until Stop is called.
func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
}
