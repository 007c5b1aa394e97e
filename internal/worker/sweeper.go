// Package worker runs the background side of the booking engine: the
// expiry sweeper executes as a periodic asynq task so that in a
// multi-instance deployment each sweep runs once, not once per instance.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sriman99/Evently-Challenge/internal/usecase"
	"github.com/sriman99/Evently-Challenge/pkg/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeBookingSweep = "booking:sweep"

type Sweeper struct {
	sweeper   usecase.SweeperService
	server    *asynq.Server
	scheduler *asynq.Scheduler
	log       *zap.Logger
}

func NewSweeper(cfg *utils.Config, sweeper usecase.SweeperService, log *zap.Logger) *Sweeper {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
	})

	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Sweeper{
		sweeper:   sweeper,
		server:    server,
		scheduler: scheduler,
		log:       log.With(zap.String("worker", "sweeper")),
	}
}

// Start registers the periodic sweep and runs the task server. It blocks
// until Shutdown is called.
func (w *Sweeper) Start(interval time.Duration) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBookingSweep, w.handleSweep)

	cronspec := fmt.Sprintf("@every %s", interval)
	if _, err := w.scheduler.Register(cronspec, asynq.NewTask(TypeBookingSweep, nil)); err != nil {
		return fmt.Errorf("register sweep schedule: %w", err)
	}

	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("start sweep scheduler: %w", err)
	}

	w.log.Info("sweeper started", zap.Duration("interval", interval))
	if err := w.server.Run(mux); err != nil {
		return fmt.Errorf("run sweep server: %w", err)
	}
	return nil
}

func (w *Sweeper) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

func (w *Sweeper) handleSweep(ctx context.Context, _ *asynq.Task) error {
	expired, err := w.sweeper.SweepOnce(ctx)
	if err != nil {
		w.log.Error("sweep pass failed", zap.Error(err), zap.Int("expired", expired))
		return err
	}
	if expired > 0 {
		w.log.Info("sweep pass complete", zap.Int("expired", expired))
	}
	return nil
}
