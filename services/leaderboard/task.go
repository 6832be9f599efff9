package leaderboard

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"leaps-platform/pkg/config"
	"leaps-platform/pkg/taskname"
)

var TaskModule = fx.Module("task.leaderboard",
	fx.Provide(NewTask),
	fx.Invoke(RegisterTaskHandlers),
	fx.Invoke(ScheduleRefresh),
)

type Task struct {
	svc *Service
}

func NewTask(svc *Service) *Task {
	return &Task{svc: svc}
}

func (t *Task) HandleRefreshTask(ctx context.Context, task *asynq.Task) error {
	if err := t.svc.Refresh(ctx); err != nil {
		zap.L().Error("failed to refresh leaderboard cache", zap.Error(err))
		return err
	}
	return nil
}

func RegisterTaskHandlers(mux *asynq.ServeMux, task *Task) {
	mux.HandleFunc(taskname.LeaderboardRefresh, task.HandleRefreshTask)
}

// ScheduleRefresh re-warms the cache once per TTL so readers rarely fall
// through to the database.
func ScheduleRefresh(scheduler *asynq.Scheduler, cfg *config.Config) error {
	_, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.Leaderboard.CacheTTL),
		asynq.NewTask(taskname.LeaderboardRefresh, nil),
	)
	return err
}
