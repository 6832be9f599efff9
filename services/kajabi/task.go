package kajabi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaps-platform/pkg/config"
	"leaps-platform/pkg/taskname"
)

// ReconcilePayload carries an event whose user could not be resolved at
// delivery time, queued until the user registers.
type ReconcilePayload struct {
	Event     Event     `json:"event"`
	EventTime time.Time `json:"event_time"`
}

// NewReconcileTask builds the asynq task for an unresolved webhook event.
func NewReconcileTask(event Event, eventTime time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePayload{Event: event, EventTime: eventTime})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.KajabiReconcile, payload, asynq.MaxRetry(20)), nil
}

type Task struct {
	db          *gorm.DB
	engine      *Engine
	allowedTags map[string]bool
}

type TaskParams struct {
	fx.In

	DB     *gorm.DB
	Engine *Engine
	Config *config.Config
}

func NewTask(p TaskParams) *Task {
	return &Task{
		db:          p.DB,
		engine:      p.Engine,
		allowedTags: AllowedTags(p.Config.Kajabi.AllowedTags),
	}
}

// HandleReconcileTask replays an unresolved webhook event. Still-unknown
// users return an error so asynq backs off and retries; every other outcome
// completes the task.
func (t *Task) HandleReconcileTask(ctx context.Context, task *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", task.Type()),
		zap.String("contact_id", payload.Event.ContactID),
		zap.String("tag_name", payload.Event.TagName),
	)

	var result *Result
	if err := t.db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = t.engine.Process(ctx, tx, payload.Event, payload.EventTime, t.allowedTags)
		return err
	}); err != nil {
		zapLog.Error("failed to reconcile webhook event", zap.Error(err))
		return err
	}

	if !result.Success && result.Reason == ReasonUserNotFound {
		return fmt.Errorf("contact %s still has no registered user", payload.Event.ContactID)
	}

	zapLog.Info("webhook event reconciled", zap.String("reason", string(result.Reason)))
	return nil
}

func RegisterTaskHandlers(mux *asynq.ServeMux, task *Task) {
	mux.HandleFunc(taskname.KajabiReconcile, task.HandleReconcileTask)
}
