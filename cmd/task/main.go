package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"leaps-platform/pkg/config"
	"leaps-platform/pkg/db"
	"leaps-platform/pkg/logger"
	"leaps-platform/pkg/redis"
	"leaps-platform/pkg/task"
	"leaps-platform/services/badge"
	"leaps-platform/services/kajabi"
	"leaps-platform/services/leaderboard"
)

// Worker binary consuming the background queues (webhook reconciliation).
func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Server,
		task.Scheduler,
		fx.Provide(provideSnowflakeNode),
		badge.Module,
		kajabi.Module,
		kajabi.TaskModule,
		leaderboard.Module,
		leaderboard.TaskModule,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(2)
}
