package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"leaps-platform/internal/httpapi"
	"leaps-platform/internal/server"
	"leaps-platform/pkg/config"
	"leaps-platform/pkg/db"
	"leaps-platform/pkg/health"
	"leaps-platform/pkg/logger"
	"leaps-platform/pkg/redis"
	"leaps-platform/pkg/task"
	"leaps-platform/services/badge"
	"leaps-platform/services/kajabi"
	"leaps-platform/services/leaderboard"
	"leaps-platform/services/submission"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		health.Module,
		fx.Provide(provideSnowflakeNode),
		badge.Module,
		submission.Module,
		kajabi.Module,
		leaderboard.Module,
		server.Module,
		httpapi.Module,
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
	return snowflake.NewNode(1)
}
