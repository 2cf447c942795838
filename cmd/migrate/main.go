package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"variantcart/internal/config"
	"variantcart/internal/db"
	"variantcart/internal/logging"
	"variantcart/internal/migrate"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("cmd", "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	version, err := migrate.ApplyVersion(ctx, pool)
	if err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	logger.WithField("version", version).Info("migrations applied")
}
