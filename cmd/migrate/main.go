package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Nyumat/NyumatFlix-sub000/internal/config"
	"github.com/Nyumat/NyumatFlix-sub000/internal/database"
	"github.com/Nyumat/NyumatFlix-sub000/internal/logging"
)

func main() {
	logger, closer := logging.Setup(logging.Options{Level: os.Getenv("LOG_LEVEL")})
	defer closer.Close()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: migrate [up|down|status]")
		os.Exit(2)
	}
	command := os.Args[1]

	dsn, err := config.LoadDatabaseURL()
	if err != nil {
		logger.Error("migrate.config.invalid", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(context.Background(), dsn)
	if err != nil {
		logger.Error("migrate.database.unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db, command); err != nil {
		logger.Error("migrate.failed", "command", command, "error", err)
		db.Close()
		os.Exit(1)
	}

	version, err := database.Version(db)
	if err != nil {
		logger.Warn("migrate.version.unknown", "error", err)
		return
	}
	logger.Info("migrate.completed", "command", command, "version", version)
}
