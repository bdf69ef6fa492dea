// Command migrate applies or rolls back the database schema.
//
//	migrate up
//	migrate down
package main

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/config"
	"github.com/ariefcatur/mars-shop.git/internal/logger"
	"github.com/ariefcatur/mars-shop.git/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})
	defer func() { _ = log.Sync() }()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "up":
		err = postgres.Migrate(cfg.PostgresDSN, log)
	case "down":
		err = postgres.MigrateDown(cfg.PostgresDSN, log)
	default:
		log.Fatal("unknown command, want up or down", zap.String("command", cmd))
	}
	if err != nil {
		log.Fatal("migrate", zap.String("command", cmd), zap.Error(err))
	}
}
