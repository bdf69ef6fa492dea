package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/config"
	kafkax "github.com/ariefcatur/mars-shop.git/internal/kafka"
	"github.com/ariefcatur/mars-shop.git/internal/logger"
	"github.com/ariefcatur/mars-shop.git/internal/notify"
	"github.com/ariefcatur/mars-shop.git/internal/orders"
	"github.com/ariefcatur/mars-shop.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput}).
		With(zap.String("service", cfg.ServiceName+"-notifier"))
	defer func() { _ = log.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	loc, err := notify.LoadLocation(cfg.NotifyTimezone)
	if err != nil {
		log.Warn("notification timezone", zap.Error(err))
	}
	h := &notify.Handler{
		Sender:   notify.NewTelegram(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatIDs, log),
		Dedup:    &redisx.Dedup{RDB: rdb, Service: cfg.NotifierGroup},
		Location: loc,
		Log:      log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderCreated, cfg.NotifierWorkers, log)
	log.Info("notifier consumer started",
		zap.String("group", cfg.NotifierGroup),
		zap.String("topic", orders.TopicOrderCreated),
		zap.Int("workers", cfg.NotifierWorkers))
	if err := cons.Start(ctx, h.HandleMessage); err != nil {
		log.Error("consumer exit", zap.Error(err))
		os.Exit(1)
	}
	log.Info("notifier stopped")
}
