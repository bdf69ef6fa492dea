package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/auth"
	"github.com/ariefcatur/mars-shop.git/internal/cart"
	"github.com/ariefcatur/mars-shop.git/internal/catalog"
	"github.com/ariefcatur/mars-shop.git/internal/config"
	"github.com/ariefcatur/mars-shop.git/internal/httpx"
	kafkax "github.com/ariefcatur/mars-shop.git/internal/kafka"
	"github.com/ariefcatur/mars-shop.git/internal/logger"
	"github.com/ariefcatur/mars-shop.git/internal/notify"
	"github.com/ariefcatur/mars-shop.git/internal/orders"
	"github.com/ariefcatur/mars-shop.git/internal/postgres"
	"github.com/ariefcatur/mars-shop.git/internal/redisx"
	"github.com/ariefcatur/mars-shop.git/internal/users"
)

func main() {
	_ = godotenv.Load()
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()
	log := logger.New(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput}).
		With(zap.String("service", cfg.ServiceName))
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := postgres.Migrate(cfg.PostgresDSN, log); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: int32(cfg.PostgresMaxConns)})
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// Order events go to Kafka for the notifier when brokers are configured,
	// otherwise Telegram is called in-process.
	var (
		events orders.Publisher
		prod   *kafkax.Producer
		direct *notify.Direct
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start(ctx)
		events = &orders.KafkaEvents{Sink: prod, Producer: cfg.ServiceName}
		log.Info("publishing order events to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		loc, err := notify.LoadLocation(cfg.NotifyTimezone)
		if err != nil {
			log.Warn("notification timezone", zap.Error(err))
		}
		direct = &notify.Direct{
			Sender:   notify.NewTelegram(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatIDs, log),
			Location: loc,
			Log:      log,
		}
		events = direct
		log.Info("no kafka brokers, sending notifications in-process")
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, cfg.ServiceName)
	catalogSvc := &catalog.Service{Store: &catalog.Repo{DB: db}}
	userSvc := &users.Service{Store: &users.Repo{DB: db}, Tokens: tokens, Log: log}
	cartSvc := &cart.Service{
		Store:    &cart.RedisStore{RDB: rdb},
		Variants: catalogSvc,
		TTL:      cfg.CartTTL,
		Log:      log,
	}
	orderSvc := &orders.Service{
		Store:    &orders.Repo{DB: db, Log: log},
		Products: catalogSvc,
		Carts:    cartSvc,
		Contacts: userSvc,
		Events:   events,
		Log:      log,

		PriceFromCatalog: cfg.OrderPriceFromCatalog,
	}

	if err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal("bootstrap admin", zap.Error(err))
	}

	api := &httpx.API{
		Catalog: catalogSvc,
		Orders:  orderSvc,
		Carts:   cartSvc,
		Users:   userSvc,
		Tokens:  tokens,
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(log, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if prod != nil {
		prod.Close()
	}
	if direct != nil {
		direct.Wait()
	}
	cancel()
}
