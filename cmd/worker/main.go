package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/config"
	"carecircle/internal/httpserver"
	"carecircle/internal/mqhandler"
	"carecircle/internal/realtime"
	"carecircle/internal/repository"
	"carecircle/internal/service/notification"
	"carecircle/pkg/db"
	"carecircle/pkg/logger"
	"carecircle/pkg/mq"
	"carecircle/pkg/otel"
	"carecircle/pkg/outbox"
	redisclient "carecircle/pkg/redis"
	"carecircle/pkg/util"
)

const (
	triggerQueue = "notification.trigger"
	relayQueue   = "change.relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()

	log.Info("Starting carecircle worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	shutdownOtel, err := otel.Init("carecircle-worker", cfg.Otel, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Outbox Dispatcher
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()
	dispatcher := outbox.NewDispatcher(outbox.NewRepository(dbConn), publisher, log).
		WithInterval(cfg.Outbox.Interval()).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
	go dispatcher.Start(dispatcherCtx)

	// 领域事件 -> 站内通知
	notificationRepo := repository.NewNotificationRepository(dbConn)
	triggerHandler := mqhandler.NewNotificationTriggerHandler(mqhandler.TriggerDeps{
		Notifications: notificationRepo,
		Owners:        repository.NewReactionRepository(dbConn),
		Profiles:      repository.NewProfileRepository(dbConn),
		Dedup:         util.NewDeduper(rdb, cfg.Worker.DedupTTL(), log),
		Retries:       util.NewRetryCounter(rdb, cfg.Worker.DedupTTL()),
		DLQ:           publisher,
		Cache:         notification.NewRedisUnreadCache(rdb, cfg.Notifications.UnreadCacheTTL()),
		Mailer:        notification.NewMailer(cfg.SMTP, log),
		Queue:         triggerQueue,
		MaxRetries:    cfg.Worker.MaxRetries,
	}, log)

	triggerConsumer, err := mq.NewConsumer(cfg.MQ.URL, triggerQueue, mqhandler.TriggerRoutingKeys, log)
	if err != nil {
		log.Fatal("Failed to init trigger consumer", zap.Error(err))
	}
	defer triggerConsumer.Close()
	triggerConsumer.SetHandler(triggerHandler.Handle)

	// 行变更 -> Redis 频道 -> api 实例的订阅者
	relay := realtime.NewRelay(realtime.NewRedisPublisher(rdb), log)
	relayConsumer, err := mq.NewConsumer(cfg.MQ.URL, relayQueue, []string{mqcontracts.RoutingChangeAll}, log)
	if err != nil {
		log.Fatal("Failed to init change relay consumer", zap.Error(err))
	}
	defer relayConsumer.Close()
	relayConsumer.SetHandler(relay.Handle)

	for _, c := range []*mq.Consumer{triggerConsumer, relayConsumer} {
		c := c
		go func() {
			if err := c.StartConsuming(); err != nil {
				log.Fatal("Consumer failed", zap.Error(err))
			}
		}()
	}
	log.Info("Consumers started",
		zap.String("trigger_queue", triggerQueue),
		zap.String("relay_queue", relayQueue),
	)

	// HTTP Server (for health checks)
	router := httpserver.NewHealthRouter(map[string]httpserver.Pinger{
		"database": dbConn,
		"redis":    httpserver.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		"rabbitmq": publisher,
	}, log)
	srv := router.Server(cfg.Worker.HealthPort)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("carecircle worker is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker gracefully...")

	triggerConsumer.Stop()
	relayConsumer.Stop()
	dispatcherCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("worker shutdown complete")
}
