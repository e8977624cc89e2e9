package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"carecircle/internal/config"
	"carecircle/internal/handler"
	"carecircle/internal/httpserver"
	"carecircle/internal/realtime"
	"carecircle/internal/repository"
	"carecircle/internal/service/auth"
	"carecircle/internal/service/careplan"
	"carecircle/internal/service/contact"
	"carecircle/internal/service/forum"
	"carecircle/internal/service/notification"
	"carecircle/internal/service/patient"
	"carecircle/internal/service/proximity"
	"carecircle/internal/service/reaction"
	"carecircle/pkg/db"
	"carecircle/pkg/logger"
	"carecircle/pkg/otel"
	redisclient "carecircle/pkg/redis"
	"carecircle/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()

	log.Info("Starting carecircle api...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("port", cfg.Server.Port),
	)

	shutdownOtel, err := otel.Init("carecircle-api", cfg.Otel, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx, dbConn, log); err != nil {
		migrateCancel()
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}
	migrateCancel()
	log.Info("Database connection established successfully")

	// Redis
	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	profileRepo := repository.NewProfileRepository(dbConn)
	patientRepo := repository.NewPatientRepository(dbConn)
	questionRepo := repository.NewQuestionRepository(dbConn)
	commentRepo := repository.NewCommentRepository(dbConn)
	reactionRepo := repository.NewReactionRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	taskRepo := repository.NewTaskRepository(dbConn)
	reminderRepo := repository.NewReminderRepository(dbConn)
	contactRepo := repository.NewContactRepository(dbConn)

	// Services
	authService := auth.NewService(profileRepo, auth.NewRedisRevoker(rdb), cfg.JWT.Secret, cfg.JWT.TTL(), log)
	forumService := forum.NewService(questionRepo, commentRepo, log)
	reactionService := reaction.NewService(reactionRepo, log)
	notificationService := notification.NewService(
		notificationRepo,
		notification.NewRedisUnreadCache(rdb, cfg.Notifications.UnreadCacheTTL()),
		log,
	)
	careService := careplan.NewService(taskRepo, reminderRepo, patientRepo, log)
	contactService := contact.NewService(contactRepo, log)
	patientService := patient.NewService(patientRepo, log)
	proximityService := proximity.NewService(profileRepo, patientRepo, cfg.Proximity.ThresholdMeters, cfg.Proximity.Fallback(), log)

	// Realtime：Redis 频道 -> 本实例订阅者
	hub := realtime.NewHub(cfg.Realtime.BufferSize, log)
	listenCtx, listenCancel := context.WithCancel(context.Background())
	defer listenCancel()
	go func() {
		if err := realtime.Listen(listenCtx, rdb, hub, log); err != nil && listenCtx.Err() == nil {
			log.Error("Realtime listener stopped", zap.Error(err))
		}
	}()

	validator := util.NewValidator()
	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:          handler.NewAuthHandler(authService, validator, log),
		Forum:         handler.NewForumHandler(forumService, reactionService, validator, log),
		Notifications: handler.NewNotificationHandler(notificationService, log),
		Care:          handler.NewCareHandler(careService, validator, log),
		Contacts:      handler.NewContactHandler(contactService, validator, log),
		Patients:      handler.NewPatientHandler(patientService, proximityService, validator, log),
		Realtime:      handler.NewRealtimeHandler(hub, time.Duration(cfg.Realtime.KeepAliveSeconds)*time.Second, log),
	}, authService, map[string]httpserver.Pinger{
		"database": dbConn,
		"redis":    httpserver.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	}, log)

	srv := router.Server(cfg.Server.Port)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("carecircle api is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down api gracefully...")

	// 先断开 SSE 的上游，Stream 会随请求 ctx 结束
	listenCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("api shutdown complete")
}
