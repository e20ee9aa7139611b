package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskbridge/backend/internal/config"
	"github.com/taskbridge/backend/internal/db"
	httpHandlers "github.com/taskbridge/backend/internal/http/handlers"
	httpRouter "github.com/taskbridge/backend/internal/http/router"
	"github.com/taskbridge/backend/internal/logger"
	"github.com/taskbridge/backend/internal/repository"
	"github.com/taskbridge/backend/internal/service"
	"github.com/taskbridge/backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера.
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)
	jobHistoryRepo := repository.NewJobHistoryRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	billingRepo := repository.NewBillingRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	ledgerService := service.NewLedgerService(ledgerRepo)
	matchingService := service.NewMatchingService(jobRepo, hub)
	jobHistoryService := service.NewJobHistoryService(jobHistoryRepo, jobRepo)
	paymentService := service.NewPaymentService(billingRepo, hub)
	reviewService := service.NewReviewService(reviewRepo, jobRepo, hub)
	notificationService := service.NewNotificationService(notificationRepo)
	seedService := service.NewSeedService(userRepo, jobRepo, ledgerRepo)

	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))

	// HTTP хэндлеры.
	h := httpRouter.Handlers{
		Auth:         httpHandlers.NewAuthHandler(authService),
		Profile:      httpHandlers.NewProfileHandler(authService),
		Job:          httpHandlers.NewJobHandler(matchingService, jobHistoryService),
		Ledger:       httpHandlers.NewLedgerHandler(ledgerService),
		Billing:      httpHandlers.NewBillingHandler(paymentService),
		Webhook:      httpHandlers.NewWebhookHandler(paymentService, cfg.WebhookSecret),
		Review:       httpHandlers.NewReviewHandler(reviewService),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager),
		Health:       httpHandlers.NewHealthHandler(dbConn),
		Seed:         httpHandlers.NewSeedHandler(seedService),
	}

	engine := httpRouter.SetupRouter(cfg, h, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
