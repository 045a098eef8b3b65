package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/studyassist/studyassist-backend/api/routes"
	"github.com/studyassist/studyassist-backend/internal/analytics"
	"github.com/studyassist/studyassist-backend/internal/auth"
	"github.com/studyassist/studyassist-backend/internal/chat"
	"github.com/studyassist/studyassist-backend/internal/files"
	"github.com/studyassist/studyassist-backend/internal/leads"
	"github.com/studyassist/studyassist-backend/internal/notifications"
	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/internal/payments"
	"github.com/studyassist/studyassist-backend/internal/profiles"
	yookassawebhook "github.com/studyassist/studyassist-backend/internal/webhooks/yookassa"
	"github.com/studyassist/studyassist-backend/pkg/auth/session"
	"github.com/studyassist/studyassist-backend/pkg/config"
	"github.com/studyassist/studyassist-backend/pkg/db"
	"github.com/studyassist/studyassist-backend/pkg/logger"
	"github.com/studyassist/studyassist-backend/pkg/mailer"
	"github.com/studyassist/studyassist-backend/pkg/metrics"
	"github.com/studyassist/studyassist-backend/pkg/migrate"
	"github.com/studyassist/studyassist-backend/pkg/redis"
	"github.com/studyassist/studyassist-backend/pkg/telegram"
	"github.com/studyassist/studyassist-backend/pkg/yookassa"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	profilesRepo := profiles.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)

	authService, err := auth.NewService(auth.ServiceParams{
		ProfileRepo:    profilesRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	profilesService, err := profiles.NewService(profilesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create profiles service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, notificationsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	chatService, err := chat.NewService(chat.NewRepository(gormDB), ordersRepo, redisClient, cfg.Chat)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
		os.Exit(1)
	}

	filesService, err := files.NewService(files.NewRepository(gormDB), ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create files service", err)
		os.Exit(1)
	}

	yookassaClient, err := yookassa.NewClient(cfg.YooKassa)
	if err != nil {
		logg.Error(context.Background(), "failed to create yookassa client", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(yookassaClient, ordersRepo, profilesRepo, cfg.YooKassa)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(analytics.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	telegramNotifier, err := telegram.NewNotifier(cfg.Telegram)
	if err != nil {
		logg.Error(context.Background(), "failed to create telegram notifier", err)
		os.Exit(1)
	}

	leadsParams := leads.ServiceParams{
		Telegram: telegramNotifier,
		EmailTo:  cfg.Resend.LeadsTo,
		Logger:   logg,
	}
	if cfg.Resend.APIKey != "" {
		mailerClient, err := mailer.NewResendClient(cfg.Resend)
		if err != nil {
			logg.Error(context.Background(), "failed to create resend client", err)
			os.Exit(1)
		}
		leadsParams.Email = mailerClient
	} else {
		logg.Info(context.Background(), "resend not configured, lead email side channel disabled")
	}

	leadsService, err := leads.NewService(leadsParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create leads service", err)
		os.Exit(1)
	}

	webhookGuard, err := yookassawebhook.NewIdempotencyGuard(redisClient, cfg.YooKassa.EventTTL, "yookassa")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookService, err := yookassawebhook.NewService(yookassawebhook.ServiceParams{
		Orders:        ordersService,
		Guard:         webhookGuard,
		Logger:        logg,
		WebhookSecret: cfg.YooKassa.WebhookSecret,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			registerService,
			profilesService,
			ordersService,
			chatService,
			filesService,
			paymentsService,
			notificationsService,
			analyticsService,
			leadsService,
			webhookService,
			httpMetrics,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
