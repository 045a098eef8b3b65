package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studyassist/studyassist-backend/api/controllers"
	webhookcontrollers "github.com/studyassist/studyassist-backend/api/controllers/webhooks"
	"github.com/studyassist/studyassist-backend/api/middleware"
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
	"github.com/studyassist/studyassist-backend/pkg/metrics"
	"github.com/studyassist/studyassist-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	authService auth.Service,
	registerService auth.RegisterService,
	profilesService profiles.Service,
	ordersService orders.Service,
	chatService chat.Service,
	filesService files.Service,
	paymentsService payments.Service,
	notificationsService notifications.Service,
	analyticsService analytics.Service,
	leadsService *leads.Service,
	webhookService *yookassawebhook.Service,
	httpMetrics *metrics.HTTPMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	leadPolicy := middleware.NewAuthRateLimitPolicy(
		"lead",
		cfg.AuthRateLimit.LeadWindow,
		cfg.AuthRateLimit.LeadIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Marketing pages call these without auth, from any origin.
	r.Route("/api/public", func(r chi.Router) {
		r.Use(middleware.PublicCORS())
		r.With(middleware.AuthRateLimit(leadPolicy, redisClient, logg)).Post("/leads", controllers.SubmitLead(leadsService, logg))
		r.Post("/quote", controllers.QuoteOrder(leadsService, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/yookassa", webhookcontrollers.YooKassa(webhookService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.CORS())
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS())
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/me", controllers.MyProfile(profilesService, logg))
			r.Put("/me", controllers.UpdateMyProfile(profilesService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/stats", controllers.AuthorStats(ordersService, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(ordersService, logg))
				r.Post("/accept", controllers.AcceptOrder(ordersService, logg))
				r.Post("/submit", controllers.SubmitOrder(ordersService, logg))
				r.Post("/approve", controllers.ApproveOrder(ordersService, logg))
				r.Post("/revision", controllers.RequestRevision(ordersService, logg))
				r.Post("/dispute", controllers.DisputeOrder(ordersService, logg))
				r.Post("/cancel", controllers.CancelOrder(ordersService, logg))

				r.Route("/messages", func(r chi.Router) {
					r.Get("/", controllers.ListOrderMessages(chatService, logg))
					r.Post("/", controllers.SendOrderMessage(chatService, logg))
					r.Get("/stream", controllers.StreamOrderMessages(chatService, cfg.Chat.StreamHeartbeat, logg))
				})

				r.Route("/files", func(r chi.Router) {
					r.Get("/", controllers.ListOrderFiles(filesService, logg))
					r.Post("/", controllers.AttachOrderFile(filesService, logg))
					r.Delete("/{fileId}", controllers.RemoveOrderFile(filesService, logg))
				})
			})
		})

		r.Post("/payments", controllers.CreatePaymentSession(paymentsService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.CORS())
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/stats", controllers.AdminOverview(analyticsService, logg))
		r.Post("/orders/{orderId}/status", controllers.AdminSetOrderStatus(ordersService, logg))
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", controllers.AdminListProfiles(profilesService, logg))
			r.Post("/{profileId}/admin", controllers.AdminSetAdmin(profilesService, logg))
			r.Post("/{profileId}/role", controllers.AdminSetRole(profilesService, logg))
			r.Delete("/{profileId}", controllers.AdminDeleteProfile(profilesService, logg))
		})
	})

	return r
}
