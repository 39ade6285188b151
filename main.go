package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kelpAPI/handlers"
	"kelpAPI/internal/cache"
	"kelpAPI/internal/config"
	"kelpAPI/internal/llm"
	"kelpAPI/internal/notification"
	"kelpAPI/internal/store"
	"kelpAPI/internal/workers"
	"kelpAPI/middleware"
	"kelpAPI/services"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// initLogger initializes the structured logger based on environment
func initLogger() (*zap.Logger, error) {
	var cfg zap.Config
	switch os.Getenv("GO_ENV") {
	case "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.Store, error) {
	if cfg.Database.Driver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	pool, err := store.Connect(ctx, cfg.Database.URL, cfg.Database.ConnectTimeout, logger)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(cfg.Database.URL, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return store.NewPostgresStore(pool, logger), nil
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	clerk.SetKey(cfg.Auth.ClerkSecretKey)
	logger.Info("Clerk initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("closing store")
		db.Close()
	}()

	// Optional integrations. Each is left nil when unavailable so the
	// services fall back to their degraded behavior.
	var leaderboardCache services.JSONCache
	if cfg.Database.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.Database.RedisURL, "kelp:")
		if err != nil {
			logger.Warn("redis unavailable, leaderboard cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			leaderboardCache = rc
			logger.Info("leaderboard cache enabled", zap.Duration("ttl", cfg.Database.LeaderboardCacheTTL))
		}
	}

	var push services.PushProvider
	fcm, err := notification.NewFCMService(cfg.Notifications.FCMCredentialsFile, logger)
	if err != nil {
		logger.Warn("could not initialize FCM, push disabled", zap.Error(err))
	} else {
		push = fcm
		logger.Info("FCM push provider initialized")
	}

	var generator services.TextGenerator
	if cfg.Insights.GeminiAPIKey != "" {
		g, err := llm.NewGeminiGenerator(ctx, cfg.Insights.GeminiAPIKey, cfg.Insights.GeminiModel)
		if err != nil {
			logger.Warn("could not initialize Gemini, insights disabled", zap.Error(err))
		} else {
			generator = g
		}
	}

	// Services
	notificationService := services.NewNotificationService(db, push, logger)
	badgeService := services.NewBadgeService(db, logger)
	badgeService.SetNotifier(notificationService)
	referralService := services.NewReferralService(db, cfg.Referral.ShareLinkBase, logger)
	profileService := services.NewProfileService(db, logger)
	activityService := services.NewActivityService(db, badgeService, logger)
	leaderboardService := services.NewLeaderboardService(db, leaderboardCache, cfg.Database.LeaderboardCacheTTL, logger)
	insightService := services.NewInsightService(db, generator, logger)

	if err := badgeService.EnsureSeeded(ctx); err != nil {
		logger.Warn("initial badge seeding failed", zap.Error(err))
	}

	scheduler, err := workers.Start(insightService, profileService, cfg.Insights.HourUTC, logger)
	if err != nil {
		return err
	}
	defer scheduler.Shutdown()

	// Handlers
	funcHandler := handlers.NewFuncHandler(badgeService, logger)
	userHandler := handlers.NewUserHandler(badgeService, logger)
	referralHandler := handlers.NewReferralHandler(referralService, logger)
	activityHandler := handlers.NewActivityHandler(activityService, leaderboardService, insightService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)
	webhookHandler, err := handlers.NewWebhookHandler(profileService, referralService, cfg.Auth.ClerkWebhookSecret, logger)
	if err != nil {
		return err
	}

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger).
		TrustForwardedFor(cfg.Server.TrustProxy)
	go limiter.Cleanup(ctx)

	if cfg.Auth.FunctionsAPIKey == "" {
		logger.Warn("FUNCTIONS_API_KEY not set, /functions/v1 is open")
	}

	router := newRouter(&routes{
		funcs:         funcHandler,
		users:         userHandler,
		referrals:     referralHandler,
		activities:    activityHandler,
		notifications: notificationHandler,
		webhooks:      webhookHandler,
		limiter:       limiter,
		verify:        middleware.ClerkVerifier,
		ping:          db.Ping,
		metricsUser:   cfg.Metrics.User,
		metricsPass:   cfg.Metrics.Password,
		functionsKey:  cfg.Auth.FunctionsAPIKey,
		logger:        logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	select {
	case err := <-errCh:
		return fmt.Errorf("error starting server: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server shutdown complete")
	return nil
}

// routes is everything newRouter mounts.
type routes struct {
	funcs         *handlers.FuncHandler
	users         *handlers.UserHandler
	referrals     *handlers.ReferralHandler
	activities    *handlers.ActivityHandler
	notifications *handlers.NotificationHandler
	webhooks      *handlers.WebhookHandler
	limiter       *middleware.RateLimiter
	verify        middleware.TokenVerifier
	ping          func(ctx context.Context) error
	metricsUser   string
	metricsPass   string
	functionsKey  string
	logger        *zap.Logger
}

func newRouter(rt *routes) http.Handler {
	r := mux.NewRouter()
	r.Use(rt.limiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(rt.metricsUser, rt.metricsPass)(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := rt.ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "kelp-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", rt.webhooks.HandleClerkWebhook).Methods("POST")

	functions := r.PathPrefix("/functions/v1").Subrouter()
	functions.Use(middleware.APIKeyMiddleware(rt.functionsKey))
	functions.HandleFunc("/assign-badges", rt.funcs.AssignBadges).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/referral/validate", rt.referrals.ValidateCode).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware(rt.verify, rt.logger))

	protected.HandleFunc("/referral/code", rt.referrals.GetCode).Methods("GET")
	protected.HandleFunc("/referral/code/regenerate", rt.referrals.RegenerateCode).Methods("POST")
	protected.HandleFunc("/referral/share", rt.referrals.ShareCode).Methods("GET")
	protected.HandleFunc("/referral/redeem", rt.referrals.RedeemCode).Methods("POST")

	protected.HandleFunc("/user/badges", rt.users.GetBadges).Methods("GET")
	protected.HandleFunc("/activities", rt.activities.LogActivity).Methods("POST")
	protected.HandleFunc("/leaderboard", rt.activities.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/insights/today", rt.activities.GetTodayInsight).Methods("GET")

	protected.HandleFunc("/notifications/register-device", rt.notifications.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"authorization", "x-client-info", "apikey", "content-type"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	return corsHandler(r)
}
