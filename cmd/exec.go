package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"

	"lunch-queue/config"
	"lunch-queue/handlers"
	"lunch-queue/internal/notify"
	"lunch-queue/internal/ops"
	"lunch-queue/internal/store"
	_ "lunch-queue/migrations"
	"lunch-queue/monitoring"
	"lunch-queue/security"
	"lunch-queue/services"
	"lunch-queue/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pnConfig.UUID = cfg.PubNubUUID

	pn := pubnub.NewPubNub(pnConfig)

	// Initialize services
	notifier := notify.NewPubNubNotifier(pn, cfg.AnnounceChannel)
	locker := utils.NewSessionLocker(redisClient, cfg.SessionLockTTL)
	monitor := monitoring.NewMonitor()
	lunchService := services.NewLunchService(store.New(app), notifier, locker, monitor, cfg)

	limiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)
	guard := security.NewTokenGuard(cfg.AdminTokenHash)

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(lunchService, limiter)
	adminHandler := handlers.NewAdminHandler(lunchService, guard)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Context for background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	go handleShutdown(cancel)

	// Inbound button presses from the chat frontend
	listener := notify.NewListener(cfg.PubNubSubscribeKey, cfg.PubNubUUID, cfg.ActionChannel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Participant endpoints
		e.Router.POST("/api/v1/queue/join", queueHandler.Join)
		e.Router.POST("/api/v1/queue/ready", queueHandler.Ready)
		e.Router.POST("/api/v1/queue/start", queueHandler.Start)
		e.Router.POST("/api/v1/queue/return", queueHandler.Return)
		e.Router.GET("/api/v1/queue/status", queueHandler.Status)
		e.Router.POST("/api/v1/actions", queueHandler.Action)
		e.Router.GET("/api/v1/sessions/today/stats", queueHandler.TodayStats)

		// Admin endpoints
		e.Router.POST("/api/v1/admin/sessions", adminHandler.CreateSession)
		e.Router.POST("/api/v1/admin/sessions/{sessionId}/activate", adminHandler.Activate)
		e.Router.POST("/api/v1/admin/sessions/{sessionId}/close", adminHandler.Close)
		e.Router.PATCH("/api/v1/admin/sessions/{sessionId}/policy", adminHandler.UpdatePolicy)
		e.Router.POST("/api/v1/admin/sessions/{sessionId}/admit", adminHandler.Admit)
		e.Router.GET("/api/v1/admin/sessions/{sessionId}/board", adminHandler.Board)
		e.Router.POST("/api/v1/admin/sweep", adminHandler.Sweep)
		e.Router.POST("/api/v1/admin/participants/{externalId}/role", adminHandler.SetRole)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		// Background workers
		go lunchService.RunSweepLoop(ctx, cfg.SweepInterval)
		listener.Start(ctx)
		go pumpActions(ctx, lunchService, notifier, listener)

		if cfg.EnableMetrics {
			opsServer := ops.NewServer(redisClient)
			go func() {
				if err := opsServer.Start(cfg.MetricsPort); err != nil {
					slog.Error("ops server failed", "error", err)
				}
			}()
		}

		return e.Next()
	})

	return app.Start()
}

// pumpActions drains the chat listener and routes button presses into the
// service, sending the reply back on the participant's channel.
func pumpActions(ctx context.Context, svc *services.LunchService, notifier services.Notifier, listener *notify.Listener) {
	for event := range listener.Events() {
		participant, err := svc.ParticipantByExternalID(ctx, event.ExternalID)
		if err != nil {
			slog.Warn("action from unknown participant", "external_id", event.ExternalID, "error", err)
			continue
		}
		reply, err := svc.HandleAction(ctx, participant.ID, event.Data)
		if err != nil {
			slog.Error("action handling failed", "external_id", event.ExternalID, "data", event.Data, "error", err)
			continue
		}
		if reply != "" {
			if err := notifier.Notify(ctx, event.ExternalID, reply); err != nil {
				slog.Warn("action reply delivery failed", "external_id", event.ExternalID, "error", err)
			}
		}
	}
}

// handleShutdown handles graceful shutdown of background workers.
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
