package cmd

import (
	"errors"
	"log"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"

	"community-system/config"
	"community-system/handlers"
	_ "community-system/migrations"
	"community-system/monitoring"
	"community-system/security"
	"community-system/services"
	"community-system/store"
	"community-system/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub (optional; scans work without realtime)
	var realtime *services.RealtimeService
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId("community-system-server"))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey

		realtime = services.NewRealtimeService(pubnub.NewPubNub(pnConfig))
	} else {
		slog.Warn("PubNub keys not configured, realtime updates disabled")
	}

	// Initialize monitoring
	var monitor *monitoring.Monitor
	if cfg.EnableMetrics {
		monitor = monitoring.NewMonitor(redisClient)
		go startOpsServer(cfg, redisClient)
	}

	// Initialize services
	hasher := utils.NewCardHasher(cfg.CardHashSalt)
	pbStore := store.NewPBStore(app)
	occupancyCache := services.NewOccupancyCache(redisClient, cfg.OccupancyCacheTTL)
	occupancyService := services.NewOccupancyService(pbStore, hasher, occupancyCache, realtime, monitor)
	attendanceService := services.NewAttendanceService(pbStore, realtime, monitor)
	identityService := services.NewIdentityService(pbStore, hasher)

	// Initialize handlers
	scanHandler := handlers.NewScanHandler(app, occupancyService, attendanceService, cfg.DeviceAPIKey)
	occupancyHandler := handlers.NewOccupancyHandler(app, occupancyService)
	attendanceHandler := handlers.NewAttendanceHandler(app, attendanceService)
	adminHandler := handlers.NewAdminHandler(app, identityService, occupancyService, attendanceService)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.ScanRateLimit, cfg.ScanRateWindow)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	// Register routes
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Scan endpoints (device firmware)
		e.Router.POST("/api/access/scan", scanHandler.RecordScan).
			BindFunc(scanHandler.RequireDeviceKey).
			BindFunc(rateLimiter.ScanRateLimit())
		e.Router.POST("/api/attendance/scan", scanHandler.ToggleAttendance).
			BindFunc(scanHandler.RequireDeviceKey).
			BindFunc(rateLimiter.ScanRateLimit())

		// Occupancy endpoints
		e.Router.GET("/api/facilities/{facilityId}/occupancy", occupancyHandler.GetOccupancy)

		// Attendance endpoints
		e.Router.GET("/api/events/{slug}/attendance/{username}", attendanceHandler.GetStatus)
		e.Router.POST("/api/events/{slug}/unregister", attendanceHandler.Unregister)

		// Admin endpoints
		e.Router.POST("/api/admin/cards", adminHandler.EnrollCard)
		e.Router.POST("/api/admin/cards/revoke", adminHandler.RevokeCard)
		e.Router.GET("/api/admin/access-events", adminHandler.ListAccessEvents)
		e.Router.POST("/api/admin/attendance/recompute", adminHandler.RecomputeAttendance)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	return app.Start()
}

// startOpsServer serves prometheus metrics and liveness probes on a
// separate port so the public API surface stays clean.
func startOpsServer(cfg *config.Config, redisClient *redis.Client) {
	e := echo.New()

	e.GET("/metrics", func(c echo.Context) error {
		promhttp.Handler().ServeHTTP(c.Response(), c.Request())
		return nil
	})
	e.GET("/healthz", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	srv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: e}
	slog.Info("ops server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("ops server stopped: %v", err)
	}
}
