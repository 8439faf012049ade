package main

// @title ProspectRoute API
// @version 1.0
// @description Route planning, map markers, activity logs and team notifications for sales prospecting.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/prospectroute/config"
	_ "github.com/jordanlanch/prospectroute/docs" // Swagger docs
	"github.com/jordanlanch/prospectroute/pkg/activitylog"
	"github.com/jordanlanch/prospectroute/pkg/api/handlers"
	custommw "github.com/jordanlanch/prospectroute/pkg/api/middleware"
	"github.com/jordanlanch/prospectroute/pkg/auth"
	"github.com/jordanlanch/prospectroute/pkg/cache"
	"github.com/jordanlanch/prospectroute/pkg/database"
	"github.com/jordanlanch/prospectroute/pkg/geocode"
	"github.com/jordanlanch/prospectroute/pkg/jobs"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/mapview"
	"github.com/jordanlanch/prospectroute/pkg/metrics"
	custommiddleware "github.com/jordanlanch/prospectroute/pkg/middleware"
	"github.com/jordanlanch/prospectroute/pkg/notification"
	"github.com/jordanlanch/prospectroute/pkg/prospects"
	"github.com/jordanlanch/prospectroute/pkg/routeplanner"
	"github.com/jordanlanch/prospectroute/pkg/routing"
	"github.com/jordanlanch/prospectroute/pkg/secrets"
	"github.com/jordanlanch/prospectroute/pkg/storage"
	"github.com/jordanlanch/prospectroute/pkg/territory"
	"github.com/jordanlanch/prospectroute/pkg/users"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	appLogger := logger.New(cfg.LogLevel)

	// Credentials come from AWS Secrets Manager when enabled, the environment otherwise
	secretsManager, err := secrets.NewManager(secrets.AutoDetectConfig(), appLogger)
	if err != nil {
		log.Fatalf("❌ Failed to initialize secrets manager: %v", err)
	}
	defer secretsManager.Close()
	creds, err := secrets.LoadServiceSecrets(context.Background(), secretsManager, secrets.ServiceSecrets{
		JWTSecret:          cfg.JWTSecret,
		DatabaseURL:        cfg.DatabaseURL,
		RedisURL:           cfg.RedisURL,
		MapboxAccessToken:  cfg.MapboxAccessToken,
		AWSSecretAccessKey: cfg.AWSSecretAccessKey,
		SentryDSN:          cfg.SentryDSN,
	})
	if err != nil {
		log.Fatalf("❌ Failed to load secrets: %v", err)
	}
	cfg.JWTSecret = creds.JWTSecret
	cfg.DatabaseURL = creds.DatabaseURL
	cfg.RedisURL = creds.RedisURL
	cfg.MapboxAccessToken = creds.MapboxAccessToken
	cfg.AWSSecretAccessKey = creds.AWSSecretAccessKey
	cfg.SentryDSN = creds.SentryDSN

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database with SSL configuration
	sslCfg := &database.SSLConfig{
		Mode:         cfg.DBSSLMode,
		CertPath:     cfg.DBSSLCertPath,
		KeyPath:      cfg.DBSSLKeyPath,
		RootCertPath: cfg.DBSSLRootCertPath,
	}
	db, err := database.NewClientWithSSL(cfg.DatabaseURL, sslCfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	if cfg.MapboxAccessToken == "" {
		log.Printf("⚠️  MAPBOX_ACCESS_TOKEN not set, geocoding and routing will fail")
	}

	// Mapping
	geocoder := geocode.NewCachedResolver(
		geocode.NewClient(geocode.Config{
			BaseURL:           cfg.MapboxBaseURL,
			AccessToken:       cfg.MapboxAccessToken,
			Timeout:           cfg.GeocodeTimeout,
			RequestsPerSecond: cfg.GeocodeRPS,
		}, prometheusMetrics, appLogger),
		redisClient, cfg.GeocodeCacheTTL, prometheusMetrics, appLogger,
	)
	optimizer := routing.NewClient(routing.Config{
		BaseURL:     cfg.MapboxBaseURL,
		AccessToken: cfg.MapboxAccessToken,
		Timeout:     cfg.RouteTimeout,
	}, appLogger)
	scenes := mapview.NewScenes()
	planner := routeplanner.NewPlanner(geocoder, optimizer, scenes, prometheusMetrics, appLogger)
	markers := routeplanner.NewMarkerService(geocoder, scenes, cfg.GeocodeConcurrency, appLogger)

	// Data
	prospectRepo := prospects.NewRepository(db)
	userService := users.NewService(db)
	territoryService := territory.NewService(db)

	// Object storage for attachments
	objects, err := storage.New(context.Background(), storage.Config{
		Type:               cfg.StorageType,
		LocalPath:          cfg.StorageLocalPath,
		PublicBaseURL:      cfg.StoragePublicBaseURL,
		AWSRegion:          cfg.AWSRegion,
		AWSAccessKeyID:     cfg.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.AWSSecretAccessKey,
		S3Bucket:           cfg.S3Bucket,
		S3Endpoint:         cfg.S3Endpoint,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize storage: %v", err)
	}
	log.Printf("✅ Storage initialized (type: %s)", cfg.StorageType)

	// Notifications
	if cfg.DesignatedAdminID == 0 {
		log.Printf("ℹ️  DESIGNATED_ADMIN_ID not set, notes from reps only reach their supervisor")
	}
	notificationStore := notification.NewStore(db)
	notificationRouter := notification.NewRouter(notification.Config{
		DesignatedAdminID: cfg.DesignatedAdminID,
		ChannelPrefix:     cfg.NotificationChannelPrefix,
	}, notificationStore, userService, redisClient, prometheusMetrics, appLogger)
	signals := notification.NewSignals(redisClient, cfg.NotificationChannelPrefix, appLogger)

	activityService := activitylog.NewService(prospectRepo, objects, notificationRouter, prometheusMetrics, appLogger)

	// Token revocation
	blacklist := auth.NewTokenBlacklist(redisClient)

	// Initialize cron manager for the geocode warm-up
	warmup := jobs.NewGeocodeWarmup(prospectRepo, geocoder, cfg.GeocodeConcurrency, appLogger)
	cronManager := jobs.NewCronManager(warmup, cfg.GeocodeWarmupSchedule, appLogger)
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ Failed to setup cron jobs: %v", err)
	}
	cronManager.Start()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Initialize rate limiters. The global limiter runs before authentication,
	// so it buckets by IP; the endpoint limiter sits behind JWT and buckets by user.
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst).
		KeyBy(custommiddleware.IPKey)
	defer globalRateLimiter.Close()
	endpointRateLimiter := custommiddleware.NewPerEndpointRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	endpointRateLimiter.SetEndpointLimit("POST /api/v1/routes", 10, 3)
	endpointRateLimiter.SetEndpointLimit("POST /api/v1/map/prospects", 20, 5)
	endpointRateLimiter.SetEndpointLimit("POST /api/v1/prospects/:id/activity/attachments", 10, 2)
	defer endpointRateLimiter.Close()

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Sentry error tracking middleware (if configured)
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		// Compression buffers server-sent events
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/v1/notifications/stream"
		},
	}))
	e.Use(middleware.Secure())
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", (activitylog.MaxAttachmentBytes>>20)+1)))

	// Global rate limiting
	e.Use(globalRateLimiter.RateLimitMiddleware())

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "ProspectRoute API",
			"version":     "1.0.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	healthHandler := handlers.NewHealthHandler(db, redisClient)
	e.GET("/health", healthHandler.Check)

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Swagger documentation (public)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	if cfg.StorageType == "" || cfg.StorageType == "local" {
		e.Static("/uploads", cfg.StorageLocalPath)
	}

	// API v1 routes, all authenticated
	v1 := e.Group("/api/v1")
	v1.Use(custommw.JWTMiddlewareWithBlacklist(cfg.JWTSecret, blacklist))
	v1.Use(endpointRateLimiter.RateLimitMiddleware())

	authHandler := handlers.NewAuthHandler(blacklist)
	v1.GET("/auth/me", authHandler.Me)
	v1.POST("/auth/logout", authHandler.Logout)

	routeHandler := handlers.NewRouteHandler(planner, prospectRepo)
	v1.POST("/routes", routeHandler.PlanRoute)
	v1.DELETE("/routes", routeHandler.ClearRoute)
	v1.GET("/routes/current", routeHandler.CurrentRoute)
	v1.POST("/geocode/reverse", routeHandler.ReverseGeocode)

	mapHandler := handlers.NewMapHandler(markers, prospectRepo)
	v1.POST("/map/prospects", mapHandler.PlaceProspects)
	v1.GET("/map/clusters", mapHandler.Clusters)
	v1.GET("/map/prospects/:id/popup", mapHandler.Popup)
	v1.GET("/map/scene", mapHandler.Scene)

	prospectHandler := handlers.NewProspectHandler(prospectRepo)
	v1.GET("/prospects/:id", prospectHandler.Get)
	v1.PATCH("/prospects/:id", prospectHandler.UpdatePipeline)

	activityHandler := handlers.NewActivityHandler(activityService, prospectRepo)
	v1.GET("/prospects/:id/activity", activityHandler.List)
	v1.POST("/prospects/:id/activity", activityHandler.Append)
	v1.POST("/prospects/:id/activity/attachments", activityHandler.UploadAttachment)
	v1.PUT("/prospects/:id/activity/:entry_id/likes", activityHandler.UpdateLikes)
	v1.POST("/prospects/:id/activity/:entry_id/replies", activityHandler.AddReply)

	notificationHandler := handlers.NewNotificationHandler(notificationStore, signals)
	v1.GET("/notifications", notificationHandler.List)
	v1.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	v1.GET("/notifications/stream", notificationHandler.Stream)

	territoryHandler := handlers.NewTerritoryHandler(territoryService)
	v1.POST("/territories", territoryHandler.CreateTerritory)
	v1.GET("/territories", territoryHandler.ListTerritories)
	v1.PATCH("/territories/:id/active", territoryHandler.SetActive)

	// Report pool usage alongside the request metrics
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			prometheusMetrics.UpdateDBConnections(float64(db.Stats().InUse))
		}
	}()

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 Server starting on %s", address)

	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	cronManager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
