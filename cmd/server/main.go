package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"campusride/internal/config"
	"campusride/internal/handlers"
	"campusride/internal/middleware"
	"campusride/internal/repositories/mongodb"
	"campusride/internal/services"
	"campusride/pkg/cache"
	"campusride/pkg/database"
	"campusride/pkg/logger"
	"campusride/pkg/maps"
	"campusride/pkg/push"
	"campusride/pkg/sms"
	ws "campusride/pkg/websocket"
	"campusride/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewMongoDB(&database.Config{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer db.Close()

	if err := db.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisCache.Close()

	mapsProvider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
	if err != nil {
		log.Fatalf("failed to initialize maps client: %v", err)
	}

	var fcmProvider, apnsProvider push.Provider
	if cfg.Push.FCM.Credentials != "" {
		p, err := push.NewFCMProvider(cfg.Push.FCM.Credentials)
		if err != nil {
			log.Fatalf("failed to initialize fcm: %v", err)
		}
		fcmProvider = p
	}
	if cfg.Push.APNS.KeyFile != "" {
		p, err := push.NewAPNSProvider(cfg.Push.APNS.KeyFile, cfg.Push.APNS.KeyID,
			cfg.Push.APNS.TeamID, cfg.Push.APNS.BundleID, cfg.Push.APNS.Production)
		if err != nil {
			log.Fatalf("failed to initialize apns: %v", err)
		}
		apnsProvider = p
	}

	var smsSender sms.Sender
	switch cfg.SMS.Provider {
	case "twilio":
		if cfg.SMS.Twilio.AccountSID != "" {
			smsSender = sms.NewTwilioSender(cfg.SMS.Twilio.AccountSID,
				cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber)
		}
	case "sns":
		s, err := sms.NewAWSSNSSender(cfg.SMS.AWS.Region)
		if err != nil {
			log.Fatalf("failed to initialize sns: %v", err)
		}
		smsSender = s
	}
	if smsSender == nil {
		log.Warn("no sms provider configured, emergency contact alerts disabled")
	}

	rideRepo := mongodb.NewRideRepository(db.Database)
	signalRepo := mongodb.NewSignalRepository(db.Database)
	messageRepo := mongodb.NewMessageRepository(db.Database)
	userRepo := mongodb.NewUserRepository(db.Database)
	carRepo := mongodb.NewCarRepository(db.Database)

	wsHandler := ws.NewHandler()

	cacheService := services.NewCacheService(redisCache)
	membershipService := services.NewMembershipService(rideRepo, cacheService, log)
	notifier := services.NewNotificationService(userRepo, fcmProvider, apnsProvider, log)
	broadcaster := services.NewBroadcaster(wsHandler.GetHub(), cacheService, membershipService, notifier, log)

	lifecycleService := services.NewLifecycleService(rideRepo, carRepo, userRepo, messageRepo, db, broadcaster, log)
	bookingService := services.NewBookingService(rideRepo, messageRepo, db, broadcaster, log)
	sosService := services.NewSOSService(rideRepo, carRepo, userRepo, messageRepo, db, broadcaster, smsSender, log)
	signalService := services.NewSignalService(rideRepo, signalRepo, db, broadcaster, log)
	messageService := services.NewMessageService(rideRepo, messageRepo, db, broadcaster, log)
	etaService := services.NewETAService(rideRepo, signalRepo, mapsProvider, log)

	h := &routes.Handlers{
		Rides:    handlers.NewRideHandler(lifecycleService, membershipService),
		Bookings: handlers.NewBookingHandler(bookingService),
		SOS:      handlers.NewSOSHandler(sosService),
		Signals:  handlers.NewSignalHandler(signalService),
		Messages: handlers.NewMessageHandler(messageService),
		ETA:      handlers.NewETAHandler(etaService),
		WS:       wsHandler,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(log))
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		log.Fatalf("invalid trusted proxies: %v", err)
	}

	v1 := router.Group("/api/v1")
	routes.SetupRideRoutes(v1, h, cfg.Security.JWTSecret)

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		health := "healthy"
		if err := db.Ping(); err != nil {
			status = http.StatusServiceUnavailable
			health = "degraded"
		}
		c.JSON(status, gin.H{
			"status":  health,
			"version": cfg.App.Version,
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("forced shutdown: %v", err)
	}
}
