package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridepair/internal/config"
	handlers "ridepair/internal/handlers/shared"
	"ridepair/internal/middleware"
	"ridepair/internal/services"
	"ridepair/pkg/logger"
	"ridepair/pkg/websocket"
	"ridepair/routes"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.App.LogLevel),
		Format:     cfg.App.LogFormat,
		Output:     "stdout",
		TimeFormat: time.RFC3339,
		AppName:    cfg.App.Name,
		Version:    cfg.App.Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.App.Debug {
		log.SetLevel(logger.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// Infrastructure
	cacheSvc, closeCache, err := newCache(cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeCache()

	stores, err := newStores(ctx, cfg, cacheSvc, log)
	if err != nil {
		return err
	}
	defer stores.close()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg.Outbox)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}

	pushProviders, err := newPushProviders(ctx, cfg.Push, log)
	if err != nil {
		return err
	}

	smsProvider, err := newSMSProvider(ctx, cfg.SMS)
	if err != nil {
		return err
	}

	routeEstimator, err := newRouteEstimator(cfg.Maps, log)
	if err != nil {
		return err
	}

	generator, err := newSuggestionGenerator(ctx, cfg.Suggestion, log)
	if err != nil {
		return err
	}

	// Services
	broadcaster := services.NewRealtimeBroadcaster(cacheSvc, log)

	sinks := []services.NotificationSink{
		services.NewRepositorySink(stores.notifications),
		services.NewRealtimeSink(broadcaster),
	}
	if len(pushProviders) > 0 {
		sinks = append(sinks, services.NewPushSink(cacheSvc, pushProviders, log))
	}
	if publisher != nil {
		sinks = append(sinks, services.NewQueueSink(publisher))
	}
	notificationService := services.NewNotificationService(stores.notifications, cfg.Outbox.BufferSize, cfg.Outbox.DeliverTimeout, log, sinks...)

	rideService := services.NewRideService(stores.rides, cacheSvc, notificationService, cfg.Lifecycle, log)
	chatService := services.NewChatService(stores.rides, stores.chat, broadcaster, notificationService, log)
	emergencyService := services.NewEmergencyService(stores.rides, stores.emergencies, smsProvider, cfg.Emergency.HotlineNumbers, broadcaster, notificationService, log)
	deviceService := services.NewDeviceService(cacheSvc, log)
	suggestionService := services.NewSuggestionService(generator, routeEstimator, log)

	// Background workers
	var workers sync.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	hub := websocket.NewHub(handlers.RideRoomAuthorizer(rideService, log), log)
	workers.Add(3)
	go func() {
		defer workers.Done()
		hub.Run(workerCtx)
	}()
	go func() {
		defer workers.Done()
		if err := broadcaster.Relay(workerCtx, hub); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("realtime relay stopped")
		}
	}()
	go func() {
		defer workers.Done()
		notificationService.Run(workerCtx)
	}()

	// Initialize handlers
	rideHandler := handlers.NewRideHandler(rideService, log)
	requestHandler := handlers.NewRequestHandler(rideService, log)
	chatHandler := handlers.NewChatHandler(chatService, log)
	emergencyHandler := handlers.NewEmergencyHandler(emergencyService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, deviceService, log)
	suggestionHandler := handlers.NewSuggestionHandler(suggestionService, log)
	wsHandler := websocket.NewHandler(workerCtx, hub, websocket.Options{
		ReadBufferSize:   cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  cfg.WebSocket.WriteBufferSize,
		HandshakeTimeout: cfg.WebSocket.HandshakeTimeout,
		PingInterval:     cfg.WebSocket.PingInterval,
		PongTimeout:      cfg.WebSocket.PongTimeout,
		MaxMessageSize:   cfg.WebSocket.MaxMessageSize,
		AllowedOrigins:   cfg.WebSocket.AllowedOrigins,
	})

	// Initialize Gin router
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))

	// API routes
	auth := middleware.AuthRequired(verifier, log)
	v1 := router.Group("/api/v1")
	{
		routes.SetupRideRoutes(v1, auth, rideHandler, chatHandler, emergencyHandler)
		routes.SetupRequestRoutes(v1, auth, requestHandler)
		routes.SetupNotificationRoutes(v1, auth, notificationHandler)
		routes.SetupSuggestionRoutes(v1, auth, suggestionHandler)
		routes.SetupWebSocketRoutes(v1, cfg.WebSocket.Path, auth, wsHandler)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := cacheSvc.Ping(c.Request.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": cfg.App.Version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server did not shut down cleanly")
	}

	// Stopping the workers flushes the notification outbox.
	stopWorkers()
	workers.Wait()
	return nil
}
