package main

import (
	"context"
	"fmt"

	"ridepair/internal/config"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/repositories/memory"
	"ridepair/internal/repositories/mongodb"
	"ridepair/internal/services"
	"ridepair/pkg/cache"
	"ridepair/pkg/database"
	"ridepair/pkg/identity"
	"ridepair/pkg/llm"
	"ridepair/pkg/logger"
	"ridepair/pkg/maps"
	"ridepair/pkg/push"
	"ridepair/pkg/queue"
	"ridepair/pkg/sms"
)

type cacheBackend interface {
	services.CacheService
	Close() error
}

func newCache(cfg *config.RedisConfig, log *logger.Logger) (cacheBackend, func(), error) {
	if !cfg.Enabled() {
		log.Warn("REDIS_HOST not set, using the in-process cache")
		c := cache.NewMemoryCache()
		return c, func() { _ = c.Close() }, nil
	}

	c, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("Connected to Redis")
	return c, func() {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("failed to close redis")
		}
	}, nil
}

type storeSet struct {
	rides         interfaces.RideStore
	chat          interfaces.ChatRepository
	emergencies   interfaces.EmergencyRepository
	notifications interfaces.NotificationRepository
	close         func()
}

func newStores(ctx context.Context, cfg *config.Config, cacheSvc services.CacheService, log *logger.Logger) (*storeSet, error) {
	if cfg.Store.Driver == "memory" {
		log.Warn("STORE_DRIVER=memory, rides are not persisted")
		return &storeSet{
			rides:         memory.NewRideStore(),
			chat:          memory.NewChatRepository(),
			emergencies:   memory.NewEmergencyRepository(),
			notifications: memory.NewNotificationRepository(),
			close:         func() {},
		}, nil
	}

	// Initialize database
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	log.Info("Connected to MongoDB")

	if cfg.Database.RunMigrations {
		if err := database.NewMigrator(db.Database, log).Up(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &storeSet{
		rides:         mongodb.NewRideStore(db),
		chat:          mongodb.NewChatRepository(db.Database),
		emergencies:   mongodb.NewEmergencyRepository(db.Database),
		notifications: mongodb.NewNotificationRepository(db.Database, cacheSvc),
		close: func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("failed to close mongodb")
			}
		},
	}, nil
}

func newVerifier(ctx context.Context, cfg *config.Config) (identity.Verifier, error) {
	if cfg.Identity.Provider == "firebase" {
		v, err := identity.NewFirebaseVerifier(ctx, cfg.Identity.FirebaseProjectID, cfg.Identity.FirebaseCredentials)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
		}
		return v, nil
	}
	return identity.NewJWTVerifier(cfg.Security.JWTSecret, cfg.Security.JWTIssuer), nil
}

// newPublisher returns nil when the outbox only delivers in-process.
func newPublisher(cfg *config.OutboxConfig) (queue.Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		return queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "rabbitmq":
		p, err := queue.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		return p, nil
	}
	return nil, nil
}

func newPushProviders(ctx context.Context, cfg *config.PushConfig, log *logger.Logger) (map[string]push.Provider, error) {
	providers := make(map[string]push.Provider)
	if cfg.FCMEnabled() {
		fcm, err := push.NewFCMProvider(ctx, cfg.FCM.ProjectID, cfg.FCM.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize FCM: %w", err)
		}
		providers[services.PlatformAndroid] = fcm
	}
	if cfg.APNSEnabled() {
		apns, err := push.NewAPNSProvider(cfg.APNS.KeyFile, cfg.APNS.KeyID, cfg.APNS.TeamID, cfg.APNS.BundleID, cfg.APNS.Production)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize APNs: %w", err)
		}
		providers[services.PlatformIOS] = apns
	}
	if len(providers) == 0 {
		log.Info("No push provider configured")
	}
	return providers, nil
}

func newSMSProvider(ctx context.Context, cfg *config.SMSConfig) (sms.Provider, error) {
	switch cfg.Provider {
	case "twilio":
		return sms.NewTwilioProvider(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber), nil
	case "sns":
		p, err := sms.NewAWSSNSProvider(ctx, cfg.AWS.Region, cfg.SenderID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SNS: %w", err)
		}
		return p, nil
	}
	return sms.Noop{}, nil
}

func newRouteEstimator(cfg *config.MapsConfig, log *logger.Logger) (maps.RouteEstimator, error) {
	if cfg.GoogleMaps.APIKey == "" {
		log.Info("GOOGLE_MAPS_API_KEY not set, route suggestions need an explicit distance")
		return nil, nil
	}
	p, err := maps.NewGoogleMapsProvider(cfg.GoogleMaps.APIKey, cfg.GoogleMaps.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize google maps: %w", err)
	}
	return p, nil
}

func newSuggestionGenerator(ctx context.Context, cfg *config.SuggestionConfig, log *logger.Logger) (services.SuggestionGenerator, error) {
	if cfg.APIKey == "" {
		log.Info("GEMINI_API_KEY not set, route suggestions are disabled")
		return nil, nil
	}
	client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
