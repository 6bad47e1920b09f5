package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/checkout"
	"checkout-service/common/auth"
	"checkout-service/common/logger"
	commonmw "checkout-service/common/middleware"
	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/events"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/repository"
	"checkout-service/routes"
	servicepkg "checkout-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "checkout-service"

func main() {
	loadDotEnv()
	logger.Initialize(getEnv("APP_ENV", "development"))
	log := logger.Log
	// logger.Log is swapped when CloudWatch is enabled; sync whichever is current.
	defer func() { _ = logger.Log.Sync() }()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// AWS clients
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)
	awsAvailable := awsErr == nil
	if !awsAvailable {
		log.Warn("AWS config unavailable, SNS, DynamoDB and CloudWatch disabled", zap.Error(awsErr))
	}

	if awsAvailable && cfg.CloudWatchEnabled {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Warn("CloudWatch Logs unavailable, logging to stdout only", zap.Error(err))
		} else {
			logger.InitializeWithWriter(cfg.AppEnv, cwLogs)
			log = logger.Log
		}
	}

	var metrics *awspkg.MetricsClient
	if awsAvailable {
		metrics = awspkg.NewMetricsClient(awsCfg, "ECommerce/Checkout", cfg.CloudWatchEnabled)
	}

	// Databases
	mongoClient, mongoDB, err := database.ConnectMongo(cfg.MongoURL, cfg.MongoDB, log)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer database.DisconnectMongo(mongoClient) //nolint:errcheck

	sessionRepo := buildSessionRepository(ctx, cfg, mongoDB, log)
	storeRepo := buildStoreRepository(cfg, mongoDB, awsCfg, awsAvailable, log)

	var sessionCache repository.SessionCache
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, session cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			sessionCache = repository.NewRedisSessionCache(redisClient, cfg.SessionTTL)
		}
	}

	publisher := buildPublisher(cfg, awsCfg, awsAvailable, log)
	defer publisher.Close() //nolint:errcheck

	// DI chain
	checkoutService := servicepkg.NewCheckoutService(
		repository.NewMongoCartRepository(mongoDB),
		storeRepo,
		sessionRepo,
		sessionCache,
		publisher,
		metrics,
		servicepkg.CheckoutOptions{
			Pricing:        checkout.PricingConfig{Currency: cfg.Currency, Scale: cfg.MoneyScale},
			SessionTTL:     cfg.SessionTTL,
			IdempotencyTTL: cfg.IdempotencyTTL,
		},
		log,
	)
	checkoutController := controllers.NewCheckoutController(checkoutService)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonmw.RequestID())
	r.Use(commonmw.RequestLogger(log))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(commonmw.MetricsMiddleware(metrics, serviceName))
	r.Use(commonmw.Timeout(30 * time.Second))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	limiter := commonmw.NewRateLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMinute)), cfg.RateLimitPerMinute, 10*time.Minute)
	go limiter.Run(ctx)

	var validator *auth.TokenValidator
	if cfg.JWTSecret != "" {
		validator = auth.NewTokenValidator(cfg.JWTSecret)
	}
	routes.RegisterCheckoutRoutes(r, checkoutController, validator, limiter)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Checkout service started",
		zap.String("port", cfg.Port),
		zap.String("session_store", cfg.SessionStore),
		zap.String("catalog_store", cfg.CatalogStore),
		zap.String("event_sink", cfg.EventSink),
	)
	<-quit
	log.Info("Shutting down checkout service...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited cleanly")
}

func buildSessionRepository(ctx context.Context, cfg *Config, mongoDB *mongo.Database, log *zap.Logger) repository.SessionRepository {
	if cfg.SessionStore == "postgres" {
		db, err := database.ConnectPostgres(cfg.Postgres, log, &repository.CheckoutSessionRecord{})
		if err != nil {
			log.Fatal("Failed to connect to Postgres", zap.Error(err))
		}
		return repository.NewGormSessionRepository(db)
	}

	repo := repository.NewMongoSessionRepository(mongoDB)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create session indexes", zap.Error(err))
	}
	return repo
}

func buildStoreRepository(cfg *Config, mongoDB *mongo.Database, awsCfg sdkaws.Config, awsAvailable bool, log *zap.Logger) repository.StoreRepository {
	if cfg.CatalogStore == "dynamodb" {
		if !awsAvailable {
			log.Fatal("CATALOG_STORE=dynamodb requires AWS configuration")
		}
		return repository.NewDynamoStoreRepository(dynamodb.NewFromConfig(awsCfg), cfg.DynamoStoreTable)
	}
	return repository.NewMongoStoreRepository(mongoDB)
}

func buildPublisher(cfg *Config, awsCfg sdkaws.Config, awsAvailable bool, log *zap.Logger) events.Publisher {
	switch cfg.EventSink {
	case "sns":
		if !awsAvailable {
			log.Warn("SNS not configured, checkout events disabled")
			return events.NoopPublisher{}
		}
		return events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.CheckoutSNSTopicARN)
	case "kafka":
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	default:
		return events.NoopPublisher{}
	}
}
