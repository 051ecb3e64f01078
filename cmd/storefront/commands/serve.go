package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/suteetoe/storefront/internal/cache"
	"github.com/suteetoe/storefront/internal/events"
	"github.com/suteetoe/storefront/internal/handler"
	mid "github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/internal/repository"
	"github.com/suteetoe/storefront/internal/service"
	"github.com/suteetoe/storefront/pkg/config"
	"github.com/suteetoe/storefront/pkg/database"
	"github.com/suteetoe/storefront/pkg/jwtutil"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var migrateOnStart bool

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		return serve(cmd.Context(), appConfig, log)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "migrate the schema before serving")
}

func serve(ctx context.Context, appConfig *config.Config, log *zap.Logger) error {
	log.Info("Starting storefront", appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig.Metrics.Prefix)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	db, err := database.InitDB(&appConfig.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)
	log.Info("Database connection established")

	if migrateOnStart {
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("Database migrated")
	}

	checks := map[string]handler.Pinger{"database": pingDB(db)}

	var trending cache.TrendingCache = cache.NopTrendingCache{}
	if appConfig.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     appConfig.Redis.Addr,
			Password: appConfig.Redis.Password,
			DB:       appConfig.Redis.DB,
		})
		defer client.Close()
		trending = cache.NewRedisTrendingCache(client, appConfig.Shop.TrendingCacheTTL)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		log.Info("Trending cache enabled", zap.String("redis_addr", appConfig.Redis.Addr))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(appConfig.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(appConfig.Kafka.Brokers, appConfig.Kafka.Topic)
		log.Info("Order events enabled",
			zap.Strings("brokers", appConfig.Kafka.Brokers),
			zap.String("topic", appConfig.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("Failed to close order event publisher", zap.Error(err))
		}
	}()

	products := repository.NewProductRepository(db, appConfig.Shop.MaxSlugAttempts)
	categories := repository.NewCategoryRepository(db, appConfig.Shop.MaxSlugAttempts)
	orders := repository.NewOrderRepository(db, repository.NewStockLedger(db), model.GenerateOrderNumber)
	terms := service.PaymentTerms{Amount: appConfig.Shop.NominalPayment, Method: appConfig.Shop.PaymentMethod}

	catalogSvc := service.NewCatalogService(products, categories, trending)
	orderSvc := service.NewOrderService(orders, products, publisher, terms)

	auth := mid.NewAuth(jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      appConfig.JWT.SigningKey,
		ExpirationHours: appConfig.JWT.ExpirationHours,
	}))

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.LoggingMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler.RegisterRoutes(e, handler.Handlers{
		Health:     handler.NewHealthHandler(appConfig.ServiceName, checks),
		Products:   handler.NewProductHandler(catalogSvc),
		Categories: handler.NewCategoryHandler(catalogSvc),
		Orders:     handler.NewOrderHandler(orderSvc, terms),
	}, auth)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", appConfig.Server.Port))
		errCh <- e.Start(":" + appConfig.Server.Port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func pingDB(db *gorm.DB) handler.Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
