package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "catalog/api/swagger" // swagger docs
	"catalog/internal/cache"
	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/event"
	"catalog/internal/handler"
	"catalog/internal/logging"
	"catalog/internal/messaging/kafka"
	"catalog/internal/metrics"
	"catalog/internal/middleware"
	"catalog/internal/repository"
	"catalog/internal/repository/memory"
	"catalog/internal/service"
	"catalog/internal/websocket"
	"catalog/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Product Catalog API
// @version         1.0
// @description     Product catalog with a price-approval workflow.
// @host            localhost:8080
// @BasePath        /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}
	log := logrus.NewEntry(logger).WithField("service", "catalog")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server failed")
	}
	log.Info("server stopped")
}

type repositories struct {
	products  repository.ProductRepository
	approvals repository.ApprovalRepository
	txManager repository.TransactionManager
}

func openRepositories(cfg config.DBConfig, log *logrus.Entry) (repositories, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return repositories{store.Products(), store.Approvals(), store.TxManager()}, nil
	}

	db, err := database.NewConnection(cfg.DSN(), log)
	if err != nil {
		return repositories{}, err
	}
	log.Info("connected to PostgreSQL")
	return repositories{
		products:  repository.NewProductRepository(db),
		approvals: repository.NewApprovalRepository(db),
		txManager: repository.NewTransactionManager(db),
	}, nil
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Entry) error {
	repos, err := openRepositories(cfg.DB, log)
	if err != nil {
		return err
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub(log)
	go hub.Run(ctx)
	publishers := []event.Publisher{hub}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer func() {
			if err := producer.Close(); err != nil {
				log.WithError(err).Warn("failed to close kafka producer")
			}
		}()
		publishers = append(publishers, producer)
		log.WithField("brokers", cfg.Kafka.Brokers).Info("kafka producer initialized")
	}

	var productCache service.ProductCache
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		redisCache := cache.NewRedisProductCache(client, cfg.Redis.ProductTTL, log)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			log.WithError(err).Warn("redis unavailable, continuing without product cache")
		} else {
			productCache = redisCache
			log.WithField("addr", cfg.Redis.Addr).Info("product cache enabled")
		}
		cancel()
	}

	catalogMetrics := metrics.NewCatalogMetrics()
	publisher := event.Multi(publishers...)

	// Set up dependencies (Repository -> Service -> Handler)
	productService := service.NewProductService(repos.products, repos.approvals, repos.txManager,
		service.DefaultApprovalPolicy(), productCache, publisher, catalogMetrics, log)
	approvalService := service.NewApprovalService(repos.products, repos.approvals, repos.txManager,
		productCache, publisher, catalogMetrics, log, cfg.Approval.RejectRevertsToActive)

	productHandler := handler.NewProductHandler(productService, log)
	approvalHandler := handler.NewApprovalHandler(approvalService, log)

	if cfg.HTTP.GinMode != "" {
		gin.SetMode(cfg.HTTP.GinMode)
	}
	router := newRouter(cfg.HTTP, log, hub)
	productHandler.RegisterRoutes(router.Group(""))
	approvalHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server listening on :%s", cfg.HTTP.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newRouter builds the engine with middleware and the non-API endpoints.
func newRouter(cfg config.HTTPConfig, log *logrus.Entry, hub *websocket.Hub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log.WithField("component", "http")))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, response.HealthResponse{Status: "OK"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(hub, c)
	})

	return router
}
