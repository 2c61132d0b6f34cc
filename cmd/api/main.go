package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "shopmaster/api/swagger" // swagger docs
	"shopmaster/internal/config"
	"shopmaster/internal/database"
	"shopmaster/internal/handler"
	"shopmaster/internal/metrics"
	"shopmaster/internal/middleware"
	"shopmaster/internal/notify"
	"shopmaster/internal/repository"
	"shopmaster/internal/service"
	"shopmaster/internal/tracing"
	"shopmaster/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           ShopMaster API
// @version         1.0
// @description     Sales, customers and the owner-approved edit workflow.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configFile := flag.String("config", config.DefaultFile, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DSN(), logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to PostgreSQL")

	var tracer *tracing.Provider
	if cfg.Tracing.Enabled {
		tracer, err = tracing.Init(cfg.Tracing.ServiceName, "1.0", cfg.Tracing.Output)
		if err != nil {
			logger.Error("tracing setup failed", "error", err)
			os.Exit(1)
		}
	}

	// Change feed: local hub, optionally fanned out across instances through redis.
	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)
	var events service.ChangePublisher = wsHub
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		bridge := websocket.NewRedisBridge(rdb, cfg.Redis.Channel, wsHub, logger)
		go bridge.Run(ctx)
		events = bridge
	}

	var notifier notify.Notifier = notify.LogNotifier{Logger: logger}
	if cfg.Notify.BackendURL != "" {
		notifier = notify.NewHTTPNotifier(cfg.Notify.BackendURL, cfg.Notify.AdminEmail, cfg.NotifyTimeout())
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Notify.QueueSize, cfg.NotifyTimeout(), logger)
	dispatcher.Start()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	requestRepo := repository.NewEditRequestRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	closingRepo := repository.NewDailyClosingRepository(db)

	deps := service.CommonDeps{Tx: txManager, Activity: activityRepo, Events: events, Logger: logger}
	tokens := service.NewTokenIssuer([]byte(cfg.JWT.Secret), cfg.TokenTTL())

	userService := service.NewUserService(userRepo, tokens)
	approvalService := service.NewApprovalService(service.ApprovalDeps{
		Tx:              txManager,
		Requests:        requestRepo,
		Sales:           saleRepo,
		Customers:       customerRepo,
		Activity:        activityRepo,
		Notifier:        dispatcher,
		Events:          events,
		Logger:          logger,
		StrictRevisions: cfg.Approval.StrictRevisions,
	})
	customerService := service.NewCustomerService(customerRepo, saleRepo, deps)
	saleService := service.NewSaleService(saleRepo, customerRepo, deps)
	expenseService := service.NewExpenseService(expenseRepo, deps)
	closingService := service.NewClosingService(closingRepo, saleRepo, expenseRepo, deps)
	activityService := service.NewActivityService(activityRepo)

	if err := userService.EnsureOwner(ctx, cfg.Bootstrap.OwnerName, cfg.Bootstrap.OwnerEmail, cfg.Bootstrap.OwnerPassword); err != nil {
		logger.Error("failed to bootstrap owner account", "error", err)
		os.Exit(1)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, tokens.TTL(), cfg.Server.SecureCookies)
	editRequestHandler := handler.NewEditRequestHandler(approvalService)
	customerHandler := handler.NewCustomerHandler(customerService, approvalService)
	saleHandler := handler.NewSaleHandler(saleService, approvalService)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	closingHandler := handler.NewClosingHandler(closingService)
	activityHandler := handler.NewActivityHandler(activityService)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.Default()
	router.Use(metrics.GinMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CorsAllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/ws", websocket.ServeWs(wsHub, tokens.Verify))

	public := router.Group("")
	protected := router.Group("")
	protected.Use(middleware.Authenticate(tokens))

	userHandler.RegisterRoutes(public, protected)
	editRequestHandler.RegisterRoutes(protected)
	customerHandler.RegisterRoutes(protected)
	saleHandler.RegisterRoutes(protected)
	expenseHandler.RegisterRoutes(protected)
	closingHandler.RegisterRoutes(protected)
	activityHandler.RegisterRoutes(protected)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", "error", err)
	}
	if tracer != nil {
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
