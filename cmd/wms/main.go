package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-wms/internal/config"
	"github.com/bitfantasy/nimo-wms/internal/middleware"
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/handler"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-wms service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Role{},
		&entity.Team{},
		&entity.PurchaseOrder{},
		&entity.PurchaseOrderItem{},
		&entity.WorkflowInstance{},
		&entity.WorkflowTask{},
		&entity.StaffAssignment{},
		&entity.DeliveryConfirmation{},
		&entity.Inventory{},
		&entity.InventoryTransaction{},
		&entity.OutboundOrder{},
		&entity.OutboundItem{},
		&entity.DeletedOutboundRecord{},
		&entity.Notification{},
		&entity.NotificationRecipient{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}

	// 仓库与服务
	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, cfg, zapLogger)

	// Redis（看板缓存，可选）
	if cfg.Redis.Host != "" {
		rdb := initRedis(cfg.Redis)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			services.SetRedisClient(rdb)
		}
	}

	// MinIO（导入文件归档，可选）
	if cfg.MinIO.Endpoint != "" {
		minioClient, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			zapLogger.Warn("MinIO unavailable, import archiving disabled", zap.Error(err))
		} else {
			services.SetMinioClient(minioClient, cfg.MinIO.Bucket)
		}
	}

	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")

	// 认证
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	// 需要认证的路由
	authed := v1.Group("")
	authed.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		authed.GET("/auth/me", h.Auth.Me)
		authed.POST("/auth/register", middleware.RequireSuperuser(), h.Auth.Register)

		// 用户管理
		users := authed.Group("/users")
		{
			users.GET("", middleware.RequireSuperuser(), h.Auth.ListUsers)
			users.GET("/:id", h.Auth.GetUser)
			users.PUT("/:id", middleware.RequireSuperuser(), h.Auth.UpdateUser)
		}

		// SSE
		authed.GET("/sse/events", h.SSE.Stream)

		// 采购订单
		orders := authed.Group("/orders")
		{
			orders.GET("", h.Order.List)
			orders.POST("", h.Order.Create)
			orders.GET("/user-units", h.Order.UserUnits)
			orders.POST("/import", h.Order.Import)
			orders.GET("/:id", h.Order.Get)
			orders.PUT("/:id", h.Order.Update)
			orders.POST("/:id/inbound", h.Order.Inbound)
		}

		// 工作流
		workflow := authed.Group("/workflow")
		{
			workflow.POST("/start", h.Workflow.Start)
			workflow.GET("/tasks/todo", h.Workflow.TodoTasks)
			workflow.POST("/tasks/:taskId/complete", h.Workflow.CompleteTask)
			workflow.GET("/instances/:id", h.Workflow.GetInstance)
			workflow.GET("/assignments", h.Workflow.ListAssignments)
			workflow.POST("/assignments", h.Workflow.CreateAssignment)
			workflow.DELETE("/assignments/:id", h.Workflow.DeleteAssignment)
		}

		// 库存
		inventory := authed.Group("/inventory")
		{
			inventory.GET("", h.Inventory.List)
			inventory.POST("", h.Inventory.Create)
			inventory.GET("/transactions", h.Inventory.Transactions)
			inventory.POST("/adjust", h.Inventory.Adjust)
			inventory.GET("/:id", h.Inventory.Get)
		}

		// 出库单
		outbound := authed.Group("/outbound")
		{
			outbound.GET("", h.Outbound.List)
			outbound.POST("", h.Outbound.Create)
			outbound.GET("/deleted", h.Outbound.ListDeleted)
			outbound.POST("/batch-delete", h.Outbound.BatchDelete)
			outbound.POST("/import", h.Outbound.Import)
			outbound.GET("/:id", h.Outbound.Get)
			outbound.POST("/:id/complete", h.Outbound.Complete)
			outbound.DELETE("/:id", h.Outbound.Delete)
		}

		// 交付确认单
		confirmations := authed.Group("/confirmations")
		{
			confirmations.GET("", h.Confirmation.List)
			confirmations.POST("/generate", h.Confirmation.Generate)
			confirmations.GET("/:id", h.Confirmation.Get)
			confirmations.POST("/:id/print", h.Confirmation.Print)
		}

		// 通知
		notifications := authed.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListMine)
			notifications.POST("/read-all", h.Notification.MarkAllRead)
			notifications.POST("/:id/read", h.Notification.MarkRead)
			notifications.DELETE("/:id", h.Notification.Delete)
		}

		// 看板
		dashboard := authed.Group("/dashboard")
		{
			dashboard.GET("/leadership", h.Dashboard.Leadership)
			dashboard.GET("/operation", h.Dashboard.Operation)
		}
	}
}
