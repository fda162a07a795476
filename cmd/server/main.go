package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"supporting-smart-system/config"
	"supporting-smart-system/internal/api/handler"
	"supporting-smart-system/internal/api/router"
	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/repository"
	"supporting-smart-system/internal/repository/remote"
	"supporting-smart-system/internal/service"
	"supporting-smart-system/pkg/broker"
	"supporting-smart-system/pkg/database"
	"supporting-smart-system/pkg/jwt"
	applogger "supporting-smart-system/pkg/logger"
	"supporting-smart-system/pkg/mailer"
	"supporting-smart-system/pkg/metrics"
	"supporting-smart-system/pkg/redis"
)

func main() {
	// 0. 本地开发时从 .env 注入环境变量（文件不存在则忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("SSS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 打开存储（本地数据库或远端存储服务）
	repo, db, err := openStorage(cfg, logger)
	if err != nil {
		logger.Fatal("存储初始化失败", zap.Error(err))
	}

	// 3.1 本地存储按需建表并写入默认数据
	if db != nil && cfg.Storage.SeedOnStart {
		seeded, err := repo.Schema.Init(context.Background())
		if err != nil {
			logger.Fatal("初始化默认数据失败", zap.Error(err))
		}
		logger.Info("存储初始化完成", zap.Bool("seeded", seeded))
	}

	// 4. 连接 Redis（可选：连接失败时降级为进程内实现）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流降级为进程内实现", zap.Error(err))
		rdb = nil
	}

	// 5. 可选的旁路组件：邮件、审计事件流、助手
	var mail service.Mailer
	if cfg.Mail.Enabled {
		mail = mailer.New(cfg.Mail, logger)
	}

	var (
		stream   service.AuditPublisher
		producer *broker.Producer
	)
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(logger, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		stream = producer
	}

	llm, err := newAssistantModel(cfg.Assistant)
	if err != nil {
		logger.Warn("助手模型初始化失败，助手将返回固定回复", zap.Error(err))
	}

	// 6. 依赖注入: Repository → DataAccess → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	m := metrics.New()

	svc := service.NewService(service.Dependencies{
		Config:   cfg,
		Data:     dataaccess.New(repo),
		JWT:      jwtMgr,
		Redis:    rdb,
		Mailer:   mail,
		Stream:   stream,
		Metrics:  m,
		LLM:      llm,
		HashCost: bcrypt.DefaultCost,
		Logger:   logger,
	})
	h := handler.NewHandler(svc)

	var dataHandler *handler.DataHandler
	if db != nil && cfg.Storage.ExposeData {
		dataHandler = handler.NewDataHandler(repo, logger)
		logger.Info("存储接口已挂载", zap.String("paths", "/data, /init"))
	}

	// 7. 初始化路由
	engine := router.Setup(router.Options{
		Config:  cfg,
		Handler: h,
		Data:    dataHandler,
		JWT:     jwtMgr,
		Redis:   rdb,
		Metrics: m,
		Logger:  logger,
	})

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 助手问答与导入可能较慢
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if producer != nil {
		producer.Close()
	}

	// 关闭数据库连接
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// openStorage 按 storage.driver 创建 Repository；remote 驱动不持有本地数据库
func openStorage(cfg *config.Config, logger *zap.Logger) (*repository.Repository, *gorm.DB, error) {
	if cfg.Storage.Driver == config.DriverRemote {
		logger.Info("使用远端存储服务", zap.String("base_url", cfg.Storage.Remote.BaseURL))
		return remote.NewRepository(remote.NewClient(cfg.Storage.Remote, logger)), nil, nil
	}

	db, err := database.NewDB(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	logger.Info("数据库连接成功")

	migrator, err := database.NewMigrator(db, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化迁移器失败: %w", err)
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return repository.NewRepository(db, migrator, bcrypt.DefaultCost, logger), db, nil
}

// newAssistantModel 助手未启用时返回 nil，助手服务此时回复固定文案
func newAssistantModel(cfg config.AssistantConfig) (llms.Model, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil, nil
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return llm, nil
}
