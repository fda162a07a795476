package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"supporting-smart-system/config"
	"supporting-smart-system/internal/api/handler"
	"supporting-smart-system/internal/api/middleware"
	"supporting-smart-system/internal/model"
	"supporting-smart-system/pkg/jwt"
	"supporting-smart-system/pkg/metrics"
	"supporting-smart-system/pkg/redis"
)

// 导入接口的请求体上限（10MB 文件 + multipart 开销）
const importBodyLimit = 11 << 20

// Options 路由依赖；Data 为 nil 或未开启 storage.expose_data_api 时不挂载存储接口
type Options struct {
	Config  *config.Config
	Handler *handler.Handler
	Data    *handler.DataHandler
	JWT     *jwt.Manager
	Redis   *redis.Client
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	cfg := opts.Config
	h := opts.Handler

	// 避免把 nil *redis.Client 包装成非 nil 接口
	var (
		blacklist middleware.Blacklist
		limiter   middleware.WindowLimiter
	)
	if opts.Redis != nil {
		blacklist = opts.Redis
		limiter = opts.Redis
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.Metrics(opts.Metrics))
	if cfg.Server.BodyLimitMB > 0 {
		r.Use(middleware.BodyLimit(int64(cfg.Server.BodyLimitMB)<<20, map[string]int64{
			"/api/v1/equipment/import": importBodyLimit,
			"/api/v1/events/import":    importBodyLimit,
		}))
	}

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil && cfg.Feature.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// ── 存储接口 ──
	if opts.Data != nil && cfg.Storage.ExposeData {
		storage := r.Group("", middleware.DataAuth(cfg.Storage.DataAPIKey))
		storage.Any("/data", opts.Data.Serve)
		storage.Any("/init", opts.Data.Init)
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		loginLimit := cfg.Auth.LoginRateLimit
		if loginLimit <= 0 {
			loginLimit = 10
		}
		loginWindow := cfg.Auth.LoginRateWindow
		if loginWindow <= 0 {
			loginWindow = time.Minute
		}
		authLimit := middleware.RateLimit(limiter, loginLimit, loginWindow)

		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authLimit, h.Auth.Login)
			auth.POST("/register", authLimit, h.Auth.Register)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(opts.JWT, blacklist, opts.Logger))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 设备模块（写操作在 Service 层按角色鉴权）
			equipment := authorized.Group("/equipment")
			{
				equipment.GET("", h.Equipment.ListEquipment)
				equipment.POST("", h.Equipment.CreateEquipment)
				equipment.GET("/snapshot", h.Equipment.Snapshot)
				equipment.GET("/export", h.Export.ExportEquipment)
				equipment.POST("/import", h.Export.ImportEquipment)
				equipment.GET("/history/*id", h.Equipment.History)
				equipment.GET("/item/*id", h.Equipment.GetEquipment)
				equipment.PUT("/item/*id", h.Equipment.UpdateEquipment)
				equipment.DELETE("/item/*id", h.Equipment.DeleteEquipment)
			}

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.POST("", h.User.CreateUser)
				users.PUT("/:id", h.User.UpdateUser) // 管理角色或本人（Service 层鉴权）
				users.DELETE("/:id", h.User.DeleteUser)
			}

			// 审计与通知
			authorized.GET("/audit-logs", h.Notification.ListAuditLogs)
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.POST("/read-all", h.Notification.MarkAllRead)
				notifications.PATCH("/:id/read", h.Notification.MarkRead)
				notifications.DELETE("/:id", h.Notification.DeleteNotification)
			}

			// 维护日程
			events := authorized.Group("/events")
			{
				events.GET("", h.Event.ListEvents)
				events.GET("/export.ics", h.Event.ExportICS)
				events.POST("/import", h.Event.ImportICS)
				events.POST("", h.Event.CreateEvent)
				events.PUT("/:id", h.Event.UpdateEvent)
				events.DELETE("/:id", h.Event.DeleteEvent)
			}

			// 工单
			jobs := authorized.Group("/job-requests")
			{
				jobs.GET("", h.JobRequest.ListJobRequests)
				jobs.POST("", h.JobRequest.CreateJobRequest)
				jobs.PUT("/:id", h.JobRequest.UpdateJobRequest)
				jobs.PATCH("/:id/status", h.JobRequest.ChangeStatus)
				jobs.DELETE("/:id", h.JobRequest.DeleteJobRequest)
			}

			// 设置、看板、助手
			authorized.GET("/settings/categories", h.System.ListCategories)
			authorized.POST("/settings/categories", h.System.AddCategory)
			authorized.GET("/dashboard/stats", h.System.DashboardStats)
			authorized.POST("/assistant/ask", h.System.Ask)
			authorized.GET("/assistant/snapshot", h.System.AssistantContext)

			// 系统（仅 Admin）
			system := authorized.Group("/system", middleware.RoleAuth(model.RoleAdmin))
			{
				system.POST("/init", h.System.Init)
				system.POST("/reset/challenge", h.System.ResetChallenge)
				system.POST("/reset", h.System.Reset)
			}
		}
	}

	return r
}
