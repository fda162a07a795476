package service

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"supporting-smart-system/config"
	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/pkg/jwt"
	"supporting-smart-system/pkg/mailer"
	"supporting-smart-system/pkg/metrics"
	"supporting-smart-system/pkg/redis"
)

// TokenBlacklist 已注销 Token 的黑名单（Redis 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// ResetTokenStore 全局重置一次性确认令牌
type ResetTokenStore interface {
	SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (string, error)
}

// Mailer 邮件发送
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// Dependencies Service 层的外部依赖，可选依赖为 nil 时使用降级实现
type Dependencies struct {
	Config   *config.Config
	Data     *dataaccess.Client
	JWT      *jwt.Manager
	Redis    *redis.Client  // 可为 nil
	Mailer   Mailer         // 可为 nil
	Stream   AuditPublisher // 可为 nil
	Metrics  *metrics.Metrics
	LLM      llms.Model // 可为 nil，此时助手返回固定回复
	HashCost int
	Logger   *zap.Logger
}

// Service 所有 Service 的聚合入口
type Service struct {
	Equipment    EquipmentService
	User         UserService
	Auth         AuthService
	Event        EventService
	JobRequest   JobRequestService
	Notification NotificationService
	AuditLog     AuditLogService
	Setting      SettingService
	System       SystemService
	Dashboard    DashboardService
	Export       ExportService
	Assistant    AssistantService
}

// NewService 创建 Service 聚合，所有模块共享同一份快照缓存与审计管道
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hashCost := deps.HashCost
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}

	var (
		blacklist   TokenBlacklist
		resetTokens ResetTokenStore = newMemoryResetTokens()
	)
	if deps.Redis != nil {
		blacklist = deps.Redis
		resetTokens = deps.Redis
	}
	var mail Mailer = mailer.Noop{}
	if deps.Mailer != nil {
		mail = deps.Mailer
	}

	cache := newSnapshotCache(deps.Data, logger)
	activity := NewActivityRecorder(deps.Data, deps.Stream, deps.Metrics, logger)

	resetTTL := 5 * time.Minute
	assistantCfg := config.AssistantConfig{}
	if deps.Config != nil {
		if deps.Config.Auth.ResetTokenTTL > 0 {
			resetTTL = deps.Config.Auth.ResetTokenTTL
		}
		assistantCfg = deps.Config.Assistant
	}

	return &Service{
		Equipment:    NewEquipmentService(deps.Data, activity, cache, deps.Metrics, logger),
		User:         NewUserService(deps.Data, activity, cache, hashCost, logger),
		Auth:         NewAuthService(deps.Data, deps.JWT, blacklist, activity, hashCost, logger),
		Event:        NewEventService(deps.Data, activity, logger),
		JobRequest:   NewJobRequestService(deps.Data, activity, mail, logger),
		Notification: NewNotificationService(deps.Data, logger),
		AuditLog:     NewAuditLogService(deps.Data, logger),
		Setting:      NewSettingService(deps.Data, cache, logger),
		System:       NewSystemService(deps.Data, activity, cache, resetTokens, resetTTL, logger),
		Dashboard:    NewDashboardService(cache),
		Export:       NewExportService(deps.Data, logger),
		Assistant:    NewAssistantService(deps.LLM, cache, assistantCfg.Temperature, logger),
	}
}
