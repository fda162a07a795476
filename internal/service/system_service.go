package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/lifecycle"
	"supporting-smart-system/internal/model"
)

// ── 系统模块业务错误 ──

var ErrResetTokenInvalid = errors.New("重置确认令牌无效或已过期")

// SystemService 建表初始化与全局重置
type SystemService interface {
	Init(ctx context.Context) (*dto.InitResponse, error)
	ResetChallenge(ctx context.Context, actor Actor) (*dto.ResetChallengeResponse, error)
	Reset(ctx context.Context, actor Actor, confirmToken string) error
}

type systemService struct {
	data     *dataaccess.Client
	activity ActivityRecorder
	cache    *snapshotCache
	tokens   ResetTokenStore
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewSystemService 创建 SystemService 实例
func NewSystemService(
	data *dataaccess.Client,
	activity ActivityRecorder,
	cache *snapshotCache,
	tokens ResetTokenStore,
	tokenTTL time.Duration,
	logger *zap.Logger,
) SystemService {
	return &systemService{
		data:     data,
		activity: activity,
		cache:    cache,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Init 建表并在空库时写入默认数据，可重复调用
func (s *systemService) Init(ctx context.Context) (*dto.InitResponse, error) {
	seeded, err := s.data.Schema.Init(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Error("初始化数据库失败", zap.Error(err))
		return nil, err
	}
	if seeded {
		s.logger.Info("数据库已写入默认数据")
		s.cache.refreshAfterMutation(ctx)
	}
	return &dto.InitResponse{Seeded: seeded}, nil
}

// ResetChallenge 第一步：签发一次性确认令牌，只能由同一 Admin 使用
func (s *systemService) ResetChallenge(ctx context.Context, actor Actor) (*dto.ResetChallengeResponse, error) {
	if !lifecycle.CanResetDatabase(actor.Role) {
		return nil, ErrNoPermission
	}
	token := uuid.NewString()
	if err := s.tokens.SaveResetToken(ctx, token, actor.ID, s.tokenTTL); err != nil {
		s.logger.Error("保存重置确认令牌失败", zap.Error(err))
		return nil, err
	}
	return &dto.ResetChallengeResponse{
		ConfirmToken: token,
		ExpiresAt:    time.Now().UTC().Add(s.tokenTTL),
	}, nil
}

// Reset 第二步：校验令牌后清空全部数据并重新写入默认数据
func (s *systemService) Reset(ctx context.Context, actor Actor, confirmToken string) error {
	if !lifecycle.CanResetDatabase(actor.Role) {
		return ErrNoPermission
	}
	owner, err := s.tokens.ConsumeResetToken(ctx, confirmToken)
	if err != nil {
		s.logger.Error("读取重置确认令牌失败", zap.Error(err))
		return err
	}
	if owner == "" || owner != actor.ID {
		return ErrResetTokenInvalid
	}
	ctx = context.WithoutCancel(ctx)

	// 重置会替换用户表，先解析操作人显示名
	actor = resolveActor(ctx, s.data, actor)
	if err := s.data.Schema.Reset(ctx); err != nil {
		s.logger.Error("重置数据库失败", zap.Error(err))
		return err
	}
	s.logger.Warn("数据库已重置", zap.String("user_id", actor.ID))

	s.activity.Record(ctx, actor, Activity{
		Action:     model.ActionReset,
		Subject:    SubjectSystem,
		TargetID:   "SYSTEM",
		TargetName: "Database",
		Details:    "Database reset to factory defaults.",
	})
	s.cache.refreshAfterMutation(ctx)
	return nil
}

// ────────────────────── 内存令牌（无 Redis 时） ──────────────────────

type memoryResetTokens struct {
	mu     sync.Mutex
	tokens map[string]memoryResetToken
	now    func() time.Time
}

type memoryResetToken struct {
	userID  string
	expires time.Time
}

func newMemoryResetTokens() *memoryResetTokens {
	return &memoryResetTokens{tokens: make(map[string]memoryResetToken), now: time.Now}
}

func (m *memoryResetTokens) SaveResetToken(_ context.Context, token, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, v := range m.tokens {
		if now.After(v.expires) {
			delete(m.tokens, k)
		}
	}
	m.tokens[token] = memoryResetToken{userID: userID, expires: now.Add(ttl)}
	return nil
}

func (m *memoryResetTokens) ConsumeResetToken(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[token]
	if !ok {
		return "", nil
	}
	delete(m.tokens, token)
	if m.now().After(t.expires) {
		return "", nil
	}
	return t.userID, nil
}
