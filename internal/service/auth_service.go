package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/model"
	"supporting-smart-system/pkg/jwt"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials  = errors.New("邮箱或密码错误")
	ErrUserInactive        = errors.New("账号已停用")
	ErrInvalidRefreshToken = errors.New("刷新令牌无效或已过期")
)

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, accessJTI string, accessExp time.Time, refreshToken string) error
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	data      *dataaccess.Client
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	activity  ActivityRecorder
	hashCost  int
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例；blacklist 为 nil 时登出只在客户端生效
func NewAuthService(
	data *dataaccess.Client,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	activity ActivityRecorder,
	hashCost int,
	logger *zap.Logger,
) AuthService {
	return &authService{
		data:      data,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		activity:  activity,
		hashCost:  hashCost,
		logger:    logger,
	}
}

// ────────────────────── Register ──────────────────────

// Register 自助注册，角色固定为 Analyst
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error) {
	if attachmentSize(req.Avatar) > MaxAvatarBytes {
		return nil, ErrAvatarTooLarge
	}
	ctx = context.WithoutCancel(ctx)

	u, err := newUser(ctx, s.data, req.Name, req.Email, req.Password, model.RoleAnalyst, req.Avatar, s.hashCost)
	if err != nil {
		if !errors.Is(err, ErrEmailExists) {
			s.logger.Error("注册用户失败", zap.String("email", req.Email), zap.Error(err))
		}
		return nil, err
	}

	s.activity.Record(ctx, Actor{ID: u.ID, Name: u.Name, Role: u.Role}, Activity{
		Action:     model.ActionCreate,
		Subject:    SubjectUser,
		TargetID:   u.ID,
		TargetName: u.Name,
		Details:    "Self registration",
	})
	return s.issueTokens(u, false)
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	users, err := s.data.Users.Find(ctx, map[string]any{"email": normalizeEmail(req.Email)}, 1)
	if err != nil {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrInvalidCredentials
	}
	u := &users[0]

	// 2. 验证密码
	rehash, ok := checkPassword(u.PasswordHash, req.Password)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive() {
		return nil, ErrUserInactive
	}

	// 3. 记录登录时间，旧数据中的明文密码顺带升级为哈希
	now := time.Now().UTC()
	fields := map[string]any{"lastLogin": now}
	if rehash {
		if hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost); err == nil {
			fields["password"] = string(hash)
		}
	}
	if err := s.data.Users.Patch(context.WithoutCancel(ctx), u.ID, fields); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.String("user_id", u.ID), zap.Error(err))
	} else {
		u.LastLogin = &now
	}

	// 4. 生成 Token 对
	return s.issueTokens(u, req.RememberMe)
}

// checkPassword 校验密码；stored 不是 bcrypt 哈希时按明文比较并要求升级
func checkPassword(stored, password string) (rehash bool, ok bool) {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return false, bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	if stored == "" {
		return false, false
	}
	return true, subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// ────────────────────── Refresh ──────────────────────

// Refresh 轮换 Token 对，旧的 refresh token 加入黑名单
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}
	if s.blacklist != nil && claims.ID != "" {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("检查 Token 黑名单失败", zap.Error(err))
		} else if revoked {
			return nil, ErrInvalidRefreshToken
		}
	}

	u, err := s.data.Users.Get(ctx, claims.UserID)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("查询用户失败", zap.String("id", claims.UserID), zap.Error(err))
		return nil, err
	}
	if !u.IsActive() {
		return nil, ErrUserInactive
	}

	s.revoke(ctx, claims)
	return s.issueTokens(u, claims.RememberMe)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, accessJTI string, accessExp time.Time, refreshToken string) error {
	if s.blacklist == nil {
		return nil
	}
	if accessJTI != "" {
		if err := s.blacklist.BlacklistToken(ctx, accessJTI, time.Until(accessExp)); err != nil {
			s.logger.Error("Access Token 加入黑名单失败", zap.Error(err))
			return err
		}
	}
	if refreshToken != "" {
		if claims, err := s.jwtMgr.ParseToken(refreshToken); err == nil {
			s.revoke(ctx, claims)
		}
	}
	return nil
}

// ────────────────────── Me ──────────────────────

func (s *authService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	u, err := s.data.Users.Get(ctx, userID)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", userID), zap.Error(err))
		return nil, err
	}
	resp := dto.NewUserResponse(u)
	return &resp, nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) {
	if s.blacklist == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		s.logger.Warn("Token 加入黑名单失败", zap.Error(err))
	}
}

func (s *authService) issueTokens(u *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(u.ID, u.Role, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         dto.NewUserResponse(u),
	}, nil
}
