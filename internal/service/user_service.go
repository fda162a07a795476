package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/lifecycle"
	"supporting-smart-system/internal/model"
	apperrors "supporting-smart-system/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound   = errors.New("用户不存在")
	ErrUserSelfDelete = errors.New("不能删除自己")
	ErrEmailExists    = errors.New("邮箱已被使用")
	ErrUnknownRole    = errors.New("未知角色")
	ErrAvatarTooLarge = apperrors.NewValidation("avatar", "头像不能超过 500KB")
	ErrUnknownStatus  = apperrors.NewValidation("status", "状态只能是 active 或 inactive")
)

// UserService 用户业务接口
type UserService interface {
	List(ctx context.Context) ([]dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	Create(ctx context.Context, actor Actor, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type userService struct {
	data     *dataaccess.Client
	activity ActivityRecorder
	cache    *snapshotCache
	hashCost int
	logger   *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(data *dataaccess.Client, activity ActivityRecorder, cache *snapshotCache, hashCost int, logger *zap.Logger) UserService {
	return &userService{data: data, activity: activity, cache: cache, hashCost: hashCost, logger: logger}
}

// ────────────────────── List / GetByID ──────────────────────

func (s *userService) List(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.data.Users.List(ctx)
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, dto.NewUserResponse(&users[i]))
	}
	return result, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	u, err := s.data.Users.Get(ctx, id)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := dto.NewUserResponse(u)
	return &resp, nil
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, actor Actor, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if !lifecycle.CanManageUsers(actor.Role) {
		return nil, ErrNoPermission
	}
	if !model.OneOf(req.Role, model.Roles) {
		return nil, ErrUnknownRole
	}
	if attachmentSize(req.Avatar) > MaxAvatarBytes {
		return nil, ErrAvatarTooLarge
	}
	ctx = context.WithoutCancel(ctx)

	u, err := newUser(ctx, s.data, req.Name, req.Email, req.Password, req.Role, req.Avatar, s.hashCost)
	if err != nil {
		if !errors.Is(err, ErrEmailExists) {
			s.logger.Error("创建用户失败", zap.String("email", req.Email), zap.Error(err))
		}
		return nil, err
	}

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionCreate,
		Subject:    SubjectUser,
		TargetID:   u.ID,
		TargetName: u.Name,
		Details:    "Role: " + u.Role,
	})
	s.cache.refreshAfterMutation(ctx)

	resp := dto.NewUserResponse(u)
	return &resp, nil
}

// newUser 校验邮箱唯一并写入新用户，注册与管理员创建共用
func newUser(ctx context.Context, data *dataaccess.Client, name, email, password, role, avatar string, hashCost int) (*model.User, error) {
	email = normalizeEmail(email)
	if err := ensureEmailFree(ctx, data, email, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		Role:         role,
		Avatar:       avatar,
		PasswordHash: string(hash),
		Status:       model.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := data.Users.Create(ctx, u); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return u, nil
}

// ────────────────────── Update ──────────────────────

// Update 局部更新
// Supporting/Admin 可修改任意用户；其他人只能修改自己的姓名、头像、密码
func (s *userService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	manager := lifecycle.CanManageUsers(actor.Role)
	if !manager {
		if actor.ID != id || req.Role != nil || req.Status != nil || req.Email != nil {
			return nil, ErrNoPermission
		}
	}
	ctx = context.WithoutCancel(ctx)

	fields := make(map[string]any)
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if err := ensureEmailFree(ctx, s.data, email, id); err != nil {
			return nil, err
		}
		fields["email"] = email
	}
	if req.Role != nil {
		if !model.OneOf(*req.Role, model.Roles) {
			return nil, ErrUnknownRole
		}
		fields["role"] = *req.Role
	}
	if req.Avatar != nil {
		if attachmentSize(*req.Avatar) > MaxAvatarBytes {
			return nil, ErrAvatarTooLarge
		}
		fields["avatar"] = *req.Avatar
	}
	if req.Status != nil {
		if !model.OneOf(*req.Status, model.UserStatuses) {
			return nil, ErrUnknownStatus
		}
		fields["status"] = *req.Status
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.hashCost)
		if err != nil {
			s.logger.Error("密码哈希失败", zap.Error(err))
			return nil, err
		}
		fields["password"] = string(hash)
	}
	if len(fields) == 0 {
		return nil, apperrors.NewValidation("", "没有需要更新的字段")
	}

	if err := s.data.Users.Patch(ctx, id, fields); err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	u, err := s.data.Users.Get(ctx, id)
	if err != nil {
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionUpdate,
		Subject:    SubjectUser,
		TargetID:   u.ID,
		TargetName: u.Name,
	})
	s.cache.refreshAfterMutation(ctx)

	resp := dto.NewUserResponse(u)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, actor Actor, id string) error {
	if !lifecycle.CanManageUsers(actor.Role) {
		return ErrNoPermission
	}
	if actor.ID == id {
		return ErrUserSelfDelete
	}
	ctx = context.WithoutCancel(ctx)

	u, err := s.data.Users.Get(ctx, id)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return err
	}

	// 日程、工单中对该用户的引用保留，读取时显示为 Unknown User
	if err := s.data.Users.Delete(ctx, id); err != nil {
		if dataaccess.IsNotFound(err) {
			return ErrUserNotFound
		}
		s.logger.Error("删除用户失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionDelete,
		Subject:    SubjectUser,
		TargetID:   u.ID,
		TargetName: u.Name,
	})
	s.cache.refreshAfterMutation(ctx)
	return nil
}

// ────────────────────── 内部方法 ──────────────────────

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ensureEmailFree 邮箱已被其他用户（非 selfID）占用时返回 ErrEmailExists
func ensureEmailFree(ctx context.Context, data *dataaccess.Client, email, selfID string) error {
	users, err := data.Users.Find(ctx, map[string]any{"email": email}, 1)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID != selfID {
			return ErrEmailExists
		}
	}
	return nil
}
