package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/model"
	"supporting-smart-system/pkg/jwt"
)

// ── 测试辅助 ──

func setupTestAuthService(t *testing.T) (AuthService, *testEnv, *mockBlacklist, *jwt.Manager) {
	t.Helper()
	env := newTestEnv(t)
	bl := newMockBlacklist()
	jwtMgr := jwt.NewManager(&testConfig().Auth)
	activity := NewActivityRecorder(env.data, nil, env.metrics, zap.NewNop())
	svc := NewAuthService(env.data, jwtMgr, bl, activity, bcrypt.MinCost, zap.NewNop())
	return svc, env, bl, jwtMgr
}

// ── Login 测试 ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, env, _, jwtMgr := setupTestAuthService(t)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "Admin@SSS.com", Password: "admin"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if resp.User.ID != "1" || resp.User.Role != model.RoleAdmin {
		t.Errorf("用户信息不符: %+v", resp.User)
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("期望 ExpiresIn=900，实际=%d", resp.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.UserID != "1" || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("claims 不符: %+v", claims)
	}

	u, _ := env.data.Users.Get(context.Background(), "1")
	if u.LastLogin == nil {
		t.Error("登录后应记录 lastLogin")
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(t)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "admin@sss.com", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(t)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "nobody@sss.com", Password: "admin"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_Inactive(t *testing.T) {
	svc, env, _, _ := setupTestAuthService(t)
	if err := env.data.Users.Patch(context.Background(), "6", map[string]any{"status": model.UserStatusInactive}); err != nil {
		t.Fatalf("准备数据失败: %v", err)
	}

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "analyst@labnexus.com", Password: "1234"})
	if !errors.Is(err, ErrUserInactive) {
		t.Errorf("期望 ErrUserInactive，实际: %v", err)
	}
}

func TestAuthService_Login_UpgradesPlaintextPassword(t *testing.T) {
	svc, env, _, _ := setupTestAuthService(t)
	ctx := context.Background()
	if err := env.data.Users.Patch(ctx, "6", map[string]any{"password": "legacy-pass"}); err != nil {
		t.Fatalf("准备数据失败: %v", err)
	}

	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "analyst@labnexus.com", Password: "legacy-pass"}); err != nil {
		t.Fatalf("明文密码应能登录: %v", err)
	}

	u, _ := env.data.Users.Get(ctx, "6")
	if !strings.HasPrefix(u.PasswordHash, "$2") {
		t.Fatalf("登录后应升级为 bcrypt 哈希，实际=%s", u.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("legacy-pass")); err != nil {
		t.Errorf("升级后的哈希应匹配原密码: %v", err)
	}
}

// ── Register 测试 ──

func TestAuthService_Register_AsAnalyst(t *testing.T) {
	svc, env, _, _ := setupTestAuthService(t)

	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "New Analyst", Email: "New@Lab.com", Password: "secret12",
	})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if resp.User.Role != model.RoleAnalyst {
		t.Errorf("注册用户角色应为 Analyst，实际=%s", resp.User.Role)
	}
	if resp.User.Email != "new@lab.com" {
		t.Errorf("邮箱应转为小写，实际=%s", resp.User.Email)
	}

	logs := auditsFor(env.auditLogs(t), resp.User.ID)
	if len(logs) != 1 || logs[0].Action != model.ActionCreate {
		t.Errorf("期望 1 条 CREATE 审计，实际 %+v", logs)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(t)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Copy", Email: "ADMIN@sss.com", Password: "secret12",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}
}

// ── Refresh / Logout 测试 ──

func TestAuthService_Refresh_RotatesAndRevokes(t *testing.T) {
	svc, _, bl, jwtMgr := setupTestAuthService(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@sss.com", Password: "admin", RememberMe: true})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	claims, _ := jwtMgr.ParseToken(refreshed.RefreshToken)
	if !claims.RememberMe {
		t.Error("轮换后应保留 RememberMe")
	}

	old, _ := jwtMgr.ParseToken(login.RefreshToken)
	if revoked, _ := bl.IsBlacklisted(ctx, old.ID); !revoked {
		t.Error("旧 refresh token 应加入黑名单")
	}
	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("旧 refresh token 不能再次使用，实际: %v", err)
	}
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(t)

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: "admin@sss.com", Password: "admin"})
	if _, err := svc.Refresh(context.Background(), login.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("access token 不能用于刷新，实际: %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, bl, jwtMgr := setupTestAuthService(t)
	ctx := context.Background()

	login, _ := svc.Login(ctx, &dto.LoginRequest{Email: "admin@sss.com", Password: "admin"})
	access, _ := jwtMgr.ParseToken(login.AccessToken)

	if err := svc.Logout(ctx, access.ID, access.ExpiresAt.Time, login.RefreshToken); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if len(bl.jtis) != 2 {
		t.Errorf("access 与 refresh token 都应加入黑名单，实际 %d 个", len(bl.jtis))
	}
}

func TestAuthService_Me_NotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(t)

	if _, err := svc.Me(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
