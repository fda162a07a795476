package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"supporting-smart-system/config"
	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/model"
	"supporting-smart-system/internal/repository"
	"supporting-smart-system/internal/repository/repotest"
	"supporting-smart-system/pkg/jwt"
	"supporting-smart-system/pkg/metrics"
)

// ── 测试环境 ──
//
// 服务测试跑在内存 sqlite 上（已写入默认数据），
// 需要模拟存储失败时用 failing* 包装对应集合。
//
// 默认数据：1=Admin，2/3/4=Supporting，5=Chemist，6=Analyst

var errInjected = errors.New("injected storage failure")

var (
	admin      = Actor{ID: "1", Name: "Administrator", Role: model.RoleAdmin}
	supporting = Actor{ID: "2", Name: "Fauzan Rizqy Kanz", Role: model.RoleSupporting}
	chemist    = Actor{ID: "5", Name: "Emily Chen", Role: model.RoleChemist}
	analyst    = Actor{ID: "6", Name: "Mike Ross", Role: model.RoleAnalyst}
)

type testEnv struct {
	repo    *repository.Repository
	data    *dataaccess.Client
	metrics *metrics.Metrics
	stream  *mockStream
	mailer  *mockMailer
	svc     *Service
}

// newTestEnv 创建测试环境；mutate 可在构建 dataaccess 之前替换集合
func newTestEnv(t *testing.T, mutate ...func(*repository.Repository)) *testEnv {
	t.Helper()
	repo := repotest.NewRepo(t, repotest.OpenSQLite(t))
	for _, fn := range mutate {
		fn(repo)
	}

	env := &testEnv{
		repo:    repo,
		data:    dataaccess.New(repo),
		metrics: metrics.New(),
		stream:  &mockStream{},
		mailer:  &mockMailer{},
	}
	env.svc = NewService(Dependencies{
		Config:   testConfig(),
		Data:     env.data,
		JWT:      jwt.NewManager(&testConfig().Auth),
		Mailer:   env.mailer,
		Stream:   env.stream,
		Metrics:  env.metrics,
		HashCost: bcrypt.MinCost,
		Logger:   zap.NewNop(),
	})
	return env
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-at-least-32-characters",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
			ResetTokenTTL:           time.Minute,
		},
	}
}

func (e *testEnv) auditLogs(t *testing.T) []model.AuditLog {
	t.Helper()
	logs, err := e.data.AuditLogs.Find(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("读取审计日志失败: %v", err)
	}
	return logs
}

func (e *testEnv) notifications(t *testing.T) []model.Notification {
	t.Helper()
	list, err := e.data.Notifications.Find(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("读取通知失败: %v", err)
	}
	return list
}

// ── 失败注入 ──

type failingCollection[T any, K comparable] struct {
	repository.Collection[T, K]
	insertErr error
}

func (f *failingCollection[T, K]) Insert(ctx context.Context, rec *T) (K, error) {
	if f.insertErr != nil {
		var zero K
		return zero, f.insertErr
	}
	return f.Collection.Insert(ctx, rec)
}

type failingNotificationRepo struct {
	repository.NotificationRepository
}

func (f *failingNotificationRepo) Insert(context.Context, *model.Notification) (int64, error) {
	return 0, errInjected
}

type failingSettingRepo struct {
	repository.SettingRepository
}

func (f *failingSettingRepo) Put(context.Context, *model.Setting) error {
	return errInjected
}

// failingEquipmentRepo 第 failAt 行（从 0 计）起批量写入失败
type failingEquipmentRepo struct {
	repository.EquipmentRepository
	failAt int
}

func (f *failingEquipmentRepo) BulkUpsert(ctx context.Context, items []model.Equipment) (int, error) {
	if f.failAt >= len(items) {
		return f.EquipmentRepository.BulkUpsert(ctx, items)
	}
	n, err := f.EquipmentRepository.BulkUpsert(ctx, items[:f.failAt])
	if err != nil {
		return n, err
	}
	return n, errInjected
}

func withFailingAudit(repo *repository.Repository) {
	repo.AuditLog = &failingCollection[model.AuditLog, int64]{Collection: repo.AuditLog, insertErr: errInjected}
}

func withFailingNotifications(repo *repository.Repository) {
	repo.Notification = &failingNotificationRepo{repo.Notification}
}

func withFailingSettings(repo *repository.Repository) {
	repo.Setting = &failingSettingRepo{repo.Setting}
}

// ── 外部依赖 Mock ──

type mockStream struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (m *mockStream) Publish(_ context.Context, key string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	return nil
}

type mockMailer struct {
	mu   sync.Mutex
	to   []string
	subj []string
	err  error
}

func (m *mockMailer) Send(_ context.Context, to []string, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to...)
	m.subj = append(m.subj, subject)
	return nil
}

type mockBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{jtis: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jtis[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jtis[jti]
	return ok, nil
}

// mockLLM 记录最后一次请求的消息
type mockLLM struct {
	answer   string
	err      error
	messages []llms.MessageContent
}

func (m *mockLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.answer}}}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
