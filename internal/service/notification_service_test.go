package service

import (
	"context"
	"errors"
	"testing"

	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/model"
)

func TestNotificationService_MarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"Ana Putri", "Budi Santoso", "Citra Dewi"} {
		if _, err := env.svc.User.Create(ctx, admin, &dto.CreateUserRequest{
			Name: name, Email: name[:3] + "@lab.com", Role: model.RoleAnalyst, Password: "secret12",
		}); err != nil {
			t.Fatalf("准备数据失败: %v", err)
		}
	}

	notes, err := env.svc.Notification.List(ctx, 0)
	if err != nil || len(notes) != 3 {
		t.Fatalf("期望 3 条通知，实际 %d (%v)", len(notes), err)
	}
	if err := env.svc.Notification.MarkRead(ctx, notes[0].ID); err != nil {
		t.Fatalf("MarkRead 应成功: %v", err)
	}

	n, err := env.svc.Notification.MarkAllRead(ctx)
	if err != nil {
		t.Fatalf("MarkAllRead 应成功: %v", err)
	}
	if n != 2 {
		t.Errorf("只应写回 2 条未读通知，实际 %d", n)
	}
	for _, note := range env.notifications(t) {
		if !note.IsRead {
			t.Errorf("通知 %d 应为已读", note.ID)
		}
	}

	if n, _ := env.svc.Notification.MarkAllRead(ctx); n != 0 {
		t.Errorf("没有未读通知时应返回 0，实际 %d", n)
	}
}

func TestNotificationService_NotFound(t *testing.T) {
	env := newTestEnv(t)

	if err := env.svc.Notification.MarkRead(context.Background(), 404); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("期望 ErrNotificationNotFound，实际: %v", err)
	}
	if err := env.svc.Notification.Delete(context.Background(), 404); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("期望 ErrNotificationNotFound，实际: %v", err)
	}
}

func TestAuditLogService_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.AuditLog.List(ctx, analyst, "", 0); !errors.Is(err, ErrNoPermission) {
		t.Errorf("Analyst 不能查看审计日志，实际: %v", err)
	}
	logs, err := env.svc.AuditLog.List(ctx, Actor{ID: "7", Role: model.RoleManager}, "", 0)
	if err != nil {
		t.Fatalf("Manager 查看审计日志应成功: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("默认数据应有 1 条初始化审计，实际 %d", len(logs))
	}
}

func TestSettingService_AddCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	list, err := env.svc.Setting.AddCategory(ctx, supporting, "  Karl Fischer ")
	if err != nil {
		t.Fatalf("AddCategory 应成功: %v", err)
	}
	if len(list) != 11 || list[10] != "Karl Fischer" {
		t.Errorf("新分类应追加在末尾，实际 %v", list)
	}
	if _, err := env.svc.Setting.AddCategory(ctx, supporting, "HPLC"); !errors.Is(err, ErrCategoryExists) {
		t.Errorf("期望 ErrCategoryExists，实际: %v", err)
	}
	if _, err := env.svc.Setting.AddCategory(ctx, chemist, "Titrator"); !errors.Is(err, ErrNoPermission) {
		t.Errorf("期望 ErrNoPermission，实际: %v", err)
	}
}
