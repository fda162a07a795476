package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"supporting-smart-system/internal/model"
)

func TestComputeStats(t *testing.T) {
	items := []model.Equipment{
		{ID: "A", Status: "OK", Division: "MS", Category: "HPLC"},
		{ID: "B", Status: "Calibration", Division: "MS", Category: "HPLC"},
		{ID: "C", Status: "Verification", Division: "HPLC", Category: "GC-MS"},
		{ID: "D", Status: "Unused", Division: "ASLT", Category: "pH Meter"},
	}

	stats := ComputeStats(items)
	if stats.Total != 4 || stats.InService != 1 || stats.NeedsCalibration != 2 || stats.Unused != 1 {
		t.Errorf("汇总计数不符: %+v", stats)
	}
	if stats.ByStatus["Service"] != 0 {
		t.Errorf("没有设备的状态应计 0，实际 %d", stats.ByStatus["Service"])
	}
	if _, ok := stats.ByDivision["LOGAM"]; !ok {
		t.Error("全部部门都应出现在统计中")
	}
	if stats.ByCategory["HPLC"] != 2 {
		t.Errorf("HPLC 分类期望 2，实际 %d", stats.ByCategory["HPLC"])
	}
}

func TestDashboardService_Stats(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.svc.Dashboard.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	if stats.Total != 7 || stats.InService != 7 {
		t.Errorf("默认 7 台设备均为 OK，实际 %+v", stats)
	}
}

// ── 助手 ──

func TestAssistantService_NotConfigured(t *testing.T) {
	env := newTestEnv(t)

	ans, err := env.svc.Assistant.Ask(context.Background(), chemist, "Which balances need calibration?")
	if err != nil {
		t.Fatalf("未配置时不应返回错误: %v", err)
	}
	if !ans.Fallback || ans.Answer != AssistantUnavailable {
		t.Errorf("期望不可用提示，实际 %+v", ans)
	}
}

func TestAssistantService_Ask(t *testing.T) {
	env := newTestEnv(t)
	llm := &mockLLM{answer: "**SIG/FNA/ALB/AP-1096** is in good condition."}
	svc := NewAssistantService(llm, newSnapshotCache(env.data, zap.NewNop()), 0, zap.NewNop())

	ans, err := svc.Ask(context.Background(), chemist, "How is the balance?")
	if err != nil {
		t.Fatalf("Ask 应成功: %v", err)
	}
	if ans.Fallback || ans.Answer != llm.answer {
		t.Errorf("回答不符: %+v", ans)
	}

	if len(llm.messages) != 2 {
		t.Fatalf("期望 system + human 两条消息，实际 %d", len(llm.messages))
	}
	system, ok := llm.messages[0].Parts[0].(llms.TextContent)
	if !ok {
		t.Fatalf("system 消息类型不符: %T", llm.messages[0].Parts[0])
	}
	if !strings.Contains(system.Text, "The current user role is: Chemist.") {
		t.Error("system 提示应包含用户角色")
	}
	if !strings.Contains(system.Text, `"id":"SIG/FNA/ALB/AP-1096"`) {
		t.Error("system 提示应包含设备上下文")
	}
	if strings.Contains(system.Text, "Rizqi Utomo") {
		t.Error("设备上下文不应包含负责人")
	}
}

func TestAssistantService_Fallbacks(t *testing.T) {
	env := newTestEnv(t)
	cache := newSnapshotCache(env.data, zap.NewNop())

	failing := NewAssistantService(&mockLLM{err: errors.New("quota exceeded")}, cache, 0, zap.NewNop())
	ans, err := failing.Ask(context.Background(), admin, "status?")
	if err != nil || !ans.Fallback || ans.Answer != AssistantUnavailable {
		t.Errorf("外部服务失败应返回不可用提示，实际 %+v, %v", ans, err)
	}

	empty := NewAssistantService(&mockLLM{answer: "  "}, cache, 0, zap.NewNop())
	ans, err = empty.Ask(context.Background(), admin, "status?")
	if err != nil || !ans.Fallback || ans.Answer != AssistantEmptyAnswer {
		t.Errorf("空回答应返回固定回复，实际 %+v, %v", ans, err)
	}
}

// ── 派生通知 ──

func TestNotificationFor(t *testing.T) {
	tests := []struct {
		name      string
		actor     Actor
		act       Activity
		wantTitle string
		wantType  string
		wantMsg   string
	}{
		{"新增设备", supporting, Activity{Action: model.ActionCreate, Subject: SubjectEquipment, TargetName: "Agilent 1260"},
			"New Asset Added", model.NotificationCreate, "Fauzan Rizqy Kanz added Agilent 1260"},
		{"删除工单", chemist, Activity{Action: model.ActionDelete, Subject: SubjectJobRequest, TargetName: "Drift"},
			"Job Request Deleted", model.NotificationDelete, "Emily Chen deleted Drift"},
		{"批量导入", admin, Activity{Action: model.ActionImport, Subject: SubjectEquipment, TargetName: "Equipment Import"},
			"Bulk Import", model.NotificationCreate, "Imported equipment data."},
		{"全局重置", admin, Activity{Action: model.ActionReset, Subject: SubjectSystem},
			"System Reset", model.NotificationSystem, "Database reset to factory defaults."},
		{"操作人未知", Actor{ID: "x"}, Activity{Action: model.ActionUpdate, Subject: SubjectEvent, TargetName: "PM"},
			"Event Updated", model.NotificationUpdate, "Unknown User updated PM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := notificationFor(tt.actor, tt.act)
			if n.Title != tt.wantTitle || n.Type != tt.wantType || n.Message != tt.wantMsg {
				t.Errorf("通知不符: %+v", n)
			}
		})
	}
}
