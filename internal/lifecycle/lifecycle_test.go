package lifecycle

import (
	"errors"
	"testing"

	"supporting-smart-system/internal/model"
)

func TestEquipmentStatus_AnyToAny(t *testing.T) {
	for _, s := range EquipmentStatuses {
		if !ValidEquipmentStatus(s) {
			t.Errorf("期望 %s 合法", s)
		}
	}
	if ValidEquipmentStatus("Broken") {
		t.Error("Broken 不是合法设备状态")
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name        string
		from, to    string
		comment     string
		wantComment string
		wantErr     error
	}{
		{"开始处理", JobRequests, JobOnProgress, "", "", nil},
		{"完成需说明", JobOnProgress, JobFinished, "", "", ErrCompletionCommentRequired},
		{"完成仅空白说明", JobOnProgress, JobFinished, "   ", "", ErrCompletionCommentRequired},
		{"完成带说明", JobOnProgress, JobFinished, " replaced lamp ", "replaced lamp", nil},
		{"未处理不可直接完成", JobRequests, JobFinished, "done", "", ErrInvalidTransition},
		{"直接驳回", JobRequests, JobRejected, "duplicate", "duplicate", nil},
		{"退回待处理", JobOnProgress, JobRequests, "", "", nil},
		{"驳回需说明", JobRequests, JobRejected, "", "", ErrCompletionCommentRequired},
		{"重新打开清空说明", JobFinished, JobOnProgress, "old", "", nil},
		{"自身流转", JobOnProgress, JobOnProgress, "ignored", "", nil},
		{"终态自身流转保留说明", JobFinished, JobFinished, "kept", "kept", nil},
		{"未知目标", JobRequests, "Done", "", "", ErrUnknownStatus},
		{"未知来源", "Draft", JobOnProgress, "", "", ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.to, tt.comment)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("期望错误 %v，实际 %v", tt.wantErr, err)
			}
			if got != tt.wantComment {
				t.Errorf("期望说明 %q，实际 %q", tt.wantComment, got)
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	if !CanWriteEquipment(model.RoleSupporting) || CanWriteEquipment(model.RoleManager) {
		t.Error("设备写权限应仅限 Admin/Supporting")
	}
	if !CanViewAudit(model.RoleSupervisor) || CanViewAudit(model.RoleChemist) {
		t.Error("审计查看权限不符")
	}
	if !CanCreateJobRequest(model.RoleChemist) || CanCreateJobRequest(model.RoleAnalyst) || CanCreateJobRequest(model.RoleSupporting) {
		t.Error("工单提交权限不符")
	}
	if !CanEditJobContent(model.RoleChemist, "5", "5") {
		t.Error("提交人应可编辑自己的工单")
	}
	if CanEditJobContent(model.RoleChemist, "5", "6") {
		t.Error("非提交人且非 Supporting 不可编辑")
	}
	if CanEditJobContent(model.RoleChemist, "", "") {
		t.Error("空用户 ID 不应匹配空提交人")
	}
	if !CanDeleteJobRequest(model.RoleAdmin, "1", "5") {
		t.Error("Admin 应可删除任意工单")
	}
	if CanResetDatabase(model.RoleSupporting) || !CanResetDatabase(model.RoleAdmin) {
		t.Error("全局重置仅限 Admin")
	}
}
