package service

import (
	"context"
	"errors"
	"testing"

	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/lifecycle"
	"supporting-smart-system/internal/model"
)

func jobReq(assignee string) *dto.JobRequestRequest {
	return &dto.JobRequestRequest{
		Title:        "HPLC pump pressure alarm",
		Division:     "HPLC",
		Description:  "Pressure alarm on pump A during gradient runs.",
		StartDate:    "2025-03-01",
		DueDate:      "2025-03-05",
		AssignedToID: assignee,
	}
}

// seededJob 按标题查找默认工单
func seededJob(t *testing.T, env *testEnv, title string) dto.JobRequestResponse {
	t.Helper()
	jobs, err := env.svc.JobRequest.List(context.Background())
	if err != nil {
		t.Fatalf("列出工单失败: %v", err)
	}
	for _, j := range jobs {
		if j.Title == title {
			return j
		}
	}
	t.Fatalf("默认数据缺少工单 %q", title)
	return dto.JobRequestResponse{}
}

// ── Create 测试 ──

func TestJobRequestService_Create(t *testing.T) {
	env := newTestEnv(t)

	job, err := env.svc.JobRequest.Create(context.Background(), chemist, jobReq("4"))
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if job.Status != lifecycle.JobRequests || job.RequestorID != chemist.ID {
		t.Errorf("新工单状态或提交人不符: %+v", job)
	}

	logs := auditsFor(env.auditLogs(t), jobTargetID(job.ID))
	if len(logs) != 1 || logs[0].Details != "Assigned to Rizqi Utomo" {
		t.Errorf("审计记录不符: %+v", logs)
	}
	if len(env.mailer.to) != 1 || env.mailer.to[0] != "tomo@siglaboratory.co.id" {
		t.Errorf("应邮件通知指派人，实际 %v", env.mailer.to)
	}
}

func TestJobRequestService_Create_Permissions(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.JobRequest.Create(context.Background(), analyst, jobReq("4")); !errors.Is(err, ErrNoPermission) {
		t.Errorf("Analyst 不能提交工单，实际: %v", err)
	}
	if _, err := env.svc.JobRequest.Create(context.Background(), supporting, jobReq("4")); !errors.Is(err, ErrNoPermission) {
		t.Errorf("Supporting 不能提交工单，实际: %v", err)
	}
}

func TestJobRequestService_Create_InvalidAssignee(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{"5", "ghost"} {
		if _, err := env.svc.JobRequest.Create(context.Background(), chemist, jobReq(id)); !errors.Is(err, ErrInvalidAssignee) {
			t.Errorf("指派给 %s 期望 ErrInvalidAssignee，实际: %v", id, err)
		}
	}
}

func TestJobRequestService_Create_CategoryIgnoredForRequestor(t *testing.T) {
	env := newTestEnv(t)
	req := jobReq("4")
	category := "Troubleshooting"
	req.Category = &category

	job, err := env.svc.JobRequest.Create(context.Background(), chemist, req)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if job.Category != nil {
		t.Errorf("非 Supporting 提交的分类应被忽略，实际=%s", *job.Category)
	}
}

func TestJobRequestService_Create_MailFailureIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errInjected

	if _, err := env.svc.JobRequest.Create(context.Background(), chemist, jobReq("4")); err != nil {
		t.Errorf("邮件失败不应影响提交，实际: %v", err)
	}
}

// ── UpdateContent 测试 ──

func TestJobRequestService_UpdateContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seeded := seededJob(t, env, "Balance drift check")

	if _, err := env.svc.JobRequest.UpdateContent(ctx, analyst, seeded.ID, jobReq("4")); !errors.Is(err, ErrNoPermission) {
		t.Errorf("非提交人不能修改内容，实际: %v", err)
	}

	req := jobReq("2")
	category := "Maintenance"
	req.Category = &category
	job, err := env.svc.JobRequest.UpdateContent(ctx, supporting, seeded.ID, req)
	if err != nil {
		t.Fatalf("Supporting 修改内容应成功: %v", err)
	}
	if job.Category == nil || *job.Category != "Maintenance" {
		t.Errorf("Supporting 应能指定分类，实际 %v", job.Category)
	}
	if job.Status != seeded.Status {
		t.Errorf("修改内容不应改变状态，实际=%s", job.Status)
	}
	if len(env.mailer.to) != 1 || env.mailer.to[0] != "fauzan.rizqy@siglaboratory.co.id" {
		t.Errorf("更换指派人后应通知新指派人，实际 %v", env.mailer.to)
	}
}

// ── ChangeStatus 测试 ──

func TestJobRequestService_ChangeStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seeded := seededJob(t, env, "Balance drift check")

	tests := []struct {
		name    string
		actor   Actor
		req     dto.JobStatusRequest
		wantErr error
	}{
		{"Chemist 无权推进", chemist, dto.JobStatusRequest{Status: lifecycle.JobOnProgress}, ErrNoPermission},
		{"跳过处理直接完成", supporting, dto.JobStatusRequest{Status: lifecycle.JobFinished, CompletionComment: "done"}, lifecycle.ErrInvalidTransition},
		{"未知状态", supporting, dto.JobStatusRequest{Status: "Closed"}, lifecycle.ErrUnknownStatus},
		{"驳回缺少说明", supporting, dto.JobStatusRequest{Status: lifecycle.JobRejected, CompletionComment: "  "}, lifecycle.ErrCompletionCommentRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := env.svc.JobRequest.ChangeStatus(ctx, tt.actor, seeded.ID, &req); !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}

	if _, err := env.svc.JobRequest.ChangeStatus(ctx, supporting, seeded.ID, &dto.JobStatusRequest{Status: lifecycle.JobOnProgress}); err != nil {
		t.Fatalf("Requests → OnProgress 应成功: %v", err)
	}
	job, err := env.svc.JobRequest.ChangeStatus(ctx, supporting, seeded.ID, &dto.JobStatusRequest{
		Status: lifecycle.JobFinished, CompletionComment: " Recalibrated load cell ",
	})
	if err != nil {
		t.Fatalf("OnProgress → Finished 应成功: %v", err)
	}
	if job.CompletionComment != "Recalibrated load cell" {
		t.Errorf("说明应去除首尾空白，实际=%q", job.CompletionComment)
	}

	logs := auditsFor(env.auditLogs(t), jobTargetID(seeded.ID))
	if len(logs) == 0 || logs[0].Details != "Status: OnProgress → Finished. Recalibrated load cell" {
		t.Errorf("最新审计记录不符: %+v", logs)
	}

	job, err = env.svc.JobRequest.ChangeStatus(ctx, supporting, seeded.ID, &dto.JobStatusRequest{Status: lifecycle.JobRequests})
	if err != nil {
		t.Fatalf("重新打开应成功: %v", err)
	}
	if job.CompletionComment != "" {
		t.Errorf("重新打开应清空说明，实际=%q", job.CompletionComment)
	}
}

// ── Delete 测试 ──

func TestJobRequestService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seeded := seededJob(t, env, "Balance drift check")

	if err := env.svc.JobRequest.Delete(ctx, analyst, seeded.ID); !errors.Is(err, ErrNoPermission) {
		t.Errorf("非提交人不能删除，实际: %v", err)
	}
	if err := env.svc.JobRequest.Delete(ctx, chemist, seeded.ID); err != nil {
		t.Fatalf("提交人删除应成功: %v", err)
	}
	if err := env.svc.JobRequest.Delete(ctx, chemist, seeded.ID); !errors.Is(err, ErrJobRequestNotFound) {
		t.Errorf("重复删除期望 ErrJobRequestNotFound，实际: %v", err)
	}

	notes := env.notifications(t)
	if len(notes) != 1 || notes[0].Type != model.NotificationDelete {
		t.Errorf("期望 1 条删除通知，实际 %+v", notes)
	}
}
