package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/model"
	"supporting-smart-system/pkg/metrics"
)

// UnknownUser 弱引用无法解析时的显示名
const UnknownUser = "Unknown User"

// Actor 发起操作的用户
type Actor struct {
	ID   string
	Name string
	Role string
}

// 审计对象类型，决定派生通知的标题
const (
	SubjectEquipment  = "equipment"
	SubjectUser       = "user"
	SubjectEvent      = "event"
	SubjectJobRequest = "job_request"
	SubjectSystem     = "system"
)

// Activity 一次成功变更的审计内容
type Activity struct {
	Action     string
	Subject    string
	TargetID   string
	TargetName string
	Details    string
}

// AuditPublisher 审计事件流（Kafka），可为 nil
type AuditPublisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// ActivityRecorder 审计日志 → 派生通知
// 两步都不影响主操作结果：失败只记录日志与指标；审计写入失败时不再生成通知
type ActivityRecorder interface {
	Record(ctx context.Context, actor Actor, act Activity)
}

type activityRecorder struct {
	data    *dataaccess.Client
	stream  AuditPublisher
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewActivityRecorder 创建 ActivityRecorder
func NewActivityRecorder(data *dataaccess.Client, stream AuditPublisher, m *metrics.Metrics, logger *zap.Logger) ActivityRecorder {
	return &activityRecorder{
		data:    data,
		stream:  stream,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *activityRecorder) Record(ctx context.Context, actor Actor, act Activity) {
	ctx = context.WithoutCancel(ctx)
	now := r.now()

	entry := &model.AuditLog{
		Action:     act.Action,
		TargetID:   act.TargetID,
		TargetName: act.TargetName,
		UserID:     actor.ID,
		UserName:   actor.Name,
		Timestamp:  now,
		Details:    act.Details,
	}
	id, err := r.data.AuditLogs.Create(ctx, entry)
	if err != nil {
		r.failed("audit", act, err)
		return
	}
	entry.ID = id
	r.metrics.AuditWritten(act.Action)

	if r.stream != nil {
		if err := r.stream.Publish(ctx, act.TargetID, entry); err != nil {
			r.failed("stream", act, err)
		}
	}

	n := notificationFor(actor, act)
	n.Timestamp = now
	if _, err := r.data.Notifications.Create(ctx, n); err != nil {
		r.failed("notification", act, err)
	}
}

func (r *activityRecorder) failed(step string, act Activity, err error) {
	r.metrics.SideEffectFailed(step)
	r.logger.Error("操作副作用写入失败",
		zap.String("step", step),
		zap.String("action", act.Action),
		zap.String("target_id", act.TargetID),
		zap.Error(err),
	)
}

// ────────────────────── 派生通知 ──────────────────────

var notificationTitles = map[string]map[string]string{
	SubjectEquipment: {
		model.ActionCreate: "New Asset Added",
		model.ActionUpdate: "Asset Updated",
		model.ActionDelete: "Asset Deleted",
		model.ActionImport: "Bulk Import",
	},
	SubjectUser: {
		model.ActionCreate: "User Added",
		model.ActionUpdate: "User Updated",
		model.ActionDelete: "User Removed",
	},
	SubjectEvent: {
		model.ActionCreate: "Event Scheduled",
		model.ActionUpdate: "Event Updated",
		model.ActionDelete: "Event Removed",
	},
	SubjectJobRequest: {
		model.ActionCreate: "New Job Request",
		model.ActionUpdate: "Job Request Updated",
		model.ActionDelete: "Job Request Deleted",
	},
	SubjectSystem: {
		model.ActionReset: "System Reset",
	},
}

var actionVerbs = map[string]string{
	model.ActionCreate: "added",
	model.ActionUpdate: "updated",
	model.ActionDelete: "deleted",
}

func notificationFor(actor Actor, act Activity) *model.Notification {
	title := notificationTitles[act.Subject][act.Action]
	if title == "" {
		title = act.Action
	}

	n := &model.Notification{Title: title}
	switch act.Action {
	case model.ActionCreate:
		n.Type = model.NotificationCreate
	case model.ActionUpdate:
		n.Type = model.NotificationUpdate
	case model.ActionDelete:
		n.Type = model.NotificationDelete
	case model.ActionImport:
		n.Type = model.NotificationCreate
		n.Message = "Imported equipment data."
	case model.ActionReset:
		n.Type = model.NotificationSystem
		n.Message = "Database reset to factory defaults."
	default:
		n.Type = model.NotificationSystem
	}

	if verb, ok := actionVerbs[act.Action]; ok {
		name := actor.Name
		if name == "" {
			name = UnknownUser
		}
		n.Message = fmt.Sprintf("%s %s %s", name, verb, act.TargetName)
	}
	return n
}

// ────────────────────── 用户名解析 ──────────────────────

// userNames 构建 id → 显示名索引，用于弱引用的读取时解析
func userNames(users []model.User) map[string]string {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names
}

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return UnknownUser
}

// resolveActor 补齐操作人显示名；用户已不存在时使用 UnknownUser
func resolveActor(ctx context.Context, data *dataaccess.Client, actor Actor) Actor {
	if actor.Name != "" || actor.ID == "" {
		return actor
	}
	u, err := data.Users.Get(ctx, actor.ID)
	if err != nil {
		actor.Name = UnknownUser
		return actor
	}
	actor.Name = u.Name
	return actor
}
