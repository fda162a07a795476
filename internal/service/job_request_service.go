package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/lifecycle"
	"supporting-smart-system/internal/model"
	apperrors "supporting-smart-system/pkg/errors"
)

// ── 工单模块业务错误 ──

var (
	ErrJobRequestNotFound = errors.New("工单不存在")
	ErrInvalidAssignee    = apperrors.NewValidation("assignedToId", "工单只能指派给 Supporting 或 Admin")
	ErrJobUnknownCategory = apperrors.NewValidation("category", "未知工单分类")
)

// JobRequestService 工单业务接口
type JobRequestService interface {
	List(ctx context.Context) ([]dto.JobRequestResponse, error)
	Create(ctx context.Context, actor Actor, req *dto.JobRequestRequest) (*model.JobRequest, error)
	UpdateContent(ctx context.Context, actor Actor, id int64, req *dto.JobRequestRequest) (*model.JobRequest, error)
	ChangeStatus(ctx context.Context, actor Actor, id int64, req *dto.JobStatusRequest) (*model.JobRequest, error)
	Delete(ctx context.Context, actor Actor, id int64) error
}

type jobRequestService struct {
	data     *dataaccess.Client
	activity ActivityRecorder
	mailer   Mailer
	logger   *zap.Logger
}

// NewJobRequestService 创建 JobRequestService 实例
func NewJobRequestService(data *dataaccess.Client, activity ActivityRecorder, mailer Mailer, logger *zap.Logger) JobRequestService {
	return &jobRequestService{data: data, activity: activity, mailer: mailer, logger: logger}
}

// ────────────────────── List ──────────────────────

// List 列出全部工单；提交人、指派人已被删除时显示 Unknown User
func (s *jobRequestService) List(ctx context.Context) ([]dto.JobRequestResponse, error) {
	jobs, err := s.data.JobRequests.List(ctx)
	if err != nil {
		s.logger.Error("列出工单失败", zap.Error(err))
		return nil, err
	}
	users, err := s.data.Users.List(ctx)
	if err != nil {
		s.logger.Error("读取用户列表失败", zap.Error(err))
		return nil, err
	}
	names := userNames(users)

	result := make([]dto.JobRequestResponse, 0, len(jobs))
	for _, j := range jobs {
		j.RequestorName = nameOr(names, j.RequestorID)
		result = append(result, dto.JobRequestResponse{
			JobRequest:     j,
			AssignedToName: nameOr(names, j.AssignedToID),
		})
	}
	return result, nil
}

// ────────────────────── Create ──────────────────────

func (s *jobRequestService) Create(ctx context.Context, actor Actor, req *dto.JobRequestRequest) (*model.JobRequest, error) {
	if !lifecycle.CanCreateJobRequest(actor.Role) {
		return nil, ErrNoPermission
	}
	ctx = context.WithoutCancel(ctx)

	category, err := jobCategory(actor.Role, req.Category, nil)
	if err != nil {
		return nil, err
	}
	if err := validateJobContent(req); err != nil {
		return nil, err
	}
	assignee, err := s.assignee(ctx, req.AssignedToID)
	if err != nil {
		return nil, err
	}
	actor = resolveActor(ctx, s.data, actor)

	job := &model.JobRequest{
		Title:         strings.TrimSpace(req.Title),
		RequestorID:   actor.ID,
		RequestorName: actor.Name,
		Division:      req.Division,
		Description:   req.Description,
		Category:      category,
		RequestedAt:   time.Now().UTC(),
		StartDate:     req.StartDate,
		DueDate:       req.DueDate,
		AssignedToID:  assignee.ID,
		Status:        lifecycle.JobRequests,
	}
	id, err := s.data.JobRequests.Create(ctx, job)
	if err != nil {
		s.logger.Error("创建工单失败", zap.String("title", job.Title), zap.Error(err))
		return nil, err
	}
	job.ID = id

	s.activity.Record(ctx, actor, Activity{
		Action:     model.ActionCreate,
		Subject:    SubjectJobRequest,
		TargetID:   jobTargetID(id),
		TargetName: job.Title,
		Details:    "Assigned to " + assignee.Name,
	})
	s.notifyAssignee(ctx, assignee, job)
	return job, nil
}

// ────────────────────── UpdateContent ──────────────────────

// UpdateContent 修改工单内容，状态与说明保持不变
func (s *jobRequestService) UpdateContent(ctx context.Context, actor Actor, id int64, req *dto.JobRequestRequest) (*model.JobRequest, error) {
	ctx = context.WithoutCancel(ctx)

	job, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanEditJobContent(actor.Role, actor.ID, job.RequestorID) {
		return nil, ErrNoPermission
	}
	if err := validateJobContent(req); err != nil {
		return nil, err
	}
	category, err := jobCategory(actor.Role, req.Category, job.Category)
	if err != nil {
		return nil, err
	}

	var assignee *model.User
	if req.AssignedToID != job.AssignedToID {
		if assignee, err = s.assignee(ctx, req.AssignedToID); err != nil {
			return nil, err
		}
	}

	job.Title = strings.TrimSpace(req.Title)
	job.Division = req.Division
	job.Description = req.Description
	job.Category = category
	job.StartDate = req.StartDate
	job.DueDate = req.DueDate
	job.AssignedToID = req.AssignedToID

	if err := s.data.JobRequests.Update(ctx, job); err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrJobRequestNotFound
		}
		s.logger.Error("更新工单失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionUpdate,
		Subject:    SubjectJobRequest,
		TargetID:   jobTargetID(id),
		TargetName: job.Title,
		Details:    "Content updated",
	})
	if assignee != nil {
		s.notifyAssignee(ctx, assignee, job)
	}
	return job, nil
}

// ────────────────────── ChangeStatus ──────────────────────

func (s *jobRequestService) ChangeStatus(ctx context.Context, actor Actor, id int64, req *dto.JobStatusRequest) (*model.JobRequest, error) {
	if !lifecycle.CanChangeJobStatus(actor.Role) {
		return nil, ErrNoPermission
	}
	ctx = context.WithoutCancel(ctx)

	job, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	comment, err := lifecycle.Transition(job.Status, req.Status, req.CompletionComment)
	if err != nil {
		return nil, err
	}

	from := job.Status
	fields := map[string]any{"status": req.Status, "completionComment": comment}
	if err := s.data.JobRequests.Patch(ctx, id, fields); err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrJobRequestNotFound
		}
		s.logger.Error("更新工单状态失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	job.Status = req.Status
	job.CompletionComment = comment

	details := fmt.Sprintf("Status: %s → %s", from, req.Status)
	if comment != "" {
		details += ". " + comment
	}
	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionUpdate,
		Subject:    SubjectJobRequest,
		TargetID:   jobTargetID(id),
		TargetName: job.Title,
		Details:    details,
	})
	return job, nil
}

// ────────────────────── Delete ──────────────────────

func (s *jobRequestService) Delete(ctx context.Context, actor Actor, id int64) error {
	ctx = context.WithoutCancel(ctx)

	job, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !lifecycle.CanDeleteJobRequest(actor.Role, actor.ID, job.RequestorID) {
		return ErrNoPermission
	}
	if err := s.data.JobRequests.Delete(ctx, id); err != nil {
		if dataaccess.IsNotFound(err) {
			return ErrJobRequestNotFound
		}
		s.logger.Error("删除工单失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionDelete,
		Subject:    SubjectJobRequest,
		TargetID:   jobTargetID(id),
		TargetName: job.Title,
	})
	return nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *jobRequestService) get(ctx context.Context, id int64) (*model.JobRequest, error) {
	job, err := s.data.JobRequests.Get(ctx, id)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrJobRequestNotFound
		}
		s.logger.Error("查询工单失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return job, nil
}

// assignee 指派人必须是现存的 Supporting/Admin 用户
func (s *jobRequestService) assignee(ctx context.Context, id string) (*model.User, error) {
	u, err := s.data.Users.Get(ctx, id)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrInvalidAssignee
		}
		return nil, err
	}
	if !lifecycle.CanBeAssigned(u.Role) {
		return nil, ErrInvalidAssignee
	}
	return u, nil
}

// notifyAssignee 邮件通知指派人，失败只记录日志
func (s *jobRequestService) notifyAssignee(ctx context.Context, assignee *model.User, job *model.JobRequest) {
	if assignee.Email == "" {
		return
	}
	subject := "New job request: " + job.Title
	body := fmt.Sprintf(
		"<p>%s assigned a job request to you.</p><p><b>%s</b> (%s)</p><p>%s</p><p>Due: %s</p>",
		job.RequestorName, job.Title, job.Division, job.Description, job.DueDate,
	)
	if err := s.mailer.Send(ctx, []string{assignee.Email}, subject, body); err != nil {
		s.logger.Error("操作副作用写入失败",
			zap.String("step", "mail"),
			zap.String("action", model.ActionCreate),
			zap.String("target_id", jobTargetID(job.ID)),
			zap.Error(err),
		)
	}
}

func jobTargetID(id int64) string {
	return "JOB-" + strconv.FormatInt(id, 10)
}

func validateJobContent(req *dto.JobRequestRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidation("title", "标题不能为空")
	}
	if !model.OneOf(req.Division, model.Divisions) {
		return apperrors.NewValidation("division", "未知部门 "+req.Division)
	}
	return nil
}

// jobCategory 只有 Supporting/Admin 能指定分类，其他角色的输入被忽略并保留 current
func jobCategory(role string, requested, current *string) (*string, error) {
	if !lifecycle.CanChangeJobStatus(role) {
		return current, nil
	}
	if requested == nil || *requested == "" {
		return nil, nil
	}
	if !model.OneOf(*requested, model.JobCategories) {
		return nil, ErrJobUnknownCategory
	}
	c := *requested
	return &c, nil
}
