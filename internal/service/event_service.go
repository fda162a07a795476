package service

import (
	"context"
	"errors"
	"fmt"
	"io"
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

// ── 维护日程模块业务错误 ──

var (
	ErrEventNotFound     = errors.New("日程不存在")
	ErrEventInvalidRange = apperrors.NewValidation("endDate", "结束时间必须晚于开始时间")
	ErrEventUnknownType  = apperrors.NewValidation("type", "未知日程类型")
)

const eventDateLayout = "2006-01-02"

// EventService 维护日程业务接口
type EventService interface {
	List(ctx context.Context) ([]dto.EventResponse, error)
	Create(ctx context.Context, actor Actor, req *dto.EventRequest) (*model.CalendarEvent, error)
	Update(ctx context.Context, actor Actor, id int64, req *dto.EventRequest) (*model.CalendarEvent, error)
	Delete(ctx context.Context, actor Actor, id int64) error
	ExportICS(ctx context.Context, host string) (string, error)
	ImportICS(ctx context.Context, actor Actor, r io.Reader, eventType string, equipmentID *string) (int, error)
}

type eventService struct {
	data     *dataaccess.Client
	activity ActivityRecorder
	logger   *zap.Logger
}

// NewEventService 创建 EventService 实例
func NewEventService(data *dataaccess.Client, activity ActivityRecorder, logger *zap.Logger) EventService {
	return &eventService{data: data, activity: activity, logger: logger}
}

// ────────────────────── List ──────────────────────

// List 列出全部日程；创建人已被删除时显示 Unknown User
func (s *eventService) List(ctx context.Context) ([]dto.EventResponse, error) {
	events, err := s.data.Events.List(ctx)
	if err != nil {
		s.logger.Error("列出日程失败", zap.Error(err))
		return nil, err
	}
	users, err := s.data.Users.List(ctx)
	if err != nil {
		s.logger.Error("读取用户列表失败", zap.Error(err))
		return nil, err
	}
	names := userNames(users)

	result := make([]dto.EventResponse, 0, len(events))
	for _, ev := range events {
		result = append(result, dto.EventResponse{
			CalendarEvent: ev,
			CreatedByName: nameOr(names, ev.CreatedBy),
		})
	}
	return result, nil
}

// ────────────────────── Create ──────────────────────

func (s *eventService) Create(ctx context.Context, actor Actor, req *dto.EventRequest) (*model.CalendarEvent, error) {
	if !lifecycle.CanManageSchedule(actor.Role) {
		return nil, ErrNoPermission
	}
	ev, err := eventFromRequest(req)
	if err != nil {
		return nil, err
	}
	ev.CreatedBy = actor.ID
	ctx = context.WithoutCancel(ctx)

	id, err := s.data.Events.Create(ctx, ev)
	if err != nil {
		s.logger.Error("创建日程失败", zap.String("title", ev.Title), zap.Error(err))
		return nil, err
	}
	ev.ID = id

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionCreate,
		Subject:    SubjectEvent,
		TargetID:   eventTargetID(id),
		TargetName: ev.Title,
		Details:    "Scheduled for " + ev.StartDate.Format(eventDateLayout),
	})
	return ev, nil
}

// ────────────────────── Update ──────────────────────

func (s *eventService) Update(ctx context.Context, actor Actor, id int64, req *dto.EventRequest) (*model.CalendarEvent, error) {
	if !lifecycle.CanManageSchedule(actor.Role) {
		return nil, ErrNoPermission
	}
	ev, err := eventFromRequest(req)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	existing, err := s.data.Events.Get(ctx, id)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("查询日程失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	ev.ID = id
	ev.CreatedBy = existing.CreatedBy

	if err := s.data.Events.Update(ctx, ev); err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("更新日程失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionUpdate,
		Subject:    SubjectEvent,
		TargetID:   eventTargetID(id),
		TargetName: ev.Title,
		Details:    eventUpdateDetails(existing, ev),
	})
	return ev, nil
}

// eventUpdateDetails 开始时间变化才记为改期
func eventUpdateDetails(before, after *model.CalendarEvent) string {
	if before.StartDate.Equal(after.StartDate) {
		return "Event details updated"
	}
	return "Rescheduled to " + after.StartDate.Format(eventDateLayout)
}

// ────────────────────── Delete ──────────────────────

func (s *eventService) Delete(ctx context.Context, actor Actor, id int64) error {
	if !lifecycle.CanManageSchedule(actor.Role) {
		return ErrNoPermission
	}
	ctx = context.WithoutCancel(ctx)

	ev, err := s.data.Events.Get(ctx, id)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return ErrEventNotFound
		}
		s.logger.Error("查询日程失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if err := s.data.Events.Delete(ctx, id); err != nil {
		if dataaccess.IsNotFound(err) {
			return ErrEventNotFound
		}
		s.logger.Error("删除日程失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionDelete,
		Subject:    SubjectEvent,
		TargetID:   eventTargetID(id),
		TargetName: ev.Title,
		Details:    "Event deleted from schedule. Original Date: " + ev.StartDate.Format(eventDateLayout),
	})
	return nil
}

// ────────────────────── iCalendar ──────────────────────

func (s *eventService) ExportICS(ctx context.Context, host string) (string, error) {
	events, err := s.data.Events.List(ctx)
	if err != nil {
		s.logger.Error("列出日程失败", zap.Error(err))
		return "", err
	}
	return BuildCalendar(events, host, time.Now().UTC()), nil
}

// ImportICS 从 .ics 文件批量创建日程，每条日程单独写入审计
// 中途写入失败时返回已写入的条数
func (s *eventService) ImportICS(ctx context.Context, actor Actor, r io.Reader, eventType string, equipmentID *string) (int, error) {
	if !lifecycle.CanManageSchedule(actor.Role) {
		return 0, ErrNoPermission
	}
	if !model.OneOf(eventType, model.EventTypes) {
		return 0, ErrEventUnknownType
	}
	equipmentID = normalizeEquipmentRef(equipmentID)

	events, err := ParseCalendar(r, eventType, equipmentID, actor.ID)
	if err != nil {
		return 0, apperrors.NewValidation("file", err.Error())
	}
	if len(events) == 0 {
		return 0, apperrors.NewValidation("file", "文件中没有可导入的日程")
	}

	ctx = context.WithoutCancel(ctx)
	actor = resolveActor(ctx, s.data, actor)
	for i := range events {
		ev := &events[i]
		id, err := s.data.Events.Create(ctx, ev)
		if err != nil {
			s.logger.Error("导入日程失败", zap.Int("written", i), zap.Error(err))
			return i, err
		}
		s.activity.Record(ctx, actor, Activity{
			Action:     model.ActionCreate,
			Subject:    SubjectEvent,
			TargetID:   eventTargetID(id),
			TargetName: ev.Title,
			Details:    "Scheduled for " + ev.StartDate.Format(eventDateLayout),
		})
	}
	return len(events), nil
}

// ────────────────────── 内部方法 ──────────────────────

func eventTargetID(id int64) string {
	return "EVENT-" + strconv.FormatInt(id, 10)
}

func normalizeEquipmentRef(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func eventFromRequest(req *dto.EventRequest) (*model.CalendarEvent, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewValidation("title", "标题不能为空")
	}
	if !model.OneOf(req.Type, model.EventTypes) {
		return nil, fmt.Errorf("%w: %s", ErrEventUnknownType, req.Type)
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, ErrEventInvalidRange
	}
	return &model.CalendarEvent{
		Title:       title,
		Description: req.Description,
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		Type:        req.Type,
		EquipmentID: normalizeEquipmentRef(req.EquipmentID),
	}, nil
}
