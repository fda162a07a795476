package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/lifecycle"
	"supporting-smart-system/internal/model"
	apperrors "supporting-smart-system/pkg/errors"
	"supporting-smart-system/pkg/metrics"
)

// ── 设备模块业务错误 ──

var (
	ErrEquipmentExists   = errors.New("设备编号已存在")
	ErrEquipmentNotFound = errors.New("设备不存在")
	ErrNoPermission      = errors.New("无权操作")
)

// 附件大小上限（解码后字节数）
const (
	MaxImageBytes       = 800 * 1024
	MaxCertificateBytes = 1024 * 1024
	MaxAvatarBytes      = 500 * 1024
)

// EquipmentService 设备业务接口
type EquipmentService interface {
	List(ctx context.Context) ([]model.Equipment, error)
	Get(ctx context.Context, id string) (*model.Equipment, error)
	Create(ctx context.Context, actor Actor, req *dto.EquipmentRequest) (*model.Equipment, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.EquipmentRequest) (*model.Equipment, error)
	Delete(ctx context.Context, actor Actor, id string) error
	BulkImport(ctx context.Context, actor Actor, items []model.Equipment) (*dto.ImportResult, error)
	History(ctx context.Context, id string) ([]dto.HistoryEntry, error)
	Snapshot(ctx context.Context) (*dto.Snapshot, error)
}

type equipmentService struct {
	data     *dataaccess.Client
	activity ActivityRecorder
	cache    *snapshotCache
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewEquipmentService 创建 EquipmentService 实例
func NewEquipmentService(data *dataaccess.Client, activity ActivityRecorder, cache *snapshotCache, m *metrics.Metrics, logger *zap.Logger) EquipmentService {
	return &equipmentService{data: data, activity: activity, cache: cache, metrics: m, logger: logger}
}

// ────────────────────── List / Get ──────────────────────

func (s *equipmentService) List(ctx context.Context) ([]model.Equipment, error) {
	items, err := s.data.Equipment.List(ctx)
	if err != nil {
		s.logger.Error("列出设备失败", zap.Error(err))
		return nil, err
	}
	return items, nil
}

func (s *equipmentService) Get(ctx context.Context, id string) (*model.Equipment, error) {
	e, err := s.data.Equipment.Get(ctx, id)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrEquipmentNotFound
		}
		s.logger.Error("查询设备失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return e, nil
}

// ────────────────────── Create ──────────────────────

func (s *equipmentService) Create(ctx context.Context, actor Actor, req *dto.EquipmentRequest) (*model.Equipment, error) {
	if !lifecycle.CanWriteEquipment(actor.Role) {
		return nil, ErrNoPermission
	}
	ctx = context.WithoutCancel(ctx)

	e := normalizeEquipment(req.ToModel())
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}

	if _, err := s.data.Equipment.Get(ctx, e.ID); err == nil {
		return nil, ErrEquipmentExists
	} else if !dataaccess.IsNotFound(err) {
		s.logger.Error("查询设备失败", zap.String("id", e.ID), zap.Error(err))
		return nil, err
	}

	if _, err := s.data.Equipment.Create(ctx, e); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, ErrEquipmentExists
		}
		s.logger.Error("创建设备失败", zap.String("id", e.ID), zap.Error(err))
		return nil, err
	}

	s.afterSave(ctx, actor, model.ActionCreate, e)
	return e, nil
}

// ────────────────────── Update ──────────────────────

func (s *equipmentService) Update(ctx context.Context, actor Actor, id string, req *dto.EquipmentRequest) (*model.Equipment, error) {
	if !lifecycle.CanWriteEquipment(actor.Role) {
		return nil, ErrNoPermission
	}
	ctx = context.WithoutCancel(ctx)

	e := normalizeEquipment(req.ToModel())
	if e.ID == "" {
		e.ID = id
	}
	if e.ID != id {
		return nil, apperrors.NewValidation("id", "设备编号不可修改")
	}
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}

	// 整行覆盖，最后写入生效
	if err := s.data.Equipment.Update(ctx, e); err != nil {
		if dataaccess.IsNotFound(err) {
			return nil, ErrEquipmentNotFound
		}
		s.logger.Error("更新设备失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.afterSave(ctx, actor, model.ActionUpdate, e)
	return e, nil
}

// afterSave 分类扩展 → 审计/通知 → 刷新快照，均不影响保存结果
func (s *equipmentService) afterSave(ctx context.Context, actor Actor, action string, e *model.Equipment) {
	if _, err := extendCategories(ctx, s.data, e.Category); err != nil {
		s.metrics.SideEffectFailed("category")
		s.logger.Error("扩展设备分类失败",
			zap.String("action", action),
			zap.String("target_id", e.ID),
			zap.String("category", e.Category),
			zap.Error(err),
		)
	}

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     action,
		Subject:    SubjectEquipment,
		TargetID:   e.ID,
		TargetName: e.DisplayName(),
	})
	s.cache.refreshAfterMutation(ctx)
}

// ────────────────────── Delete ──────────────────────

func (s *equipmentService) Delete(ctx context.Context, actor Actor, id string) error {
	if !lifecycle.CanWriteEquipment(actor.Role) {
		return ErrNoPermission
	}
	ctx = context.WithoutCancel(ctx)

	// 删除前读取，审计中使用删除时刻的显示名
	e, err := s.data.Equipment.Get(ctx, id)
	if err != nil {
		if dataaccess.IsNotFound(err) {
			return ErrEquipmentNotFound
		}
		s.logger.Error("查询设备失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if err := s.data.Equipment.Delete(ctx, id); err != nil {
		if dataaccess.IsNotFound(err) {
			return ErrEquipmentNotFound
		}
		s.logger.Error("删除设备失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionDelete,
		Subject:    SubjectEquipment,
		TargetID:   e.ID,
		TargetName: e.DisplayName(),
	})
	s.cache.refreshAfterMutation(ctx)
	return nil
}

// ────────────────────── BulkImport ──────────────────────

// BulkImport 整批插入或覆盖，只记录一条 IMPORT 审计
// 中途失败时已写入的行保留；只要写入了至少一行仍记录审计
func (s *equipmentService) BulkImport(ctx context.Context, actor Actor, items []model.Equipment) (*dto.ImportResult, error) {
	if !lifecycle.CanWriteEquipment(actor.Role) {
		return nil, ErrNoPermission
	}
	if len(items) == 0 {
		return nil, apperrors.NewValidation("", "导入数据为空")
	}
	ctx = context.WithoutCancel(ctx)

	categories := make([]string, 0, len(items))
	for i := range items {
		e := normalizeEquipment(&items[i])
		if err := validateEquipmentFields(e); err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", i+1, err)
		}
		categories = append(categories, e.Category)
	}

	written, importErr := s.data.Equipment.BulkUpsert(ctx, items)
	result := &dto.ImportResult{Total: len(items), Written: written}
	if importErr != nil {
		s.logger.Error("批量导入设备中断",
			zap.Int("total", len(items)),
			zap.Int("written", written),
			zap.Error(importErr),
		)
	}
	if written == 0 {
		return result, importErr
	}

	added, err := extendCategories(ctx, s.data, categories[:written]...)
	if err != nil {
		s.metrics.SideEffectFailed("category")
		s.logger.Error("扩展设备分类失败", zap.String("action", model.ActionImport), zap.Error(err))
	}
	result.NewCategories = added

	s.activity.Record(ctx, resolveActor(ctx, s.data, actor), Activity{
		Action:     model.ActionImport,
		Subject:    SubjectEquipment,
		TargetID:   "BULK",
		TargetName: "Equipment Import",
		Details:    fmt.Sprintf("Imported %d of %d equipment records", written, len(items)),
	})
	s.cache.refreshAfterMutation(ctx)
	return result, importErr
}

// ────────────────────── History ──────────────────────

func (s *equipmentService) History(ctx context.Context, id string) ([]dto.HistoryEntry, error) {
	logs, err := s.data.AuditLogs.Find(ctx, map[string]any{"targetId": id}, 0)
	if err != nil {
		return nil, err
	}
	events, err := s.data.Events.Find(ctx, map[string]any{"equipmentId": id}, 0)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.HistoryEntry, 0, len(logs)+len(events))
	for _, l := range logs {
		entries = append(entries, dto.HistoryEntry{
			Kind:      "audit",
			Timestamp: l.Timestamp,
			Title:     l.TargetName,
			Action:    l.Action,
			UserName:  l.UserName,
			Details:   l.Details,
		})
	}
	for _, ev := range events {
		entries = append(entries, dto.HistoryEntry{
			Kind:      "event",
			Timestamp: ev.StartDate,
			Title:     ev.Title,
			EventType: ev.Type,
			Details:   ev.Description,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

func (s *equipmentService) Snapshot(ctx context.Context) (*dto.Snapshot, error) {
	return s.cache.Get(ctx)
}

// ────────────────────── 校验 ──────────────────────

func normalizeEquipment(e *model.Equipment) *model.Equipment {
	e.ID = strings.TrimSpace(e.ID)
	e.Category = strings.TrimSpace(e.Category)
	e.Brand = strings.TrimSpace(e.Brand)
	e.Division = strings.TrimSpace(e.Division)
	e.PersonInCharge = strings.TrimSpace(e.PersonInCharge)
	if e.Status == "" {
		e.Status = lifecycle.EquipmentOK
	}
	return e
}

// validateEquipmentFields 不依赖存储的字段校验
func validateEquipmentFields(e *model.Equipment) error {
	switch {
	case e.ID == "":
		return apperrors.NewValidation("id", "设备编号不能为空")
	case e.Category == "":
		return apperrors.NewValidation("category", "设备分类不能为空")
	case e.Brand == "":
		return apperrors.NewValidation("brand", "品牌不能为空")
	case e.Division == "":
		return apperrors.NewValidation("division", "所属部门不能为空")
	}
	if !model.OneOf(e.Division, model.Divisions) {
		return apperrors.NewValidation("division", "未知部门 "+e.Division)
	}
	if !lifecycle.ValidEquipmentStatus(e.Status) {
		return apperrors.NewValidation("status", "未知设备状态 "+e.Status)
	}
	if attachmentSize(e.Image) > MaxImageBytes {
		return apperrors.NewValidation("image", "图片不能超过 800KB")
	}
	if attachmentSize(e.CalibrationCert) > MaxCertificateBytes {
		return apperrors.NewValidation("calibrationCert", "校准证书不能超过 1MB")
	}
	if attachmentSize(e.VerificationCert) > MaxCertificateBytes {
		return apperrors.NewValidation("verificationCert", "核查证书不能超过 1MB")
	}
	return nil
}

// validate 字段校验 + 负责人必须与现有用户姓名匹配（不区分大小写）
func (s *equipmentService) validate(ctx context.Context, e *model.Equipment) error {
	if err := validateEquipmentFields(e); err != nil {
		return err
	}
	if e.PersonInCharge == "" {
		return nil
	}

	users, err := s.data.Users.List(ctx)
	if err != nil {
		s.logger.Error("读取用户列表失败", zap.Error(err))
		return err
	}
	for _, u := range users {
		if strings.EqualFold(u.Name, e.PersonInCharge) {
			return nil
		}
	}
	return apperrors.NewValidation("personInCharge", "负责人必须是已有用户: "+e.PersonInCharge)
}

// attachmentSize 估算内嵌附件（data URL 或纯 base64）解码后的字节数
func attachmentSize(v string) int {
	if v == "" {
		return 0
	}
	if i := strings.Index(v, ";base64,"); i >= 0 && strings.HasPrefix(v, "data:") {
		v = v[i+len(";base64,"):]
	}
	return base64.RawStdEncoding.DecodedLen(len(strings.TrimRight(v, "=")))
}
