// Package repotest 提供存储后端共用的契约用例，gorm 与远程后端的测试都复用它。
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"supporting-smart-system/internal/model"
	"supporting-smart-system/internal/repository"
	"supporting-smart-system/pkg/database"
	apperrors "supporting-smart-system/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

// OpenSQLite 打开独立的内存 sqlite 库，测试结束时关闭
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := database.NewSQLite(dsn, "warn")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewRepo 迁移并初始化 gorm 后端，断言首次 Init 写入了默认数据
func NewRepo(t *testing.T, db *gorm.DB) *repository.Repository {
	t.Helper()
	m, err := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, err)
	repo := repository.NewRepository(db, m, bcrypt.MinCost, zap.NewNop())

	seeded, err := repo.Schema.Init(context.Background())
	require.NoError(t, err)
	require.True(t, seeded, "空库首次 Init 应写入默认数据")
	return repo
}

// ═══════════════════════════════════════════════════════════
// 存储契约（各存储后端共用）
// ═══════════════════════════════════════════════════════════

// RunContract 对任意存储后端运行同一组契约用例
func RunContract(t *testing.T, repo *repository.Repository) {
	ctx := context.Background()
	seed, err := repository.LoadSeed()
	require.NoError(t, err)

	t.Run("seed counts", func(t *testing.T) {
		users, err := repo.User.List(ctx, repository.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, users, len(seed.Users))

		equipment, err := repo.Equipment.List(ctx, repository.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, equipment, len(seed.Equipment))

		jobs, err := repo.JobRequest.List(ctx, repository.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, jobs, 2)

		logs, err := repo.AuditLog.List(ctx, repository.ListOptions{})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, model.ActionCreate, logs[0].Action)
		assert.Equal(t, "DATABASE", logs[0].TargetID)

		s, err := repo.Setting.Get(ctx, model.SettingCategories)
		require.NoError(t, err)
		assert.Equal(t, seed.Categories, []string(s.Values))
	})

	t.Run("seed password is hashed", func(t *testing.T) {
		admin, err := repo.User.Get(ctx, "1")
		require.NoError(t, err)
		assert.NotEqual(t, "admin", admin.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin")))
	})

	t.Run("second init is a no-op", func(t *testing.T) {
		seeded, err := repo.Schema.Init(ctx)
		require.NoError(t, err)
		assert.False(t, seeded)
	})

	t.Run("equipment insert keeps user supplied id", func(t *testing.T) {
		id, err := repo.Equipment.Insert(ctx, &model.Equipment{
			ID: "LAB-001", Category: "HPLC", Brand: "Acme", Division: "MS", Status: "OK",
		})
		require.NoError(t, err)
		assert.Equal(t, "LAB-001", id)

		_, err = repo.Equipment.Insert(ctx, &model.Equipment{ID: "LAB-001", Category: "HPLC", Brand: "Acme", Division: "MS", Status: "OK"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDuplicate), "重复主键应识别为 ErrDuplicate: %v", err)
		_, isStorage := apperrors.AsStorage(err)
		assert.True(t, isStorage)
	})

	t.Run("replace overwrites zero values", func(t *testing.T) {
		got, err := repo.Equipment.Get(ctx, "LAB-001")
		require.NoError(t, err)
		got.Location = "R. Instrumen LC"
		require.NoError(t, repo.Equipment.Replace(ctx, got))

		got.Location = ""
		got.Status = "Service"
		require.NoError(t, repo.Equipment.Replace(ctx, got))

		again, err := repo.Equipment.Get(ctx, "LAB-001")
		require.NoError(t, err)
		assert.Equal(t, "", again.Location)
		assert.Equal(t, "Service", again.Status)
	})

	t.Run("missing rows are not found", func(t *testing.T) {
		_, err := repo.Equipment.Get(ctx, "NOPE")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		err = repo.Equipment.Replace(ctx, &model.Equipment{ID: "NOPE", Category: "HPLC", Brand: "X", Division: "MS"})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		err = repo.Equipment.Delete(ctx, "NOPE")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		se, ok := apperrors.AsStorage(err)
		require.True(t, ok)
		assert.Equal(t, "delete", se.Op)
		assert.Equal(t, model.TableEquipment, se.Table)

		err = repo.Notification.Patch(ctx, 99999, map[string]any{"isRead": true})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("patch translates camelCase fields", func(t *testing.T) {
		id, err := repo.Notification.Insert(ctx, &model.Notification{Title: "New Asset Added", Message: "m", Type: model.NotificationCreate})
		require.NoError(t, err)
		require.NotZero(t, id)

		require.NoError(t, repo.Notification.Patch(ctx, id, map[string]any{"isRead": true}))
		n, err := repo.Notification.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, n.IsRead)

		err = repo.Notification.Patch(ctx, id, map[string]any{"is_read": true})
		assert.True(t, apperrors.IsValidation(err), "列名不应作为字段名接受")

		err = repo.Notification.Patch(ctx, id, map[string]any{"id": 5})
		assert.True(t, apperrors.IsValidation(err), "主键不可修改")
	})

	t.Run("bulk upsert is last write wins per row", func(t *testing.T) {
		before, err := repo.Equipment.Get(ctx, "SIG/FNA/ALB/IN-0249")
		require.NoError(t, err)

		n, err := repo.Equipment.BulkUpsert(ctx, []model.Equipment{
			{ID: "LAB-001", Category: "GC-MS", Brand: "Agilent", Model: "8890", Division: "GC-S", Status: "Calibration"},
			{ID: "LAB-002", Category: "HPLC", Brand: "Waters", Division: "HPLC", Status: "OK"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := repo.Equipment.Get(ctx, "LAB-001")
		require.NoError(t, err)
		assert.Equal(t, "Agilent", got.Brand)
		assert.Equal(t, "GC-S", got.Division)
		assert.Equal(t, "", got.Location)

		sibling, err := repo.Equipment.Get(ctx, "SIG/FNA/ALB/IN-0249")
		require.NoError(t, err)
		assert.Equal(t, before, sibling)
	})

	t.Run("list filters and limits", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := repo.AuditLog.Insert(ctx, &model.AuditLog{
				Action: model.ActionUpdate, TargetID: "LAB-002", UserID: "1", UserName: "Administrator",
				Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
		}

		logs, err := repo.AuditLog.List(ctx, repository.ListOptions{Where: map[string]any{"targetId": "LAB-002"}})
		require.NoError(t, err)
		assert.Len(t, logs, 3)
		assert.True(t, !logs[0].Timestamp.Before(logs[1].Timestamp), "审计日志应按时间倒序")

		limited, err := repo.AuditLog.List(ctx, repository.ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		_, err = repo.AuditLog.List(ctx, repository.ListOptions{Where: map[string]any{"target_id": "x"}})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("setting put replaces whole list", func(t *testing.T) {
		require.NoError(t, repo.Setting.Put(ctx, &model.Setting{ID: "locations", Values: model.StringList{"A", "B"}}))
		require.NoError(t, repo.Setting.Put(ctx, &model.Setting{ID: "locations", Values: model.StringList{"C"}}))

		s, err := repo.Setting.Get(ctx, "locations")
		require.NoError(t, err)
		assert.Equal(t, model.StringList{"C"}, s.Values)
	})

	t.Run("event with dangling equipment reference", func(t *testing.T) {
		eq := "GHOST-1"
		start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		id, err := repo.Event.Insert(ctx, &model.CalendarEvent{
			Title: "PM", StartDate: start, EndDate: start.Add(2 * time.Hour),
			Type: model.EventMaintenance, EquipmentID: &eq, CreatedBy: "missing-user",
		})
		require.NoError(t, err)

		evs, err := repo.Event.List(ctx, repository.ListOptions{Where: map[string]any{"equipmentId": eq}})
		require.NoError(t, err)
		require.Len(t, evs, 1)
		assert.Equal(t, id, evs[0].ID)
		assert.True(t, evs[0].StartDate.Equal(start))
	})

	t.Run("reset restores seed", func(t *testing.T) {
		require.NoError(t, repo.Schema.Reset(ctx))

		equipment, err := repo.Equipment.List(ctx, repository.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, equipment, len(seed.Equipment))

		_, err = repo.Equipment.Get(ctx, "LAB-001")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		logs, err := repo.AuditLog.List(ctx, repository.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	})
}
