package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supporting-smart-system/internal/model"
	apperrors "supporting-smart-system/pkg/errors"
)

// ListOptions 列表查询条件
// Where 的键为 camelCase 字段名，值做等值匹配；Limit<=0 表示不限制
type ListOptions struct {
	Limit int
	Where map[string]any
}

// Collection 单表存储契约，两种存储后端（gorm / 远程 HTTP）都实现它
// 缺失记录返回可被 errors.Is(err, ErrNotFound) 识别的错误，其余失败为 StorageError
type Collection[T any, K comparable] interface {
	List(ctx context.Context, opts ListOptions) ([]T, error)
	Get(ctx context.Context, key K) (*T, error)
	Insert(ctx context.Context, rec *T) (K, error)
	Replace(ctx context.Context, rec *T) error
	Patch(ctx context.Context, key K, fields map[string]any) error
	Delete(ctx context.Context, key K) error
}

// TranslateFields 将 camelCase 字段映射为列名；未知字段与主键返回 ValidationError
func TranslateFields(table model.Table, fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, apperrors.NewValidation("", "没有需要更新的字段")
	}
	out := make(map[string]any, len(fields))
	for field, v := range fields {
		col, ok := table.Column(field)
		if !ok {
			return nil, apperrors.NewValidation(field, "未知字段")
		}
		if col == table.PrimaryKey {
			return nil, apperrors.NewValidation(field, "主键不可修改")
		}
		out[col] = v
	}
	return out, nil
}

type gormCollection[T any, K comparable] struct {
	db    *gorm.DB
	table model.Table
	keyOf func(*T) K
}

func newCollection[T any, K comparable](db *gorm.DB, table model.Table, keyOf func(*T) K) *gormCollection[T, K] {
	return &gormCollection[T, K]{db: db, table: table, keyOf: keyOf}
}

func (r *gormCollection[T, K]) fail(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		err = apperrors.ErrDuplicate
	}
	return apperrors.Storage(op, r.table.Name, err)
}

func (r *gormCollection[T, K]) pkWhere() string {
	return r.table.PrimaryKey + " = ?"
}

func (r *gormCollection[T, K]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	db := r.db.WithContext(ctx).Order(r.table.OrderBy)

	if len(opts.Where) > 0 {
		cond := make(map[string]any, len(opts.Where))
		for field, v := range opts.Where {
			col, ok := r.table.Column(field)
			if !ok {
				return nil, apperrors.NewValidation(field, "不支持的筛选字段")
			}
			cond[col] = v
		}
		db = db.Where(cond)
	}
	if opts.Limit > 0 {
		db = db.Limit(opts.Limit)
	}

	items := make([]T, 0)
	if err := db.Find(&items).Error; err != nil {
		return nil, r.fail("list", err)
	}
	return items, nil
}

func (r *gormCollection[T, K]) Get(ctx context.Context, key K) (*T, error) {
	var rec T
	err := r.db.WithContext(ctx).
		Where(r.pkWhere(), key).
		First(&rec).Error
	if err != nil {
		return nil, r.fail("get", err)
	}
	return &rec, nil
}

func (r *gormCollection[T, K]) Insert(ctx context.Context, rec *T) (K, error) {
	var zero K
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return zero, r.fail("insert", err)
	}
	return r.keyOf(rec), nil
}

// Replace 整行覆盖（含零值字段），最后写入生效
func (r *gormCollection[T, K]) Replace(ctx context.Context, rec *T) error {
	res := r.db.WithContext(ctx).
		Model(rec).
		Where(r.pkWhere(), r.keyOf(rec)).
		Select("*").
		Updates(rec)
	if res.Error != nil {
		return r.fail("replace", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.fail("replace", apperrors.ErrNotFound)
	}
	return nil
}

func (r *gormCollection[T, K]) Patch(ctx context.Context, key K, fields map[string]any) error {
	cols, err := TranslateFields(r.table, fields)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Table(r.table.Name).
		Where(r.pkWhere(), key).
		Updates(cols)
	if res.Error != nil {
		return r.fail("patch", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.fail("patch", apperrors.ErrNotFound)
	}
	return nil
}

func (r *gormCollection[T, K]) Delete(ctx context.Context, key K) error {
	res := r.db.WithContext(ctx).
		Where(r.pkWhere(), key).
		Delete(new(T))
	if res.Error != nil {
		return r.fail("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.fail("delete", apperrors.ErrNotFound)
	}
	return nil
}

// bulkUpsert 逐行 insert … on conflict(pk) do update all
// 中途失败不回滚已写入的行，返回成功写入的行数
func (r *gormCollection[T, K]) bulkUpsert(ctx context.Context, recs []T) (int, error) {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: r.table.PrimaryKey}},
		UpdateAll: true,
	}
	for i := range recs {
		if err := r.db.WithContext(ctx).Clauses(onConflict).Create(&recs[i]).Error; err != nil {
			return i, r.fail("upsert", fmt.Errorf("第 %d 行: %w", i+1, err))
		}
	}
	return len(recs), nil
}
