package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"supporting-smart-system/internal/model"
	"supporting-smart-system/internal/repository"
	apperrors "supporting-smart-system/pkg/errors"
)

type collection[T any, K comparable] struct {
	c     *Client
	table model.Table
	keyOf func(*T) K
}

func newCollection[T any, K comparable](c *Client, table model.Table, keyOf func(*T) K) *collection[T, K] {
	return &collection[T, K]{c: c, table: table, keyOf: keyOf}
}

func (r *collection[T, K]) query(extra ...string) url.Values {
	q := url.Values{"table": {r.table.Name}}
	for i := 0; i+1 < len(extra); i += 2 {
		q.Set(extra[i], extra[i+1])
	}
	return q
}

func (r *collection[T, K]) List(ctx context.Context, opts repository.ListOptions) ([]T, error) {
	// limit=0 在存储接口上表示不限制，与 gorm 后端 Limit<=0 一致
	q := r.query("limit", strconv.Itoa(max(opts.Limit, 0)))
	for field, v := range opts.Where {
		if _, ok := r.table.Column(field); !ok {
			return nil, apperrors.NewValidation(field, "不支持的筛选字段")
		}
		q.Set(field, fmt.Sprint(v))
	}

	items := make([]T, 0)
	if _, err := r.c.call(ctx, "list", r.table.Name, http.MethodGet, "/data", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *collection[T, K]) Get(ctx context.Context, key K) (*T, error) {
	var rec T
	isNull, err := r.c.call(ctx, "get", r.table.Name, http.MethodGet, "/data", r.query("id", fmt.Sprint(key)), nil, &rec)
	if err != nil {
		return nil, err
	}
	if isNull {
		return nil, apperrors.Storage("get", r.table.Name, apperrors.ErrNotFound)
	}
	return &rec, nil
}

func (r *collection[T, K]) Insert(ctx context.Context, rec *T) (K, error) {
	var out struct {
		ID *K `json:"id"`
	}
	if _, err := r.c.call(ctx, "insert", r.table.Name, http.MethodPost, "/data", r.query(), rec, &out); err != nil {
		var zero K
		return zero, err
	}
	if out.ID != nil {
		return *out.ID, nil
	}
	return r.keyOf(rec), nil
}

func (r *collection[T, K]) Replace(ctx context.Context, rec *T) error {
	_, err := r.c.call(ctx, "replace", r.table.Name, http.MethodPut, "/data", r.query(), rec, nil)
	return err
}

func (r *collection[T, K]) Patch(ctx context.Context, key K, fields map[string]any) error {
	if _, err := repository.TranslateFields(r.table, fields); err != nil {
		return err
	}
	_, err := r.c.call(ctx, "patch", r.table.Name, http.MethodPatch, "/data", r.query("id", fmt.Sprint(key)), fields, nil)
	return err
}

func (r *collection[T, K]) Delete(ctx context.Context, key K) error {
	_, err := r.c.call(ctx, "delete", r.table.Name, http.MethodDelete, "/data", r.query("id", fmt.Sprint(key)), nil, nil)
	return err
}

// bulkUpsert 中途失败时服务端以 {error, count} 返回已提交的行数
func (r *collection[T, K]) bulkUpsert(ctx context.Context, items []T) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if _, err := r.c.call(ctx, "upsert", r.table.Name, http.MethodPut, "/data", r.query("bulk", "true"), items, &out); err != nil {
		if se, ok := apperrors.AsStorage(err); ok {
			return se.Written, err
		}
		return 0, err
	}
	return out.Count, nil
}

type equipmentRepo struct {
	*collection[model.Equipment, string]
}

func (r *equipmentRepo) BulkUpsert(ctx context.Context, items []model.Equipment) (int, error) {
	return r.bulkUpsert(ctx, items)
}

type notificationRepo struct {
	*collection[model.Notification, int64]
}

func (r *notificationRepo) BulkUpsert(ctx context.Context, items []model.Notification) (int, error) {
	return r.bulkUpsert(ctx, items)
}

type settingRepo struct {
	*collection[model.Setting, string]
}

// Put settings 的 PUT 即整份覆盖
func (r *settingRepo) Put(ctx context.Context, s *model.Setting) error {
	return r.Replace(ctx, s)
}

type schema struct {
	c *Client
}

func (s *schema) Init(ctx context.Context) (bool, error) {
	var out struct {
		Seeded bool `json:"seeded"`
	}
	if _, err := s.c.call(ctx, "init", "schema", http.MethodGet, "/init", nil, nil, &out); err != nil {
		return false, err
	}
	return out.Seeded, nil
}

func (s *schema) Reset(ctx context.Context) error {
	_, err := s.c.call(ctx, "reset", "schema", http.MethodPost, "/init", url.Values{"reset": {"true"}}, nil, nil)
	return err
}

// NewRepository 创建远程后端的 Repository 聚合
func NewRepository(c *Client) *repository.Repository {
	return &repository.Repository{
		Equipment:    &equipmentRepo{newCollection(c, model.EquipmentTable, func(e *model.Equipment) string { return e.ID })},
		User:         newCollection(c, model.UserTable, func(u *model.User) string { return u.ID }),
		AuditLog:     newCollection(c, model.AuditLogTable, func(a *model.AuditLog) int64 { return a.ID }),
		Notification: &notificationRepo{newCollection(c, model.NotificationTable, func(n *model.Notification) int64 { return n.ID })},
		Event:        newCollection(c, model.EventTable, func(e *model.CalendarEvent) int64 { return e.ID }),
		JobRequest:   newCollection(c, model.JobRequestTable, func(j *model.JobRequest) int64 { return j.ID }),
		Setting:      &settingRepo{newCollection(c, model.SettingTable, func(s *model.Setting) string { return s.ID })},
		Schema:       &schema{c: c},
	}
}
