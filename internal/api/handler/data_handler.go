package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"supporting-smart-system/internal/model"
	"supporting-smart-system/internal/repository"
	apperrors "supporting-smart-system/pkg/errors"
	"supporting-smart-system/pkg/response"
)

// 存储接口保留的查询参数，其余参数按筛选字段处理
var reservedParams = map[string]bool{"table": true, "id": true, "limit": true, "bulk": true, "reset": true}

const msgMethodNotAllowed = "Method Not Allowed"

// dataTable 单表的存储接口适配
type dataTable interface {
	allows(method string) bool
	list(ctx context.Context, opts repository.ListOptions) (any, error)
	get(ctx context.Context, id string) (any, error)
	insert(ctx context.Context, raw []byte) (any, error)
	replace(ctx context.Context, raw []byte, bulk bool) (any, error)
	patch(ctx context.Context, id string, fields map[string]any) error
	delete(ctx context.Context, id string) error
	filterable(field string) bool
	defaultLimit() int
}

type tableEndpoint[T any, K comparable] struct {
	table    model.Table
	coll     repository.Collection[T, K]
	keyOf    func(*T) K
	parseKey func(string) (K, error)
	methods  []string
	filters  []string
	limit    int
	// nullOnMissing 为 true 时 get 缺失返回 {data:null} 而不是 404（settings）
	nullOnMissing bool
	bulk          func(ctx context.Context, items []T) (int, error)
	put           func(ctx context.Context, rec *T) error
	prepare       func(rec *T)
}

func (e *tableEndpoint[T, K]) allows(method string) bool { return model.OneOf(method, e.methods) }

func (e *tableEndpoint[T, K]) filterable(field string) bool { return model.OneOf(field, e.filters) }

func (e *tableEndpoint[T, K]) defaultLimit() int { return e.limit }

func (e *tableEndpoint[T, K]) list(ctx context.Context, opts repository.ListOptions) (any, error) {
	return e.coll.List(ctx, opts)
}

func (e *tableEndpoint[T, K]) get(ctx context.Context, id string) (any, error) {
	key, err := e.parseKey(id)
	if err != nil {
		return nil, err
	}
	rec, err := e.coll.Get(ctx, key)
	if err != nil {
		if e.nullOnMissing && errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (e *tableEndpoint[T, K]) decode(raw []byte) (*T, error) {
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperrors.NewValidation("", "请求体不是合法的 JSON 对象")
	}
	if e.prepare != nil {
		e.prepare(&rec)
	}
	return &rec, nil
}

func (e *tableEndpoint[T, K]) requireKey(rec *T) error {
	var zero K
	if !e.table.AutoID && e.keyOf(rec) == zero {
		return apperrors.NewValidation("id", "主键不能为空")
	}
	return nil
}

func (e *tableEndpoint[T, K]) insert(ctx context.Context, raw []byte) (any, error) {
	rec, err := e.decode(raw)
	if err != nil {
		return nil, err
	}
	if err := e.requireKey(rec); err != nil {
		return nil, err
	}
	id, err := e.coll.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	if e.table.AutoID {
		return gin.H{"id": id}, nil
	}
	return gin.H{"success": true}, nil
}

func (e *tableEndpoint[T, K]) replace(ctx context.Context, raw []byte, bulk bool) (any, error) {
	if bulk {
		if e.bulk == nil {
			return nil, errMethodNotAllowed
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, apperrors.NewValidation("", "批量写入需要 JSON 数组")
		}
		for i := range items {
			if e.prepare != nil {
				e.prepare(&items[i])
			}
			if err := e.requireKey(&items[i]); err != nil {
				return nil, err
			}
		}
		n, err := e.bulk(ctx, items)
		if err != nil {
			if n > 0 {
				return nil, &partialWriteError{written: n, err: err}
			}
			return nil, err
		}
		return gin.H{"success": true, "count": n}, nil
	}

	rec, err := e.decode(raw)
	if err != nil {
		return nil, err
	}
	if err := e.requireKey(rec); err != nil {
		return nil, err
	}
	if e.put != nil {
		err = e.put(ctx, rec)
	} else {
		err = e.coll.Replace(ctx, rec)
	}
	if err != nil {
		return nil, err
	}
	return gin.H{"success": true}, nil
}

func (e *tableEndpoint[T, K]) patch(ctx context.Context, id string, fields map[string]any) error {
	key, err := e.parseKey(id)
	if err != nil {
		return err
	}
	return e.coll.Patch(ctx, key, fields)
}

func (e *tableEndpoint[T, K]) delete(ctx context.Context, id string) error {
	key, err := e.parseKey(id)
	if err != nil {
		return err
	}
	return e.coll.Delete(ctx, key)
}

var errMethodNotAllowed = errors.New(msgMethodNotAllowed)

func stringKey(s string) (string, error) {
	if s == "" {
		return "", apperrors.NewValidation("id", "缺少 id 参数")
	}
	return s, nil
}

func serialKey(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidation("id", "id 必须为整数")
	}
	return id, nil
}

// ────────────────────── DataHandler ──────────────────────

// DataHandler 存储接口 /data 与 /init，供远程存储后端与外部工具使用
type DataHandler struct {
	tables map[string]dataTable
	schema repository.SchemaManager
	logger *zap.Logger
}

// NewDataHandler 基于本地 Repository 创建存储接口处理器
func NewDataHandler(repo *repository.Repository, logger *zap.Logger) *DataHandler {
	get := http.MethodGet
	post := http.MethodPost
	put := http.MethodPut
	patch := http.MethodPatch
	del := http.MethodDelete

	return &DataHandler{
		schema: repo.Schema,
		logger: logger,
		tables: map[string]dataTable{
			model.TableEquipment: &tableEndpoint[model.Equipment, string]{
				table: model.EquipmentTable, coll: repo.Equipment,
				keyOf:    func(e *model.Equipment) string { return e.ID },
				parseKey: stringKey,
				methods:  []string{get, post, put, patch, del},
				filters:  []string{"division", "status", "category"},
				bulk:     repo.Equipment.BulkUpsert,
			},
			model.TableUsers: &tableEndpoint[model.User, string]{
				table: model.UserTable, coll: repo.User,
				keyOf:    func(u *model.User) string { return u.ID },
				parseKey: stringKey,
				methods:  []string{get, post, put, patch, del},
				filters:  []string{"email", "role"},
				prepare: func(u *model.User) {
					if u.Status == "" {
						u.Status = model.UserStatusActive
					}
				},
			},
			// 审计日志只追加
			model.TableAuditLogs: &tableEndpoint[model.AuditLog, int64]{
				table: model.AuditLogTable, coll: repo.AuditLog,
				keyOf:    func(a *model.AuditLog) int64 { return a.ID },
				parseKey: serialKey,
				methods:  []string{get, post},
				filters:  []string{"targetId", "userId", "action"},
				limit:    100,
			},
			model.TableNotifications: &tableEndpoint[model.Notification, int64]{
				table: model.NotificationTable, coll: repo.Notification,
				keyOf:    func(n *model.Notification) int64 { return n.ID },
				parseKey: serialKey,
				methods:  []string{get, post, put, patch, del},
				filters:  []string{"isRead", "type"},
				limit:    20,
				bulk:     repo.Notification.BulkUpsert,
			},
			model.TableEvents: &tableEndpoint[model.CalendarEvent, int64]{
				table: model.EventTable, coll: repo.Event,
				keyOf:    func(e *model.CalendarEvent) int64 { return e.ID },
				parseKey: serialKey,
				methods:  []string{get, post, put, patch, del},
				filters:  []string{"equipmentId", "type", "createdBy"},
			},
			model.TableJobRequests: &tableEndpoint[model.JobRequest, int64]{
				table: model.JobRequestTable, coll: repo.JobRequest,
				keyOf:    func(j *model.JobRequest) int64 { return j.ID },
				parseKey: serialKey,
				methods:  []string{get, post, put, patch, del},
				filters:  []string{"status", "requestorId", "assignedToId"},
			},
			model.TableSettings: &tableEndpoint[model.Setting, string]{
				table: model.SettingTable, coll: repo.Setting,
				keyOf:         func(s *model.Setting) string { return s.ID },
				parseKey:      stringKey,
				methods:       []string{get, put},
				nullOnMissing: true,
				put:           repo.Setting.Put,
			},
		},
	}
}

// Serve 处理 /data 的所有方法
// GET|POST|PUT|PATCH|DELETE /data?table=…[&id][&limit][&bulk]
func (h *DataHandler) Serve(c *gin.Context) {
	t, ok := h.tables[c.Query("table")]
	if !ok || !t.allows(c.Request.Method) {
		response.Fail(c, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	ctx := c.Request.Context()
	id := c.Query("id")

	switch c.Request.Method {
	case http.MethodGet:
		if id != "" {
			rec, err := t.get(ctx, id)
			if err != nil {
				h.fail(c, err)
				return
			}
			response.Data(c, http.StatusOK, rec)
			return
		}
		opts, err := h.listOptions(c, t)
		if err != nil {
			h.fail(c, err)
			return
		}
		rows, err := t.list(ctx, opts)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Data(c, http.StatusOK, rows)

	case http.MethodPost:
		raw, err := readBody(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		out, err := t.insert(ctx, raw)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Data(c, http.StatusCreated, out)

	case http.MethodPut:
		raw, err := readBody(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		out, err := t.replace(ctx, raw, c.Query("bulk") == "true")
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Data(c, http.StatusOK, out)

	case http.MethodPatch:
		raw, err := readBody(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			h.fail(c, apperrors.NewValidation("", "请求体不是合法的 JSON 对象"))
			return
		}
		if err := t.patch(ctx, id, fields); err != nil {
			h.fail(c, err)
			return
		}
		response.Data(c, http.StatusOK, gin.H{"success": true})

	case http.MethodDelete:
		if err := t.delete(ctx, id); err != nil {
			h.fail(c, err)
			return
		}
		response.Data(c, http.StatusOK, gin.H{"success": true})

	default:
		response.Fail(c, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

// Init 处理 /init
// GET 或 POST：建表并在空库时写入默认数据（幂等）；POST ?reset=true：清空并重新初始化
func (h *DataHandler) Init(c *gin.Context) {
	ctx := c.Request.Context()

	switch c.Request.Method {
	case http.MethodGet, http.MethodPost:
	default:
		response.Fail(c, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	if c.Request.Method == http.MethodPost && c.Query("reset") == "true" {
		if err := h.schema.Reset(ctx); err != nil {
			h.fail(c, err)
			return
		}
		h.logger.Warn("存储已重置并重新写入默认数据")
		response.Data(c, http.StatusOK, gin.H{"success": true, "reset": true, "seeded": true})
		return
	}

	seeded, err := h.schema.Init(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Data(c, http.StatusOK, gin.H{"success": true, "seeded": seeded})
}

func (h *DataHandler) listOptions(c *gin.Context, t dataTable) (repository.ListOptions, error) {
	opts := repository.ListOptions{Limit: t.defaultLimit()}
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, apperrors.NewValidation("limit", "limit 必须为非负整数")
		}
		opts.Limit = n
	}

	for field, values := range c.Request.URL.Query() {
		if reservedParams[field] || len(values) == 0 {
			continue
		}
		if !t.filterable(field) {
			return opts, apperrors.NewValidation(field, "不支持的筛选字段")
		}
		if opts.Where == nil {
			opts.Where = make(map[string]any)
		}
		opts.Where[field] = filterValue(values[0])
	}
	return opts, nil
}

// filterValue 布尔筛选值（isRead）按布尔比较，其余按文本比较
func filterValue(v string) any {
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

func readBody(c *gin.Context) ([]byte, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewValidation("", "请求体过大")
		}
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apperrors.NewValidation("", "请求体不能为空")
	}
	return raw, nil
}

// partialWriteError 批量写入中途失败；written 行已提交不回滚
type partialWriteError struct {
	written int
	err     error
}

func (e *partialWriteError) Error() string { return e.err.Error() }

func (e *partialWriteError) Unwrap() error { return e.err }

// fail 写出 {error}；批量写入部分成功时附带 count
func (h *DataHandler) fail(c *gin.Context, err error) {
	status, msg := h.classify(c, err)
	var pw *partialWriteError
	if errors.As(err, &pw) {
		response.FailWithCount(c, status, msg, pw.written)
		return
	}
	response.Fail(c, status, msg)
}

func (h *DataHandler) classify(c *gin.Context, err error) (int, string) {
	switch {
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed, msgMethodNotAllowed
	case apperrors.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, apperrors.ErrNotFound.Error()
	case errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict, apperrors.ErrDuplicate.Error()
	default:
		h.logger.Error("存储接口处理失败",
			zap.String("method", c.Request.Method),
			zap.String("table", c.Query("table")),
			zap.Error(err),
		)
		return http.StatusInternalServerError, err.Error()
	}
}
