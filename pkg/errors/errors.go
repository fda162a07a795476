package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
// 当前所有写入均为最后写入生效（LWW），保留该错误供后续引入版本号时使用
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrNotFound 目标记录不存在（删除 / 更新 / 读取）
var ErrNotFound = errors.New("记录不存在")

// ErrDuplicate 主键或唯一键冲突
var ErrDuplicate = errors.New("记录已存在")

// ValidationError 业务校验失败，在任何持久化之前同步返回，不重试
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidation 创建 ValidationError
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation 判断错误链中是否包含 ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StorageError 存储后端失败：携带失败的操作与表名
// Status 仅在远程后端返回 HTTP 状态码时非零
// Written 为批量写入中途失败前已提交的行数
type StorageError struct {
	Op      string
	Table   string
	Status  int
	Written int
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage 包装存储层错误；nil 原样返回，ErrNotFound 保持可被 errors.Is 识别
func Storage(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Table: table, Err: err}
}

// AsStorage 提取错误链中的 StorageError
func AsStorage(err error) (*StorageError, bool) {
	var se *StorageError
	ok := errors.As(err, &se)
	return se, ok
}
