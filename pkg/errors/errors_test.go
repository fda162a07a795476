package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestStorage_WrapsAndKeepsNotFound(t *testing.T) {
	err := Storage("delete", "equipment", ErrNotFound)

	se, ok := AsStorage(err)
	if !ok {
		t.Fatalf("期望 StorageError，实际: %T", err)
	}
	if se.Op != "delete" || se.Table != "equipment" {
		t.Errorf("期望 op=delete table=equipment，实际 op=%s table=%s", se.Op, se.Table)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("StorageError 应保留 ErrNotFound")
	}
}

func TestStorage_NilAndAlreadyWrapped(t *testing.T) {
	if Storage("list", "users", nil) != nil {
		t.Error("nil 错误不应被包装")
	}

	inner := Storage("insert", "users", fmt.Errorf("duplicate key"))
	outer := Storage("replace", "equipment", inner)
	se, _ := AsStorage(outer)
	if se.Op != "insert" {
		t.Errorf("已包装的错误不应被二次包装，实际 op=%s", se.Op)
	}
}

func TestIsValidation(t *testing.T) {
	err := fmt.Errorf("save: %w", NewValidation("brand", "不能为空"))
	if !IsValidation(err) {
		t.Error("期望识别为 ValidationError")
	}
	if err.Error() != "save: brand: 不能为空" {
		t.Errorf("错误信息不符: %s", err.Error())
	}
	if IsValidation(ErrNotFound) {
		t.Error("ErrNotFound 不是 ValidationError")
	}
}
