package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExportService_XLSXRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buf, filename, err := env.svc.Export.ExportXLSX(ctx)
	if err != nil {
		t.Fatalf("ExportXLSX 应成功: %v", err)
	}
	if !strings.HasPrefix(filename, "equipment_") || !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名不符: %s", filename)
	}

	items, err := env.svc.Export.ParseXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseXLSX 应能读取导出文件: %v", err)
	}
	if len(items) != 7 {
		t.Fatalf("期望 7 台设备，实际 %d", len(items))
	}

	var found bool
	for _, e := range items {
		if e.ID == "SIG/FNA/ALB/AP-1096" {
			found = true
			if e.Brand != "Mettler Toledo" || e.PersonInCharge != "Rizqi Utomo" || e.Division != "MS" {
				t.Errorf("字段回读不符: %+v", e)
			}
		}
	}
	if !found {
		t.Error("导出结果缺少 SIG/FNA/ALB/AP-1096")
	}
}

func TestExportService_ParseXLSX_FlexibleHeader(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"division", "Person In Charge", "  Brand ", "ID", "Category"},
		{"HPLC", "Emily Chen", "Agilent", "EQ-1", "HPLC"},
		{"", "", "", "", ""},
		{"MS", "", "Shimadzu", "EQ-2", "GC-MS"},
	}
	for i, r := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cellName, &r); err != nil {
			t.Fatalf("写入测试数据失败: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	svc := NewExportService(nil, zap.NewNop())
	items, err := svc.ParseXLSX(&buf)
	if err != nil {
		t.Fatalf("ParseXLSX 应成功: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("空行应被跳过，期望 2 行，实际 %d", len(items))
	}
	if items[0].ID != "EQ-1" || items[0].PersonInCharge != "Emily Chen" || items[0].Brand != "Agilent" {
		t.Errorf("第 1 行不符: %+v", items[0])
	}
}

func TestExportService_ParseXLSX_MissingColumn(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]any{"ID", "Brand"})
	_ = f.SetSheetRow(sheet, "A2", &[]any{"EQ-1", "Agilent"})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	svc := NewExportService(nil, zap.NewNop())
	if _, err := svc.ParseXLSX(&buf); !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("期望 ErrImportBadHeader，实际: %v", err)
	}
}

func TestExportService_JSONRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	buf, filename, err := env.svc.Export.ExportJSON(context.Background())
	if err != nil {
		t.Fatalf("ExportJSON 应成功: %v", err)
	}
	if !strings.HasSuffix(filename, ".json") {
		t.Errorf("文件名不符: %s", filename)
	}
	items, err := env.svc.Export.ParseJSON(buf)
	if err != nil {
		t.Fatalf("ParseJSON 应成功: %v", err)
	}
	if len(items) != 7 {
		t.Errorf("期望 7 台设备，实际 %d", len(items))
	}
}

func TestExportService_ParseJSON_Empty(t *testing.T) {
	svc := NewExportService(nil, zap.NewNop())
	if _, err := svc.ParseJSON(strings.NewReader("[]")); !errors.Is(err, ErrImportNoData) {
		t.Errorf("期望 ErrImportNoData，实际: %v", err)
	}
}
