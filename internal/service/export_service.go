package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/model"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
	ErrImportNoData       = errors.New("导入文件中没有数据行")
	ErrImportBadHeader    = errors.New("表头缺少必填列（ID/Category/Brand/Division）")
	ErrImportTooManyRows  = errors.New("导入行数超过上限")
)

const maxImportRows = 5000

// ExportService 设备台账导入导出
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Excel 单 Sheet，一行一台设备，附件列不导出
//   - JSON 导出为完整备份，包含附件
type ExportService interface {
	ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error)
	ExportJSON(ctx context.Context) (*bytes.Buffer, string, error)
	ParseXLSX(r io.Reader) ([]model.Equipment, error)
	ParseJSON(r io.Reader) ([]model.Equipment, error)
}

type exportService struct {
	data   *dataaccess.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(data *dataaccess.Client, logger *zap.Logger) ExportService {
	return &exportService{data: data, logger: logger, now: time.Now}
}

// equipmentColumns 导出列顺序，导入时按表头名匹配
var equipmentColumns = []struct {
	key    string
	header string
	width  float64
	get    func(e *model.Equipment) string
	set    func(e *model.Equipment, v string)
}{
	{"id", "ID", 14, func(e *model.Equipment) string { return e.ID }, func(e *model.Equipment, v string) { e.ID = v }},
	{"category", "Category", 18, func(e *model.Equipment) string { return e.Category }, func(e *model.Equipment, v string) { e.Category = v }},
	{"brand", "Brand", 16, func(e *model.Equipment) string { return e.Brand }, func(e *model.Equipment, v string) { e.Brand = v }},
	{"model", "Model", 18, func(e *model.Equipment) string { return e.Model }, func(e *model.Equipment, v string) { e.Model = v }},
	{"serial_number", "Serial Number", 18, func(e *model.Equipment) string { return e.SerialNumber }, func(e *model.Equipment, v string) { e.SerialNumber = v }},
	{"installation_date", "Installation Date", 16, func(e *model.Equipment) string { return e.InstallationDate }, func(e *model.Equipment, v string) { e.InstallationDate = v }},
	{"status", "Status", 12, func(e *model.Equipment) string { return e.Status }, func(e *model.Equipment, v string) { e.Status = v }},
	{"division", "Division", 16, func(e *model.Equipment) string { return e.Division }, func(e *model.Equipment, v string) { e.Division = v }},
	{"location", "Location", 18, func(e *model.Equipment) string { return e.Location }, func(e *model.Equipment, v string) { e.Location = v }},
	{"calibration_point", "Calibration Measuring Point", 24, func(e *model.Equipment) string { return e.CalibrationMeasuringPoint }, func(e *model.Equipment, v string) { e.CalibrationMeasuringPoint = v }},
	{"pic", "PIC", 18, func(e *model.Equipment) string { return e.PersonInCharge }, func(e *model.Equipment, v string) { e.PersonInCharge = v }},
}

// ═══════════════════════════════════════════════════════════
// ExportXLSX — 设备台账导出为 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error) {
	items, err := s.data.Equipment.List(ctx)
	if err != nil {
		s.logger.Error("列出设备失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Equipment"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, col := range equipmentColumns {
		name := colName(i)
		f.SetColWidth(sheetName, name, name, col.width)
		f.SetCellValue(sheetName, cell(name, 1), col.header)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(equipmentColumns)-1), 1), headerStyle)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for r := range items {
		for i, col := range equipmentColumns {
			f.SetCellValue(sheetName, cell(colName(i), r+2), col.get(&items[r]))
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("equipment_%s.xlsx", s.now().Format("20060102")), nil
}

// ExportJSON 完整备份（包含附件）
func (s *exportService) ExportJSON(ctx context.Context) (*bytes.Buffer, string, error) {
	items, err := s.data.Equipment.List(ctx)
	if err != nil {
		s.logger.Error("列出设备失败", zap.Error(err))
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("equipment_backup_%s.json", s.now().Format("20060102")), nil
}

// ═══════════════════════════════════════════════════════════
// 导入解析（只解析，不写入）
// ═══════════════════════════════════════════════════════════

// ParseXLSX 读取第一个工作表，按表头名匹配列（不区分大小写，支持灵活列序）
func (s *exportService) ParseXLSX(r io.Reader) ([]model.Equipment, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(rows[0])
	for _, required := range []string{"id", "category", "brand", "division"} {
		if colIndex[required] < 0 {
			return nil, ErrImportBadHeader
		}
	}

	var items []model.Equipment
	for _, row := range rows[1:] {
		var e model.Equipment
		empty := true
		for _, col := range equipmentColumns {
			idx := colIndex[col.key]
			if idx < 0 || idx >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[idx])
			if v != "" {
				empty = false
			}
			col.set(&e, v)
		}
		// 跳过全空行
		if empty {
			continue
		}
		items = append(items, e)
	}

	return checkImportRows(items)
}

// ParseJSON 读取 ExportJSON 生成的备份
func (s *exportService) ParseJSON(r io.Reader) ([]model.Equipment, error) {
	var items []model.Equipment
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("无法解析JSON文件: %w", err)
	}
	return checkImportRows(items)
}

func checkImportRows(items []model.Equipment) ([]model.Equipment, error) {
	if len(items) == 0 {
		return nil, ErrImportNoData
	}
	if len(items) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return items, nil
}

// parseHeaderIndex 解析表头，返回列 key -> 列索引映射，缺失列为 -1
func parseHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(equipmentColumns))
	for _, col := range equipmentColumns {
		idx[col.key] = -1
	}
	for i, h := range header {
		norm := strings.ToLower(strings.Join(strings.Fields(h), " "))
		for _, col := range equipmentColumns {
			if norm == strings.ToLower(col.header) || norm == strings.ReplaceAll(col.key, "_", " ") {
				idx[col.key] = i
			}
		}
		switch norm {
		case "person in charge":
			idx["pic"] = i
		case "calibration point":
			idx["calibration_point"] = i
		}
	}
	return idx
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
