package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"supporting-smart-system/internal/model"
	"supporting-smart-system/internal/service"
	"supporting-smart-system/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeJSON = "application/json"

	maxImportFileSize = 10 << 20 // 10MB
)

// ExportHandler 设备台账导入导出 HTTP 处理器
type ExportHandler struct {
	exportSvc    service.ExportService
	equipmentSvc service.EquipmentService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, equipmentSvc service.EquipmentService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, equipmentSvc: equipmentSvc}
}

// ExportEquipment 导出设备台账
// GET /api/v1/equipment/export?format=xlsx|json
func (h *ExportHandler) ExportEquipment(c *gin.Context) {
	var (
		buf         *bytes.Buffer
		filename    string
		contentType string
		err         error
	)
	switch c.DefaultQuery("format", "xlsx") {
	case "xlsx":
		buf, filename, err = h.exportSvc.ExportXLSX(c.Request.Context())
		contentType = contentTypeXLSX
	case "json":
		buf, filename, err = h.exportSvc.ExportJSON(c.Request.Context())
		contentType = contentTypeJSON
	default:
		response.BadRequest(c, 10001, "format 只支持 xlsx 或 json")
		return
	}
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// ImportEquipment 批量导入设备（multipart 字段 file，.xlsx 或 .json）
// POST /api/v1/equipment/import
func (h *ExportHandler) ImportEquipment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少导入文件")
		return
	}
	if fh.Size > maxImportFileSize {
		response.BadRequest(c, 10001, "导入文件不能超过 10MB")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "无法读取导入文件")
		return
	}
	defer f.Close()

	items, err := h.parse(strings.ToLower(filepath.Ext(fh.Filename)), f)
	if err != nil {
		h.handleParseError(c, err)
		return
	}

	result, err := h.equipmentSvc.BulkImport(c.Request.Context(), actor, items)
	if err != nil {
		// 部分写入时同时返回已写入条数
		if result != nil && result.Written > 0 {
			c.JSON(http.StatusInternalServerError, response.Response{
				Code:    30104,
				Message: "导入中途失败",
				Data:    result,
				Details: err.Error(),
			})
			return
		}
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *ExportHandler) parse(ext string, r io.Reader) ([]model.Equipment, error) {
	switch ext {
	case ".xlsx":
		return h.exportSvc.ParseXLSX(r)
	case ".json":
		return h.exportSvc.ParseJSON(r)
	}
	return nil, errUnsupportedImport
}

var errUnsupportedImport = errors.New("只支持 .xlsx 或 .json 文件")

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrExportGenerateFail) {
		response.InternalError(c)
		return
	}
	handleServiceError(c, err)
}

// handleParseError 文件损坏或格式错误按 400 返回
func (h *ExportHandler) handleParseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportBadHeader),
		errors.Is(err, service.ErrImportTooManyRows):
		handleServiceError(c, err)
	default:
		response.BadRequest(c, 30100, err.Error())
	}
}
