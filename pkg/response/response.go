package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 应用 API 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

// ListData 列表响应数据
type ListData struct {
	List  interface{} `json:"list"`
	Total int         `json:"total"`
}

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// OKList 200 列表成功
func OKList(c *gin.Context, list interface{}, total int) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    ListData{List: list, Total: total},
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpStatus int, code int, message, details string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// Conflict 409
func Conflict(c *gin.Context, code int, message string) {
	Error(c, http.StatusConflict, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, 50000, "服务器内部错误")
}

// ── 存储接口（/data, /init）信封 ──

// DataEnvelope 存储接口成功响应 {data: ...}
type DataEnvelope struct {
	Data interface{} `json:"data"`
}

// ErrorEnvelope 存储接口失败响应 {error: ...}
// Count 仅在批量写入部分成功时出现，为已提交的行数
type ErrorEnvelope struct {
	Error string `json:"error"`
	Count int    `json:"count,omitempty"`
}

// Data 写出 {data: v}；v 为 nil 时输出 {"data":null}
func Data(c *gin.Context, httpStatus int, v interface{}) {
	c.JSON(httpStatus, DataEnvelope{Data: v})
}

// Fail 写出 {error: message}
func Fail(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorEnvelope{Error: message})
}

// FailWithCount 写出 {error: message, count: n}
func FailWithCount(c *gin.Context, httpStatus int, message string, count int) {
	c.AbortWithStatusJSON(httpStatus, ErrorEnvelope{Error: message, Count: count})
}
