package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"supporting-smart-system/internal/api/middleware"
	"supporting-smart-system/internal/dataaccess"
	"supporting-smart-system/internal/lifecycle"
	"supporting-smart-system/internal/service"
	apperrors "supporting-smart-system/pkg/errors"
	"supporting-smart-system/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 提取当前操作人（ID 与角色），显示名由 Service 层解析
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	id, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	role := c.GetString(middleware.CtxRole)
	if role == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: role}, true
}

// tokenInfo 当前 Access Token 的 jti 与过期时间（用于登出）
func tokenInfo(c *gin.Context) (string, time.Time) {
	jti := c.GetString(middleware.CtxTokenJTI)
	exp, _ := c.Get(middleware.CtxTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}

// paramInt64 解析自增主键路径参数
func paramInt64(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "ID 必须为正整数")
		return 0, false
	}
	return id, true
}

// queryInt 可选的整数查询参数，缺省返回 0
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.BadRequest(c, 10001, name+" 必须为非负整数")
		return 0, false
	}
	return n, true
}

// ────────────────────── 错误映射 ──────────────────────

// errorMapping 业务错误 → HTTP 状态码与业务码
var errorMapping = []struct {
	err    error
	status int
	code   int
}{
	{service.ErrNoPermission, http.StatusForbidden, 10003},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, 11001},
	{service.ErrUserInactive, http.StatusForbidden, 11002},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, 11003},

	{service.ErrUserNotFound, http.StatusNotFound, 20001},
	{service.ErrEmailExists, http.StatusConflict, 20002},
	{service.ErrUserSelfDelete, http.StatusBadRequest, 20003},
	{service.ErrUnknownRole, http.StatusBadRequest, 20004},

	{service.ErrEquipmentNotFound, http.StatusNotFound, 30001},
	{service.ErrEquipmentExists, http.StatusConflict, 30002},
	{service.ErrCategoryExists, http.StatusConflict, 30003},
	{service.ErrImportNoData, http.StatusBadRequest, 30101},
	{service.ErrImportBadHeader, http.StatusBadRequest, 30102},
	{service.ErrImportTooManyRows, http.StatusBadRequest, 30103},

	{service.ErrEventNotFound, http.StatusNotFound, 40001},

	{service.ErrJobRequestNotFound, http.StatusNotFound, 50001},
	{lifecycle.ErrInvalidTransition, http.StatusConflict, 50002},
	{lifecycle.ErrCompletionCommentRequired, http.StatusBadRequest, 50003},
	{lifecycle.ErrUnknownStatus, http.StatusBadRequest, 50004},

	{service.ErrNotificationNotFound, http.StatusNotFound, 60001},

	{service.ErrResetTokenInvalid, http.StatusForbidden, 70001},
}

// handleServiceError 统一映射 Service 层错误；未识别的错误返回 500
func handleServiceError(c *gin.Context, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			response.Error(c, m.status, m.code, m.err.Error())
			return
		}
	}

	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", ve.Error())
		return
	}

	// 远程存储后端的 502/503/504 原样透出
	if ae, ok := dataaccess.AsApiError(err); ok && ae.Status > http.StatusInternalServerError {
		response.Error(c, ae.Status, 50300, "存储服务暂不可用")
		return
	}

	_ = c.Error(err)
	response.InternalError(c)
}
