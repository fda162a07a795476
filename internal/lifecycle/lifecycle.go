// Package lifecycle 定义设备状态词表、工单状态机与按角色划分的操作能力。
package lifecycle

import (
	"errors"
	"strings"

	"supporting-smart-system/internal/model"
)

var (
	ErrInvalidTransition         = errors.New("工单状态流转不合法")
	ErrCompletionCommentRequired = errors.New("完成或驳回工单必须填写说明")
	ErrUnknownStatus             = errors.New("未知状态")
)

// ────────────────────── 设备状态 ──────────────────────

// 设备状态为描述性状态，任意状态之间可直接切换
const (
	EquipmentOK           = "OK"
	EquipmentService      = "Service"
	EquipmentCalibration  = "Calibration"
	EquipmentVerification = "Verification"
	EquipmentUnused       = "Unused"
)

// EquipmentStatuses 全部设备状态（看板统计顺序）
var EquipmentStatuses = []string{EquipmentOK, EquipmentService, EquipmentCalibration, EquipmentVerification, EquipmentUnused}

// ValidEquipmentStatus 判断是否为合法设备状态
func ValidEquipmentStatus(s string) bool {
	return model.OneOf(s, EquipmentStatuses)
}

// ────────────────────── 工单状态机 ──────────────────────

const (
	JobRequests   = "Requests"
	JobOnProgress = "OnProgress"
	JobFinished   = "Finished"
	JobRejected   = "Rejected"
)

// JobStatuses 全部工单状态
var JobStatuses = []string{JobRequests, JobOnProgress, JobFinished, JobRejected}

// jobTransitions 允许的目标状态（自身流转恒允许，用于仅修改内容）
// Finished/Rejected 可重新打开回 Requests/OnProgress，重新打开时清空说明
var jobTransitions = map[string][]string{
	JobRequests:   {JobOnProgress, JobRejected},
	JobOnProgress: {JobRequests, JobFinished, JobRejected},
	JobFinished:   {JobRequests, JobOnProgress},
	JobRejected:   {JobRequests, JobOnProgress},
}

// IsTerminal Finished 与 Rejected 为终态
func IsTerminal(status string) bool {
	return status == JobFinished || status == JobRejected
}

// CanTransition 判断 from → to 是否合法
func CanTransition(from, to string) bool {
	if !model.OneOf(from, JobStatuses) || !model.OneOf(to, JobStatuses) {
		return false
	}
	if from == to {
		return true
	}
	return model.OneOf(to, jobTransitions[from])
}

// Transition 校验状态流转并返回应当持久化的说明
// 进入终态必须带非空说明；进入非终态时说明被清空
func Transition(from, to, comment string) (string, error) {
	if !model.OneOf(to, JobStatuses) {
		return "", ErrUnknownStatus
	}
	if !CanTransition(from, to) {
		return "", ErrInvalidTransition
	}
	if IsTerminal(to) {
		comment = strings.TrimSpace(comment)
		if comment == "" {
			return "", ErrCompletionCommentRequired
		}
		return comment, nil
	}
	return "", nil
}

// ────────────────────── 角色能力 ──────────────────────

// IsSupporting Admin 与 Supporting 拥有设备维护能力
func IsSupporting(role string) bool {
	return role == model.RoleAdmin || role == model.RoleSupporting
}

// CanWriteEquipment 新增、编辑、删除、导入设备
func CanWriteEquipment(role string) bool { return IsSupporting(role) }

// CanManageSchedule 管理维护日程
func CanManageSchedule(role string) bool { return IsSupporting(role) }

// CanManageUsers 管理用户与系统设置
func CanManageUsers(role string) bool { return IsSupporting(role) }

// CanViewAudit 查看审计日志
func CanViewAudit(role string) bool {
	switch role {
	case model.RoleAdmin, model.RoleSupporting, model.RoleManager, model.RoleSupervisor:
		return true
	}
	return false
}

// CanCreateJobRequest 提交工单
func CanCreateJobRequest(role string) bool {
	switch role {
	case model.RoleAdmin, model.RoleChemist, model.RoleManager, model.RoleSupervisor:
		return true
	}
	return false
}

// CanChangeJobStatus 只有 Supporting/Admin 可推进工单状态与指定分类
func CanChangeJobStatus(role string) bool { return IsSupporting(role) }

// CanEditJobContent 提交人本人或 Supporting/Admin 可修改工单内容
func CanEditJobContent(role, userID, requestorID string) bool {
	return IsSupporting(role) || (userID != "" && userID == requestorID)
}

// CanDeleteJobRequest 删除规则与内容编辑一致，任何状态均可删除
func CanDeleteJobRequest(role, userID, requestorID string) bool {
	return CanEditJobContent(role, userID, requestorID)
}

// CanBeAssigned 工单只能指派给 Supporting/Admin
func CanBeAssigned(role string) bool { return IsSupporting(role) }

// CanResetDatabase 全局重置仅限 Admin
func CanResetDatabase(role string) bool { return role == model.RoleAdmin }
