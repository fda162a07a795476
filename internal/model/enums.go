package model

// 用户角色
const (
	RoleAdmin      = "Admin"
	RoleSupporting = "Supporting"
	RoleManager    = "Manager"
	RoleSupervisor = "Supervisor"
	RoleChemist    = "Chemist"
	RoleAnalyst    = "Analyst"
)

// Roles 全部角色
var Roles = []string{RoleAdmin, RoleSupporting, RoleManager, RoleSupervisor, RoleChemist, RoleAnalyst}

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// UserStatuses 全部用户状态
var UserStatuses = []string{UserStatusActive, UserStatusInactive}

// Divisions 固定的部门集合
var Divisions = []string{"ASLT", "GC-S", "LOGAM", "MS", "HPLC", "External Project"}

// 审计动作
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionReset  = "RESET"
	ActionImport = "IMPORT"
)

// 通知类型
const (
	NotificationCreate = "create"
	NotificationUpdate = "update"
	NotificationDelete = "delete"
	NotificationSystem = "system"
)

// 日程类型
const (
	EventMaintenance  = "Maintenance"
	EventCalibration  = "Calibration"
	EventVerification = "Verification"
)

// EventTypes 全部日程类型
var EventTypes = []string{EventMaintenance, EventCalibration, EventVerification}

// JobCategories 工单分类（仅 Supporting/Admin 可指定）
var JobCategories = []string{"Maintenance", "Troubleshooting", "Documents"}

// SettingCategories 设备分类词表的 settings 键
const SettingCategories = "categories"

// OneOf 判断 v 是否在 set 中
func OneOf(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
