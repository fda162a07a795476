package model

// Table 存储表描述：表名、主键、默认排序，以及 camelCase 字段到列名的映射
// 存储接口与 PATCH 更新通过 Columns 完成字段名转换
type Table struct {
	Name       string
	PrimaryKey string
	OrderBy    string
	AutoID     bool
	Columns    map[string]string
}

// Column 返回 camelCase 字段对应的列名
func (t Table) Column(field string) (string, bool) {
	col, ok := t.Columns[field]
	return col, ok
}

// 表名
const (
	TableEquipment     = "equipment"
	TableUsers         = "users"
	TableAuditLogs     = "audit_logs"
	TableNotifications = "notifications"
	TableEvents        = "events"
	TableJobRequests   = "job_requests"
	TableSettings      = "settings"
)

var (
	EquipmentTable = Table{
		Name:       TableEquipment,
		PrimaryKey: "id",
		OrderBy:    "id ASC",
		Columns: map[string]string{
			"id":                        "id",
			"category":                  "category",
			"brand":                     "brand",
			"model":                     "model",
			"serialNumber":              "serial_number",
			"installationDate":          "installation_date",
			"status":                    "status",
			"division":                  "division",
			"location":                  "location",
			"calibrationMeasuringPoint": "calibration_point",
			"personInCharge":            "pic",
			"image":                     "image",
			"calibrationCert":           "cal_cert",
			"verificationCert":          "ver_cert",
		},
	}

	UserTable = Table{
		Name:       TableUsers,
		PrimaryKey: "id",
		OrderBy:    "name ASC",
		Columns: map[string]string{
			"id":        "id",
			"name":      "name",
			"email":     "email",
			"role":      "role",
			"avatar":    "avatar",
			"password":  "password_hash",
			"status":    "status",
			"createdAt": "created_at",
			"lastLogin": "last_login",
		},
	}

	AuditLogTable = Table{
		Name:       TableAuditLogs,
		PrimaryKey: "id",
		OrderBy:    "timestamp DESC, id DESC",
		AutoID:     true,
		Columns: map[string]string{
			"id":         "id",
			"action":     "action",
			"targetId":   "target_id",
			"targetName": "target_name",
			"userId":     "user_id",
			"userName":   "user_name",
			"timestamp":  "timestamp",
			"details":    "details",
		},
	}

	NotificationTable = Table{
		Name:       TableNotifications,
		PrimaryKey: "id",
		OrderBy:    "timestamp DESC, id DESC",
		AutoID:     true,
		Columns: map[string]string{
			"id":        "id",
			"title":     "title",
			"message":   "message",
			"timestamp": "timestamp",
			"isRead":    "is_read",
			"type":      "type",
		},
	}

	EventTable = Table{
		Name:       TableEvents,
		PrimaryKey: "id",
		OrderBy:    "start_date ASC, id ASC",
		AutoID:     true,
		Columns: map[string]string{
			"id":          "id",
			"title":       "title",
			"description": "description",
			"startDate":   "start_date",
			"endDate":     "end_date",
			"type":        "type",
			"equipmentId": "equipment_id",
			"createdBy":   "created_by",
		},
	}

	JobRequestTable = Table{
		Name:       TableJobRequests,
		PrimaryKey: "id",
		OrderBy:    "requested_at DESC, id DESC",
		AutoID:     true,
		Columns: map[string]string{
			"id":                "id",
			"title":             "title",
			"requestorId":       "requestor_id",
			"requestorName":     "requestor_name",
			"division":          "division",
			"description":       "description",
			"category":          "category",
			"requestedAt":       "requested_at",
			"startDate":         "start_date",
			"dueDate":           "due_date",
			"assignedToId":      "assigned_to_id",
			"status":            "status",
			"completionComment": "completion_comment",
		},
	}

	SettingTable = Table{
		Name:       TableSettings,
		PrimaryKey: "id",
		OrderBy:    "id ASC",
		Columns: map[string]string{
			"id":     "id",
			"values": "value_list",
		},
	}
)
