package dto

import "supporting-smart-system/internal/model"

// ── 设备模块 DTO ──

// EquipmentRequest 新增 / 编辑设备请求
// 必填与枚举校验在 Service 层完成，以便统一返回字段级错误
type EquipmentRequest struct {
	ID                        string `json:"id"`
	Category                  string `json:"category"`
	Brand                     string `json:"brand"`
	Model                     string `json:"model"`
	SerialNumber              string `json:"serialNumber"`
	InstallationDate          string `json:"installationDate"`
	Status                    string `json:"status"`
	Division                  string `json:"division"`
	Location                  string `json:"location"`
	CalibrationMeasuringPoint string `json:"calibrationMeasuringPoint"`
	PersonInCharge            string `json:"personInCharge"`
	Image                     string `json:"image"`
	CalibrationCert           string `json:"calibrationCert"`
	VerificationCert          string `json:"verificationCert"`
}

// ToModel 转换为设备模型
func (r *EquipmentRequest) ToModel() *model.Equipment {
	return &model.Equipment{
		ID:                        r.ID,
		Category:                  r.Category,
		Brand:                     r.Brand,
		Model:                     r.Model,
		SerialNumber:              r.SerialNumber,
		InstallationDate:          r.InstallationDate,
		Status:                    r.Status,
		Division:                  r.Division,
		Location:                  r.Location,
		CalibrationMeasuringPoint: r.CalibrationMeasuringPoint,
		PersonInCharge:            r.PersonInCharge,
		Image:                     r.Image,
		CalibrationCert:           r.CalibrationCert,
		VerificationCert:          r.VerificationCert,
	}
}

// CategoryRequest 新增设备分类
type CategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}
