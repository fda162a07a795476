package model

// Equipment 设备表 — 对应 equipment
// ID 由用户填写，不自动生成，不校验格式
type Equipment struct {
	ID                        string `gorm:"column:id;primaryKey"         json:"id"`
	Category                  string `gorm:"column:category;not null"     json:"category"`
	Brand                     string `gorm:"column:brand;not null"        json:"brand"`
	Model                     string `gorm:"column:model"                 json:"model"`
	SerialNumber              string `gorm:"column:serial_number"         json:"serialNumber"`
	InstallationDate          string `gorm:"column:installation_date"     json:"installationDate"`
	Status                    string `gorm:"column:status;not null"       json:"status"`
	Division                  string `gorm:"column:division;not null"     json:"division"`
	Location                  string `gorm:"column:location"              json:"location"`
	CalibrationMeasuringPoint string `gorm:"column:calibration_point"     json:"calibrationMeasuringPoint"`
	PersonInCharge            string `gorm:"column:pic"                   json:"personInCharge"`
	Image                     string `gorm:"column:image"                 json:"image,omitempty"`
	CalibrationCert           string `gorm:"column:cal_cert"              json:"calibrationCert,omitempty"`
	VerificationCert          string `gorm:"column:ver_cert"              json:"verificationCert,omitempty"`
}

// TableName 指定表名
func (Equipment) TableName() string { return "equipment" }

// DisplayName 审计日志中使用的 "brand model"
func (e *Equipment) DisplayName() string {
	if e.Model == "" {
		return e.Brand
	}
	return e.Brand + " " + e.Model
}
