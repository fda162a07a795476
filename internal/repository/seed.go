package repository

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"supporting-smart-system/internal/model"
)

//go:embed seed/seed.yaml
var seedYAML []byte

// SeedData 首次运行与全局重置写入的默认数据
type SeedData struct {
	Users          []SeedUser      `yaml:"users"`
	Categories     []string        `yaml:"categories"`
	Equipment      []SeedEquipment `yaml:"equipment"`
	JobRequests    []SeedJob       `yaml:"job_requests"`
	BootstrapAudit SeedAudit       `yaml:"bootstrap_audit"`
}

type SeedUser struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Avatar   string `yaml:"avatar"`
	Password string `yaml:"password"`
}

type SeedEquipment struct {
	ID               string `yaml:"id"`
	Category         string `yaml:"category"`
	Brand            string `yaml:"brand"`
	Model            string `yaml:"model"`
	SerialNumber     string `yaml:"serial_number"`
	InstallationDate string `yaml:"installation_date"`
	Status           string `yaml:"status"`
	Division         string `yaml:"division"`
	Location         string `yaml:"location"`
	CalibrationPoint string `yaml:"calibration_point"`
	PersonInCharge   string `yaml:"person_in_charge"`
}

type SeedJob struct {
	Title        string `yaml:"title"`
	RequestorID  string `yaml:"requestor_id"`
	Division     string `yaml:"division"`
	Description  string `yaml:"description"`
	Category     string `yaml:"category"`
	StartDate    string `yaml:"start_date"`
	DueDate      string `yaml:"due_date"`
	AssignedToID string `yaml:"assigned_to_id"`
	Status       string `yaml:"status"`
}

type SeedAudit struct {
	Action     string `yaml:"action"`
	TargetID   string `yaml:"target_id"`
	TargetName string `yaml:"target_name"`
	UserID     string `yaml:"user_id"`
	UserName   string `yaml:"user_name"`
	Details    string `yaml:"details"`
}

var (
	seedOnce sync.Once
	seedData *SeedData
	seedErr  error
)

// LoadSeed 解析内嵌的默认数据（只解析一次）
func LoadSeed() (*SeedData, error) {
	seedOnce.Do(func() {
		var d SeedData
		if err := yaml.Unmarshal(seedYAML, &d); err != nil {
			seedErr = fmt.Errorf("解析默认数据失败: %w", err)
			return
		}
		seedData = &d
	})
	return seedData, seedErr
}

// DefaultCategories 默认设备分类词表的副本；解析失败时返回空列表
func DefaultCategories() []string {
	d, err := LoadSeed()
	if err != nil {
		return []string{}
	}
	return append([]string(nil), d.Categories...)
}

// SeedRecords 转换后可直接写入存储的默认记录
type SeedRecords struct {
	Users       []model.User
	Equipment   []model.Equipment
	Categories  model.Setting
	JobRequests []model.JobRequest
	Audit       model.AuditLog
}

// Records 生成默认记录；密码以 bcrypt 哈希保存
func (d *SeedData) Records(hashCost int) (*SeedRecords, error) {
	now := time.Now().UTC()
	out := &SeedRecords{
		Categories: model.Setting{ID: model.SettingCategories, Values: append(model.StringList{}, d.Categories...)},
	}

	names := make(map[string]string, len(d.Users))
	for _, u := range d.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), hashCost)
		if err != nil {
			return nil, fmt.Errorf("生成默认用户密码失败: %w", err)
		}
		names[u.ID] = u.Name
		out.Users = append(out.Users, model.User{
			ID:           u.ID,
			Name:         u.Name,
			Email:        strings.ToLower(u.Email),
			Role:         u.Role,
			Avatar:       u.Avatar,
			PasswordHash: string(hash),
			Status:       model.UserStatusActive,
			CreatedAt:    now,
		})
	}

	for _, e := range d.Equipment {
		out.Equipment = append(out.Equipment, model.Equipment{
			ID:                        e.ID,
			Category:                  e.Category,
			Brand:                     e.Brand,
			Model:                     e.Model,
			SerialNumber:              e.SerialNumber,
			InstallationDate:          e.InstallationDate,
			Status:                    e.Status,
			Division:                  e.Division,
			Location:                  e.Location,
			CalibrationMeasuringPoint: e.CalibrationPoint,
			PersonInCharge:            e.PersonInCharge,
		})
	}

	for i, j := range d.JobRequests {
		job := model.JobRequest{
			Title:         j.Title,
			RequestorID:   j.RequestorID,
			RequestorName: names[j.RequestorID],
			Division:      j.Division,
			Description:   j.Description,
			RequestedAt:   now.Add(-time.Duration(len(d.JobRequests)-i) * time.Hour),
			StartDate:     j.StartDate,
			DueDate:       j.DueDate,
			AssignedToID:  j.AssignedToID,
			Status:        j.Status,
		}
		if j.Category != "" {
			category := j.Category
			job.Category = &category
		}
		out.JobRequests = append(out.JobRequests, job)
	}

	a := d.BootstrapAudit
	out.Audit = model.AuditLog{
		Action:     a.Action,
		TargetID:   a.TargetID,
		TargetName: a.TargetName,
		UserID:     a.UserID,
		UserName:   a.UserName,
		Timestamp:  now,
		Details:    a.Details,
	}

	return out, nil
}
