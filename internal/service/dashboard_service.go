package service

import (
	"context"

	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/lifecycle"
	"supporting-smart-system/internal/model"
)

// DashboardService 看板统计
type DashboardService interface {
	Stats(ctx context.Context) (*dto.DashboardStats, error)
}

type dashboardService struct {
	cache *snapshotCache
}

// NewDashboardService 创建 DashboardService 实例，统计基于最近一次快照
func NewDashboardService(cache *snapshotCache) DashboardService {
	return &dashboardService{cache: cache}
}

func (s *dashboardService) Stats(ctx context.Context) (*dto.DashboardStats, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeStats(snap.Equipment), nil
}

// ComputeStats 按状态、部门、分类计数
// InService 为 OK 状态；NeedsCalibration 为 Calibration 与 Verification 状态之和
func ComputeStats(items []model.Equipment) *dto.DashboardStats {
	stats := &dto.DashboardStats{
		Total:      len(items),
		ByStatus:   make(map[string]int, len(lifecycle.EquipmentStatuses)),
		ByDivision: make(map[string]int, len(model.Divisions)),
		ByCategory: make(map[string]int),
	}
	for _, st := range lifecycle.EquipmentStatuses {
		stats.ByStatus[st] = 0
	}
	for _, d := range model.Divisions {
		stats.ByDivision[d] = 0
	}

	for _, e := range items {
		stats.ByStatus[e.Status]++
		stats.ByDivision[e.Division]++
		stats.ByCategory[e.Category]++

		switch e.Status {
		case lifecycle.EquipmentOK:
			stats.InService++
		case lifecycle.EquipmentCalibration, lifecycle.EquipmentVerification:
			stats.NeedsCalibration++
		case lifecycle.EquipmentUnused:
			stats.Unused++
		}
	}
	return stats
}
