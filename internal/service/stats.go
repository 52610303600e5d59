package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"room-reservation/internal/repository"
)

// RoomTypeStats 是某一房间类型的即时统计。
type RoomTypeStats struct {
	RoomType       string  `json:"room_type"`
	TotalCapacity  int     `json:"total_capacity"`
	Occupied       int     `json:"occupied"`
	Available      int     `json:"available"`
	RoomsFull      int     `json:"rooms_full"`
	UtilizationPct float64 `json:"utilization_pct"`
}

// RoomAnalytics 是基于占用快照的历史分析结果。
type RoomAnalytics struct {
	RoomID       uint        `json:"room_id"`
	WindowDays   int         `json:"window_days"`
	Samples      int         `json:"samples"`
	AvgOccupancy float64     `json:"avg_occupancy"`
	MaxOccupancy int         `json:"max_occupancy"`
	Hourly       [24]float64 `json:"hourly"` // 各小时的平均占用
	Daily        [7]float64  `json:"daily"`  // 各星期几的平均占用 (0=周日)
}

// StatsService 负责统计和分析的只读路径。
// 统计读 Room 表的即时计数；分析读 UsageSnapshot 追加表。
type StatsService struct {
	roomRepo  repository.RoomRepository
	usageRepo repository.UsageSnapshotRepository
	now       func() time.Time
}

// NewStatsService 创建 StatsService 实例。
func NewStatsService(roomRepo repository.RoomRepository, usageRepo repository.UsageSnapshotRepository) *StatsService {
	if roomRepo == nil || usageRepo == nil {
		panic("repositories cannot be nil for StatsService")
	}
	return &StatsService{roomRepo: roomRepo, usageRepo: usageRepo, now: time.Now}
}

// GetStats 汇总指定类型全部启用房间的容量和占用情况。
func (s *StatsService) GetStats(ctx context.Context, roomType string) (*RoomTypeStats, error) {
	logCtx := logrus.WithField("room_type", roomType)

	rooms, err := s.roomRepo.FindByType(ctx, roomType)
	if err != nil {
		logCtx.WithError(err).Error("GetStats: failed to list rooms")
		return nil, ErrInternalServer
	}

	stats := &RoomTypeStats{RoomType: roomType}
	for i := range rooms {
		room := &rooms[i]
		stats.TotalCapacity += room.Capacity
		stats.Occupied += room.Occupancy
		stats.Available += room.Available()
		if !room.HasSpace() {
			stats.RoomsFull++
		}
	}
	if stats.TotalCapacity > 0 {
		stats.UtilizationPct = float64(stats.Occupied) / float64(stats.TotalCapacity) * 100
	}
	return stats, nil
}

// GetAnalytics 统计指定房间在最近 windowDays 天内的占用快照：
// 平均/最大占用，以及按小时和按星期几的平均值。
func (s *StatsService) GetAnalytics(ctx context.Context, roomID uint, windowDays int) (*RoomAnalytics, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "window_days": windowDays})

	if windowDays <= 0 {
		windowDays = 7
	}
	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("GetAnalytics: failed to load room")
		return nil, ErrInternalServer
	}

	since := s.now().AddDate(0, 0, -windowDays)
	snapshots, err := s.usageRepo.ListSince(ctx, roomID, since)
	if err != nil {
		logCtx.WithError(err).Error("GetAnalytics: failed to list usage snapshots")
		return nil, ErrInternalServer
	}

	analytics := &RoomAnalytics{RoomID: roomID, WindowDays: windowDays, Samples: len(snapshots)}
	if len(snapshots) == 0 {
		return analytics, nil
	}

	var total int
	var hourlySum [24]int
	var hourlyCount [24]int
	var dailySum [7]int
	var dailyCount [7]int
	for i := range snapshots {
		snap := &snapshots[i]
		total += snap.Occupancy
		if snap.Occupancy > analytics.MaxOccupancy {
			analytics.MaxOccupancy = snap.Occupancy
		}
		if snap.HourOfDay >= 0 && snap.HourOfDay < 24 {
			hourlySum[snap.HourOfDay] += snap.Occupancy
			hourlyCount[snap.HourOfDay]++
		}
		if snap.DayOfWeek >= 0 && snap.DayOfWeek < 7 {
			dailySum[snap.DayOfWeek] += snap.Occupancy
			dailyCount[snap.DayOfWeek]++
		}
	}
	analytics.AvgOccupancy = float64(total) / float64(len(snapshots))
	for h := 0; h < 24; h++ {
		if hourlyCount[h] > 0 {
			analytics.Hourly[h] = float64(hourlySum[h]) / float64(hourlyCount[h])
		}
	}
	for d := 0; d < 7; d++ {
		if dailyCount[d] > 0 {
			analytics.Daily[d] = float64(dailySum[d]) / float64(dailyCount[d])
		}
	}
	return analytics, nil
}
