package domain

import "time"

// UsageSnapshot 表示某一时刻房间占用情况的快照记录。
// 只追加写入，由后台任务异步产生，供分析端读取。
type UsageSnapshot struct {
	ID         uint      `gorm:"primaryKey"`     // 快照唯一标识符 (主键)
	RoomID     uint      `gorm:"index;not null"` // 房间 ID
	Occupancy  int       `gorm:"not null"`       // 采集时刻的占用计数
	CapturedAt time.Time `gorm:"index;not null"` // 采集时间
	HourOfDay  int       `gorm:"not null"`       // 派生字段：小时 (0-23)
	DayOfWeek  int       `gorm:"not null"`       // 派生字段：星期 (0=周日 ... 6=周六)
}

// NewUsageSnapshot 根据房间状态和采集时间构造快照，派生字段由采集时间计算。
func NewUsageSnapshot(roomID uint, occupancy int, capturedAt time.Time) *UsageSnapshot {
	return &UsageSnapshot{
		RoomID:     roomID,
		Occupancy:  occupancy,
		CapturedAt: capturedAt,
		HourOfDay:  capturedAt.Hour(),
		DayOfWeek:  int(capturedAt.Weekday()),
	}
}
