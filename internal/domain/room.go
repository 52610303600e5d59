package domain

import "time"

// Room 表示一个容量受限的共享房间（例如并发会议室）。
// 容量和房间属性由外部管理端维护；本核心只修改 Occupancy 计数器。
type Room struct {
	ID        uint      `gorm:"primaryKey"`                  // 房间唯一标识符 (主键)
	Name      string    `gorm:"size:191;not null"`           // 房间名称
	Capacity  int       `gorm:"not null"`                    // 房间容量，不变式 >= 1
	Occupancy int       `gorm:"not null;default:0"`          // 当前占用计数，不变式 0 <= occupancy，协调后 <= capacity
	Priority  int       `gorm:"index;not null;default:0"`    // 选择优先级，数值越大越优先
	Region    string    `gorm:"size:64;index"`               // 房间所在区域（可选过滤条件）
	Type      string    `gorm:"size:64;index;not null"`      // 房间类型标签，例如 "study", "meeting"
	Active    bool      `gorm:"index;not null"`              // 是否启用；停用的房间不参与分配
	CreatedAt time.Time `gorm:"autoCreateTime"`              // 记录创建时间 (GORM 自动填充)
	UpdatedAt time.Time `gorm:"autoUpdateTime"`              // 记录最后更新时间 (GORM 自动填充)
}

// HasSpace 报告房间当前是否还有空余名额。
func (r *Room) HasSpace() bool {
	return r.Occupancy < r.Capacity
}

// Available 返回房间剩余名额，下限为 0（计数器短暂超订时不返回负数）。
func (r *Room) Available() int {
	if r.Occupancy >= r.Capacity {
		return 0
	}
	return r.Capacity - r.Occupancy
}
