package domain

import "time"

// Session 状态常量。会话只有 PENDING / CONFIRMED 两个存活状态，
// 行被删除即表示会话终结（取消、过期或主动离开），没有墓碑状态。
const (
	SessionPending   = "PENDING"
	SessionConfirmed = "CONFIRMED"
)

// Session 表示用户对某房间一个容量名额的占用。
// 创建时为 PENDING（乐观预留），在宽限窗口内确认后变为 CONFIRMED。
// 不变式：同一 (UserID, RoomID) 至多存在一条存活会话，由复合唯一索引保证。
type Session struct {
	ID          uint       `gorm:"primaryKey"`                                    // 会话唯一标识符 (主键)
	UserID      uint       `gorm:"uniqueIndex:idx_sessions_user_room;not null"`   // 占用名额的用户 ID
	RoomID      uint       `gorm:"uniqueIndex:idx_sessions_user_room;index;not null"` // 被占用的房间 ID
	State       string     `gorm:"size:16;index;not null"`                        // PENDING 或 CONFIRMED
	OpenedAt    time.Time  `gorm:"not null"`                                      // 预留创建时间
	ConfirmedAt *time.Time // 确认时间；PENDING 会话为 nil
	ExpiresAt   time.Time  `gorm:"index;not null"`                                // OpenedAt + 宽限窗口
}

// Expired 报告会话在给定时间点是否已超出确认宽限窗口。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Age 返回会话自创建以来经过的时长。
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.OpenedAt)
}
