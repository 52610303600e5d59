// Package tasks 定义后台任务的类型常量和 Payload 结构。
package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"room-reservation/internal/domain"
)

// 任务类型常量
const (
	// TypeUsageSnapshot 是占用快照落库任务类型
	TypeUsageSnapshot = "usage:snapshot"
)

// UsageSnapshotPayload 是占用快照任务的数据结构。
// 只携带采集时刻的事实；派生字段（小时/星期）由 Worker 端计算。
type UsageSnapshotPayload struct {
	RoomID     uint      `json:"room_id"`
	Occupancy  int       `json:"occupancy"`
	CapturedAt time.Time `json:"captured_at"`
}

// NewUsageSnapshotTask 根据房间当前状态创建占用快照任务。
func NewUsageSnapshotTask(room *domain.Room, capturedAt time.Time) (*asynq.Task, error) {
	payload := UsageSnapshotPayload{
		RoomID:     room.ID,
		Occupancy:  room.Occupancy,
		CapturedAt: capturedAt,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeUsageSnapshot, payloadBytes), nil
}
