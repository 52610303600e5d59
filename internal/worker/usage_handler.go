package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"room-reservation/internal/domain"
	"room-reservation/internal/repository"
	"room-reservation/internal/tasks"
)

// UsageSnapshotHandler 处理占用快照落库任务。
// 派生字段（小时/星期）在这里由采集时间计算，快照表只追加。
type UsageSnapshotHandler struct {
	usageRepo repository.UsageSnapshotRepository
}

// NewUsageSnapshotHandler 创建 Handler 实例
func NewUsageSnapshotHandler(usageRepo repository.UsageSnapshotRepository) *UsageSnapshotHandler {
	if usageRepo == nil {
		panic("UsageSnapshotRepository cannot be nil for UsageSnapshotHandler")
	}
	return &UsageSnapshotHandler{usageRepo: usageRepo}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *UsageSnapshotHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.UsageSnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// Payload 损坏无法通过重试修复，直接跳过
		logrus.WithError(err).Error("UsageSnapshotHandler: failed to unmarshal payload")
		return fmt.Errorf("unmarshal usage snapshot payload: %v: %w", err, asynq.SkipRetry)
	}

	snapshot := domain.NewUsageSnapshot(payload.RoomID, payload.Occupancy, payload.CapturedAt)
	if err := h.usageRepo.Save(ctx, snapshot); err != nil {
		logrus.WithError(err).WithField("room_id", payload.RoomID).
			Error("UsageSnapshotHandler: failed to save snapshot")
		return err // 返回错误让 asynq 按策略重试
	}

	logrus.WithFields(logrus.Fields{
		"room_id":   payload.RoomID,
		"occupancy": payload.Occupancy,
	}).Debug("Usage snapshot persisted")
	return nil
}
