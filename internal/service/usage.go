package service

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"room-reservation/internal/domain"
	"room-reservation/internal/tasks"
)

// UsageRecorder 是 OccupancyRecorder 的 asynq 实现：
// 把占用快照作为低优先级任务投递到后台队列，由 Worker 落库。
// 投递在独立 goroutine 中进行，失败只记录日志，
// 绝不让快照影响预留/确认的结果。
type UsageRecorder struct {
	client *asynq.Client
	now    func() time.Time
}

// NewUsageRecorder 创建 UsageRecorder 实例。
func NewUsageRecorder(client *asynq.Client) *UsageRecorder {
	if client == nil {
		panic("asynq client cannot be nil for UsageRecorder")
	}
	return &UsageRecorder{client: client, now: time.Now}
}

// Record 以 fire-and-forget 方式记录房间当前占用的快照。
func (r *UsageRecorder) Record(room *domain.Room) {
	// room 后续可能被调用方修改，入队前取值拷贝
	snapshot := *room
	capturedAt := r.now()

	go func() {
		task, err := tasks.NewUsageSnapshotTask(&snapshot, capturedAt)
		if err != nil {
			logrus.WithError(err).WithField("room_id", snapshot.ID).
				Warn("UsageRecorder: failed to build snapshot task")
			return
		}
		if _, err := r.client.Enqueue(task, asynq.Queue("low"), asynq.MaxRetry(3)); err != nil {
			logrus.WithError(err).WithField("room_id", snapshot.ID).
				Warn("UsageRecorder: failed to enqueue snapshot task")
		}
	}()
}
