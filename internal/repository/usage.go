package repository

import (
	"context"
	"time"

	"room-reservation/internal/domain"
)

// UsageSnapshotRepository 定义了占用快照在持久化存储中的操作。
// 快照只追加写入，读路径供分析使用。
type UsageSnapshotRepository interface {
	// Save 追加一条快照记录。
	Save(ctx context.Context, snapshot *domain.UsageSnapshot) error

	// ListSince 返回指定房间在 since 之后采集的全部快照，按采集时间升序。
	ListSince(ctx context.Context, roomID uint, since time.Time) ([]domain.UsageSnapshot, error)
}
