package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"room-reservation/internal/domain"
)

// GormUsageSnapshotRepository 是 UsageSnapshotRepository 接口的 GORM 实现。
// 快照表只追加，不做更新或删除。
type GormUsageSnapshotRepository struct {
	db *gorm.DB
}

// NewGormUsageSnapshotRepository 创建 GormUsageSnapshotRepository 实例
func NewGormUsageSnapshotRepository(db *gorm.DB) *GormUsageSnapshotRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUsageSnapshotRepository")
	}
	return &GormUsageSnapshotRepository{db: db}
}

// Save 实现追加一条快照记录
func (r *GormUsageSnapshotRepository) Save(ctx context.Context, snapshot *domain.UsageSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("gorm: save usage snapshot (room: %d): %w", snapshot.RoomID, err)
	}
	return nil
}

// ListSince 实现返回指定房间在 since 之后采集的全部快照
func (r *GormUsageSnapshotRepository) ListSince(ctx context.Context, roomID uint, since time.Time) ([]domain.UsageSnapshot, error) {
	var snapshots []domain.UsageSnapshot
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND captured_at >= ?", roomID, since).
		Order("captured_at ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list usage snapshots for room %d: %w", roomID, err)
	}
	return snapshots, nil
}
