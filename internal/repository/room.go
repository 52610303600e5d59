package repository

import (
	"context"

	"room-reservation/internal/domain"
)

// RoomRepository 定义了房间数据的存储和占用计数操作。
// 占用计数的修改必须按房间串行化：ReserveSlot / ReleaseSlot / Resync
// 的实现需要在单条原子语句（或等价的行级锁事务）内完成，
// 并发预留不能同时通过容量检查而超订。
type RoomRepository interface {
	// FindByID 根据房间 ID 查找房间。
	// 如果房间不存在，返回 ErrRoomNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Room, error)

	// FindAvailable 查询指定类型（以及可选区域，空串表示不限）下
	// 仍有空余名额的启用房间，按 priority 降序、id 升序排列。
	// 没有可用房间时返回空 slice，不是错误。
	FindAvailable(ctx context.Context, roomType, region string) ([]domain.Room, error)

	// FindByType 查询指定类型的全部启用房间（含已满的），用于统计。
	FindByType(ctx context.Context, roomType string) ([]domain.Room, error)

	// Save 保存房间信息（创建或更新）。由外部管理端和测试使用。
	Save(ctx context.Context, room *domain.Room) error

	// ReserveSlot 原子地执行容量检查并将占用计数 +1。
	// 房间已满（检查未通过）时返回 ErrNoCapacity，计数保持不变。
	ReserveSlot(ctx context.Context, roomID uint) error

	// ReleaseSlot 将占用计数减去 n，下限为 0。
	ReleaseSlot(ctx context.Context, roomID uint, n int) error

	// Resync 将占用计数重置为该房间 CONFIRMED 会话的真实数量，
	// 返回重置后的值。用于修复崩溃或部分失败造成的漂移。
	Resync(ctx context.Context, roomID uint) (int, error)

	// ActiveIDs 返回全部启用房间的 ID 列表，供全量 Resync 使用。
	ActiveIDs(ctx context.Context) ([]uint, error)
}
