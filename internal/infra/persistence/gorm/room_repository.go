package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"room-reservation/internal/domain"
	"room-reservation/internal/repository"
)

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现。
// 占用计数的修改全部走条件 UPDATE（单语句原子的 check-and-increment），
// 并发预留由数据库行级原子性串行化，不依赖应用层锁。
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository 创建 GormRoomRepository 实例
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// FindByID 实现根据房间 ID 查找房间
func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	var roomData domain.Room
	err := r.db.WithContext(ctx).First(&roomData, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &roomData, nil
}

// FindAvailable 实现查询仍有空余名额的启用房间。
// 排序在 SQL 内完成：priority 降序，相同优先级按 id 升序（确定性平局规则）。
func (r *GormRoomRepository) FindAvailable(ctx context.Context, roomType, region string) ([]domain.Room, error) {
	var rooms []domain.Room
	query := r.db.WithContext(ctx).
		Where("active = ? AND type = ? AND occupancy < capacity", true, roomType)
	if region != "" {
		query = query.Where("region = ?", region)
	}
	err := query.Order("priority DESC, id ASC").Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find available rooms (type: %s, region: %s): %w", roomType, region, err)
	}
	return rooms, nil
}

// FindByType 实现查询指定类型的全部启用房间（含已满的）
func (r *GormRoomRepository) FindByType(ctx context.Context, roomType string) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("active = ? AND type = ?", true, roomType).
		Order("id ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find rooms by type '%s': %w", roomType, err)
	}
	return rooms, nil
}

// Save 实现保存房间信息（创建或更新）
func (r *GormRoomRepository) Save(ctx context.Context, roomData *domain.Room) error {
	result := r.db.WithContext(ctx).Save(roomData)
	if err := result.Error; err != nil {
		// 健壮的唯一约束检查 (以 MySQL 为例)
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %d, name: %s): %w", roomData.ID, roomData.Name, err)
	}
	return nil
}

// ReserveSlot 实现原子的容量检查加占用计数 +1。
// WHERE 子句内的 occupancy < capacity 保证检查和自增在同一条语句内，
// RowsAffected == 0 即检查未通过（房间已满或不存在）。
func (r *GormRoomRepository) ReserveSlot(ctx context.Context, roomID uint) error {
	result := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("id = ? AND occupancy < capacity", roomID).
		UpdateColumn("occupancy", gorm.Expr("occupancy + 1"))
	if result.Error != nil {
		return fmt.Errorf("gorm: reserve slot for room %d: %w", roomID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNoCapacity
	}
	return nil
}

// ReleaseSlot 实现占用计数减 n，下限为 0。
// CASE 表达式保证计数永不为负，即使释放数量超出当前计数（漂移场景）。
func (r *GormRoomRepository) ReleaseSlot(ctx context.Context, roomID uint, n int) error {
	if n <= 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("id = ?", roomID).
		UpdateColumn("occupancy", gorm.Expr("CASE WHEN occupancy > ? THEN occupancy - ? ELSE 0 END", n, n))
	if result.Error != nil {
		return fmt.Errorf("gorm: release %d slot(s) for room %d: %w", n, roomID, result.Error)
	}
	return nil
}

// Resync 实现将占用计数重置为 CONFIRMED 会话的真实数量。
// 计数和重置在同一事务内执行，避免与并发确认之间丢失更新。
func (r *GormRoomRepository) Resync(ctx context.Context, roomID uint) (int, error) {
	var resynced int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Session{}).
			Where("room_id = ? AND state = ?", roomID, domain.SessionConfirmed).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count confirmed sessions: %w", err)
		}
		result := tx.Model(&domain.Room{}).
			Where("id = ?", roomID).
			UpdateColumn("occupancy", count)
		if result.Error != nil {
			return fmt.Errorf("update occupancy: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrRoomNotFound
		}
		resynced = int(count)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return 0, repository.ErrRoomNotFound
		}
		return 0, fmt.Errorf("gorm: resync room %d: %w", roomID, err)
	}
	return resynced, nil
}

// ActiveIDs 实现返回全部启用房间的 ID 列表
func (r *GormRoomRepository) ActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list active room ids: %w", err)
	}
	return ids, nil
}
