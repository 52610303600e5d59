package repository

import (
	"context"
	"time"

	"room-reservation/internal/domain"
)

// SessionRepository 定义了会话（预留）数据的存储和检索操作。
// 会话行被删除即表示终结；存活会话由 (user_id, room_id) 唯一索引约束。
type SessionRepository interface {
	// FindLive 查找用户在指定房间的存活会话（PENDING 或 CONFIRMED）。
	// 不存在时返回 ErrSessionNotFound。
	FindLive(ctx context.Context, userID, roomID uint) (*domain.Session, error)

	// FindPendingByUserAndType 查找用户针对指定房间类型的 PENDING 会话，
	// 用于幂等的重复预留。不存在时返回 ErrSessionNotFound。
	FindPendingByUserAndType(ctx context.Context, userID uint, roomType string) (*domain.Session, error)

	// Create 创建新会话。违反 (user_id, room_id) 唯一约束时
	// 返回 ErrDuplicateEntry。
	Create(ctx context.Context, session *domain.Session) error

	// Promote 将指定会话置为 CONFIRMED 并记录确认时间。
	Promote(ctx context.Context, sessionID uint, confirmedAt time.Time) error

	// PromoteBatch 批量提升一组会话为 CONFIRMED（后台自动确认路径）。
	PromoteBatch(ctx context.Context, sessionIDs []uint, confirmedAt time.Time) error

	// Delete 删除用户在指定房间、处于指定状态的会话。
	// 返回是否确实删除了一行；不存在时 (false, nil)，调用方据此保持幂等。
	Delete(ctx context.Context, userID, roomID uint, state string) (bool, error)

	// DeleteBatch 按 ID 批量删除会话，返回删除的行数。
	DeleteBatch(ctx context.Context, sessionIDs []uint) (int, error)

	// ListPending 返回全部 PENDING 会话，供周期性协调扫描使用。
	ListPending(ctx context.Context) ([]domain.Session, error)

	// CountConfirmed 返回指定房间 CONFIRMED 会话的数量（占用的真实值）。
	CountConfirmed(ctx context.Context, roomID uint) (int, error)
}
