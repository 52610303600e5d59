package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"room-reservation/internal/domain"
	"room-reservation/internal/repository"
)

// GormSessionRepository 是 SessionRepository 接口的 GORM 实现
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository 创建 GormSessionRepository 实例
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSessionRepository")
	}
	return &GormSessionRepository{db: db}
}

// FindLive 实现查找用户在指定房间的存活会话
func (r *GormSessionRepository) FindLive(ctx context.Context, userID, roomID uint) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND room_id = ?", userID, roomID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("gorm: find live session (user: %d, room: %d): %w", userID, roomID, err)
	}
	return &session, nil
}

// FindPendingByUserAndType 实现查找用户针对指定房间类型的 PENDING 会话。
// 通过 JOIN rooms 按类型过滤，支持幂等的重复预留。
func (r *GormSessionRepository) FindPendingByUserAndType(ctx context.Context, userID uint, roomType string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).
		Joins("JOIN rooms ON rooms.id = sessions.room_id").
		Where("sessions.user_id = ? AND sessions.state = ? AND rooms.type = ?",
			userID, domain.SessionPending, roomType).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("gorm: find pending session (user: %d, type: %s): %w", userID, roomType, err)
	}
	return &session, nil
}

// Create 实现创建新会话
func (r *GormSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if err != nil {
		// (user_id, room_id) 唯一索引冲突：该用户已持有此房间的存活会话
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create session (user: %d, room: %d): %w", session.UserID, session.RoomID, err)
	}
	return nil
}

// Promote 实现将会话置为 CONFIRMED
func (r *GormSessionRepository) Promote(ctx context.Context, sessionID uint, confirmedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND state = ?", sessionID, domain.SessionPending).
		Updates(map[string]interface{}{
			"state":        domain.SessionConfirmed,
			"confirmed_at": confirmedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("gorm: promote session %d: %w", sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

// PromoteBatch 实现批量提升一组会话为 CONFIRMED
func (r *GormSessionRepository) PromoteBatch(ctx context.Context, sessionIDs []uint, confirmedAt time.Time) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id IN ? AND state = ?", sessionIDs, domain.SessionPending).
		Updates(map[string]interface{}{
			"state":        domain.SessionConfirmed,
			"confirmed_at": confirmedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("gorm: promote %d session(s): %w", len(sessionIDs), err)
	}
	return nil
}

// Delete 实现删除用户在指定房间、处于指定状态的会话
func (r *GormSessionRepository) Delete(ctx context.Context, userID, roomID uint, state string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND room_id = ? AND state = ?", userID, roomID, state).
		Delete(&domain.Session{})
	if result.Error != nil {
		return false, fmt.Errorf("gorm: delete session (user: %d, room: %d, state: %s): %w", userID, roomID, state, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteBatch 实现按 ID 批量删除会话
func (r *GormSessionRepository) DeleteBatch(ctx context.Context, sessionIDs []uint) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ?", sessionIDs).
		Delete(&domain.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete %d session(s): %w", len(sessionIDs), result.Error)
	}
	return int(result.RowsAffected), nil
}

// ListPending 实现返回全部 PENDING 会话，按房间分组处理时有序遍历更友好
func (r *GormSessionRepository) ListPending(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("state = ?", domain.SessionPending).
		Order("room_id ASC, id ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list pending sessions: %w", err)
	}
	return sessions, nil
}

// CountConfirmed 实现返回指定房间 CONFIRMED 会话的数量
func (r *GormSessionRepository) CountConfirmed(ctx context.Context, roomID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("room_id = ? AND state = ?", roomID, domain.SessionConfirmed).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count confirmed sessions for room %d: %w", roomID, err)
	}
	return int(count), nil
}
