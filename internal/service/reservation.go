package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"room-reservation/internal/domain"
	"room-reservation/internal/repository"
)

// 预留流程的默认参数。
const (
	// DefaultGraceWindow 是 PENDING 会话的确认宽限窗口。
	DefaultGraceWindow = 5 * time.Minute
	// DefaultReserveAttempts 是容量竞争下重新选择房间的最大尝试次数。
	DefaultReserveAttempts = 3
)

// OccupancyRecorder 抽象占用快照的旁路记录。
// 实现必须与调用方的关键路径解耦：失败被吞掉，绝不反压预留/确认流程。
type OccupancyRecorder interface {
	Record(room *domain.Room)
}

// ReservationService 负责预留、确认、取消和离开的业务逻辑。
// 占用计数在预留时一次性加一（唯一权威的自增点）；
// 显式确认和后台自动确认都只是状态标签变更，不再触碰计数。
type ReservationService struct {
	userRepo    repository.UserRepository
	roomRepo    repository.RoomRepository
	sessionRepo repository.SessionRepository
	selector    *RoomSelector
	recorder    OccupancyRecorder

	grace       time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewReservationService 创建 ReservationService 实例。
// grace <= 0 或 maxAttempts <= 0 时使用默认值。recorder 可以为 nil（测试场景）。
func NewReservationService(
	userRepo repository.UserRepository,
	roomRepo repository.RoomRepository,
	sessionRepo repository.SessionRepository,
	selector *RoomSelector,
	recorder OccupancyRecorder,
	grace time.Duration,
	maxAttempts int,
) *ReservationService {
	if userRepo == nil || roomRepo == nil || sessionRepo == nil || selector == nil {
		panic("repositories and selector cannot be nil for ReservationService")
	}
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultReserveAttempts
	}
	return &ReservationService{
		userRepo:    userRepo,
		roomRepo:    roomRepo,
		sessionRepo: sessionRepo,
		selector:    selector,
		recorder:    recorder,
		grace:       grace,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Reserve 为用户在指定类型（和可选区域）下预留一个房间名额。
// 已存在同类型的 PENDING 会话时幂等地返回原房间；
// 没有任何房间有空余名额时返回 ErrResourceExhausted。
func (s *ReservationService) Reserve(ctx context.Context, userID uint, roomType, region string) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_type": roomType, "region": region})

	// 1. 用户存在性检查（身份协作方）
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Reserve: user does not exist")
			return nil, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Reserve: failed to check user existence")
		return nil, ErrInternalServer
	}

	// 2. 幂等重试：同类型已有 PENDING 会话时直接返回原房间
	pending, err := s.sessionRepo.FindPendingByUserAndType(ctx, userID, roomType)
	if err == nil && pending != nil {
		room, findErr := s.roomRepo.FindByID(ctx, pending.RoomID)
		if findErr != nil {
			logCtx.WithError(findErr).Error("Reserve: failed to load room of existing pending session")
			return nil, ErrInternalServer
		}
		logCtx.WithField("room_id", room.ID).Info("Reserve: returning existing pending reservation")
		return room, nil
	}
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		logCtx.WithError(err).Error("Reserve: failed to look up pending session")
		return nil, ErrInternalServer
	}

	// 3. 有界的准入循环：选房间，原子占名额，竞争失败时重选
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		room, err := s.selector.SelectRoom(ctx, roomType, region)
		if err != nil {
			return nil, err
		}
		if room == nil {
			logCtx.Info("Reserve: no room with free capacity")
			return nil, ErrResourceExhausted
		}

		if err := s.roomRepo.ReserveSlot(ctx, room.ID); err != nil {
			if errors.Is(err, repository.ErrNoCapacity) {
				// 名额在选择和占用之间被并发请求消耗；
				// 已满的房间不会再被选择器返回，重选即可
				logCtx.WithFields(logrus.Fields{"room_id": room.ID, "attempt": attempt + 1}).
					Debug("Reserve: lost capacity race, reselecting")
				continue
			}
			logCtx.WithError(err).WithField("room_id", room.ID).Error("Reserve: failed to reserve slot")
			return nil, ErrInternalServer
		}

		now := s.now()
		session := &domain.Session{
			UserID:    userID,
			RoomID:    room.ID,
			State:     domain.SessionPending,
			OpenedAt:  now,
			ExpiresAt: now.Add(s.grace),
		}
		if err := s.sessionRepo.Create(ctx, session); err != nil {
			// 会话创建失败时释放刚占下的名额，计数不能泄漏
			if relErr := s.roomRepo.ReleaseSlot(ctx, room.ID, 1); relErr != nil {
				logCtx.WithError(relErr).WithField("room_id", room.ID).
					Error("Reserve: failed to release slot after session create failure")
			}
			if errors.Is(err, repository.ErrDuplicateEntry) {
				logCtx.WithField("room_id", room.ID).Warn("Reserve: live session already exists for user and room")
				return nil, ErrConflict
			}
			logCtx.WithError(err).WithField("room_id", room.ID).Error("Reserve: failed to create session")
			return nil, ErrInternalServer
		}

		room.Occupancy++
		s.record(room)
		logCtx.WithFields(logrus.Fields{"room_id": room.ID, "expires_at": session.ExpiresAt}).
			Info("Reserve: slot reserved")
		return room, nil
	}

	logCtx.WithField("attempts", s.maxAttempts).Warn("Reserve: attempts exhausted under contention")
	return nil, ErrResourceExhausted
}

// Confirm 将用户在指定房间的 PENDING 会话提升为 CONFIRMED。
// 已确认的会话是 no-op；过期的会话返回 ErrConflict，清理交给协调器；
// 没有存活会话时防御性地按全新占用处理（仍然要通过容量检查）。
func (s *ReservationService) Confirm(ctx context.Context, userID, roomID uint) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Warn("Confirm: room does not exist")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Confirm: failed to load room")
		return nil, ErrInternalServer
	}

	session, err := s.sessionRepo.FindLive(ctx, userID, roomID)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			logCtx.WithError(err).Error("Confirm: failed to look up live session")
			return nil, ErrInternalServer
		}
		// 防御路径：客户端丢失了预留记录
		logCtx.Info("Confirm: no live session, admitting defensively")
		return s.admitAndConfirm(ctx, userID, room, logCtx)
	}

	if session.State == domain.SessionConfirmed {
		logCtx.Debug("Confirm: session already confirmed, no-op")
		return room, nil
	}

	now := s.now()
	if session.Expired(now) {
		// 与未命中同样处理；行留给协调器（或显式重试）清理
		logCtx.WithField("expired_at", session.ExpiresAt).Warn("Confirm: reservation expired")
		return nil, ErrConflict
	}

	// 名额在预留时已计入计数；确认是纯状态变更。
	// 计数漂移超过容量时，释放本次持有并要求重新预留。
	if room.Occupancy > room.Capacity {
		logCtx.WithFields(logrus.Fields{"occupancy": room.Occupancy, "capacity": room.Capacity}).
			Warn("Confirm: room over capacity, releasing hold")
		if _, delErr := s.sessionRepo.Delete(ctx, userID, roomID, domain.SessionPending); delErr != nil {
			logCtx.WithError(delErr).Error("Confirm: failed to delete over-capacity pending session")
			return nil, ErrInternalServer
		}
		if relErr := s.roomRepo.ReleaseSlot(ctx, roomID, 1); relErr != nil {
			logCtx.WithError(relErr).Error("Confirm: failed to release over-capacity hold")
		}
		return nil, ErrConflict
	}

	if err := s.sessionRepo.Promote(ctx, session.ID, now); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// 会话在查找和提升之间被协调器或取消删除
			logCtx.Warn("Confirm: session vanished before promotion")
			return nil, ErrConflict
		}
		logCtx.WithError(err).Error("Confirm: failed to promote session")
		return nil, ErrInternalServer
	}

	s.record(room)
	logCtx.Info("Confirm: session confirmed")
	return room, nil
}

// admitAndConfirm 在没有存活会话时执行完整准入再立即确认。
// 自增仍然只发生一次（在这里的 ReserveSlot），保持单一权威自增点。
func (s *ReservationService) admitAndConfirm(ctx context.Context, userID uint, room *domain.Room, logCtx *logrus.Entry) (*domain.Room, error) {
	if err := s.roomRepo.ReserveSlot(ctx, room.ID); err != nil {
		if errors.Is(err, repository.ErrNoCapacity) {
			logCtx.Warn("Confirm: no capacity for defensive admission")
			return nil, ErrConflict
		}
		logCtx.WithError(err).Error("Confirm: failed to reserve slot for defensive admission")
		return nil, ErrInternalServer
	}

	now := s.now()
	session := &domain.Session{
		UserID:    userID,
		RoomID:    room.ID,
		State:     domain.SessionPending,
		OpenedAt:  now,
		ExpiresAt: now.Add(s.grace),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if relErr := s.roomRepo.ReleaseSlot(ctx, room.ID, 1); relErr != nil {
			logCtx.WithError(relErr).Error("Confirm: failed to release slot after defensive create failure")
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrConflict
		}
		logCtx.WithError(err).Error("Confirm: failed to create defensive session")
		return nil, ErrInternalServer
	}
	if err := s.sessionRepo.Promote(ctx, session.ID, now); err != nil {
		logCtx.WithError(err).Error("Confirm: failed to promote defensive session")
		return nil, ErrInternalServer
	}

	room.Occupancy++
	s.record(room)
	logCtx.Info("Confirm: defensively admitted and confirmed")
	return room, nil
}

// Cancel 取消用户在指定房间的 PENDING 预留并释放名额。
// 幂等：会话不存在时是 no-op，不是错误。
func (s *ReservationService) Cancel(ctx context.Context, userID, roomID uint) error {
	return s.end(ctx, userID, roomID, domain.SessionPending, "Cancel")
}

// Release 结束用户在指定房间的 CONFIRMED 会话（显式离开）并释放名额。
// 幂等：会话不存在时是 no-op。
func (s *ReservationService) Release(ctx context.Context, userID, roomID uint) error {
	return s.end(ctx, userID, roomID, domain.SessionConfirmed, "Release")
}

func (s *ReservationService) end(ctx context.Context, userID, roomID uint, state, op string) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID, "operation": op})

	deleted, err := s.sessionRepo.Delete(ctx, userID, roomID, state)
	if err != nil {
		logCtx.WithError(err).Error("Failed to delete session")
		return ErrInternalServer
	}
	if !deleted {
		logCtx.Debug("No matching session, no-op")
		return nil
	}

	if err := s.roomRepo.ReleaseSlot(ctx, roomID, 1); err != nil {
		// 计数释放失败只记录：下一次 Resync 会修复漂移
		logCtx.WithError(err).Error("Failed to release slot after session delete")
	}

	if room, findErr := s.roomRepo.FindByID(ctx, roomID); findErr == nil {
		s.record(room)
	}
	logCtx.Info("Session ended, slot released")
	return nil
}

func (s *ReservationService) record(room *domain.Room) {
	if s.recorder != nil {
		s.recorder.Record(room)
	}
}
