package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"room-reservation/internal/repository"
)

// 协调扫描的默认参数。
const (
	// DefaultSweepInterval 是两次协调扫描之间的间隔。
	DefaultSweepInterval = 180 * time.Second
	// DefaultPromoteAfter 是 PENDING 会话被自动确认的最小年龄。
	DefaultPromoteAfter = 2 * time.Minute
)

// Reconciler 是周期性的后台协调器：
//   - 年龄在 [promoteAfter, grace) 的 PENDING 会话自动提升为 CONFIRMED
//     （纯状态变更，名额在预留时已计入，绝不二次自增）；
//   - 年龄 >= grace 的 PENDING 会话视为被放弃，删除并释放其持有的名额；
//   - Resync / ResyncAll 将占用计数重置为 CONFIRMED 会话的真实数量。
//
// 扫描按房间分批：先批量提升/删除，再对计数做一次增量，控制写放大。
// 单个房间的失败只记录日志，不中断其余房间的处理。
type Reconciler struct {
	roomRepo    repository.RoomRepository
	sessionRepo repository.SessionRepository

	interval     time.Duration
	promoteAfter time.Duration
	now          func() time.Time
	log          *logrus.Entry
}

// NewReconciler 创建 Reconciler 实例。interval / promoteAfter <= 0 时使用默认值。
func NewReconciler(
	roomRepo repository.RoomRepository,
	sessionRepo repository.SessionRepository,
	interval time.Duration,
	promoteAfter time.Duration,
	logger *logrus.Logger,
) *Reconciler {
	if roomRepo == nil || sessionRepo == nil {
		panic("repositories cannot be nil for Reconciler")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if promoteAfter <= 0 {
		promoteAfter = DefaultPromoteAfter
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reconciler{
		roomRepo:     roomRepo,
		sessionRepo:  sessionRepo,
		interval:     interval,
		promoteAfter: promoteAfter,
		now:          time.Now,
		log:          logger.WithField("component", "reconciler"),
	}
}

// Run 以固定周期执行协调扫描，直到 ctx 被取消。
// 应该在独立的 goroutine 中调用。
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.WithField("interval", r.interval).Info("Reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Reconciler stopped")
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.log.WithError(err).Error("Sweep failed")
			}
		}
	}
}

// roomBatch 是一次扫描中单个房间待处理的会话分组。
type roomBatch struct {
	promote []uint // 自动确认的会话 ID
	expire  []uint // 过期删除的会话 ID
}

// Sweep 执行一轮协调扫描。
// 返回的错误只覆盖 PENDING 会话列表本身的读取失败；
// 单个房间批次的失败被记录并跳过。
func (r *Reconciler) Sweep(ctx context.Context) error {
	now := r.now()
	pending, err := r.sessionRepo.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		r.log.Debug("Sweep: no pending sessions")
		return nil
	}

	// 按房间分组，分别划入提升/过期批次
	batches := make(map[uint]*roomBatch)
	for i := range pending {
		session := &pending[i]
		batch := batches[session.RoomID]
		if batch == nil {
			batch = &roomBatch{}
			batches[session.RoomID] = batch
		}
		switch {
		case session.Expired(now):
			batch.expire = append(batch.expire, session.ID)
		case session.Age(now) >= r.promoteAfter:
			batch.promote = append(batch.promote, session.ID)
		}
	}

	// 升序遍历房间，日志和测试输出稳定
	roomIDs := make([]uint, 0, len(batches))
	for roomID := range batches {
		roomIDs = append(roomIDs, roomID)
	}
	sort.Slice(roomIDs, func(i, j int) bool { return roomIDs[i] < roomIDs[j] })

	for _, roomID := range roomIDs {
		if err := r.sweepRoom(ctx, roomID, batches[roomID], now); err != nil {
			// 单个房间的失败不中断整轮扫描
			r.log.WithError(err).WithField("room_id", roomID).Error("Sweep: room batch failed, skipping")
		}
	}
	return nil
}

// sweepRoom 处理单个房间的批次：批量提升、批量删除、一次性的计数释放。
func (r *Reconciler) sweepRoom(ctx context.Context, roomID uint, batch *roomBatch, now time.Time) error {
	logCtx := r.log.WithField("room_id", roomID)

	if len(batch.promote) > 0 {
		room, err := r.roomRepo.FindByID(ctx, roomID)
		if err != nil {
			return err
		}
		// 超容量的房间不自动确认，等过期回收或 Resync 修复
		if room.Occupancy <= room.Capacity {
			if err := r.sessionRepo.PromoteBatch(ctx, batch.promote, now); err != nil {
				return err
			}
			logCtx.WithField("promoted", len(batch.promote)).Info("Sweep: auto-promoted aging sessions")
		} else {
			logCtx.WithFields(logrus.Fields{"occupancy": room.Occupancy, "capacity": room.Capacity}).
				Warn("Sweep: room over capacity, skipping auto-promotion")
		}
	}

	if len(batch.expire) > 0 {
		deleted, err := r.sessionRepo.DeleteBatch(ctx, batch.expire)
		if err != nil {
			return err
		}
		if deleted > 0 {
			// 释放量按实际删除的行数计，避免与并发取消重复释放
			if err := r.roomRepo.ReleaseSlot(ctx, roomID, deleted); err != nil {
				return err
			}
			logCtx.WithField("expired", deleted).Info("Sweep: expired abandoned sessions, holds released")
		}
	}
	return nil
}

// Resync 将单个房间的占用计数重置为 CONFIRMED 会话的真实数量。
// 运维修复工具，不在热路径上。
func (r *Reconciler) Resync(ctx context.Context, roomID uint) error {
	occupancy, err := r.roomRepo.Resync(ctx, roomID)
	if err != nil {
		r.log.WithError(err).WithField("room_id", roomID).Error("Resync failed")
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return ErrInternalServer
	}
	r.log.WithFields(logrus.Fields{"room_id": roomID, "occupancy": occupancy}).Info("Room occupancy resynced")
	return nil
}

// ResyncAll 对全部启用房间执行 Resync。单个房间的失败被记录并跳过。
func (r *Reconciler) ResyncAll(ctx context.Context) error {
	ids, err := r.roomRepo.ActiveIDs(ctx)
	if err != nil {
		r.log.WithError(err).Error("ResyncAll: failed to list active rooms")
		return ErrInternalServer
	}
	for _, roomID := range ids {
		if _, err := r.roomRepo.Resync(ctx, roomID); err != nil {
			r.log.WithError(err).WithField("room_id", roomID).Error("ResyncAll: room resync failed, skipping")
		}
	}
	r.log.WithField("rooms", len(ids)).Info("ResyncAll completed")
	return nil
}
