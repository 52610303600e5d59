package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"room-reservation/internal/domain"
	"room-reservation/internal/repository"
)

// RoomSelector 负责从房间目录中确定性地挑选最佳可用房间。
// 过滤：启用、类型匹配、区域匹配（region 为空时不限）、仍有空余名额。
// 排序：priority 降序，相同优先级按 id 升序，保证测试可复现。
type RoomSelector struct {
	roomRepo repository.RoomRepository
}

// NewRoomSelector 创建 RoomSelector 实例。
func NewRoomSelector(roomRepo repository.RoomRepository) *RoomSelector {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomSelector")
	}
	return &RoomSelector{roomRepo: roomRepo}
}

// SelectRoom 返回满足条件的最佳房间。
// 没有任何房间有空余名额时返回 (nil, nil)：这本身不是错误，
// 只是调用方（预留流程）的一个前置条件未满足。
func (s *RoomSelector) SelectRoom(ctx context.Context, roomType, region string) (*domain.Room, error) {
	rooms, err := s.roomRepo.FindAvailable(ctx, roomType, region)
	if err != nil {
		logrus.WithFields(logrus.Fields{"room_type": roomType, "region": region}).
			WithError(err).Error("RoomSelector: failed to query available rooms")
		return nil, ErrInternalServer
	}
	if len(rooms) == 0 {
		return nil, nil
	}
	// 仓库已按 priority DESC, id ASC 排序，首个即最佳
	return &rooms[0], nil
}
