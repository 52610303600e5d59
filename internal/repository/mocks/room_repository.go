// Package mocks 提供 repository 接口的 testify Mock 实现，供 service 层测试使用。
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"room-reservation/internal/domain"
)

// RoomRepository 是 repository.RoomRepository 的 Mock 实现。
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if room, ok := args.Get(0).(*domain.Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) FindAvailable(ctx context.Context, roomType, region string) ([]domain.Room, error) {
	args := m.Called(ctx, roomType, region)
	if rooms, ok := args.Get(0).([]domain.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) FindByType(ctx context.Context, roomType string) ([]domain.Room, error) {
	args := m.Called(ctx, roomType)
	if rooms, ok := args.Get(0).([]domain.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) ReserveSlot(ctx context.Context, roomID uint) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomRepository) ReleaseSlot(ctx context.Context, roomID uint, n int) error {
	args := m.Called(ctx, roomID, n)
	return args.Error(0)
}

func (m *RoomRepository) Resync(ctx context.Context, roomID uint) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

func (m *RoomRepository) ActiveIDs(ctx context.Context) ([]uint, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]uint); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}
