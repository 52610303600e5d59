package service_test // 测试包

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-reservation/internal/domain"
	"room-reservation/internal/repository/mocks"
	"room-reservation/internal/service"
)

func TestRoomSelector_SelectRoom_PicksFirstAvailable(t *testing.T) {
	// Arrange: 仓库按 priority DESC, id ASC 返回，选择器取首个
	mockRoomRepo := new(mocks.RoomRepository)
	selector := service.NewRoomSelector(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("FindAvailable", ctx, "study", "eu").Return([]domain.Room{
		{ID: 2, Capacity: 5, Occupancy: 1, Priority: 9},
		{ID: 1, Capacity: 5, Occupancy: 0, Priority: 3},
	}, nil).Once()

	// Act
	room, err := selector.SelectRoom(ctx, "study", "eu")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, uint(2), room.ID, "应选择优先级最高的房间")
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomSelector_SelectRoom_NoneAvailable(t *testing.T) {
	// Arrange
	mockRoomRepo := new(mocks.RoomRepository)
	selector := service.NewRoomSelector(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("FindAvailable", ctx, "study", "").Return([]domain.Room{}, nil).Once()

	// Act
	room, err := selector.SelectRoom(ctx, "study", "")

	// Assert: 没有可用房间是 (nil, nil)，不是错误
	assert.NoError(t, err)
	assert.Nil(t, room)
}

func TestRoomSelector_SelectRoom_RepositoryError(t *testing.T) {
	// Arrange
	mockRoomRepo := new(mocks.RoomRepository)
	selector := service.NewRoomSelector(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("FindAvailable", ctx, "study", "").
		Return(nil, errors.New("db gone")).Once()

	// Act
	_, err := selector.SelectRoom(ctx, "study", "")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInternalServer))
}
