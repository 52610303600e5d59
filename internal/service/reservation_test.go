package service_test // 测试包

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"room-reservation/internal/domain"
	"room-reservation/internal/repository"
	"room-reservation/internal/repository/mocks"
	"room-reservation/internal/service"
)

// 固定的测试时钟，保证窗口计算可复现
var frozenNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// recorderSpy 记录 Record 的调用次数，替代真实的 asynq 旁路
type recorderSpy struct {
	calls int
	rooms []uint
}

func (r *recorderSpy) Record(room *domain.Room) {
	r.calls++
	r.rooms = append(r.rooms, room.ID)
}

// newReservationFixture 组装带固定时钟的 ReservationService 和全部 Mock
func newReservationFixture(t *testing.T) (*service.ReservationService, *mocks.UserRepository, *mocks.RoomRepository, *mocks.SessionRepository, *recorderSpy) {
	t.Helper()
	mockUserRepo := new(mocks.UserRepository)
	mockRoomRepo := new(mocks.RoomRepository)
	mockSessionRepo := new(mocks.SessionRepository)
	spy := &recorderSpy{}
	svc := service.NewReservationService(
		mockUserRepo, mockRoomRepo, mockSessionRepo,
		service.NewRoomSelector(mockRoomRepo), spy,
		5*time.Minute, 3,
	)
	svc.SetClock(func() time.Time { return frozenNow })
	return svc, mockUserRepo, mockRoomRepo, mockSessionRepo, spy
}

// --- 测试 Reserve 方法 ---

func TestReservationService_Reserve_Success(t *testing.T) {
	// Arrange
	svc, mockUserRepo, mockRoomRepo, mockSessionRepo, spy := newReservationFixture(t)
	ctx := context.Background()
	userID := uint(7)

	mockUserRepo.On("FindByID", ctx, userID).Return(&domain.User{ID: userID}, nil).Once()
	mockSessionRepo.On("FindPendingByUserAndType", ctx, userID, "study").
		Return(nil, repository.ErrSessionNotFound).Once()
	mockRoomRepo.On("FindAvailable", ctx, "study", "eu").
		Return([]domain.Room{{ID: 3, Capacity: 10, Occupancy: 4, Priority: 2, Type: "study", Region: "eu", Active: true}}, nil).Once()
	mockRoomRepo.On("ReserveSlot", ctx, uint(3)).Return(nil).Once()
	mockSessionRepo.On("Create", ctx, mock.MatchedBy(func(s *domain.Session) bool {
		// 会话必须以 PENDING 创建，过期时间等于创建时间加宽限窗口
		assert.Equal(t, userID, s.UserID)
		assert.Equal(t, uint(3), s.RoomID)
		assert.Equal(t, domain.SessionPending, s.State)
		assert.Equal(t, frozenNow, s.OpenedAt)
		assert.Equal(t, frozenNow.Add(5*time.Minute), s.ExpiresAt)
		return true
	})).Return(nil).Once()

	// Act
	room, err := svc.Reserve(ctx, userID, "study", "eu")

	// Assert
	require.NoError(t, err, "成功预留时不应有错误")
	require.NotNil(t, room)
	assert.Equal(t, uint(3), room.ID)
	assert.Equal(t, 5, room.Occupancy, "返回的房间应反映本次占用")
	assert.Equal(t, 1, spy.calls, "预留成功后应记录一次占用快照")

	mockUserRepo.AssertExpectations(t)
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
}

func TestReservationService_Reserve_IdempotentPending(t *testing.T) {
	// Arrange: 用户已持有同类型的 PENDING 会话
	svc, mockUserRepo, mockRoomRepo, mockSessionRepo, _ := newReservationFixture(t)
	ctx := context.Background()
	userID := uint(7)

	mockUserRepo.On("FindByID", ctx, userID).Return(&domain.User{ID: userID}, nil).Once()
	mockSessionRepo.On("FindPendingByUserAndType", ctx, userID, "study").
		Return(&domain.Session{ID: 12, UserID: userID, RoomID: 3, State: domain.SessionPending}, nil).Once()
	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 5}, nil).Once()

	// Act
	room, err := svc.Reserve(ctx, userID, "study", "")

	// Assert: 返回原房间，不触碰计数
	require.NoError(t, err)
	assert.Equal(t, uint(3), room.ID)
	mockRoomRepo.AssertNotCalled(t, "ReserveSlot", mock.Anything, mock.Anything)
	mockSessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
}

func TestReservationService_Reserve_UserNotFound(t *testing.T) {
	// Arrange
	svc, mockUserRepo, mockRoomRepo, _, _ := newReservationFixture(t)
	ctx := context.Background()

	mockUserRepo.On("FindByID", ctx, uint(99)).Return(nil, repository.ErrUserNotFound).Once()

	// Act
	_, err := svc.Reserve(ctx, uint(99), "study", "")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrUserNotFound), "错误类型应为 ErrUserNotFound")
	mockRoomRepo.AssertNotCalled(t, "FindAvailable", mock.Anything, mock.Anything, mock.Anything)
	mockUserRepo.AssertExpectations(t)
}

func TestReservationService_Reserve_NoRoomAvailable(t *testing.T) {
	// Arrange: 没有任何房间有空余名额
	svc, mockUserRepo, mockRoomRepo, mockSessionRepo, spy := newReservationFixture(t)
	ctx := context.Background()
	userID := uint(7)

	mockUserRepo.On("FindByID", ctx, userID).Return(&domain.User{ID: userID}, nil).Once()
	mockSessionRepo.On("FindPendingByUserAndType", ctx, userID, "study").
		Return(nil, repository.ErrSessionNotFound).Once()
	mockRoomRepo.On("FindAvailable", ctx, "study", "").Return([]domain.Room{}, nil).Once()

	// Act
	_, err := svc.Reserve(ctx, userID, "study", "")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrResourceExhausted), "无可用房间时应返回 ErrResourceExhausted")
	assert.Zero(t, spy.calls)
	mockRoomRepo.AssertExpectations(t)
}

func TestReservationService_Reserve_RetriesAfterCapacityRace(t *testing.T) {
	// Arrange: 第一个房间的名额在选择和占用之间被并发请求抢走
	svc, mockUserRepo, mockRoomRepo, mockSessionRepo, _ := newReservationFixture(t)
	ctx := context.Background()
	userID := uint(7)
	first := domain.Room{ID: 1, Capacity: 2, Occupancy: 1, Priority: 5, Active: true}
	second := domain.Room{ID: 2, Capacity: 4, Occupancy: 0, Priority: 3, Active: true}

	mockUserRepo.On("FindByID", ctx, userID).Return(&domain.User{ID: userID}, nil).Once()
	mockSessionRepo.On("FindPendingByUserAndType", ctx, userID, "study").
		Return(nil, repository.ErrSessionNotFound).Once()
	// 第一轮：优先级最高的房间竞争失败
	mockRoomRepo.On("FindAvailable", ctx, "study", "").Return([]domain.Room{first, second}, nil).Once()
	mockRoomRepo.On("ReserveSlot", ctx, uint(1)).Return(repository.ErrNoCapacity).Once()
	// 第二轮：重新选择后占到第二个房间
	mockRoomRepo.On("FindAvailable", ctx, "study", "").Return([]domain.Room{second}, nil).Once()
	mockRoomRepo.On("ReserveSlot", ctx, uint(2)).Return(nil).Once()
	mockSessionRepo.On("Create", ctx, mock.AnythingOfType("*domain.Session")).Return(nil).Once()

	// Act
	room, err := svc.Reserve(ctx, userID, "study", "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(2), room.ID, "竞争失败后应落到重选的房间")
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
}

func TestReservationService_Reserve_AttemptsExhausted(t *testing.T) {
	// Arrange: 极端竞争下每一轮都输掉名额竞争
	svc, mockUserRepo, mockRoomRepo, mockSessionRepo, _ := newReservationFixture(t)
	ctx := context.Background()
	userID := uint(7)
	room := domain.Room{ID: 1, Capacity: 2, Occupancy: 1, Active: true}

	mockUserRepo.On("FindByID", ctx, userID).Return(&domain.User{ID: userID}, nil).Once()
	mockSessionRepo.On("FindPendingByUserAndType", ctx, userID, "study").
		Return(nil, repository.ErrSessionNotFound).Once()
	mockRoomRepo.On("FindAvailable", ctx, "study", "").Return([]domain.Room{room}, nil).Times(3)
	mockRoomRepo.On("ReserveSlot", ctx, uint(1)).Return(repository.ErrNoCapacity).Times(3)

	// Act
	_, err := svc.Reserve(ctx, userID, "study", "")

	// Assert: 尝试次数用尽后放弃
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrResourceExhausted))
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReservationService_Reserve_SessionCreateFails_ReleasesSlot(t *testing.T) {
	// Arrange: 名额已占下但会话行创建失败，计数必须回滚
	svc, mockUserRepo, mockRoomRepo, mockSessionRepo, spy := newReservationFixture(t)
	ctx := context.Background()
	userID := uint(7)

	mockUserRepo.On("FindByID", ctx, userID).Return(&domain.User{ID: userID}, nil).Once()
	mockSessionRepo.On("FindPendingByUserAndType", ctx, userID, "study").
		Return(nil, repository.ErrSessionNotFound).Once()
	mockRoomRepo.On("FindAvailable", ctx, "study", "").
		Return([]domain.Room{{ID: 3, Capacity: 10, Occupancy: 4, Active: true}}, nil).Once()
	mockRoomRepo.On("ReserveSlot", ctx, uint(3)).Return(nil).Once()
	mockSessionRepo.On("Create", ctx, mock.AnythingOfType("*domain.Session")).
		Return(repository.ErrDuplicateEntry).Once()
	mockRoomRepo.On("ReleaseSlot", ctx, uint(3), 1).Return(nil).Once()

	// Act
	_, err := svc.Reserve(ctx, userID, "study", "")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrConflict), "存活会话冲突应映射为 ErrConflict")
	assert.Zero(t, spy.calls, "失败路径不应记录快照")
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
}

// --- 测试 Confirm 方法 ---

func TestReservationService_Confirm_PromotesPending(t *testing.T) {
	// Arrange: 窗口内的 PENDING 会话正常确认
	svc, _, mockRoomRepo, mockSessionRepo, spy := newReservationFixture(t)
	ctx := context.Background()
	session := &domain.Session{
		ID: 12, UserID: 7, RoomID: 3, State: domain.SessionPending,
		OpenedAt:  frozenNow.Add(-time.Minute),
		ExpiresAt: frozenNow.Add(4 * time.Minute),
	}

	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 5}, nil).Once()
	mockSessionRepo.On("FindLive", ctx, uint(7), uint(3)).Return(session, nil).Once()
	mockSessionRepo.On("Promote", ctx, uint(12), frozenNow).Return(nil).Once()

	// Act
	room, err := svc.Confirm(ctx, uint(7), uint(3))

	// Assert: 确认是纯状态变更，不触碰计数
	require.NoError(t, err)
	assert.Equal(t, 5, room.Occupancy, "确认不应二次自增占用计数")
	assert.Equal(t, 1, spy.calls)
	mockRoomRepo.AssertNotCalled(t, "ReserveSlot", mock.Anything, mock.Anything)
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
}

func TestReservationService_Confirm_AlreadyConfirmed_NoOp(t *testing.T) {
	// Arrange
	svc, _, mockRoomRepo, mockSessionRepo, _ := newReservationFixture(t)
	ctx := context.Background()
	confirmedAt := frozenNow.Add(-time.Minute)
	session := &domain.Session{
		ID: 12, UserID: 7, RoomID: 3, State: domain.SessionConfirmed,
		ConfirmedAt: &confirmedAt,
	}

	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 5}, nil).Once()
	mockSessionRepo.On("FindLive", ctx, uint(7), uint(3)).Return(session, nil).Once()

	// Act
	room, err := svc.Confirm(ctx, uint(7), uint(3))

	// Assert
	require.NoError(t, err, "重复确认应是无害的 no-op")
	assert.Equal(t, uint(3), room.ID)
	mockSessionRepo.AssertNotCalled(t, "Promote", mock.Anything, mock.Anything, mock.Anything)
}

func TestReservationService_Confirm_Expired(t *testing.T) {
	// Arrange: 会话已超出宽限窗口
	svc, _, mockRoomRepo, mockSessionRepo, _ := newReservationFixture(t)
	ctx := context.Background()
	session := &domain.Session{
		ID: 12, UserID: 7, RoomID: 3, State: domain.SessionPending,
		OpenedAt:  frozenNow.Add(-6 * time.Minute),
		ExpiresAt: frozenNow.Add(-time.Minute),
	}

	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 5}, nil).Once()
	mockSessionRepo.On("FindLive", ctx, uint(7), uint(3)).Return(session, nil).Once()

	// Act
	_, err := svc.Confirm(ctx, uint(7), uint(3))

	// Assert: 返回冲突，行的清理留给协调器
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrConflict))
	mockSessionRepo.AssertNotCalled(t, "Promote", mock.Anything, mock.Anything, mock.Anything)
	mockSessionRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReservationService_Confirm_NoSession_DefensiveAdmission(t *testing.T) {
	// Arrange: 没有存活会话，防御性地按全新占用处理
	svc, _, mockRoomRepo, mockSessionRepo, spy := newReservationFixture(t)
	ctx := context.Background()

	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 5}, nil).Once()
	mockSessionRepo.On("FindLive", ctx, uint(7), uint(3)).
		Return(nil, repository.ErrSessionNotFound).Once()
	mockRoomRepo.On("ReserveSlot", ctx, uint(3)).Return(nil).Once()
	mockSessionRepo.On("Create", ctx, mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == 7 && s.RoomID == 3 && s.State == domain.SessionPending
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Session).ID = 99
	}).Return(nil).Once()
	mockSessionRepo.On("Promote", ctx, uint(99), frozenNow).Return(nil).Once()

	// Act
	room, err := svc.Confirm(ctx, uint(7), uint(3))

	// Assert: 防御路径仍只自增一次
	require.NoError(t, err)
	assert.Equal(t, 6, room.Occupancy)
	assert.Equal(t, 1, spy.calls)
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
}

func TestReservationService_Confirm_DefensiveAdmission_NoCapacity(t *testing.T) {
	// Arrange: 防御性准入也必须通过容量检查
	svc, _, mockRoomRepo, mockSessionRepo, _ := newReservationFixture(t)
	ctx := context.Background()

	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 10}, nil).Once()
	mockSessionRepo.On("FindLive", ctx, uint(7), uint(3)).
		Return(nil, repository.ErrSessionNotFound).Once()
	mockRoomRepo.On("ReserveSlot", ctx, uint(3)).Return(repository.ErrNoCapacity).Once()

	// Act
	_, err := svc.Confirm(ctx, uint(7), uint(3))

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrConflict))
	mockSessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReservationService_Confirm_OverCapacity_ReleasesHold(t *testing.T) {
	// Arrange: 计数漂移导致房间超容量，确认方让出名额
	svc, _, mockRoomRepo, mockSessionRepo, _ := newReservationFixture(t)
	ctx := context.Background()
	session := &domain.Session{
		ID: 12, UserID: 7, RoomID: 3, State: domain.SessionPending,
		OpenedAt:  frozenNow.Add(-time.Minute),
		ExpiresAt: frozenNow.Add(4 * time.Minute),
	}

	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 11}, nil).Once()
	mockSessionRepo.On("FindLive", ctx, uint(7), uint(3)).Return(session, nil).Once()
	mockSessionRepo.On("Delete", ctx, uint(7), uint(3), domain.SessionPending).Return(true, nil).Once()
	mockRoomRepo.On("ReleaseSlot", ctx, uint(3), 1).Return(nil).Once()

	// Act
	_, err := svc.Confirm(ctx, uint(7), uint(3))

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrConflict))
	mockSessionRepo.AssertNotCalled(t, "Promote", mock.Anything, mock.Anything, mock.Anything)
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
}

func TestReservationService_Confirm_RoomNotFound(t *testing.T) {
	// Arrange
	svc, _, mockRoomRepo, _, _ := newReservationFixture(t)
	ctx := context.Background()

	mockRoomRepo.On("FindByID", ctx, uint(404)).Return(nil, repository.ErrRoomNotFound).Once()

	// Act
	_, err := svc.Confirm(ctx, uint(7), uint(404))

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
}

// --- 测试 Cancel / Release 方法 ---

func TestReservationService_Cancel_DeletesAndReleases(t *testing.T) {
	// Arrange
	svc, _, mockRoomRepo, mockSessionRepo, spy := newReservationFixture(t)
	ctx := context.Background()

	mockSessionRepo.On("Delete", ctx, uint(7), uint(3), domain.SessionPending).Return(true, nil).Once()
	mockRoomRepo.On("ReleaseSlot", ctx, uint(3), 1).Return(nil).Once()
	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 4}, nil).Once()

	// Act
	err := svc.Cancel(ctx, uint(7), uint(3))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, spy.calls)
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
}

func TestReservationService_Cancel_NoSession_NoOp(t *testing.T) {
	// Arrange: 会话不存在（已取消/已过期），取消是幂等的
	svc, _, mockRoomRepo, mockSessionRepo, spy := newReservationFixture(t)
	ctx := context.Background()

	mockSessionRepo.On("Delete", ctx, uint(7), uint(3), domain.SessionPending).Return(false, nil).Once()

	// Act
	err := svc.Cancel(ctx, uint(7), uint(3))

	// Assert: 没有删除就没有释放，计数不能被重复扣减
	require.NoError(t, err, "重复取消不应是错误")
	assert.Zero(t, spy.calls)
	mockRoomRepo.AssertNotCalled(t, "ReleaseSlot", mock.Anything, mock.Anything, mock.Anything)
	mockSessionRepo.AssertExpectations(t)
}

func TestReservationService_Release_DeletesConfirmed(t *testing.T) {
	// Arrange: 显式离开只针对 CONFIRMED 会话
	svc, _, mockRoomRepo, mockSessionRepo, _ := newReservationFixture(t)
	ctx := context.Background()

	mockSessionRepo.On("Delete", ctx, uint(7), uint(3), domain.SessionConfirmed).Return(true, nil).Once()
	mockRoomRepo.On("ReleaseSlot", ctx, uint(3), 1).Return(nil).Once()
	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 4}, nil).Once()

	// Act
	err := svc.Release(ctx, uint(7), uint(3))

	// Assert
	require.NoError(t, err)
	mockRoomRepo.AssertExpectations(t)
	mockSessionRepo.AssertExpectations(t)
}

func TestReservationService_Release_ReleaseSlotFails_StillSucceeds(t *testing.T) {
	// Arrange: 计数释放失败只记录日志，漂移由 Resync 修复
	svc, _, mockRoomRepo, mockSessionRepo, _ := newReservationFixture(t)
	ctx := context.Background()

	mockSessionRepo.On("Delete", ctx, uint(7), uint(3), domain.SessionConfirmed).Return(true, nil).Once()
	mockRoomRepo.On("ReleaseSlot", ctx, uint(3), 1).Return(errors.New("db gone")).Once()
	mockRoomRepo.On("FindByID", ctx, uint(3)).
		Return(&domain.Room{ID: 3, Capacity: 10, Occupancy: 5}, nil).Once()

	// Act
	err := svc.Release(ctx, uint(7), uint(3))

	// Assert
	assert.NoError(t, err, "会话已终结，计数释放失败不应回传给调用方")
	mockRoomRepo.AssertExpectations(t)
}
