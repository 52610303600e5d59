package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"room-reservation/internal/domain"
)

// SessionRepository 是 repository.SessionRepository 的 Mock 实现。
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) FindLive(ctx context.Context, userID, roomID uint) (*domain.Session, error) {
	args := m.Called(ctx, userID, roomID)
	if session, ok := args.Get(0).(*domain.Session); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) FindPendingByUserAndType(ctx context.Context, userID uint, roomType string) (*domain.Session, error) {
	args := m.Called(ctx, userID, roomType)
	if session, ok := args.Get(0).(*domain.Session); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionRepository) Promote(ctx context.Context, sessionID uint, confirmedAt time.Time) error {
	args := m.Called(ctx, sessionID, confirmedAt)
	return args.Error(0)
}

func (m *SessionRepository) PromoteBatch(ctx context.Context, sessionIDs []uint, confirmedAt time.Time) error {
	args := m.Called(ctx, sessionIDs, confirmedAt)
	return args.Error(0)
}

func (m *SessionRepository) Delete(ctx context.Context, userID, roomID uint, state string) (bool, error) {
	args := m.Called(ctx, userID, roomID, state)
	return args.Bool(0), args.Error(1)
}

func (m *SessionRepository) DeleteBatch(ctx context.Context, sessionIDs []uint) (int, error) {
	args := m.Called(ctx, sessionIDs)
	return args.Int(0), args.Error(1)
}

func (m *SessionRepository) ListPending(ctx context.Context) ([]domain.Session, error) {
	args := m.Called(ctx)
	if sessions, ok := args.Get(0).([]domain.Session); ok {
		return sessions, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) CountConfirmed(ctx context.Context, roomID uint) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}
