package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"room-reservation/internal/domain"
)

// UsageSnapshotRepository 是 repository.UsageSnapshotRepository 的 Mock 实现。
type UsageSnapshotRepository struct {
	mock.Mock
}

func (m *UsageSnapshotRepository) Save(ctx context.Context, snapshot *domain.UsageSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *UsageSnapshotRepository) ListSince(ctx context.Context, roomID uint, since time.Time) ([]domain.UsageSnapshot, error) {
	args := m.Called(ctx, roomID, since)
	if snapshots, ok := args.Get(0).([]domain.UsageSnapshot); ok {
		return snapshots, args.Error(1)
	}
	return nil, args.Error(1)
}
