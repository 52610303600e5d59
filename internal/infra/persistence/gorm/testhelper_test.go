package gormpersistence_test // 测试包

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"room-reservation/internal/domain"
)

// newTestDB 打开一个内存 SQLite 数据库并迁移全部表。
// 连接池限制为单连接：每个 :memory: 连接是独立的数据库。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "打开内存数据库不应失败")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.Session{},
		&domain.UsageSnapshot{},
	), "迁移测试表不应失败")
	return db
}

// seedRoom 插入一条房间记录并返回它
func seedRoom(t *testing.T, db *gorm.DB, room domain.Room) domain.Room {
	t.Helper()
	require.NoError(t, db.Create(&room).Error)
	return room
}

// seedSession 插入一条会话记录并返回它
func seedSession(t *testing.T, db *gorm.DB, session domain.Session) domain.Session {
	t.Helper()
	if session.OpenedAt.IsZero() {
		session.OpenedAt = time.Now()
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = session.OpenedAt.Add(5 * time.Minute)
	}
	require.NoError(t, db.Create(&session).Error)
	return session
}
