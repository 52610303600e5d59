package setup

import (
	"fmt"

	"gorm.io/gorm"

	"room-reservation/internal/domain"
)

// MigrateDB 执行数据库结构迁移。
// 返回错误以便调用者知道迁移是否成功。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.Session{},
		&domain.UsageSnapshot{},
	)
	if err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}
