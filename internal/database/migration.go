package database

import (
	"fmt"
	"strings"

	"github.com/wfunc/dragon-companion/internal/logger"
	"github.com/wfunc/dragon-companion/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 唯一索引由模型标签创建，这里补充历史查询用的普通索引
var extraIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_activity_logs_user_created ON activity_logs(user_id, created_at)",
	"CREATE INDEX IF NOT EXISTS idx_gift_transfers_created_at ON gift_transfers(created_at)",
	"CREATE INDEX IF NOT EXISTS idx_inventory_items_user ON inventory_items(user_id)",
}

// AutoMigrate 迁移全局数据库
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate 迁移龙宠相关表结构
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// sqlite文件库需要文件锁，避免多个进程同时迁移
	if dbPath := sqlitePath(db); dbPath != "" {
		CleanupStaleLocks(dbPath)
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	logger.Info("开始数据库迁移...")

	for _, model := range models.AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.GetLogger().Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	createIndexes(db)

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes(db *gorm.DB) {
	for _, idx := range extraIndexes {
		if err := db.Exec(idx).Error; err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				logger.Warn("创建索引失败", zap.String("index", idx), zap.Error(err))
			}
		}
	}
}

// sqlitePath 返回sqlite数据库文件路径，内存库或其他驱动返回空
func sqlitePath(db *gorm.DB) string {
	if db.Dialector.Name() != "sqlite" {
		return ""
	}

	sqlDB, err := db.DB()
	if err != nil {
		return ""
	}

	row := sqlDB.QueryRow("PRAGMA database_list")
	var seq int
	var name, file string
	if err := row.Scan(&seq, &name, &file); err != nil {
		return ""
	}
	return file
}
