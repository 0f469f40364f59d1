package repository

import (
	"time"

	"github.com/wfunc/dragon-companion/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 每个连接都是独立的内存库，固定为单连接
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestDragon 创建测试龙宠
func CreateTestDragon(userID string, experience int64, observedAt time.Time) *models.Dragon {
	return &models.Dragon{
		UserID:         userID,
		Name:           "Dragon",
		Color:          "green",
		Accessories:    models.StringList{},
		Stage:          "egg",
		Experience:     experience,
		Hunger:         80,
		Happiness:      80,
		Health:         100,
		LastObservedAt:   observedAt,
		HungerDecayAt:    observedAt,
		HappinessDecayAt: observedAt,
		HealthDecayAt:    observedAt,
		Version:          1,
	}
}
