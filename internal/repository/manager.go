package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 事务管理器
	txManager TransactionManager

	// 仓储实例（使用懒加载）
	dragonOnce sync.Once
	dragon     DragonRepository

	inventoryOnce sync.Once
	inventory     InventoryRepository

	activityLogOnce sync.Once
	activityLog     ActivityLogRepository

	giftOnce sync.Once
	gift     GiftRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Transaction 获取事务管理器
func (m *Manager) Transaction() TransactionManager {
	return m.txManager
}

// Dragon 获取龙宠仓储
func (m *Manager) Dragon() DragonRepository {
	m.dragonOnce.Do(func() {
		m.dragon = NewDragonRepository(m.db)
	})
	return m.dragon
}

// Inventory 获取背包仓储
func (m *Manager) Inventory() InventoryRepository {
	m.inventoryOnce.Do(func() {
		m.inventory = NewInventoryRepository(m.db)
	})
	return m.inventory
}

// ActivityLog 获取活动日志仓储
func (m *Manager) ActivityLog() ActivityLogRepository {
	m.activityLogOnce.Do(func() {
		m.activityLog = NewActivityLogRepository(m.db)
	})
	return m.activityLog
}

// Gift 获取礼物记录仓储
func (m *Manager) Gift() GiftRepository {
	m.giftOnce.Do(func() {
		m.gift = NewGiftRepository(m.db)
	})
	return m.gift
}

// WithTransaction 在事务中执行操作
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.txManager.WithTransaction(ctx, fn)
}
