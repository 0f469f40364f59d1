package repository

import (
	"context"
	"fmt"

	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"gorm.io/gorm"
)

// TransactionManager 事务管理器接口
type TransactionManager interface {
	// Begin 开始事务
	Begin(ctx context.Context) (*Transaction, error)
	// WithTransaction 在事务中执行函数，返回错误时整体回滚
	WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error
}

// Transaction 事务包装器
type Transaction struct {
	tx         *gorm.DB
	ctx        context.Context
	committed  bool
	rolledback bool

	// 事务中的仓储实例
	dragon      DragonRepository
	inventory   InventoryRepository
	activityLog ActivityLogRepository
	gift        GiftRepository
}

// txManager 事务管理器实现
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// Begin 开始事务
func (m *txManager) Begin(ctx context.Context) (*Transaction, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, dbError(tx.Error, apperrors.ErrTransaction, "开始事务失败")
	}

	return &Transaction{
		tx:  tx,
		ctx: ctx,
	}, nil
}

// WithTransaction 在事务中执行函数
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) (err error) {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	// 确保事务被处理，panic时回滚后继续抛出
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if !tx.committed && !tx.rolledback {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("事务已提交")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Commit().Error; err != nil {
		return dbError(err, apperrors.ErrTransaction, "提交事务失败")
	}

	t.committed = true
	return nil
}

// Rollback 回滚事务
func (t *Transaction) Rollback() error {
	if t.committed {
		return fmt.Errorf("事务已提交，无法回滚")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	t.rolledback = true
	return t.tx.Rollback().Error
}

// GetDB 获取事务中的数据库实例
func (t *Transaction) GetDB() *gorm.DB {
	return t.tx
}

// Context 事务的上下文
func (t *Transaction) Context() context.Context {
	return t.ctx
}

// Dragon 获取事务中的龙宠仓储
func (t *Transaction) Dragon() DragonRepository {
	if t.dragon == nil {
		t.dragon = &dragonRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.dragon
}

// Inventory 获取事务中的背包仓储
func (t *Transaction) Inventory() InventoryRepository {
	if t.inventory == nil {
		t.inventory = &inventoryRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.inventory
}

// ActivityLog 获取事务中的活动日志仓储
func (t *Transaction) ActivityLog() ActivityLogRepository {
	if t.activityLog == nil {
		t.activityLog = &activityLogRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.activityLog
}

// Gift 获取事务中的礼物记录仓储
func (t *Transaction) Gift() GiftRepository {
	if t.gift == nil {
		t.gift = &giftRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.gift
}

// SavePoint 创建保存点
func (t *Transaction) SavePoint(name string) error {
	return t.tx.SavePoint(name).Error
}

// RollbackToSavePoint 回滚到保存点
func (t *Transaction) RollbackToSavePoint(name string) error {
	return t.tx.RollbackTo(name).Error
}
