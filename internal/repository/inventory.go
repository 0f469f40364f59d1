package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository 背包仓储接口
type InventoryRepository interface {
	BaseRepository
	ListByUser(ctx context.Context, userID string) ([]*models.InventoryItem, error)
	GetQuantity(ctx context.Context, userID, itemID string) (int64, error)
	// Add 增加数量，条目不存在时创建
	Add(ctx context.Context, userID, itemID string, qty int64) error
	// Remove 扣减数量，不足时返回false且不做修改；数量归零时删除条目
	Remove(ctx context.Context, userID, itemID string, qty int64) (bool, error)
}

// inventoryRepo 背包仓储实现
type inventoryRepo struct {
	*BaseRepo
}

// NewInventoryRepository 创建背包仓储
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// ListByUser 查询用户全部物品
func (r *inventoryRepo) ListByUser(ctx context.Context, userID string) ([]*models.InventoryItem, error) {
	var items []*models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND quantity > 0", userID).
		Order("item_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, dbError(err, apperrors.ErrDatabaseQuery, "查询背包失败")
	}
	return items, nil
}

// GetQuantity 查询物品数量，没有条目时为0
func (r *inventoryRepo) GetQuantity(ctx context.Context, userID, itemID string) (int64, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, dbError(err, apperrors.ErrDatabaseQuery, "查询物品数量失败")
	}
	return item.Quantity, nil
}

// Add 增加物品
func (r *inventoryRepo) Add(ctx context.Context, userID, itemID string, qty int64) error {
	if qty <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "quantity must be positive: %d", qty)
	}

	now := time.Now()
	item := &models.InventoryItem{
		UserID:   userID,
		ItemID:   itemID,
		Quantity: qty,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("inventory_items.quantity + ?", qty),
				"updated_at": now,
			}),
		}).
		Create(item).Error
	if err != nil {
		return dbError(err, apperrors.ErrDatabaseInsert, "增加物品失败")
	}
	return nil
}

// Remove 扣减物品
func (r *inventoryRepo) Remove(ctx context.Context, userID, itemID string, qty int64) (bool, error) {
	if qty <= 0 {
		return false, apperrors.Newf(apperrors.ErrInvalidParam, "quantity must be positive: %d", qty)
	}

	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("user_id = ? AND item_id = ? AND quantity >= ?", userID, itemID, qty).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, dbError(result.Error, apperrors.ErrDatabaseUpdate, "扣减物品失败")
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	// 清理数量为0的条目
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ? AND quantity <= 0", userID, itemID).
		Delete(&models.InventoryItem{}).Error
	if err != nil {
		return false, dbError(err, apperrors.ErrDatabaseDelete, "删除空物品失败")
	}

	return true, nil
}
