package repository

import (
	"context"

	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/models"
	"gorm.io/gorm"
)

// GiftRepository 礼物记录仓储接口
type GiftRepository interface {
	BaseRepository
	Create(ctx context.Context, gift *models.GiftTransfer) error
	// ListByUser 查询用户发出和收到的礼物（新的在前）
	ListByUser(ctx context.Context, userID string, pagination *Pagination) ([]*models.GiftTransfer, error)
}

// giftRepo 礼物记录仓储实现
type giftRepo struct {
	*BaseRepo
}

// NewGiftRepository 创建礼物记录仓储
func NewGiftRepository(db *gorm.DB) GiftRepository {
	return &giftRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建礼物记录
func (r *giftRepo) Create(ctx context.Context, gift *models.GiftTransfer) error {
	if err := r.db.WithContext(ctx).Create(gift).Error; err != nil {
		return dbError(err, apperrors.ErrDatabaseInsert, "写入礼物记录失败")
	}
	return nil
}

// ListByUser 分页查询礼物记录
func (r *giftRepo) ListByUser(ctx context.Context, userID string, pagination *Pagination) ([]*models.GiftTransfer, error) {
	var gifts []*models.GiftTransfer
	query := r.db.WithContext(ctx).
		Model(&models.GiftTransfer{}).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Session(&gorm.Session{})

	if err := query.Count(&pagination.Total).Error; err != nil {
		return nil, dbError(err, apperrors.ErrDatabaseQuery, "统计礼物记录失败")
	}

	err := query.Scopes(Paginate(pagination)).
		Order("created_at DESC, id DESC").
		Find(&gifts).Error
	if err != nil {
		return nil, dbError(err, apperrors.ErrDatabaseQuery, "查询礼物记录失败")
	}
	return gifts, nil
}
