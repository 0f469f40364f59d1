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

// DragonRepository 龙宠仓储接口
type DragonRepository interface {
	BaseRepository
	// FindByUserID 查询龙宠，不存在返回 ErrNotFound
	FindByUserID(ctx context.Context, userID string) (*models.Dragon, error)
	// LockForUpdate 事务内锁定龙宠行（sqlite忽略行锁）
	LockForUpdate(ctx context.Context, userID string) (*models.Dragon, error)
	// CreateIfAbsent 不存在时插入，返回是否由本次插入
	CreateIfAbsent(ctx context.Context, dragon *models.Dragon) (bool, error)
	// Save 按版本号比较并写入，版本不匹配返回 ErrStorageConflict
	Save(ctx context.Context, dragon *models.Dragon) error
}

// dragonRepo 龙宠仓储实现
type dragonRepo struct {
	*BaseRepo
}

// NewDragonRepository 创建龙宠仓储
func NewDragonRepository(db *gorm.DB) DragonRepository {
	return &dragonRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// FindByUserID 根据用户ID查询龙宠
func (r *dragonRepo) FindByUserID(ctx context.Context, userID string) (*models.Dragon, error) {
	var dragon models.Dragon
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&dragon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "dragon of "+userID)
		}
		return nil, dbError(err, apperrors.ErrDatabaseQuery, "查询龙宠失败")
	}
	return &dragon, nil
}

// LockForUpdate 锁定龙宠用于更新（悲观锁）
func (r *dragonRepo) LockForUpdate(ctx context.Context, userID string) (*models.Dragon, error) {
	var dragon models.Dragon
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&dragon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "dragon of "+userID)
		}
		return nil, dbError(err, apperrors.ErrDatabaseQuery, "锁定龙宠失败")
	}
	return &dragon, nil
}

// CreateIfAbsent 惰性创建龙宠，user_id冲突时不做任何事
func (r *dragonRepo) CreateIfAbsent(ctx context.Context, dragon *models.Dragon) (bool, error) {
	if dragon.Version == 0 {
		dragon.Version = 1
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(dragon)
	if result.Error != nil {
		return false, dbError(result.Error, apperrors.ErrDatabaseInsert, "创建龙宠失败")
	}
	return result.RowsAffected > 0, nil
}

// Save 乐观锁写入
func (r *dragonRepo) Save(ctx context.Context, dragon *models.Dragon) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Dragon{}).
		Where("id = ? AND version = ?", dragon.ID, dragon.Version).
		Updates(map[string]interface{}{
			"name":               dragon.Name,
			"color":              dragon.Color,
			"accessories":        dragon.Accessories,
			"stage":              dragon.Stage,
			"experience":         dragon.Experience,
			"hunger":             dragon.Hunger,
			"happiness":          dragon.Happiness,
			"health":             dragon.Health,
			"bond_level":         dragon.BondLevel,
			"last_observed_at":   dragon.LastObservedAt,
			"hunger_decay_at":    dragon.HungerDecayAt,
			"happiness_decay_at": dragon.HappinessDecayAt,
			"health_decay_at":    dragon.HealthDecayAt,
			"hatchling_at":       dragon.HatchlingAt,
			"young_at":           dragon.YoungAt,
			"teen_at":            dragon.TeenAt,
			"adult_at":           dragon.AdultAt,
			"version":            dragon.Version + 1,
			"updated_at":         now,
		})

	if result.Error != nil {
		return dbError(result.Error, apperrors.ErrDatabaseUpdate, "更新龙宠失败")
	}

	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrStorageConflict, "dragon %s version %d", dragon.UserID, dragon.Version)
	}

	dragon.Version++
	dragon.UpdatedAt = now
	return nil
}
