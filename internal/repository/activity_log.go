package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityLogRepository 活动日志仓储接口
type ActivityLogRepository interface {
	BaseRepository
	Exists(ctx context.Context, userID, activityType, activityID string) (bool, error)
	// Insert 写入日志，唯一键冲突时不写入并返回false
	Insert(ctx context.Context, log *models.ActivityLog) (bool, error)
	Find(ctx context.Context, userID, activityType, activityID string) (*models.ActivityLog, error)
	ListByUser(ctx context.Context, userID string, pagination *Pagination) ([]*models.ActivityLog, error)
}

// activityLogRepo 活动日志仓储实现
type activityLogRepo struct {
	*BaseRepo
}

// NewActivityLogRepository 创建活动日志仓储
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Exists 检查活动是否已记录
func (r *activityLogRepo) Exists(ctx context.Context, userID, activityType, activityID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ActivityLog{}).
		Where("user_id = ? AND activity_type = ? AND activity_id = ?", userID, activityType, activityID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, apperrors.ErrDatabaseQuery, "查询活动日志失败")
	}
	return count > 0, nil
}

// Insert 写入活动日志
func (r *activityLogRepo) Insert(ctx context.Context, log *models.ActivityLog) (bool, error) {
	if log.ItemsGranted == nil {
		log.ItemsGranted = models.StringList{}
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "activity_type"},
				{Name: "activity_id"},
			},
			DoNothing: true,
		}).
		Create(log)
	if result.Error != nil {
		return false, dbError(result.Error, apperrors.ErrDatabaseInsert, "写入活动日志失败")
	}
	return result.RowsAffected > 0, nil
}

// Find 查询一条活动日志
func (r *activityLogRepo) Find(ctx context.Context, userID, activityType, activityID string) (*models.ActivityLog, error) {
	var log models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND activity_type = ? AND activity_id = ?", userID, activityType, activityID).
		Take(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "activity log")
		}
		return nil, dbError(err, apperrors.ErrDatabaseQuery, "查询活动日志失败")
	}
	return &log, nil
}

// ListByUser 分页查询用户的活动日志（新的在前）
func (r *activityLogRepo) ListByUser(ctx context.Context, userID string, pagination *Pagination) ([]*models.ActivityLog, error) {
	var logs []*models.ActivityLog
	query := r.db.WithContext(ctx).
		Model(&models.ActivityLog{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})

	if err := query.Count(&pagination.Total).Error; err != nil {
		return nil, dbError(err, apperrors.ErrDatabaseQuery, "统计活动日志失败")
	}

	err := query.Scopes(Paginate(pagination)).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, dbError(err, apperrors.ErrDatabaseQuery, "查询活动日志失败")
	}
	return logs, nil
}
