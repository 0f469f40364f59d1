package service

import (
	"context"
	"time"

	"github.com/wfunc/dragon-companion/internal/dragon"
	"github.com/wfunc/dragon-companion/internal/models"
	"github.com/wfunc/dragon-companion/internal/repository"
	"go.uber.org/zap"
)

// Ledger 活动奖励账本
//
// (user_id, activity_type, activity_id) 的唯一索引保证每个活动最多结算一次，
// Seen 只是快速路径。
type Ledger struct {
	roller *dragon.Roller
	log    *zap.Logger
}

// NewLedger 创建奖励账本
func NewLedger(roller *dragon.Roller, log *zap.Logger) *Ledger {
	if roller == nil {
		roller = dragon.NewRoller(nil, nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{roller: roller, log: log}
}

// Table 当前奖励表
func (l *Ledger) Table() dragon.ActivityTable {
	return l.roller.Table()
}

// Seen 活动是否已结算
func (l *Ledger) Seen(ctx context.Context, logs repository.ActivityLogRepository, userID, activityType, activityID string) (bool, error) {
	return logs.Exists(ctx, userID, activityType, activityID)
}

// Credit 在事务内结算一次活动
//
// d 必须是本事务内锁定并刷新过的龙宠，经验与阶段直接写在 d 上，由调用方保存。
// 日志已存在时返回零奖励且不产生任何副作用。
func (l *Ledger) Credit(tx *repository.Transaction, d *models.Dragon, activityType, activityID string, now time.Time) (*Reward, error) {
	ctx := tx.Context()
	rolled := l.roller.Roll(activityType)

	before := dragon.ParseStage(d.Stage)
	experience := d.Experience + rolled.XP
	after, evolved := dragon.Evolve(before, experience)

	items := rolled.Items
	if items == nil {
		items = []string{}
	}

	inserted, err := tx.ActivityLog().Insert(ctx, &models.ActivityLog{
		UserID:       d.UserID,
		ActivityType: activityType,
		ActivityID:   activityID,
		XPGranted:    rolled.XP,
		ItemsGranted: models.StringList(items),
		StageBefore:  before.String(),
		StageAfter:   after.String(),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		l.log.Debug("活动已结算",
			zap.String("user_id", d.UserID),
			zap.String("activity_type", activityType),
			zap.String("activity_id", activityID))
		return duplicateReward(activityType, activityID), nil
	}

	d.Experience = experience
	if evolved {
		d.Stage = after.String()
		markStage(d, after, now)
	}

	for _, itemID := range items {
		if err := tx.Inventory().Add(ctx, d.UserID, itemID, 1); err != nil {
			return nil, err
		}
	}

	return &Reward{
		ActivityType: activityType,
		ActivityID:   activityID,
		XP:           rolled.XP,
		Items:        items,
		Evolved:      evolved,
		StageBefore:  before.String(),
		StageAfter:   after.String(),
	}, nil
}

func duplicateReward(activityType, activityID string) *Reward {
	return &Reward{
		ActivityType: activityType,
		ActivityID:   activityID,
		Items:        []string{},
		Duplicate:    true,
	}
}
