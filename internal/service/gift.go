package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wfunc/dragon-companion/internal/dragon"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/models"
	"github.com/wfunc/dragon-companion/internal/repository"
	"go.uber.org/zap"
)

// SendGift 赠送一个物品
//
// 扣减、入账、礼物记录和发送方的 dragon_gift_sent 奖励在同一个事务内完成；
// 两个用户的锁按字典序获取。
func (s *dragonService) SendGift(ctx context.Context, fromUserID, toUserID, itemID, message string) (*GiftResult, error) {
	if fromUserID == toUserID {
		return nil, apperrors.New(apperrors.ErrSelfGiftRejected, fromUserID)
	}
	if err := validUserID(fromUserID); err != nil {
		return nil, err
	}
	if err := validUserID(toUserID); err != nil {
		return nil, err
	}
	if itemID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "item_id 不能为空")
	}
	if err := validLength("item_id", itemID, maxItemIDLength); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(message) > s.rules.MaxGiftMessageLength {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "留言不能超过%d个字符", s.rules.MaxGiftMessageLength)
	}

	result := &GiftResult{}
	var (
		evolved bool
		stage   string
	)
	err := s.mutate(ctx, "gift", []string{fromUserID, toUserID}, func(tx *repository.Transaction, now time.Time) error {
		txCtx := tx.Context()

		removed, err := tx.Inventory().Remove(txCtx, fromUserID, itemID, 1)
		if err != nil {
			return err
		}
		if !removed {
			return apperrors.Newf(apperrors.ErrItemNotFound, "背包中没有 %s", itemID)
		}
		if err := tx.Inventory().Add(txCtx, toUserID, itemID, 1); err != nil {
			return err
		}

		gift := &models.GiftTransfer{
			GiftID:     uuid.New().String(),
			FromUserID: fromUserID,
			ToUserID:   toUserID,
			ItemID:     itemID,
			Message:    message,
		}
		if err := tx.Gift().Create(txCtx, gift); err != nil {
			return err
		}

		sender, _, evolvedOnLoad, err := s.load(tx, fromUserID, now)
		if err != nil {
			return err
		}
		reward, err := s.ledger.Credit(tx, sender, dragon.ActivityDragonGiftSent, gift.GiftID, now)
		if err != nil {
			return err
		}
		if err := tx.Dragon().Save(txCtx, sender); err != nil {
			return err
		}

		evolved = evolvedOnLoad
		stage = sender.Stage
		result.Gift = gift
		result.Reward = reward
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordGift(itemID)
	s.recordReward(fromUserID, result.Reward, evolved, stage)
	s.log.Info("礼物已送出",
		zap.String("gift_id", result.Gift.GiftID),
		zap.String("from", fromUserID),
		zap.String("to", toUserID),
		zap.String("item_id", itemID))
	s.afterCommit(ctx, ReasonGiftSent, fromUserID, toUserID)
	return result, nil
}

// ListGifts 礼物历史（发出与收到），新的在前
func (s *dragonService) ListGifts(ctx context.Context, userID string, page, pageSize int) ([]*models.GiftTransfer, int64, error) {
	p := repository.NewPagination(page, pageSize)
	gifts, err := s.repos.Gift().ListByUser(ctx, userID, p)
	if err != nil {
		s.log.Error("查询礼物历史失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}
	return gifts, p.Total, nil
}
