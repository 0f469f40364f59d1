package service

import (
	"errors"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/wfunc/dragon-companion/internal/dragon"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/models"
)

func (suite *DragonServiceTestSuite) countRows(model interface{}) int64 {
	var n int64
	suite.Require().NoError(suite.db.Model(model).Count(&n).Error)
	return n
}

// TestSendGift_Conservation 测试赠送前后总数不变
func (suite *DragonServiceTestSuite) TestSendGift_Conservation() {
	suite.grant("alice", "cookie", 2)

	result, err := suite.svc.SendGift(suite.ctx, "alice", "bob", "cookie", "hi")
	suite.Require().NoError(err)

	suite.Equal(int64(1), suite.quantity("alice", "cookie"))
	suite.Equal(int64(1), suite.quantity("bob", "cookie"))

	suite.Require().NotNil(result.Gift)
	suite.NotEmpty(result.Gift.GiftID)
	suite.Equal("hi", result.Gift.Message)
	suite.Equal(dragon.ActivityDragonGiftSent, result.Reward.ActivityType)
	suite.Equal(result.Gift.GiftID, result.Reward.ActivityID)
	suite.Equal(int64(10), result.Reward.XP)

	snap, err := suite.svc.Observe(suite.ctx, "alice")
	suite.Require().NoError(err)
	suite.Equal(int64(10), snap.Experience)

	suite.Equal(notification{reason: ReasonGiftSent, userIDs: []string{"alice", "bob"}}, suite.notifier.last())

	gifts, total, err := suite.svc.ListGifts(suite.ctx, "bob", 1, 10)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("alice", gifts[0].FromUserID)
}

// TestSendGift_NoItem 测试没有物品时赠送失败且不改变背包
func (suite *DragonServiceTestSuite) TestSendGift_NoItem() {
	suite.grant("bob", "apple", 1)

	_, err := suite.svc.SendGift(suite.ctx, "alice", "bob", "cookie", "hi")
	suite.True(apperrors.Is(err, apperrors.ErrItemNotFound))

	suite.Equal(int64(0), suite.quantity("alice", "cookie"))
	suite.Equal(int64(0), suite.quantity("bob", "cookie"))
	suite.Equal(int64(1), suite.quantity("bob", "apple"))
	suite.Equal(int64(0), suite.countRows(&models.GiftTransfer{}))
	suite.Equal(int64(0), suite.countRows(&models.ActivityLog{}))
}

// TestSendGift_Self 测试不能送给自己
func (suite *DragonServiceTestSuite) TestSendGift_Self() {
	suite.grant("alice", "cookie", 1)

	_, err := suite.svc.SendGift(suite.ctx, "alice", "alice", "cookie", "")
	suite.True(apperrors.Is(err, apperrors.ErrSelfGiftRejected))
	suite.Equal(int64(1), suite.quantity("alice", "cookie"))
}

// TestSendGift_MessageLength 测试留言长度限制
func (suite *DragonServiceTestSuite) TestSendGift_MessageLength() {
	suite.grant("alice", "cookie", 2)

	_, err := suite.svc.SendGift(suite.ctx, "alice", "bob", "cookie", strings.Repeat("龙", 501))
	suite.True(apperrors.Is(err, apperrors.ErrInvalidParam))

	_, err = suite.svc.SendGift(suite.ctx, "alice", "bob", "cookie", strings.Repeat("龙", 500))
	suite.NoError(err)
}

// TestSendGift_RollbackOnStorageFailure 测试写入失败时整体回滚
func (suite *DragonServiceTestSuite) TestSendGift_RollbackOnStorageFailure() {
	suite.grant("alice", "cookie", 1)

	err := suite.db.Callback().Create().Before("gorm:create").Register("test:fail_gift", func(db *gorm.DB) {
		if db.Statement.Table == "gift_transfers" {
			db.AddError(errors.New("disk full"))
		}
	})
	suite.Require().NoError(err)

	_, err = suite.svc.SendGift(suite.ctx, "alice", "bob", "cookie", "hi")
	suite.Require().Error(err)
	suite.True(apperrors.IsStorageFailure(err))

	suite.Equal(int64(1), suite.quantity("alice", "cookie"))
	suite.Equal(int64(0), suite.quantity("bob", "cookie"))
	suite.Equal(int64(0), suite.countRows(&models.ActivityLog{}))
}

// TestSendGift_RaceWithFeed 测试赠送与喂食争抢同一个物品
func (suite *DragonServiceTestSuite) TestSendGift_RaceWithFeed() {
	suite.grant("alice", "apple", 1)

	var (
		wg               sync.WaitGroup
		feedErr, giftErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, feedErr = suite.svc.Feed(suite.ctx, "alice", "apple")
	}()
	go func() {
		defer wg.Done()
		_, giftErr = suite.svc.SendGift(suite.ctx, "alice", "bob", "apple", "")
	}()
	wg.Wait()

	// 只有一个成功
	if feedErr == nil {
		suite.True(apperrors.Is(giftErr, apperrors.ErrItemNotFound))
		suite.Equal(int64(0), suite.quantity("bob", "apple"))
	} else {
		suite.NoError(giftErr)
		suite.True(apperrors.Is(feedErr, apperrors.ErrItemNotFound))
		suite.Equal(int64(1), suite.quantity("bob", "apple"))
	}
	suite.Equal(int64(0), suite.quantity("alice", "apple"))
}

// TestSendGift_OppositeDirections 测试互相赠送不会死锁
func (suite *DragonServiceTestSuite) TestSendGift_OppositeDirections() {
	suite.grant("alice", "cookie", 10)
	suite.grant("bob", "cookie", 10)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := suite.svc.SendGift(suite.ctx, "alice", "bob", "cookie", "")
			suite.NoError(err)
		}()
		go func() {
			defer wg.Done()
			_, err := suite.svc.SendGift(suite.ctx, "bob", "alice", "cookie", "")
			suite.NoError(err)
		}()
	}
	wg.Wait()

	suite.Equal(int64(20), suite.quantity("alice", "cookie")+suite.quantity("bob", "cookie"))
	suite.Equal(int64(20), suite.countRows(&models.GiftTransfer{}))
}
