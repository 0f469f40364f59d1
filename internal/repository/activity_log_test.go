package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/wfunc/dragon-companion/internal/models"
	"gorm.io/gorm"
)

// ActivityLogRepositoryTestSuite 活动日志与礼物记录仓储测试套件
type ActivityLogRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	repo  ActivityLogRepository
	gifts GiftRepository
}

func (suite *ActivityLogRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.repo = NewActivityLogRepository(suite.db)
	suite.gifts = NewGiftRepository(suite.db)
}

func (suite *ActivityLogRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestInsert_Unique 测试唯一键冲突不写入
func (suite *ActivityLogRepositoryTestSuite) TestInsert_Unique() {
	ctx := context.Background()

	inserted, err := suite.repo.Insert(ctx, &models.ActivityLog{
		UserID: "alice", ActivityType: "dragon_fed", ActivityID: "evt-1",
		XPGranted: 5, StageBefore: "egg", StageAfter: "egg",
	})
	suite.Require().NoError(err)
	suite.True(inserted)

	inserted, err = suite.repo.Insert(ctx, &models.ActivityLog{
		UserID: "alice", ActivityType: "dragon_fed", ActivityID: "evt-1",
		XPGranted: 999,
	})
	suite.Require().NoError(err)
	suite.False(inserted)

	// 其他用户或其他类型不冲突
	inserted, err = suite.repo.Insert(ctx, &models.ActivityLog{UserID: "bob", ActivityType: "dragon_fed", ActivityID: "evt-1"})
	suite.Require().NoError(err)
	suite.True(inserted)
	inserted, err = suite.repo.Insert(ctx, &models.ActivityLog{UserID: "alice", ActivityType: "dragon_played", ActivityID: "evt-1"})
	suite.Require().NoError(err)
	suite.True(inserted)

	log, err := suite.repo.Find(ctx, "alice", "dragon_fed", "evt-1")
	suite.Require().NoError(err)
	suite.Equal(int64(5), log.XPGranted)
	suite.Equal(models.StringList{}, log.ItemsGranted)
}

// TestExists 测试存在性检查
func (suite *ActivityLogRepositoryTestSuite) TestExists() {
	ctx := context.Background()

	exists, err := suite.repo.Exists(ctx, "alice", "quiz_completed", "q-1")
	suite.Require().NoError(err)
	suite.False(exists)

	_, err = suite.repo.Insert(ctx, &models.ActivityLog{
		UserID: "alice", ActivityType: "quiz_completed", ActivityID: "q-1",
		XPGranted: 30, ItemsGranted: models.StringList{"feather"},
	})
	suite.Require().NoError(err)

	exists, err = suite.repo.Exists(ctx, "alice", "quiz_completed", "q-1")
	suite.Require().NoError(err)
	suite.True(exists)
}

// TestListByUser 测试活动日志分页
func (suite *ActivityLogRepositoryTestSuite) TestListByUser() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := suite.repo.Insert(ctx, &models.ActivityLog{UserID: "alice", ActivityType: "message_sent", ActivityID: fmt.Sprintf("m-%d", i)})
		suite.Require().NoError(err)
	}

	p := NewPagination(1, 3)
	logs, err := suite.repo.ListByUser(ctx, "alice", p)
	suite.Require().NoError(err)
	suite.Len(logs, 3)
	suite.Equal(int64(5), p.Total)
	suite.Equal("m-4", logs[0].ActivityID)
}

// TestGiftListByUser 测试礼物记录包含发出和收到
func (suite *ActivityLogRepositoryTestSuite) TestGiftListByUser() {
	ctx := context.Background()
	suite.Require().NoError(suite.gifts.Create(ctx, &models.GiftTransfer{GiftID: "g-1", FromUserID: "alice", ToUserID: "bob", ItemID: "cookie", Message: "hi"}))
	suite.Require().NoError(suite.gifts.Create(ctx, &models.GiftTransfer{GiftID: "g-2", FromUserID: "bob", ToUserID: "alice", ItemID: "cake"}))
	suite.Require().NoError(suite.gifts.Create(ctx, &models.GiftTransfer{GiftID: "g-3", FromUserID: "carol", ToUserID: "dave", ItemID: "ball"}))

	p := NewPagination(1, 10)
	gifts, err := suite.gifts.ListByUser(ctx, "alice", p)
	suite.Require().NoError(err)
	suite.Len(gifts, 2)
	suite.Equal(int64(2), p.Total)
	suite.Equal("g-2", gifts[0].GiftID)

	// gift_id 唯一
	err = suite.gifts.Create(ctx, &models.GiftTransfer{GiftID: "g-1", FromUserID: "x", ToUserID: "y", ItemID: "apple"})
	suite.Error(err)
}

func TestActivityLogRepositorySuite(t *testing.T) {
	suite.Run(t, new(ActivityLogRepositoryTestSuite))
}
