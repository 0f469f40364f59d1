package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/models"
	"gorm.io/gorm"
)

// DragonRepositoryTestSuite 龙宠仓储测试套件
type DragonRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo DragonRepository
}

func (suite *DragonRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.repo = NewDragonRepository(suite.db)
}

func (suite *DragonRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestCreateIfAbsent 测试惰性创建只生效一次
func (suite *DragonRepositoryTestSuite) TestCreateIfAbsent() {
	ctx := context.Background()

	created, err := suite.repo.CreateIfAbsent(ctx, CreateTestDragon("alice", 0, time.Now()))
	suite.Require().NoError(err)
	suite.True(created)

	second := CreateTestDragon("alice", 500, time.Now())
	created, err = suite.repo.CreateIfAbsent(ctx, second)
	suite.Require().NoError(err)
	suite.False(created)

	found, err := suite.repo.FindByUserID(ctx, "alice")
	suite.Require().NoError(err)
	suite.Equal(int64(0), found.Experience)
	suite.Equal(int64(1), found.Version)

	var count int64
	suite.db.Model(&models.Dragon{}).Count(&count)
	suite.Equal(int64(1), count)
}

// TestFindByUserID_NotFound 测试查询不存在的龙宠
func (suite *DragonRepositoryTestSuite) TestFindByUserID_NotFound() {
	_, err := suite.repo.FindByUserID(context.Background(), "nobody")
	suite.True(apperrors.Is(err, apperrors.ErrNotFound))
}

// TestSave_VersionCheck 测试乐观锁
func (suite *DragonRepositoryTestSuite) TestSave_VersionCheck() {
	ctx := context.Background()
	_, err := suite.repo.CreateIfAbsent(ctx, CreateTestDragon("alice", 0, time.Now()))
	suite.Require().NoError(err)

	a, err := suite.repo.FindByUserID(ctx, "alice")
	suite.Require().NoError(err)
	b, err := suite.repo.FindByUserID(ctx, "alice")
	suite.Require().NoError(err)

	a.Hunger = 95
	a.Accessories = models.StringList{"star_hat"}
	suite.Require().NoError(suite.repo.Save(ctx, a))
	suite.Equal(int64(2), a.Version)

	// b持有旧版本
	b.Happiness = 10
	err = suite.repo.Save(ctx, b)
	suite.True(apperrors.Is(err, apperrors.ErrStorageConflict))
	suite.True(apperrors.IsRetryable(err))

	found, err := suite.repo.FindByUserID(ctx, "alice")
	suite.Require().NoError(err)
	suite.Equal(95, found.Hunger)
	suite.Equal(80, found.Happiness)
	suite.Equal(models.StringList{"star_hat"}, found.Accessories)
}

// TestSave_StageTimestamps 测试阶段时间字段的持久化
func (suite *DragonRepositoryTestSuite) TestSave_StageTimestamps() {
	ctx := context.Background()
	_, err := suite.repo.CreateIfAbsent(ctx, CreateTestDragon("bob", 0, time.Now()))
	suite.Require().NoError(err)

	d, err := suite.repo.LockForUpdate(ctx, "bob")
	suite.Require().NoError(err)

	now := time.Now().UTC().Truncate(time.Second)
	d.Experience = 450
	d.Stage = "young"
	d.YoungAt = &now
	suite.Require().NoError(suite.repo.Save(ctx, d))

	found, err := suite.repo.FindByUserID(ctx, "bob")
	suite.Require().NoError(err)
	suite.Equal("young", found.Stage)
	suite.Nil(found.HatchlingAt)
	if assert.NotNil(suite.T(), found.YoungAt) {
		suite.True(found.YoungAt.Equal(now))
	}
}

func TestDragonRepositorySuite(t *testing.T) {
	suite.Run(t, new(DragonRepositoryTestSuite))
}
