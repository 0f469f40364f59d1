package service

import (
	"github.com/wfunc/dragon-companion/internal/config"
	"github.com/wfunc/dragon-companion/internal/dragon"
	"github.com/wfunc/dragon-companion/internal/lock"
	"github.com/wfunc/dragon-companion/internal/metrics"
	"github.com/wfunc/dragon-companion/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Dragon DragonService
	Ledger *Ledger
}

// NewServices 根据配置创建服务集合
func NewServices(
	db *gorm.DB,
	cfg *config.DragonConfig,
	locker lock.Locker,
	notifier Notifier,
	m *metrics.Metrics,
	log *zap.Logger,
	ledgerLog *zap.Logger,
) (*Services, error) {
	// 加载物品目录与奖励表
	catalog, err := dragon.LoadCatalog(*cfg)
	if err != nil {
		return nil, err
	}
	roller := dragon.NewRoller(dragon.LoadActivityTable(*cfg), nil)
	ledger := NewLedger(roller, ledgerLog)

	log.Info("物品目录已加载",
		zap.String("version", catalog.Version()),
		zap.Int("items", len(catalog.Items())),
		zap.Int("activities", len(roller.Table())))

	dragonService := NewDragonService(Dependencies{
		Repos:    repository.NewManager(db),
		Catalog:  catalog,
		Ledger:   ledger,
		Rules:    dragon.LoadRules(*cfg),
		Locker:   locker,
		Notifier: notifier,
		Metrics:  m,
		Logger:   log,
	})

	return &Services{
		Dragon: dragonService,
		Ledger: ledger,
	}, nil
}
