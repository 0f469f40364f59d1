package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wfunc/dragon-companion/internal/dragon"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/lock"
	"github.com/wfunc/dragon-companion/internal/metrics"
	"github.com/wfunc/dragon-companion/internal/models"
	"github.com/wfunc/dragon-companion/internal/repository"
	"go.uber.org/zap"
)

// 与表字段长度一致，按字节计
const (
	maxNameLength         = 50
	maxColorLength        = 30
	maxUserIDLength       = 64
	maxItemIDLength       = 64
	maxActivityTypeLength = 64
	maxActivityIDLength   = 128
)

// Dependencies 龙宠服务的依赖
type Dependencies struct {
	Repos    *repository.Manager
	Catalog  *dragon.Catalog
	Ledger   *Ledger
	Rules    dragon.Rules
	Locker   lock.Locker
	Notifier Notifier
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	// Now 时钟，测试中可替换
	Now func() time.Time
}

// dragonService 龙宠服务实现
type dragonService struct {
	repos    *repository.Manager
	catalog  *dragon.Catalog
	ledger   *Ledger
	rules    dragon.Rules
	locker   lock.Locker
	notifier Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewDragonService 创建龙宠服务
func NewDragonService(deps Dependencies) DragonService {
	s := &dragonService{
		repos:    deps.Repos,
		catalog:  deps.Catalog,
		ledger:   deps.Ledger,
		rules:    deps.Rules,
		locker:   deps.Locker,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		log:      deps.Logger,
		now:      deps.Now,
	}
	if s.catalog == nil {
		s.catalog = dragon.DefaultCatalog()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.ledger == nil {
		s.ledger = NewLedger(nil, s.log)
	}
	if s.rules == (dragon.Rules{}) {
		s.rules = dragon.DefaultRules()
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedLocker()
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Catalog 物品目录
func (s *dragonService) Catalog() *dragon.Catalog {
	return s.catalog
}

// mutate 持有用户锁并在一个事务内执行fn
func (s *dragonService) mutate(ctx context.Context, action string, userIDs []string, fn func(tx *repository.Transaction, now time.Time) error) error {
	start := time.Now()

	unlock, err := s.locker.Lock(ctx, userIDs...)
	if err != nil {
		s.fail(action, userIDs, err)
		return err
	}
	defer unlock()

	now := s.now()
	if err := s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		return fn(tx, now)
	}); err != nil {
		s.fail(action, userIDs, err)
		return err
	}

	s.metrics.ObserveAction(action, start)
	return nil
}

func (s *dragonService) fail(action string, userIDs []string, err error) {
	s.metrics.RecordError(action, int(apperrors.GetCode(err)))
	fields := []zap.Field{zap.String("action", action), zap.Strings("user_ids", userIDs), zap.Error(err)}
	if apperrors.IsUserRejection(err) {
		s.log.Debug("操作被拒绝", fields...)
		return
	}
	s.log.Error("操作失败", fields...)
}

// load 锁定龙宠行（不存在时创建），并结算衰减与进化
func (s *dragonService) load(tx *repository.Transaction, userID string, now time.Time) (d *models.Dragon, changed, evolved bool, err error) {
	ctx := tx.Context()
	repo := tx.Dragon()

	d, err = repo.LockForUpdate(ctx, userID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		if _, err = repo.CreateIfAbsent(ctx, newDragon(userID, now)); err != nil {
			return nil, false, false, err
		}
		d, err = repo.LockForUpdate(ctx, userID)
	}
	if err != nil {
		return nil, false, false, err
	}

	changed, evolved = refresh(d, now)
	return d, changed, evolved, nil
}

func (s *dragonService) afterCommit(ctx context.Context, reason string, userIDs ...string) {
	s.notifier.NotifyChanged(ctx, reason, userIDs...)
}

func (s *dragonService) recordReward(userID string, r *Reward, evolvedOnLoad bool, stage string) {
	if r != nil {
		s.metrics.RecordAward(r.ActivityType, r.Duplicate)
		if r.Evolved {
			stage = r.StageAfter
			evolvedOnLoad = true
		}
	}
	if evolvedOnLoad {
		s.metrics.RecordEvolution(stage)
		s.log.Info("dragon_event",
			zap.String("event", "evolved"),
			zap.String("user_id", userID),
			zap.String("stage", stage))
	}
}

func validUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.New(apperrors.ErrInvalidParam, "user_id 不能为空")
	}
	return validLength("user_id", userID, maxUserIDLength)
}

func validLength(field, value string, limit int) error {
	if len(value) > limit {
		return apperrors.Newf(apperrors.ErrInvalidParam, "%s 不能超过%d字节", field, limit)
	}
	return nil
}

// Observe 获取龙宠快照，首次访问时创建
func (s *dragonService) Observe(ctx context.Context, userID string) (*Snapshot, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}

	var (
		snap    *Snapshot
		evolved bool
		stage   string
	)
	err := s.mutate(ctx, "observe", []string{userID}, func(tx *repository.Transaction, now time.Time) error {
		d, changed, evolvedOnLoad, err := s.load(tx, userID, now)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.Dragon().Save(tx.Context(), d); err != nil {
				return err
			}
		}
		evolved = evolvedOnLoad
		stage = d.Stage
		snap = snapshotOf(d)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordReward(userID, nil, evolved, stage)
	return snap, nil
}

// Feed 喂食，只接受食物类物品
func (s *dragonService) Feed(ctx context.Context, userID, itemID string) (*ActionResult, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	if err := validLength("item_id", itemID, maxItemIDLength); err != nil {
		return nil, err
	}
	def, _ := s.catalog.Lookup(itemID)
	if def.Category != dragon.CategoryFood {
		return nil, s.wrongCategory(ctx, userID, itemID, "%s 不是食物")
	}

	effects := def.Effects.Merge(nil)
	if effects[dragon.StatHunger] <= 0 {
		effects[dragon.StatHunger] = s.rules.FeedBaselineHunger
	}

	result, err := s.interact(ctx, "feed", userID, itemID, effects, dragon.ActivityDragonFed)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, ReasonFed, userID)
	return result, nil
}

// wrongCategory 类别不符时，背包里没有该物品优先报 ItemNotFound
func (s *dragonService) wrongCategory(ctx context.Context, userID, itemID, format string) error {
	qty, err := s.repos.Inventory().GetQuantity(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return apperrors.Newf(apperrors.ErrItemNotFound, "背包中没有 %s", itemID)
	}
	return apperrors.Newf(apperrors.ErrWrongItemCategory, format, itemID)
}

// Play 玩耍，玩具可选；无论是否有玩具都有基础的心情与亲密度加成
func (s *dragonService) Play(ctx context.Context, userID, toyID string) (*ActionResult, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}

	effects := dragon.Effects{
		dragon.StatHappiness: s.rules.PlayBaselineHappiness,
		dragon.StatBond:      s.rules.PlayBaselineBond,
	}
	if toyID != "" {
		if err := validLength("toy_id", toyID, maxItemIDLength); err != nil {
			return nil, err
		}
		def, _ := s.catalog.Lookup(toyID)
		if def.Category != dragon.CategoryToy {
			return nil, s.wrongCategory(ctx, userID, toyID, "%s 不是玩具")
		}
		effects = effects.Merge(def.Effects)
	}

	result, err := s.interact(ctx, "play", userID, toyID, effects, dragon.ActivityDragonPlayed)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, ReasonPlayed, userID)
	return result, nil
}

// ConsumeItem 使用一个物品，未收录的物品视为无效果的装饰品
func (s *dragonService) ConsumeItem(ctx context.Context, userID, itemID string) (*ActionResult, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	if itemID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "item_id 不能为空")
	}
	if err := validLength("item_id", itemID, maxItemIDLength); err != nil {
		return nil, err
	}
	def, _ := s.catalog.Lookup(itemID)

	result, err := s.interact(ctx, "consume", userID, itemID, def.Effects.Merge(nil), "")
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, ReasonItemConsumed, userID)
	return result, nil
}

// interact 扣除物品（itemID非空时）、应用效果并按需记一次活动
func (s *dragonService) interact(ctx context.Context, action, userID, itemID string, effects dragon.Effects, activityType string) (*ActionResult, error) {
	result := &ActionResult{ItemID: itemID, Effects: effects}
	var (
		evolved bool
		stage   string
	)

	err := s.mutate(ctx, action, []string{userID}, func(tx *repository.Transaction, now time.Time) error {
		d, _, evolvedOnLoad, err := s.load(tx, userID, now)
		if err != nil {
			return err
		}

		if itemID != "" {
			removed, err := tx.Inventory().Remove(tx.Context(), userID, itemID, 1)
			if err != nil {
				return err
			}
			if !removed {
				return apperrors.Newf(apperrors.ErrItemNotFound, "背包中没有 %s", itemID)
			}
		}

		setStats(d, statsOf(d).Apply(effects))

		if activityType != "" {
			reward, err := s.ledger.Credit(tx, d, activityType, uuid.New().String(), now)
			if err != nil {
				return err
			}
			result.Reward = reward
		}

		if err := tx.Dragon().Save(tx.Context(), d); err != nil {
			return err
		}

		evolved = evolvedOnLoad
		stage = d.Stage
		result.Snapshot = snapshotOf(d)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordReward(userID, result.Reward, evolved, stage)
	return result, nil
}

// AwardActivity 结算一次活动奖励，同一活动重复调用返回零奖励
func (s *dragonService) AwardActivity(ctx context.Context, userID, activityType, activityID string) (*Reward, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	if activityType == "" || activityID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "activity_type 和 activity_id 不能为空")
	}
	if err := validLength("activity_type", activityType, maxActivityTypeLength); err != nil {
		return nil, err
	}
	if err := validLength("activity_id", activityID, maxActivityIDLength); err != nil {
		return nil, err
	}

	// 快速路径，真正的判重由唯一索引完成
	seen, err := s.ledger.Seen(ctx, s.repos.ActivityLog(), userID, activityType, activityID)
	if err != nil {
		s.fail("award", []string{userID}, err)
		return nil, err
	}
	if seen {
		s.metrics.RecordAward(activityType, true)
		return duplicateReward(activityType, activityID), nil
	}

	var (
		reward  *Reward
		evolved bool
		stage   string
	)
	err = s.mutate(ctx, "award", []string{userID}, func(tx *repository.Transaction, now time.Time) error {
		d, _, evolvedOnLoad, err := s.load(tx, userID, now)
		if err != nil {
			return err
		}

		reward, err = s.ledger.Credit(tx, d, activityType, activityID, now)
		if err != nil {
			return err
		}
		if reward.Duplicate && !evolvedOnLoad {
			// 并发请求已结算，龙宠无需写回
			return nil
		}

		if err := tx.Dragon().Save(tx.Context(), d); err != nil {
			return err
		}
		evolved = evolvedOnLoad
		stage = d.Stage
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordReward(userID, reward, evolved, stage)
	if !reward.Duplicate {
		s.afterCommit(ctx, ReasonActivityAwarded, userID)
	}
	return reward, nil
}

// ListActivities 活动结算历史，新的在前
func (s *dragonService) ListActivities(ctx context.Context, userID string, page, pageSize int) ([]*models.ActivityLog, int64, error) {
	p := repository.NewPagination(page, pageSize)
	logs, err := s.repos.ActivityLog().ListByUser(ctx, userID, p)
	if err != nil {
		s.log.Error("查询活动历史失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}
	return logs, p.Total, nil
}

// GetInventory 查询背包并附带目录信息
func (s *dragonService) GetInventory(ctx context.Context, userID string) ([]InventoryEntry, error) {
	items, err := s.repos.Inventory().ListByUser(ctx, userID)
	if err != nil {
		s.log.Error("查询背包失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	entries := make([]InventoryEntry, 0, len(items))
	for _, item := range items {
		def, _ := s.catalog.Lookup(item.ItemID)
		entries = append(entries, InventoryEntry{
			ItemID:   item.ItemID,
			Name:     def.Name,
			Category: def.Category,
			Rarity:   def.Rarity,
			Effects:  def.Effects,
			Quantity: item.Quantity,
		})
	}
	return entries, nil
}

// GrantItem 发放物品到背包
func (s *dragonService) GrantItem(ctx context.Context, userID, itemID string, qty int64) error {
	if err := validUserID(userID); err != nil {
		return err
	}
	if itemID == "" || qty <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "非法的发放: item=%q qty=%d", itemID, qty)
	}
	if err := validLength("item_id", itemID, maxItemIDLength); err != nil {
		return err
	}

	err := s.mutate(ctx, "grant", []string{userID}, func(tx *repository.Transaction, now time.Time) error {
		return tx.Inventory().Add(tx.Context(), userID, itemID, qty)
	})
	if err != nil {
		return err
	}
	s.afterCommit(ctx, ReasonItemGranted, userID)
	return nil
}

// Rename 修改名字
func (s *dragonService) Rename(ctx context.Context, userID, name string) (*Snapshot, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "名字长度需在1-%d之间", maxNameLength)
	}

	snap, err := s.updateCosmetics(ctx, "rename", userID, func(tx *repository.Transaction, d *models.Dragon) error {
		d.Name = name
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, ReasonRenamed, userID)
	return snap, nil
}

// Customize 修改颜色和佩戴的饰品，饰品必须是背包中已有的饰品类物品
func (s *dragonService) Customize(ctx context.Context, userID, color string, accessories []string) (*Snapshot, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	color = strings.TrimSpace(color)
	if utf8.RuneCountInString(color) > maxColorLength {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "颜色长度不能超过%d", maxColorLength)
	}

	wanted := make(models.StringList, 0, len(accessories))
	for _, id := range accessories {
		if id == "" || wanted.Contains(id) {
			continue
		}
		def, _ := s.catalog.Lookup(id)
		if def.Category != dragon.CategoryAccessory {
			return nil, apperrors.Newf(apperrors.ErrWrongItemCategory, "%s 不是饰品", id)
		}
		wanted = append(wanted, id)
	}

	snap, err := s.updateCosmetics(ctx, "customize", userID, func(tx *repository.Transaction, d *models.Dragon) error {
		for _, id := range wanted {
			qty, err := tx.Inventory().GetQuantity(tx.Context(), userID, id)
			if err != nil {
				return err
			}
			if qty <= 0 {
				return apperrors.Newf(apperrors.ErrItemNotFound, "背包中没有 %s", id)
			}
		}
		if color != "" {
			d.Color = color
		}
		d.Accessories = wanted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, ReasonCustomized, userID)
	return snap, nil
}

func (s *dragonService) updateCosmetics(ctx context.Context, action, userID string, fn func(tx *repository.Transaction, d *models.Dragon) error) (*Snapshot, error) {
	var (
		snap    *Snapshot
		evolved bool
		stage   string
	)
	err := s.mutate(ctx, action, []string{userID}, func(tx *repository.Transaction, now time.Time) error {
		d, _, evolvedOnLoad, err := s.load(tx, userID, now)
		if err != nil {
			return err
		}
		if err := fn(tx, d); err != nil {
			return err
		}
		if err := tx.Dragon().Save(tx.Context(), d); err != nil {
			return err
		}
		evolved = evolvedOnLoad
		stage = d.Stage
		snap = snapshotOf(d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordReward(userID, nil, evolved, stage)
	return snap, nil
}
