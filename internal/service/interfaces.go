package service

import (
	"context"
	"time"

	"github.com/wfunc/dragon-companion/internal/dragon"
	"github.com/wfunc/dragon-companion/internal/models"
)

// DragonService 龙宠模拟服务接口
type DragonService interface {
	// 龙宠状态
	Observe(ctx context.Context, userID string) (*Snapshot, error)
	Rename(ctx context.Context, userID, name string) (*Snapshot, error)
	Customize(ctx context.Context, userID, color string, accessories []string) (*Snapshot, error)

	// 互动
	Feed(ctx context.Context, userID, itemID string) (*ActionResult, error)
	Play(ctx context.Context, userID, toyID string) (*ActionResult, error)
	ConsumeItem(ctx context.Context, userID, itemID string) (*ActionResult, error)

	// 活动奖励
	AwardActivity(ctx context.Context, userID, activityType, activityID string) (*Reward, error)
	ListActivities(ctx context.Context, userID string, page, pageSize int) ([]*models.ActivityLog, int64, error)

	// 背包与礼物
	GetInventory(ctx context.Context, userID string) ([]InventoryEntry, error)
	GrantItem(ctx context.Context, userID, itemID string, qty int64) error
	SendGift(ctx context.Context, fromUserID, toUserID, itemID, message string) (*GiftResult, error)
	ListGifts(ctx context.Context, userID string, page, pageSize int) ([]*models.GiftTransfer, int64, error)

	// 物品目录
	Catalog() *dragon.Catalog
}

// Snapshot 龙宠快照（衰减与进化均已结算）
type Snapshot struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Accessories []string `json:"accessories"`
	Stage       string   `json:"stage"`
	dragon.Stats
	dragon.Progress
	LastObservedAt time.Time  `json:"last_observed_at"`
	HatchlingAt    *time.Time `json:"hatchling_at,omitempty"`
	YoungAt        *time.Time `json:"young_at,omitempty"`
	TeenAt         *time.Time `json:"teen_at,omitempty"`
	AdultAt        *time.Time `json:"adult_at,omitempty"`
}

// Reward 一次活动结算的结果
type Reward struct {
	ActivityType string   `json:"activity_type"`
	ActivityID   string   `json:"activity_id"`
	XP           int64    `json:"xp"`
	Items        []string `json:"items"`
	Evolved      bool     `json:"evolved"`
	StageBefore  string   `json:"stage_before,omitempty"`
	StageAfter   string   `json:"stage_after,omitempty"`
	// Duplicate 该活动已结算过，本次为零奖励
	Duplicate bool `json:"duplicate"`
}

// ActionResult 喂食/玩耍/使用物品的结果
type ActionResult struct {
	Snapshot *Snapshot      `json:"dragon"`
	ItemID   string         `json:"item_id,omitempty"`
	Effects  dragon.Effects `json:"effects"`
	Reward   *Reward        `json:"reward,omitempty"`
}

// GiftResult 赠送结果
type GiftResult struct {
	Gift   *models.GiftTransfer `json:"gift"`
	Reward *Reward              `json:"reward"`
}

// InventoryEntry 背包条目，附带物品目录信息
type InventoryEntry struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Category dragon.Category `json:"category"`
	Rarity   dragon.Rarity   `json:"rarity"`
	Effects  dragon.Effects  `json:"effects"`
	Quantity int64           `json:"quantity"`
}
