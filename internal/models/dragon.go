package models

import (
	"time"
)

// Dragon 龙宠表，每个用户一条
type Dragon struct {
	BaseModel
	UserID      string     `gorm:"uniqueIndex;size:64;not null" json:"user_id"`
	Name        string     `gorm:"size:50;not null" json:"name"`
	Color       string     `gorm:"size:30;not null" json:"color"`
	Accessories StringList `gorm:"type:json" json:"accessories"`

	Stage      string `gorm:"size:20;not null;index" json:"stage"` // egg, hatchling, young, teen, adult
	Experience int64  `gorm:"not null" json:"experience"`
	Hunger     int    `gorm:"not null" json:"hunger"`
	Happiness  int    `gorm:"not null" json:"happiness"`
	Health     int    `gorm:"not null" json:"health"`
	BondLevel  int    `gorm:"not null" json:"bond_level"`

	LastObservedAt time.Time `gorm:"not null" json:"last_observed_at"`

	// 各属性的衰减起点，为零值时取 LastObservedAt
	HungerDecayAt    time.Time `json:"-"`
	HappinessDecayAt time.Time `json:"-"`
	HealthDecayAt    time.Time `json:"-"`

	// 阶段到达时间，仅用于展示
	HatchlingAt *time.Time `json:"hatchling_at,omitempty"`
	YoungAt     *time.Time `json:"young_at,omitempty"`
	TeenAt      *time.Time `json:"teen_at,omitempty"`
	AdultAt     *time.Time `json:"adult_at,omitempty"`

	// 乐观锁版本号，每次写入+1
	Version int64 `gorm:"not null" json:"version"`
}

// TableName 指定表名
func (Dragon) TableName() string {
	return "dragons"
}

// InventoryItem 用户背包
type InventoryItem struct {
	BaseModel
	UserID   string `gorm:"size:64;not null;uniqueIndex:idx_inventory_user_item,priority:1" json:"user_id"`
	ItemID   string `gorm:"size:64;not null;uniqueIndex:idx_inventory_user_item,priority:2" json:"item_id"`
	Quantity int64  `gorm:"not null" json:"quantity"`
}

// TableName 指定表名
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// ActivityLog 活动奖励日志，(user_id, activity_type, activity_id) 唯一
type ActivityLog struct {
	BaseModel
	UserID       string     `gorm:"size:64;not null;uniqueIndex:idx_activity_user_type_id,priority:1" json:"user_id"`
	ActivityType string     `gorm:"size:64;not null;uniqueIndex:idx_activity_user_type_id,priority:2" json:"activity_type"`
	ActivityID   string     `gorm:"size:128;not null;uniqueIndex:idx_activity_user_type_id,priority:3" json:"activity_id"`
	XPGranted    int64      `gorm:"not null" json:"xp_granted"`
	ItemsGranted StringList `gorm:"type:json" json:"items_granted"`
	StageBefore  string     `gorm:"size:20" json:"stage_before"`
	StageAfter   string     `gorm:"size:20" json:"stage_after"`
}

// TableName 指定表名
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// GiftTransfer 礼物记录（仅用于历史展示）
type GiftTransfer struct {
	BaseModel
	GiftID     string `gorm:"size:36;not null;uniqueIndex" json:"gift_id"`
	FromUserID string `gorm:"size:64;not null;index" json:"from_user_id"`
	ToUserID   string `gorm:"size:64;not null;index" json:"to_user_id"`
	ItemID     string `gorm:"size:64;not null" json:"item_id"`
	Message    string `gorm:"size:500" json:"message"`
}

// TableName 指定表名
func (GiftTransfer) TableName() string {
	return "gift_transfers"
}

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Dragon{},
		&InventoryItem{},
		&ActivityLog{},
		&GiftTransfer{},
	}
}
