package dragon

import (
	"math/rand"
	"sync"
	"time"
)

// 内置活动类型
const (
	ActivityDragonFed           = "dragon_fed"
	ActivityDragonPlayed        = "dragon_played"
	ActivityDragonGiftSent      = "dragon_gift_sent"
	ActivityMessageSent         = "message_sent"
	ActivityDailyCheckin        = "daily_checkin"
	ActivitySuggestionCompleted = "suggestion_completed"
	ActivityDatePlanned         = "date_planned"
	ActivityQuizCompleted       = "quiz_completed"
	ActivityMilestoneReached    = "milestone_reached"
)

// ActivityReward 活动奖励规则
type ActivityReward struct {
	XP         int64    `json:"xp"`
	ItemPool   []string `json:"item_pool,omitempty"`
	ItemChance float64  `json:"item_chance"`
}

// ActivityTable 活动类型 -> 奖励规则
type ActivityTable map[string]ActivityReward

// DefaultActivityTable 内置活动奖励表
func DefaultActivityTable() ActivityTable {
	return ActivityTable{
		ActivityDragonFed:           {XP: 5},
		ActivityDragonPlayed:        {XP: 5},
		ActivityDragonGiftSent:      {XP: 10, ItemPool: []string{"cookie"}, ItemChance: 0.25},
		ActivityMessageSent:         {XP: 2},
		ActivityDailyCheckin:        {XP: 10, ItemPool: []string{"apple", "cookie"}, ItemChance: 0.5},
		ActivitySuggestionCompleted: {XP: 25, ItemPool: []string{"apple", "fish", "ball", "feather"}, ItemChance: 0.3},
		ActivityDatePlanned:         {XP: 40, ItemPool: []string{"cake", "berry_bowl", "flower_crown"}, ItemChance: 0.35},
		ActivityQuizCompleted:       {XP: 30, ItemPool: []string{"cookie", "feather"}, ItemChance: 0.3},
		ActivityMilestoneReached:    {XP: 100, ItemPool: []string{"golden_honey", "puzzle_cube", "heart_necklace", "star_hat"}, ItemChance: 0.5},
	}
}

// Rand 奖励掷骰使用的随机源
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// RolledReward 一次掷骰的结果
type RolledReward struct {
	XP    int64
	Items []string
}

// Roller 奖励掷骰器，可并发使用
type Roller struct {
	mu    sync.Mutex
	table ActivityTable
	rng   Rand
}

// NewRoller 创建掷骰器，rng为nil时使用基于时间的种子
func NewRoller(table ActivityTable, rng Rand) *Roller {
	if table == nil {
		table = DefaultActivityTable()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Roller{table: table, rng: rng}
}

// Table 返回奖励表
func (r *Roller) Table() ActivityTable {
	return r.table
}

// Roll 计算活动奖励：固定经验加一次物品判定
//
// 未知活动类型得到零奖励。
func (r *Roller) Roll(activityType string) RolledReward {
	rule, ok := r.table[activityType]
	if !ok {
		return RolledReward{}
	}

	out := RolledReward{XP: rule.XP}
	if out.XP < 0 {
		out.XP = 0
	}

	if len(rule.ItemPool) == 0 || rule.ItemChance <= 0 {
		return out
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rng.Float64() < rule.ItemChance {
		out.Items = []string{rule.ItemPool[r.rng.Intn(len(rule.ItemPool))]}
	}
	return out
}
