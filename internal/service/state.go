package service

import (
	"time"

	"github.com/wfunc/dragon-companion/internal/dragon"
	"github.com/wfunc/dragon-companion/internal/models"
)

// 新龙宠的初始值
const (
	defaultDragonName  = "Dragon"
	defaultDragonColor = "green"
	initialHunger      = 80
	initialHappiness   = 80
	initialHealth      = 100
)

func newDragon(userID string, now time.Time) *models.Dragon {
	return &models.Dragon{
		UserID:         userID,
		Name:           defaultDragonName,
		Color:          defaultDragonColor,
		Accessories:    models.StringList{},
		Stage:          dragon.StageEgg.String(),
		Hunger:         initialHunger,
		Happiness:      initialHappiness,
		Health:         initialHealth,
		LastObservedAt:   now,
		HungerDecayAt:    now,
		HappinessDecayAt: now,
		HealthDecayAt:    now,
		Version:          1,
	}
}

func statsOf(d *models.Dragon) dragon.Stats {
	return dragon.Stats{
		Hunger:    d.Hunger,
		Happiness: d.Happiness,
		Health:    d.Health,
		Bond:      d.BondLevel,
	}
}

func setStats(d *models.Dragon, s dragon.Stats) {
	s = s.Clamped()
	d.Hunger = s.Hunger
	d.Happiness = s.Happiness
	d.Health = s.Health
	d.BondLevel = s.Bond
}

// refresh 先结算衰减再结算进化
//
// 每个属性的衰减起点只推进已扣除的整周期，LastObservedAt 在产生损失时推进到now。
func refresh(d *models.Dragon, now time.Time) (changed, evolved bool) {
	clock := clockOf(d)
	decay, next := clock.Advance(statsOf(d), now)
	if !decay.Zero() {
		setStats(d, dragon.ApplyDecay(statsOf(d), decay))
		d.LastObservedAt = now
		changed = true
	}
	if !next.Equal(clock) {
		setClock(d, next)
		changed = true
	}

	if _, evolved = evolve(d, now); evolved {
		changed = true
	}
	return changed, evolved
}

func clockOf(d *models.Dragon) dragon.DecayClock {
	c := dragon.DecayClock{
		Hunger:    d.HungerDecayAt,
		Happiness: d.HappinessDecayAt,
		Health:    d.HealthDecayAt,
	}
	// 旧数据没有独立起点
	if c.Hunger.IsZero() {
		c.Hunger = d.LastObservedAt
	}
	if c.Happiness.IsZero() {
		c.Happiness = d.LastObservedAt
	}
	if c.Health.IsZero() {
		c.Health = d.LastObservedAt
	}
	return c
}

func setClock(d *models.Dragon, c dragon.DecayClock) {
	d.HungerDecayAt = c.Hunger
	d.HappinessDecayAt = c.Happiness
	d.HealthDecayAt = c.Health
}

// evolve 按经验值修正阶段，返回新阶段与是否进化
func evolve(d *models.Dragon, now time.Time) (dragon.Stage, bool) {
	next, evolved := dragon.Evolve(dragon.ParseStage(d.Stage), d.Experience)
	if !evolved {
		return next, false
	}
	d.Stage = next.String()
	markStage(d, next, now)
	return next, true
}

// markStage 记录到达阶段的时间，跨越的中间阶段不记录
func markStage(d *models.Dragon, stage dragon.Stage, now time.Time) {
	t := now
	switch stage {
	case dragon.StageHatchling:
		d.HatchlingAt = &t
	case dragon.StageYoung:
		d.YoungAt = &t
	case dragon.StageTeen:
		d.TeenAt = &t
	case dragon.StageAdult:
		d.AdultAt = &t
	}
}

func snapshotOf(d *models.Dragon) *Snapshot {
	stage := dragon.ParseStage(d.Stage)
	accessories := []string(d.Accessories)
	if accessories == nil {
		accessories = []string{}
	}
	return &Snapshot{
		UserID:         d.UserID,
		Name:           d.Name,
		Color:          d.Color,
		Accessories:    accessories,
		Stage:          stage.String(),
		Stats:          statsOf(d).Clamped(),
		Progress:       dragon.ProgressOf(stage, d.Experience),
		LastObservedAt: d.LastObservedAt,
		HatchlingAt:    d.HatchlingAt,
		YoungAt:        d.YoungAt,
		TeenAt:         d.TeenAt,
		AdultAt:        d.AdultAt,
	}
}
