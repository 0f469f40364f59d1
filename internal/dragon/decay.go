package dragon

import (
	"math"
	"time"
)

// 低于该值时开始损失健康
const criticalThreshold = 20

// Decay 一次衰减计算的结果
type Decay struct {
	Hours         float64
	HungerLoss    int
	HappinessLoss int
	HealthLoss    int
}

// Zero 是否没有任何损失
func (d Decay) Zero() bool {
	return d.HungerLoss == 0 && d.HappinessLoss == 0 && d.HealthLoss == 0
}

// 各属性的衰减周期
const (
	hungerPeriod    = 2 * time.Hour
	happinessPeriod = 3 * time.Hour
	healthPeriod    = time.Hour
)

// ComputeDecay 根据上次观察时间计算属性损失
//
// 饥饿每2小时-1，心情每3小时-1；扣除后饥饿或心情低于20时，健康每小时-1。
func ComputeDecay(stats Stats, lastObservedAt, now time.Time) Decay {
	d, _ := NewDecayClock(lastObservedAt).Advance(stats, now)
	return d
}

// DecayClock 每个属性各自的衰减起点
//
// 起点只按已经扣除的整周期推进，不足一个周期的时间留到下次结算，
// 因此结算的频率不影响结果。
type DecayClock struct {
	Hunger    time.Time
	Happiness time.Time
	Health    time.Time
}

// NewDecayClock 三个起点都从t开始
func NewDecayClock(t time.Time) DecayClock {
	return DecayClock{Hunger: t, Happiness: t, Health: t}
}

// Equal 三个起点是否都相同
func (c DecayClock) Equal(o DecayClock) bool {
	return c.Hunger.Equal(o.Hunger) && c.Happiness.Equal(o.Happiness) && c.Health.Equal(o.Health)
}

// Advance 结算到now为止的损失，返回损失和推进后的起点
func (c DecayClock) Advance(stats Stats, now time.Time) (Decay, DecayClock) {
	hungerN := periods(c.Hunger, now, hungerPeriod)
	happinessN := periods(c.Happiness, now, happinessPeriod)
	healthN := periods(c.Health, now, healthPeriod)

	next := DecayClock{
		Hunger:    c.Hunger.Add(time.Duration(hungerN) * hungerPeriod),
		Happiness: c.Happiness.Add(time.Duration(happinessN) * happinessPeriod),
		Health:    c.Health.Add(time.Duration(healthN) * healthPeriod),
	}

	d := Decay{
		HungerLoss:    hungerN,
		HappinessLoss: happinessN,
	}
	if hours := now.Sub(c.Health).Hours(); hours > 0 && !math.IsNaN(hours) {
		d.Hours = hours
	}

	// 健康的起点总是推进，非危急期间不累计损失
	hunger := stats.Hunger - d.HungerLoss
	happiness := stats.Happiness - d.HappinessLoss
	if hunger < criticalThreshold || happiness < criticalThreshold {
		d.HealthLoss = healthN
	}

	return d, next
}

// periods from到now之间完整周期的个数，now早于from时为0
func periods(from, now time.Time, period time.Duration) int {
	elapsed := now.Sub(from)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / period)
}

// ApplyDecay 扣减属性，最低为0，不会增加任何属性
func ApplyDecay(stats Stats, d Decay) Stats {
	out := stats
	out.Hunger = floorAt0(stats.Hunger, d.HungerLoss)
	out.Happiness = floorAt0(stats.Happiness, d.HappinessLoss)
	out.Health = floorAt0(stats.Health, d.HealthLoss)
	return out
}

func floorAt0(v, loss int) int {
	if loss <= 0 {
		return v
	}
	v -= loss
	if v < 0 {
		return 0
	}
	return v
}
