package dragon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeDecay_NineHours(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stats := Stats{Hunger: 50, Happiness: 50, Health: 90, Bond: 10}

	d := ComputeDecay(stats, now.Add(-9*time.Hour), now)
	assert.Equal(t, 4, d.HungerLoss)
	assert.Equal(t, 3, d.HappinessLoss)
	assert.Equal(t, 0, d.HealthLoss)

	out := ApplyDecay(stats, d)
	assert.Equal(t, 46, out.Hunger)
	assert.Equal(t, 47, out.Happiness)
	assert.Equal(t, 90, out.Health)
	assert.Equal(t, 10, out.Bond)
}

func TestComputeDecay_HealthLossWhenCritical(t *testing.T) {
	now := time.Now()
	stats := Stats{Hunger: 22, Happiness: 80, Health: 100}

	// 6小时：饥饿-3 → 19 < 20，健康-6
	d := ComputeDecay(stats, now.Add(-6*time.Hour), now)
	assert.Equal(t, 3, d.HungerLoss)
	assert.Equal(t, 2, d.HappinessLoss)
	assert.Equal(t, 6, d.HealthLoss)

	out := ApplyDecay(stats, d)
	assert.Equal(t, 19, out.Hunger)
	assert.Equal(t, 94, out.Health)
}

func TestComputeDecay_FractionalHours(t *testing.T) {
	now := time.Now()
	d := ComputeDecay(Stats{Hunger: 80, Happiness: 80, Health: 100}, now.Add(-119*time.Minute), now)
	assert.True(t, d.Zero())

	d = ComputeDecay(Stats{Hunger: 80, Happiness: 80, Health: 100}, now.Add(-2*time.Hour), now)
	assert.Equal(t, 1, d.HungerLoss)
	assert.Equal(t, 0, d.HappinessLoss)
}

func TestComputeDecay_FutureTimestamp(t *testing.T) {
	now := time.Now()
	d := ComputeDecay(Stats{Hunger: 10, Happiness: 10, Health: 10}, now.Add(time.Hour), now)
	assert.True(t, d.Zero())
}

func TestApplyDecay_FloorsAtZero(t *testing.T) {
	now := time.Now()
	stats := Stats{Hunger: 3, Happiness: 1, Health: 5}
	out := ApplyDecay(stats, ComputeDecay(stats, now.Add(-1000*time.Hour), now))
	assert.Equal(t, Stats{Hunger: 0, Happiness: 0, Health: 0}, out)
}

func TestDecay_Idempotent(t *testing.T) {
	now := time.Now()
	stats := Stats{Hunger: 70, Happiness: 30, Health: 60, Bond: 40}

	once := ApplyDecay(stats, ComputeDecay(stats, now.Add(-13*time.Hour), now))
	// 同一时刻再次计算（上次观察时间已推进到now）
	twice := ApplyDecay(once, ComputeDecay(once, now, now))
	assert.Equal(t, once, twice)
}

func TestDecay_Monotonic(t *testing.T) {
	now := time.Now()
	for hunger := 0; hunger <= 100; hunger += 11 {
		for happiness := 0; happiness <= 100; happiness += 13 {
			for hours := 0; hours <= 300; hours += 7 {
				stats := Stats{Hunger: hunger, Happiness: happiness, Health: 75, Bond: 20}
				out := ApplyDecay(stats, ComputeDecay(stats, now.Add(-time.Duration(hours)*time.Hour), now))
				assert.LessOrEqual(t, out.Hunger, stats.Hunger)
				assert.LessOrEqual(t, out.Happiness, stats.Happiness)
				assert.LessOrEqual(t, out.Health, stats.Health)
				assert.Equal(t, stats.Bond, out.Bond)
				assert.GreaterOrEqual(t, out.Hunger, 0)
				assert.GreaterOrEqual(t, out.Happiness, 0)
				assert.GreaterOrEqual(t, out.Health, 0)
			}
		}
	}
}

func TestDecayClock_StepSizeDoesNotMatter(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	stats := Stats{Hunger: 90, Happiness: 90, Health: 100}
	end := start.Add(30 * time.Hour)

	single, _ := NewDecayClock(start).Advance(stats, end)
	want := ApplyDecay(stats, single)
	assert.Equal(t, Stats{Hunger: 75, Happiness: 80, Health: 100}, want)

	for _, step := range []time.Duration{time.Hour, 2 * time.Hour, 90 * time.Minute, 179 * time.Minute, 5 * time.Hour} {
		clock := NewDecayClock(start)
		got := stats
		for now := start.Add(step); !now.After(end); now = now.Add(step) {
			var d Decay
			d, clock = clock.Advance(got, now)
			got = ApplyDecay(got, d)
		}
		d, _ := clock.Advance(got, end)
		got = ApplyDecay(got, d)
		assert.Equal(t, want, got, "step %s", step)
	}
}

func TestDecayClock_KeepsRemainder(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(5*time.Hour + 30*time.Minute)

	d, next := NewDecayClock(start).Advance(Stats{Hunger: 80, Happiness: 80, Health: 100}, now)
	assert.Equal(t, 2, d.HungerLoss)
	assert.Equal(t, 1, d.HappinessLoss)
	assert.True(t, next.Hunger.Equal(start.Add(4*time.Hour)))
	assert.True(t, next.Happiness.Equal(start.Add(3*time.Hour)))
	assert.True(t, next.Health.Equal(start.Add(5*time.Hour)))

	// 同一时刻再次结算没有损失，起点不变
	again, same := next.Advance(Stats{Hunger: 78, Happiness: 79, Health: 100}, now)
	assert.True(t, again.Zero())
	assert.True(t, same.Equal(next))
}

func TestDecayClock_FutureAnchor(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := NewDecayClock(now.Add(time.Hour))

	d, next := clock.Advance(Stats{Hunger: 10, Happiness: 10, Health: 10}, now)
	assert.True(t, d.Zero())
	assert.True(t, next.Equal(clock))
}
