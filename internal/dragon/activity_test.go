package dragon

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wfunc/dragon-companion/internal/config"
)

// fixedRand 固定结果的随机源
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) Intn(n int) int   { return r.n % n }

func TestRoller_UnknownActivity(t *testing.T) {
	r := NewRoller(nil, fixedRand{f: 0})
	got := r.Roll("not_a_thing")
	assert.Equal(t, int64(0), got.XP)
	assert.Empty(t, got.Items)
}

func TestRoller_FixedXP(t *testing.T) {
	r := NewRoller(nil, fixedRand{f: 0.99})
	assert.Equal(t, int64(5), r.Roll(ActivityDragonFed).XP)
	assert.Equal(t, int64(100), r.Roll(ActivityMilestoneReached).XP)
	assert.Empty(t, r.Roll(ActivityMilestoneReached).Items)
}

func TestRoller_ItemDrop(t *testing.T) {
	r := NewRoller(nil, fixedRand{f: 0.1, n: 2})
	got := r.Roll(ActivitySuggestionCompleted)
	assert.Equal(t, int64(25), got.XP)
	assert.Equal(t, []string{"ball"}, got.Items)

	// 概率边界：f == chance 不掉落
	r = NewRoller(ActivityTable{"x": {XP: 1, ItemPool: []string{"apple"}, ItemChance: 0.5}}, fixedRand{f: 0.5})
	assert.Empty(t, r.Roll("x").Items)
}

func TestRoller_NoPoolNeverDrops(t *testing.T) {
	r := NewRoller(nil, fixedRand{f: 0})
	assert.Empty(t, r.Roll(ActivityMessageSent).Items)
}

func TestRoller_DistributionStaysInPool(t *testing.T) {
	r := NewRoller(nil, rand.New(rand.NewSource(42)))
	pool := DefaultActivityTable()[ActivityMilestoneReached].ItemPool
	drops := 0
	for i := 0; i < 2000; i++ {
		got := r.Roll(ActivityMilestoneReached)
		if len(got.Items) > 0 {
			drops++
			assert.Contains(t, pool, got.Items[0])
		}
	}
	// 掉落概率0.5
	assert.InDelta(t, 1000, drops, 150)
}

func TestLoadActivityTable(t *testing.T) {
	table := LoadActivityTable(config.DragonConfig{
		Activities: map[string]config.ActivityConfig{
			"message_sent": {XP: 3},
			"anniversary":  {XP: 200, ItemPool: []string{"cake"}, ItemChance: 1},
		},
	})
	assert.Equal(t, int64(3), table[ActivityMessageSent].XP)
	assert.Equal(t, int64(200), table["anniversary"].XP)
	assert.Equal(t, int64(5), table[ActivityDragonFed].XP)
}
