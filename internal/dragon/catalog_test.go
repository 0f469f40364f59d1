package dragon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/dragon-companion/internal/config"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.NotNil(t, c)
	assert.Equal(t, "2024.1", c.Version())
	assert.Len(t, c.Items(), 13)

	apple, ok := c.Lookup("apple")
	assert.True(t, ok)
	assert.Equal(t, CategoryFood, apple.Category)
	assert.Equal(t, 10, apple.Effects[StatHunger])

	assert.Equal(t, []string{"ball", "feather", "puzzle_cube"}, c.ItemsByCategory(CategoryToy))
}

func TestCatalog_UnknownItemIsCosmetic(t *testing.T) {
	def, ok := DefaultCatalog().Lookup("rainbow_scarf")
	assert.False(t, ok)
	assert.Equal(t, "rainbow_scarf", def.ID)
	assert.Equal(t, CategoryAccessory, def.Category)
	assert.True(t, def.Effects.Empty())
}

func TestNewCatalog_Validation(t *testing.T) {
	_, err := NewCatalog("x", []ItemDefinition{{ID: "", Category: CategoryFood}})
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigValidate))

	_, err = NewCatalog("x", []ItemDefinition{{ID: "rock", Category: "mineral"}})
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigValidate))

	_, err = NewCatalog("x", []ItemDefinition{{ID: "poison", Category: CategoryFood, Effects: Effects{StatHealth: -10}}})
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigValidate))

	_, err = NewCatalog("x", []ItemDefinition{{ID: "magic", Category: CategoryTreat, Effects: Effects{"mana": 5}}})
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigValidate))
}

func TestLoadCatalog_Overrides(t *testing.T) {
	c, err := LoadCatalog(config.DragonConfig{
		CatalogVersion: "2024.2",
		Items: []config.ItemConfig{
			{ID: "apple", Category: "food", Effects: map[string]int{"hunger": 12}},
			{ID: "mango", Name: "Mango", Category: "food", Rarity: "uncommon", Effects: map[string]int{"hunger": 18, "happiness": 2}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024.2", c.Version())
	assert.Len(t, c.Items(), 14)

	apple, _ := c.Lookup("apple")
	assert.Equal(t, 12, apple.Effects[StatHunger])

	mango, ok := c.Lookup("mango")
	assert.True(t, ok)
	assert.Equal(t, RarityUncommon, mango.Rarity)
}

func TestStats_ApplyClamps(t *testing.T) {
	s := Stats{Hunger: 95, Happiness: 0, Health: 100, Bond: 99}
	out := s.Apply(Effects{StatHunger: 10, StatHappiness: 5, StatHealth: 15, StatBond: 10})
	assert.Equal(t, Stats{Hunger: 100, Happiness: 5, Health: 100, Bond: 100}, out)

	// 非正数增量被忽略
	out = s.Apply(Effects{StatHunger: -50})
	assert.Equal(t, 95, out.Hunger)
}

func TestStats_ClampedRange(t *testing.T) {
	items := DefaultCatalog().Items()
	s := Stats{}
	for i := 0; i < 200; i++ {
		s = s.Apply(items[i%len(items)].Effects)
		for _, v := range []int{s.Hunger, s.Happiness, s.Health, s.Bond} {
			assert.GreaterOrEqual(t, v, StatMin)
			assert.LessOrEqual(t, v, StatMax)
		}
	}
}

func TestEffects_Merge(t *testing.T) {
	merged := Effects{StatHappiness: 5, StatBond: 2}.Merge(Effects{StatHappiness: 15, StatBond: 5})
	assert.Equal(t, Effects{StatHappiness: 20, StatBond: 7}, merged)
	assert.True(t, Effects{}.Empty())
	assert.False(t, merged.Empty())
}
